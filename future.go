package reqsched

import (
	"context"
	"sync"
)

// Future is the single-fulfillment result of a submission.
//
// It is fulfilled exactly once by the scheduler, with either a Response or
// an error (a *RequestError for transport failures, timeouts and aborts).
type Future struct {
	id   string
	s    *Scheduler
	once sync.Once
	done chan struct{}

	resp *Response
	err  error
}

func newFuture(id string, s *Scheduler) *Future {
	return &Future{id: id, s: s, done: make(chan struct{})}
}

// ID returns the identity of the underlying request.
func (f *Future) ID() string { return f.id }

// Done is closed once the future is fulfilled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future is fulfilled or ctx is done. A cancelled ctx
// does not abort the request; use Abort for that.
func (f *Future) Wait(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the future is fulfilled.
func (f *Future) Result() (*Response, error) {
	<-f.done
	return f.resp, f.err
}

// Abort cancels the request. It reports whether the request was still
// queued or running; the future is rejected with ErrAborted in that case.
func (f *Future) Abort() bool {
	if f.s == nil {
		return false
	}
	return f.s.Abort(f.id)
}

// fulfil stores the outcome. It reports false if the future was already
// fulfilled, leaving the first outcome untouched.
func (f *Future) fulfil(resp *Response, err error) bool {
	ok := false
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
		ok = true
	})
	return ok
}
