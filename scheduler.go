package reqsched

import (
	"context"
	"fmt"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
)

// run is the scheduler goroutine. It:
//   - accepts submissions and aborts
//   - ticks every pollAfter while any queue holds work
//   - stays parked without a timer while both queues are empty
//   - aborts everything left on Stop
func (s *Scheduler) run() {
	defer close(s.doneCh)

	for {
		var tick <-chan time.Time
		if s.timer != nil {
			tick = s.timer.C
		}

		select {
		case <-s.stopCh:
			s.shutdown()
			return

		case r := <-s.submitCh:
			s.enqueue(r)
			s.arm()

		case req := <-s.abortCh:
			req.reply <- s.abortRequest(req.id, req.cause)

		case <-tick:
			s.timer = nil
			s.tick()
			s.arm()
		}
	}
}

// arm schedules the next tick if there is work and none is scheduled yet,
// otherwise leaves the loop idle.
func (s *Scheduler) arm() {
	if s.timer != nil || (s.pending.Len() == 0 && s.active.Len() == 0) {
		return
	}
	s.timer = time.NewTimer(s.PollAfter())
}

// enqueue inserts a freshly submitted record into the pending queue.
func (s *Scheduler) enqueue(r *Request) {
	if r.ctx == nil {
		r.ctx = s.ctx
	}
	if r.ctx.Err() != nil {
		// cancelled before the loop saw it
		s.reject(r, ErrAborted, context.Cause(r.ctx), OutcomeAborted)
		return
	}
	s.seq++
	r.seq = s.seq
	r.Age = 0
	r.State = StatePending
	s.pending.Put(r)
	s.publish()
}

// tick runs one scheduling step: promotion, admission, completion.
func (s *Scheduler) tick() {
	s.set.mu.RLock()
	poll, promoteAfter, limit := s.set.pollAfter, s.set.promoteAfter, s.set.limit
	s.set.mu.RUnlock()

	s.promote(poll, promoteAfter)
	s.admit(limit)
	s.complete(poll)
	s.publish()
}

// promote ages every pending record by one poll interval. A record that
// waited promoteAfter since insertion or its last promotion gets its
// priority number lowered by one and its age reset.
func (s *Scheduler) promote(poll, promoteAfter time.Duration) {
	s.pending.ForEach(func(r *Request, _ int) bool {
		r.Age += poll
		if r.Age >= promoteAfter {
			r.Age = 0
			r.Priority--
			s.metrics.IncPromoted()
		}
		return true
	})
	s.pending.Sort()
}

// admit moves records from the head of the pending queue to the active
// queue until the concurrency limit is reached.
func (s *Scheduler) admit(limit int) {
	for s.active.Len() < limit && s.pending.Len() > 0 {
		r, _ := s.pending.Shift()
		r.State = StateActive
		r.Age = 0
		r.elapsed = 0
		r.admitted = true
		r.handle = s.transport.Create()
		s.active.Put(r)

		if err := s.send(r); err != nil {
			s.active.Remove(func(x *Request) bool { return x == r })
			s.reportInternalError(err)
			r.State = StateFailed
			s.fulfil(r, nil, &RequestError{ID: r.ID, Kind: ErrTransportFailure, Err: err}, OutcomeFailure)
			continue
		}
		lg.FromContext(r.ctx).Info("Request admitted",
			lg.String("request", r.ID),
			lg.Int("priority", r.Priority),
			lg.Int("active", s.active.Len()),
		)
	}
}

// send hands the request to its handle, turning a panic into an error.
func (s *Scheduler) send(r *Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("reqsched: transport send panicked: %v", rec)
		}
	}()
	target := r.Target
	target.Header = r.Target.Header.Clone()
	r.handle.Send(&target)
	return nil
}

// complete resolves finished records and times out the ones that stayed
// active for their whole timeout. Active time is counted from the tick
// after admission.
func (s *Scheduler) complete(poll time.Duration) {
	s.active.ForEach(func(r *Request, idx int) bool {
		if r.handle.State() == HandleComplete {
			s.active.DeleteAt(idx)
			s.resolveComplete(r)
			return true
		}
		if r.admitted {
			r.admitted = false
			return true
		}
		r.elapsed += poll
		if r.elapsed >= r.timeout {
			s.active.DeleteAt(idx)
			r.handle.Abort()
			s.reject(r, ErrTimeout, fmt.Errorf("active for %v, limit %v", r.elapsed, r.timeout), OutcomeTimeout)
		}
		return true
	})
}

// abortRequest removes the record with id from whichever queue holds it and
// rejects it with ErrAborted.
func (s *Scheduler) abortRequest(id string, cause error) bool {
	match := func(r *Request) bool { return r.ID == id }

	r, ok := s.pending.Remove(match)
	if !ok {
		r, ok = s.active.Remove(match)
		if !ok {
			return false
		}
		r.handle.Abort()
	}
	s.reject(r, ErrAborted, cause, OutcomeAborted)
	s.publish()
	return true
}

// shutdown aborts every record still held by the scheduler.
func (s *Scheduler) shutdown() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for _, r := range s.active.Drain() {
		r.handle.Abort()
		s.reject(r, ErrAborted, ErrClosed, OutcomeAborted)
	}
	for _, r := range s.pending.Drain() {
		s.reject(r, ErrAborted, ErrClosed, OutcomeAborted)
	}
	s.publish()
	lg.FromContext(s.ctx).Info("Scheduler stopped")
}

// publish exposes the queue lengths outside the loop.
func (s *Scheduler) publish() {
	p, a := s.pending.Len(), s.active.Len()
	s.pendingLen.Store(int64(p))
	s.activeLen.Store(int64(a))
	s.metrics.SetPending(p)
	s.metrics.SetActive(a)
}
