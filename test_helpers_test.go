package reqsched

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubHandle is a transport handle completed by the test.
type stubHandle struct {
	mu      sync.Mutex
	sent    *OutboundRequest
	state   HandleState
	result  TransportResult
	aborted bool
	panics  bool
}

func (h *stubHandle) Send(req *OutboundRequest) {
	if h.panics {
		panic("send exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = req
}

func (h *stubHandle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *stubHandle) Result() TransportResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *stubHandle) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.aborted = true
}

func (h *stubHandle) finish(res TransportResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result = res
	h.state = HandleComplete
}

func (h *stubHandle) isAborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

func (h *stubHandle) request() *OutboundRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sent
}

// stubTransport hands out stubHandles and remembers them in creation order.
// With autoStatus set, handles complete as soon as they are sent.
type stubTransport struct {
	mu         sync.Mutex
	handles    []*stubHandle
	autoStatus int
	panics     bool
}

func (t *stubTransport) Create() Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := &stubHandle{panics: t.panics}
	if t.autoStatus != 0 {
		h.state = HandleComplete
		h.result = TransportResult{Status: t.autoStatus}
	}
	t.handles = append(t.handles, h)
	return h
}

func (t *stubTransport) handle(i int) *stubHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handles[i]
}

func (t *stubTransport) created() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.handles)
}

// newLoopless returns a scheduler whose loop is not running, so tests can
// drive tick() by hand.
func newLoopless(t *testing.T, cfg Config) (*Scheduler, *stubTransport) {
	t.Helper()
	tr := &stubTransport{}
	s, err := newScheduler(context.Background(), cfg, tr, &AtomicMetrics{})
	require.NoError(t, err)
	return s, tr
}

// queue builds a record the way Submit does and puts it straight into the
// pending queue.
func queue(t *testing.T, s *Scheduler, target string, prio int) *Request {
	t.Helper()
	r, err := s.newRequest(context.Background(), target, &Options{Priority: Prio(prio)}, "")
	require.NoError(t, err)
	s.enqueue(r)
	return r
}

func ticks(s *Scheduler, n int) {
	for range n {
		s.tick()
	}
}

func fulfilled(f *Future) bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

func fastConfig() Config {
	return Config{
		PollAfter:        5 * time.Millisecond,
		PromoteAfter:     50 * time.Millisecond,
		TimeoutAfter:     time.Second,
		ConcurrencyLimit: 2,
	}
}
