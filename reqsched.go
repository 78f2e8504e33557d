package reqsched

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/google/uuid"
)

// NewID returns the identity of a new request. Tests may replace it.
var NewID = func() string { return uuid.New().String() }

// settings are the runtime-adjustable knobs. They are read by the loop on
// every tick and written by callers, hence the lock.
type settings struct {
	mu           sync.RWMutex
	pollAfter    time.Duration
	promoteAfter time.Duration
	timeoutAfter time.Duration
	limit        int
	headers      http.Header
}

// Scheduler queues requests, ages their priorities, caps how many run at
// once and fulfils one Future per request.
//
// Both queues belong to a single loop goroutine; Submit and Abort talk to it
// over channels.
type Scheduler struct {
	ctx       context.Context
	cfg       Config
	transport Transport
	metrics   MetricsPolicy
	set       settings

	pending *orderedQueue[*Request]
	active  *orderedQueue[*Request]
	seq     uint64

	submitCh chan *Request
	abortCh  chan abortReq
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	// timer is nil while the loop is idle.
	timer *time.Timer

	pendingLen atomic.Int64
	activeLen  atomic.Int64
}

type abortReq struct {
	id    string
	cause error
	reply chan bool
}

// New creates a scheduler and starts its loop. ctx carries the logger and
// bounds nothing else; call Stop to tear the scheduler down. A nil metrics
// uses NoopMetrics.
func New(ctx context.Context, cfg Config, transport Transport, metrics MetricsPolicy) (*Scheduler, error) {
	s, err := newScheduler(ctx, cfg, transport, metrics)
	if err != nil {
		return nil, err
	}
	go s.run()
	return s, nil
}

// newScheduler builds a scheduler without starting its loop.
func newScheduler(ctx context.Context, cfg Config, transport Transport, metrics MetricsPolicy) (*Scheduler, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.FillDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	s := &Scheduler{
		ctx:       ctx,
		cfg:       cfg,
		transport: transport,
		metrics:   metrics,
		pending:   newPendingQueue(),
		active:    newActiveQueue(),
		submitCh:  make(chan *Request),
		abortCh:   make(chan abortReq),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	s.set.pollAfter = cfg.PollAfter
	s.set.promoteAfter = cfg.PromoteAfter
	s.set.timeoutAfter = cfg.TimeoutAfter
	s.set.limit = cfg.ConcurrencyLimit
	s.set.headers = make(http.Header, len(cfg.Headers))
	for name, value := range cfg.Headers {
		s.set.headers.Set(strings.TrimSpace(name), value)
	}
	return s, nil
}

// Stop rejects every queued and running request with ErrAborted and ends the
// loop. It waits for the loop to exit or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit validates and queues a request and returns its Future without
// waiting for it to run. Cancelling ctx aborts the request.
func (s *Scheduler) Submit(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, "")
}

func (s *Scheduler) submit(ctx context.Context, target string, opts *Options, verb string) (*Future, error) {
	if ctx == nil {
		ctx = s.ctx
	}
	r, err := s.newRequest(ctx, target, opts, verb)
	if err != nil {
		return nil, err
	}
	fut, prio, out := r.future, r.Priority, r.Target

	select {
	case <-s.stopCh:
		return nil, ErrClosed
	default:
	}

	// The loop rejects a request whose ctx is already done when it arrives,
	// so a hook firing before the request is queued loses nothing.
	if ctx.Done() != nil {
		id := r.ID
		r.stopCtx = context.AfterFunc(ctx, func() {
			s.abort(id, context.Cause(ctx))
		})
	}

	select {
	case s.submitCh <- r:
	case <-s.stopCh:
		r.release()
		return nil, ErrClosed
	}

	s.metrics.IncSubmitted()
	lg.FromContext(ctx).Info("Request submitted",
		lg.String("request", fut.ID()),
		lg.String("method", out.Method),
		lg.String("url", out.URL),
		lg.Int("priority", prio),
	)
	return fut, nil
}

// newRequest builds a pending record from a submission.
func (s *Scheduler) newRequest(ctx context.Context, target string, opts *Options, verb string) (*Request, error) {
	if opts == nil {
		opts = &Options{}
	}
	out, err := s.normalize(target, opts, verb)
	if err != nil {
		return nil, err
	}
	r := &Request{
		ID:       NewID(),
		Target:   out,
		Priority: s.cfg.DefaultPriority,
		State:    StatePending,
		timeout:  out.TimeoutAfter,
		ctx:      ctx,
	}
	if opts.Priority != nil {
		r.Priority = *opts.Priority
	}
	r.Target.ID = r.ID
	r.future = newFuture(r.ID, s)
	return r, nil
}

// normalize validates the submission and merges scheduler defaults into it.
func (s *Scheduler) normalize(target string, opts *Options, verb string) (OutboundRequest, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return OutboundRequest{}, validationErr("empty target")
	}
	u, err := url.Parse(target)
	if err != nil {
		return OutboundRequest{}, validationErr("target %q: %v", target, err)
	}

	method := verb
	if method == "" {
		method = strings.ToUpper(strings.TrimSpace(opts.Method))
	}
	if method == "" {
		method = http.MethodGet
	}
	if !validHeaderName(method) {
		return OutboundRequest{}, validationErr("method %q", method)
	}
	if opts.TimeoutAfter < 0 {
		return OutboundRequest{}, validationErr("negative timeout %v", opts.TimeoutAfter)
	}

	s.set.mu.RLock()
	header := s.set.headers.Clone()
	timeout := s.set.timeoutAfter
	s.set.mu.RUnlock()

	if header == nil {
		header = make(http.Header)
	}
	for name, values := range opts.Header {
		if !validHeaderName(name) {
			return OutboundRequest{}, validationErr("header name %q", name)
		}
		header[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if opts.TimeoutAfter > 0 {
		timeout = opts.TimeoutAfter
	}

	return OutboundRequest{
		URL:          u.String(),
		Method:       method,
		Header:       header,
		Body:         opts.Body,
		TimeoutAfter: timeout,
	}, nil
}

// Abort cancels the request with the given id. It reports whether the
// request was still queued or running.
func (s *Scheduler) Abort(id string) bool {
	return s.abort(id, nil)
}

func (s *Scheduler) abort(id string, cause error) bool {
	reply := make(chan bool, 1)
	select {
	case s.abortCh <- abortReq{id: id, cause: cause, reply: reply}:
	case <-s.doneCh:
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-s.doneCh:
		return false
	}
}

// Fetch submits a request using opts.Method, GET when unset.
func (s *Scheduler) Fetch(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, "")
}

func (s *Scheduler) Get(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, http.MethodGet)
}

func (s *Scheduler) Post(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, http.MethodPost)
}

func (s *Scheduler) Put(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, http.MethodPut)
}

func (s *Scheduler) Delete(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, http.MethodDelete)
}

func (s *Scheduler) Head(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, http.MethodHead)
}

// Options retrieves the methods a resource permits.
func (s *Scheduler) Options(ctx context.Context, target string, opts *Options) (*Future, error) {
	return s.submit(ctx, target, opts, http.MethodOptions)
}

// AddHeader sets a header merged into every subsequent request.
func (s *Scheduler) AddHeader(name, value string) *Scheduler {
	name = strings.TrimSpace(name)
	s.set.mu.Lock()
	s.set.headers.Set(name, value)
	s.set.mu.Unlock()
	return s
}

func (s *Scheduler) AddHeaders(entries map[string]string) *Scheduler {
	for name, value := range entries {
		s.AddHeader(name, value)
	}
	return s
}

func (s *Scheduler) RemoveHeader(name string) *Scheduler {
	name = strings.TrimSpace(name)
	s.set.mu.Lock()
	s.set.headers.Del(name)
	s.set.mu.Unlock()
	return s
}

func (s *Scheduler) RemoveHeaders(names ...string) *Scheduler {
	for _, name := range names {
		s.RemoveHeader(name)
	}
	return s
}

// Headers returns a copy of the global headers.
func (s *Scheduler) Headers() http.Header {
	s.set.mu.RLock()
	defer s.set.mu.RUnlock()
	return s.set.headers.Clone()
}

func (s *Scheduler) PollAfter() time.Duration {
	s.set.mu.RLock()
	defer s.set.mu.RUnlock()
	return s.set.pollAfter
}

// SetPollAfter changes the tick interval from the next tick on.
func (s *Scheduler) SetPollAfter(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: pollAfter must be > 0", ErrInvalidConfig)
	}
	s.set.mu.Lock()
	s.set.pollAfter = d
	s.set.mu.Unlock()
	return nil
}

func (s *Scheduler) PromoteAfter() time.Duration {
	s.set.mu.RLock()
	defer s.set.mu.RUnlock()
	return s.set.promoteAfter
}

func (s *Scheduler) SetPromoteAfter(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: promoteAfter must be > 0", ErrInvalidConfig)
	}
	s.set.mu.Lock()
	s.set.promoteAfter = d
	s.set.mu.Unlock()
	return nil
}

func (s *Scheduler) TimeoutAfter() time.Duration {
	s.set.mu.RLock()
	defer s.set.mu.RUnlock()
	return s.set.timeoutAfter
}

// SetTimeoutAfter changes the default timeout of requests submitted later.
func (s *Scheduler) SetTimeoutAfter(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: timeoutAfter must be > 0", ErrInvalidConfig)
	}
	s.set.mu.Lock()
	s.set.timeoutAfter = d
	s.set.mu.Unlock()
	return nil
}

func (s *Scheduler) ConcurrencyLimit() int {
	s.set.mu.RLock()
	defer s.set.mu.RUnlock()
	return s.set.limit
}

// SetConcurrencyLimit changes the cap from the next admission pass on.
// Lowering it never interrupts running requests.
func (s *Scheduler) SetConcurrencyLimit(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: concurrency limit must be > 0", ErrInvalidConfig)
	}
	s.set.mu.Lock()
	s.set.limit = n
	s.set.mu.Unlock()
	return nil
}

// PendingLen and ActiveLen report the queue lengths as of the last loop
// step.
func (s *Scheduler) PendingLen() int { return int(s.pendingLen.Load()) }
func (s *Scheduler) ActiveLen() int  { return int(s.activeLen.Load()) }

// validHeaderName reports whether name is a non-empty HTTP token.
func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
