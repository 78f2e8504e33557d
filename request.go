package reqsched

import (
	"context"
	"net/http"
	"time"
)

// State is the lifecycle state of a Request.
type State int

const (
	StatePending State = iota
	StateActive
	StateComplete
	StateFailed
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Options configure a single submission.
//
// Zero values mean "use the scheduler default": Method falls back to GET
// (or to the verb of the helper used), Priority to Config.DefaultPriority,
// TimeoutAfter to the scheduler's TimeoutAfter.
type Options struct {
	Method string
	Header http.Header
	Body   []byte

	// Priority overrides the default priority; lower is more urgent.
	Priority *int

	TimeoutAfter time.Duration
}

// Prio is a helper for filling Options.Priority.
func Prio(p int) *int { return &p }

// OutboundRequest is what a transport handle receives on Send. It is the
// normalized form of the caller's target and options.
type OutboundRequest struct {
	ID     string
	URL    string
	Method string
	Header http.Header
	Body   []byte

	// TimeoutAfter is informational; the scheduler enforces it itself.
	TimeoutAfter time.Duration
}

// Request is the record the scheduler keeps for one submission, from the
// moment it is queued until its future is fulfilled.
//
// All fields are owned by the scheduler loop.
type Request struct {
	ID       string
	Target   OutboundRequest
	Priority int
	Age      time.Duration
	State    State

	// elapsed is the accumulated active time, checked against timeout.
	elapsed time.Duration
	timeout time.Duration

	// admitted is set for the tick that sent the request; no active time
	// accrues in that tick.
	admitted bool

	// seq orders records of equal priority by insertion.
	seq uint64

	handle Handle
	future *Future
	ctx    context.Context

	// stopCtx releases the context.AfterFunc registration.
	stopCtx func() bool
}

// release drops the transport handle and the context hook once the record
// leaves the scheduler.
func (r *Request) release() {
	r.handle = nil
	if r.stopCtx != nil {
		r.stopCtx()
		r.stopCtx = nil
	}
}
