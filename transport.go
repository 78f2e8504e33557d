package reqsched

import (
	"net/http"
)

// HandleState reports whether a transport handle finished.
type HandleState int

const (
	HandlePending HandleState = iota
	HandleComplete
)

// TransportResult is the final state of a handle once it is complete.
//
// Err is set for network-level failures; Status is 0 in that case.
type TransportResult struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
	Err        error
}

// Handle is one in-flight network call.
//
// The scheduler polls State from its loop, so State and Result must be safe
// to call while the call runs on another goroutine. Send must not block.
type Handle interface {
	Send(req *OutboundRequest)
	State() HandleState
	Result() TransportResult
	// Abort is best-effort. The scheduler never reads the result of an
	// aborted handle.
	Abort()
}

// Transport creates handles. The scheduler creates one handle per request
// at admission time.
type Transport interface {
	Create() Handle
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func() Handle

func (f TransportFunc) Create() Handle { return f() }
