package reqsched

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned synchronously by Submit when the target or
	// options are malformed. Nothing is queued.
	ErrValidation = errors.New("reqsched: invalid request")

	// ErrTransportFailure rejects a request whose transport finished with a
	// non-success status or a network-level error.
	ErrTransportFailure = errors.New("reqsched: transport failure")

	// ErrTimeout rejects a request that stayed active longer than its
	// TimeoutAfter.
	ErrTimeout = errors.New("reqsched: request timed out")

	// ErrAborted rejects a request cancelled by the caller or by Stop.
	ErrAborted = errors.New("reqsched: request aborted")

	// ErrClosed is returned when submitting to a stopped scheduler.
	ErrClosed = errors.New("reqsched: scheduler closed")

	// ErrInvalidConfig is returned by setters and Config.Validate.
	ErrInvalidConfig = errors.New("reqsched: invalid config")
)

// RequestError is the rejection value of a Future.
//
// Kind is one of ErrTransportFailure, ErrTimeout or ErrAborted. Response is
// set when the transport produced one. Err carries the transport diagnostic
// or the abort cause, if any.
type RequestError struct {
	ID       string
	Kind     error
	Response *Response
	Err      error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%v (request %s)", e.Kind, e.ID)
	if e.Response != nil && e.Response.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Response.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
