package reqsched

import (
	"fmt"
	"net/http"

	lg "github.com/Andrej220/go-utils/zlog"
)

// Outcome labels used for metrics and logs.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
	OutcomeAborted = "aborted"
)

// Response is the value a successful Future resolves to. Failed requests
// carry it in RequestError.Response.
type Response struct {
	RequestID  string
	URL        string
	Method     string
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

func newResponse(r *Request, res TransportResult) *Response {
	return &Response{
		RequestID:  r.ID,
		URL:        r.Target.URL,
		Method:     r.Target.Method,
		Status:     res.Status,
		StatusText: res.StatusText,
		Header:     res.Header,
		Body:       res.Body,
	}
}

// resolveComplete turns a record whose handle reported completion into a
// fulfilled future.
func (s *Scheduler) resolveComplete(r *Request) {
	res := r.handle.Result()
	resp := newResponse(r, res)
	if res.Err == nil && resp.OK() {
		r.State = StateComplete
		s.fulfil(r, resp, nil, OutcomeSuccess)
		return
	}
	r.State = StateFailed
	s.fulfil(r, nil, &RequestError{
		ID:       r.ID,
		Kind:     ErrTransportFailure,
		Response: resp,
		Err:      res.Err,
	}, OutcomeFailure)
}

// reject fulfils r with a timeout or abort error.
func (s *Scheduler) reject(r *Request, kind, cause error, outcome string) {
	r.State = StateAborted
	s.fulfil(r, nil, &RequestError{ID: r.ID, Kind: kind, Err: cause}, outcome)
}

// fulfil is the only place a future is completed.
func (s *Scheduler) fulfil(r *Request, resp *Response, err error, outcome string) {
	r.release()
	if !r.future.fulfil(resp, err) {
		s.reportInternalError(fmt.Errorf("reqsched: request %s fulfilled twice", r.ID))
		return
	}
	s.metrics.IncResolved(outcome)

	logger := lg.FromContext(r.ctx).With(lg.String("request", r.ID), lg.String("url", r.Target.URL))
	switch outcome {
	case OutcomeSuccess:
		logger.Info("Request resolved", lg.Int("status", resp.Status))
	case OutcomeFailure:
		logger.Warn("Request failed", lg.Any("error", err))
	default:
		logger.Warn("Request rejected", lg.String("outcome", outcome), lg.Any("error", err))
	}
	if err != nil {
		s.reportRequestError(r.ID, err)
	}
}
