package reqsched

import (
	lg "github.com/Andrej220/go-utils/zlog"
)

// reportInternalError reports a scheduler failure that is not tied to the
// outcome of a request, such as a transport panicking in Send or a double
// fulfillment attempt.
//
// The loop keeps running after an internal error.
func (s *Scheduler) reportInternalError(e error) {
	lg.FromContext(s.ctx).Error("Scheduler internal error", lg.Any("error", e))
	if s.cfg.OnInternalError != nil {
		s.cfg.OnInternalError(e)
	}
}

// reportRequestError reports the rejection of a single request. It runs on
// the loop goroutine after the future was fulfilled, so the hook must not
// call back into the Scheduler.
func (s *Scheduler) reportRequestError(id string, err error) {
	if s.cfg.OnRequestError != nil {
		s.cfg.OnRequestError(id, err)
	}
}
