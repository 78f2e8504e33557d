// Package reqsched schedules asynchronous network requests.
//
// Callers submit requests and get back a Future. The scheduler keeps
// submissions in a priority-ordered pending queue, promotes requests that
// waited too long, runs at most ConcurrencyLimit of them at once through a
// pluggable Transport and fulfils each Future exactly once.
//
// Architecture overview
//
// The scheduler is composed of four loosely coupled parts:
//
//  1. Queues (orderedQueue)
//     The pending queue is sorted by priority, lower numbers first, with
//     ties kept in submission order. The active queue keeps admission
//     order.
//
//  2. Loop (Scheduler.run)
//     A single goroutine owns both queues. While any queue holds work it
//     ticks every PollAfter; with both queues empty it parks without a
//     timer until the next submission. Submissions and aborts reach it
//     over channels, so queue state is never shared.
//
//  3. Transport (Transport / Handle)
//     Issues the network call and reports completion. HTTPTransport is
//     the net/http implementation; tests and embedders may plug their own.
//
//  4. Resolution (Future)
//     The single place a request leaves the scheduler. A 2xx response
//     resolves the Future; anything else rejects it with a *RequestError.
//
// Tick
//
// Each tick runs, in order:
//
//   - promotion: every pending request ages by PollAfter; once its age
//     reaches PromoteAfter the age resets and its priority number drops by
//     one, so low-priority work cannot starve under steady high-priority
//     load
//   - admission: the head of the pending queue is started until the active
//     queue is full
//   - completion: finished requests are resolved; requests active for
//     longer than their TimeoutAfter are aborted and rejected with
//     ErrTimeout
//
// Ages and active time advance by PollAfter per tick, not by wall clock.
// Active time starts counting on the tick after admission.
//
// Error handling
//
// ErrValidation is returned synchronously by Submit. ErrTransportFailure,
// ErrTimeout and ErrAborted arrive through the Future, wrapped in a
// *RequestError. A failing request never affects the others, and a
// transport that never completes only holds its slot until the timeout.
//
// Cancellation
//
// Future.Abort, Scheduler.Abort and cancelling the context passed to Submit
// all remove the request from whichever queue holds it, abort the handle if
// it was running and reject the Future with ErrAborted. Stop does the same
// for everything left.
package reqsched
