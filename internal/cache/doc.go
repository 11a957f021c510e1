// Package cache gives each fingerprint at most one execution.
//
// A Cache sits in front of a Store of completed entries and keeps an
// in-process reservation table. A worker that wants to run a task instance
// asks LookupOrReserve for its fingerprint and gets one of three answers:
//
//   - Hit: a Done entry exists, use its outputs.
//   - Reserved: the caller now owns the fingerprint and must Commit or Abort.
//   - InFlight: someone else owns it; Await blocks until they finish.
//
// A reservation held longer than the reservation timeout is reclaimed by the
// next waiter whose wait expires. The original holder's later Commit or Abort
// then fails with ErrReservationLost.
//
// Store failures are reported as *CacheError. A non-authoritative cache
// treats them as a miss and carries on; an authoritative one surfaces them as
// *InfrastructureError, which aborts the run.
package cache
