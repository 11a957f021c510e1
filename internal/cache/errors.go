package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
)

var (
	// ErrNotFound is returned by a Store when no entry exists for a fingerprint.
	ErrNotFound = errors.New("cache entry not found")

	// ErrReservationLost means the reservation was reclaimed after its timeout.
	ErrReservationLost = errors.New("reservation was reclaimed")

	// ErrNotInFlight is returned by Await for a lookup it cannot wait on.
	ErrNotInFlight = errors.New("lookup is not in flight")
)

// CacheError wraps a failed Store operation.
type CacheError struct {
	Op          string
	Fingerprint fingerprint.Fingerprint
	Err         error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Fingerprint.Short(), e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// InfrastructureError is a failure of the cache itself that must abort the run.
type InfrastructureError struct {
	Err error
}

func (e *InfrastructureError) Error() string {
	return "infrastructure failure: " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// SharedFailure is what a waiter receives when the reservation holder it was
// waiting on aborted.
type SharedFailure struct {
	Fingerprint fingerprint.Fingerprint
	Err         error
}

func (e *SharedFailure) Error() string {
	return fmt.Sprintf("shared execution of %s failed: %v", e.Fingerprint.Short(), e.Err)
}

func (e *SharedFailure) Unwrap() error { return e.Err }

// ConcurrencyTimeout records a reservation that was held past the timeout and
// reclaimed by a waiter.
type ConcurrencyTimeout struct {
	Fingerprint fingerprint.Fingerprint
	Held        time.Duration
}

func (e *ConcurrencyTimeout) Error() string {
	return fmt.Sprintf("reservation for %s held for %s, reclaimed", e.Fingerprint.Short(), e.Held.Round(time.Millisecond))
}
