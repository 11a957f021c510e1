package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamFailed is the cause recorded on Blocked instances.
	ErrUpstreamFailed = errors.New("upstream failed")

	// ErrPanic wraps a panic recovered from an executor.
	ErrPanic = errors.New("executor panicked")
)

// ExecutionFailure is the cause recorded on a Failed instance. It stays local
// to the instance; dependents are Blocked, siblings keep running.
type ExecutionFailure struct {
	Instance string
	Err      error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("instance %s failed: %v", e.Instance, e.Err)
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }
