package scheduler

import "fmt"

// State is the scheduling state of one instance.
type State int32

const (
	Pending State = iota
	Ready
	Running
	Succeeded
	Failed
	Blocked
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Blocked:
		return "blocked"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s >= Succeeded
}

// Status is the overall outcome of a run.
type Status int

const (
	Success Status = iota
	PartialFailure
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "partial_failure"
}
