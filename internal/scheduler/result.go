package scheduler

import (
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
	"github.com/zclconf/go-cty/cty"
)

// InstanceResult is the final record of one instance.
type InstanceResult struct {
	ID          string
	Node        string
	State       State
	Fingerprint fingerprint.Fingerprint
	// CacheHit is true when the outputs came from the cache instead of an
	// execution by this instance.
	CacheHit bool
	Outputs  map[string]cty.Value
	// Cause is set for Failed, Blocked and Cancelled instances.
	Cause    error
	Duration time.Duration
}

// RunResult is the outcome of one Run.
type RunResult struct {
	RunID     uuid.UUID
	Status    Status
	Cancelled bool
	// Instances are in plan order.
	Instances []InstanceResult
	Started   time.Time
	Finished  time.Time

	index map[string]int
}

// Failures lists every Failed or Blocked instance.
func (r *RunResult) Failures() []InstanceResult {
	var out []InstanceResult
	for _, ir := range r.Instances {
		if ir.State == Failed || ir.State == Blocked {
			out = append(out, ir)
		}
	}
	return out
}

// Instance looks up the result of one instance by its identifier.
func (r *RunResult) Instance(id string) (InstanceResult, bool) {
	i, ok := r.index[id]
	if !ok {
		return InstanceResult{}, false
	}
	return r.Instances[i], true
}

// Outputs returns the outputs of a Succeeded instance, or nil.
func (r *RunResult) Outputs(id string) map[string]cty.Value {
	ir, ok := r.Instance(id)
	if !ok || ir.State != Succeeded {
		return nil
	}
	return ir.Outputs
}

// Count returns how many instances ended in state s.
func (r *RunResult) Count(s State) int {
	n := 0
	for _, ir := range r.Instances {
		if ir.State == s {
			n++
		}
	}
	return n
}
