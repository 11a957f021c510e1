package testutil

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/registry"
)

// SumManifest declares the "sum" task served by SumModule.
const SumManifest = `
task "sum" {
  version = "1"

  lifecycle {
    on_run = "OnRunSum"
  }

  input "a" {
    type = number
  }

  input "b" {
    type    = number
    default = 0
  }

  output "total" {
    type = number
  }
}
`

// SumInput is the input of the "sum" task.
type SumInput struct {
	A int `cty:"a"`
	B int `cty:"b"`
}

// SumOutput is the output of the "sum" task.
type SumOutput struct {
	Total int `cty:"total"`
}

// SumModule registers OnRunSum and counts its calls.
type SumModule struct {
	// FailOn makes calls whose total equals a key fail.
	FailOn map[int]bool
	Calls  atomic.Int64
}

// Register implements registry.Module.
func (m *SumModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunSum", &registry.Handler{
		NewInput: func() any { return new(SumInput) },
		Fn: func(ctx context.Context, in *SumInput) (*SumOutput, error) {
			total := in.A + in.B
			m.Calls.Add(1)
			if m.FailOn[total] {
				return nil, ErrInjected
			}
			return &SumOutput{Total: total}, nil
		},
	})
}

// RunWorkflowTest runs workflowHCL against the "sum" task and returns the
// harness result.
func RunWorkflowTest(t *testing.T, workflowHCL string, m *SumModule) *HarnessResult {
	t.Helper()
	if m == nil {
		m = &SumModule{}
	}
	return RunIntegrationTest(t, map[string]string{
		"tasks/sum.hcl":     SumManifest,
		"workflow/main.hcl": workflowHCL,
	}, m)
}
