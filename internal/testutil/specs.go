package testutil

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// ErrInjected is returned by executors told to fail.
var ErrInjected = errors.New("injected failure")

// TB is the part of testing.TB the builders need. It is also satisfied by
// *rapid.T, so property tests can use them.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	FailNow()
}

// NumberSpec builds a task with required number inputs and a single number
// output "out".
func NumberSpec(t TB, name string, exec task.Executor, inputs ...string) *task.Spec {
	t.Helper()
	fields := make([]task.InputField, 0, len(inputs))
	for _, in := range inputs {
		fields = append(fields, task.InputField{Name: in, Type: cty.Number, Required: true})
	}
	s, err := task.New(
		task.Identity{Name: name, Version: "1"},
		fields,
		[]task.OutputField{{Name: "out", Type: cty.Number}},
		exec,
	)
	require.NoError(t, err)
	return s
}

// Counter is a task executor that sums its number inputs into "out" and
// records every call. It can be told to fail or panic for chosen input sums.
type Counter struct {
	mu        sync.Mutex
	calls     int
	instances []string

	// FailOn makes calls whose input sum equals a key fail.
	FailOn map[int64]bool
	// PanicOn makes calls whose input sum equals a key panic.
	PanicOn map[int64]bool
}

// NewCounter creates a Counter that never fails.
func NewCounter() *Counter {
	return &Counter{FailOn: map[int64]bool{}, PanicOn: map[int64]bool{}}
}

// Execute implements task.Executor.
func (c *Counter) Execute(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	sum := new(big.Float)
	for _, v := range inputs {
		if v.IsNull() || !v.Type().Equals(cty.Number) {
			continue
		}
		sum.Add(sum, v.AsBigFloat())
	}
	key, _ := sum.Int64()

	c.mu.Lock()
	c.calls++
	if info, ok := task.RunInfoFrom(ctx); ok {
		c.instances = append(c.instances, info.Instance)
	}
	fail, boom := c.FailOn[key], c.PanicOn[key]
	c.mu.Unlock()

	if boom {
		panic("counter told to panic")
	}
	if fail {
		return nil, ErrInjected
	}
	return map[string]cty.Value{"out": cty.NumberVal(sum)}, nil
}

// Calls returns the number of Execute calls so far.
func (c *Counter) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Instances returns the instance IDs seen through task.RunInfo, in call order.
func (c *Counter) Instances() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.instances...)
}
