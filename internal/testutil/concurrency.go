package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Sleeper is a task executor for concurrency tests. It sleeps for a fixed
// duration and records the execution window of each instance.
type Sleeper struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewSleeper creates a Sleeper. completionChan, if not nil, receives the
// instance ID of every finished execution.
func NewSleeper(completionChan chan<- string, sleep time.Duration) *Sleeper {
	return &Sleeper{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Execute implements task.Executor. It outputs the number 0 as "out".
func (s *Sleeper) Execute(ctx context.Context, _ map[string]cty.Value) (map[string]cty.Value, error) {
	id := "unknown"
	if info, ok := task.RunInfoFrom(ctx); ok {
		id = info.Instance
	}

	startTime := time.Now()
	time.Sleep(s.sleepDuration)
	endTime := time.Now()

	s.mu.Lock()
	s.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
	s.mu.Unlock()

	if s.completionChan != nil {
		s.completionChan <- id
	}
	return map[string]cty.Value{"out": cty.Zero}, nil
}

// Record returns the execution window of an instance.
func (s *Sleeper) Record(id string) (*ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ExecutionTimes[id]
	return r, ok
}
