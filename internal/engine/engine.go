package engine

import (
	"context"
	"fmt"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/expand"
	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/metrics"
	"github.com/specialistvlad/sweepgrid/internal/scheduler"
)

// Engine runs workflow graphs against a shared result cache.
type Engine struct {
	cache   *cache.Cache
	workDir string
	metrics *metrics.Metrics
}

// Option customizes an Engine.
type Option func(*Engine)

// WithWorkDir sets the directory under which each instance gets its
// private working directory.
func WithWorkDir(dir string) Option {
	return func(e *Engine) { e.workDir = dir }
}

// WithMetrics records run and instance metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an engine that deduplicates work through c.
func New(c *cache.Cache, opts ...Option) *Engine {
	e := &Engine{cache: c}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates g, freezes it and runs it with at most concurrency
// instances executing at once. Concurrency below 1 is treated as 1.
//
// A structurally invalid graph returns every validation error joined, and
// nothing executes. Instance failures are reported in the result, not as an
// error; the error is non-nil only for infrastructure failures.
func (e *Engine) Submit(ctx context.Context, g *graph.Graph, concurrency int) (*scheduler.RunResult, error) {
	logger := ctxlog.FromContext(ctx)
	if concurrency < 1 {
		concurrency = 1
	}

	if err := g.Validate(); err != nil {
		logger.Error("Graph validation failed.", "error", err)
		return nil, err
	}
	g.Freeze()

	plan, err := expand.Expand(g)
	if err != nil {
		return nil, fmt.Errorf("expanding graph: %w", err)
	}
	logger.Info("Expanded workflow.", "nodes", g.Len(), "instances", plan.Len())

	opts := []scheduler.Option{scheduler.WithWorkDir(e.workDir)}
	if e.metrics != nil {
		opts = append(opts, scheduler.WithMetrics(e.metrics))
	}
	return scheduler.New(e.cache, opts...).Run(ctx, plan, concurrency)
}
