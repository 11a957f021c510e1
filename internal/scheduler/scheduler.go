package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/expand"
	"github.com/specialistvlad/sweepgrid/internal/metrics"
)

// Scheduler dispatches plans to a worker pool, deduplicating work through a
// cache. A Scheduler can run several plans, one after another or at once.
type Scheduler struct {
	cache   *cache.Cache
	workDir string
	metrics *metrics.Metrics
}

type Option func(*Scheduler)

// WithWorkDir gives every executed instance its own directory under dir,
// laid out as dir/<node>/<fingerprint>.
func WithWorkDir(dir string) Option {
	return func(s *Scheduler) { s.workDir = dir }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a Scheduler backed by c.
func New(c *cache.Cache, opts ...Option) *Scheduler {
	s := &Scheduler{cache: c}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unit is the run-time state of one instance.
type unit struct {
	inst       *expand.Instance
	state      atomic.Int32
	depCount   atomic.Int32
	upstream   []*unit
	dependents []*unit

	// Written by whoever moves the unit into a terminal state, before the
	// transition becomes visible to dependents.
	result InstanceResult
}

func (u *unit) id() string { return u.inst.ID.String() }

// transition moves u from one of the given states to to, and reports whether
// it did.
func (u *unit) transition(to State, from ...State) bool {
	for _, f := range from {
		if u.state.CompareAndSwap(int32(f), int32(to)) {
			return true
		}
	}
	return false
}

type run struct {
	s     *Scheduler
	id    uuid.UUID
	units []*unit
	ready chan *unit
	// ctx is cancelled by the caller or by an infrastructure failure. It
	// stops promotion only; executors run on a detached context.
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	infraOnce sync.Once
	infraErr  error
}

// Run executes plan with concurrency workers and blocks until every instance
// is terminal. Concurrency below 1 is treated as 1.
//
// The returned error is non-nil only for an infrastructure failure, in which
// case the partial result is returned alongside it.
func (s *Scheduler) Run(ctx context.Context, plan *expand.Plan, concurrency int) (*RunResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	r := s.newRun(plan)
	ctx, logger := ctxlog.With(ctx, "run_id", r.id.String())
	r.ctx, r.cancel = context.WithCancelCause(ctx)
	defer r.cancel(nil)

	started := time.Now()
	logger.Info("Starting run.", "instances", len(r.units), "workers", concurrency)

	r.wg.Add(len(r.units))
	for _, u := range r.units {
		if u.depCount.Load() == 0 {
			r.promote(u)
		}
	}

	var workers sync.WaitGroup
	for i := range concurrency {
		workers.Add(1)
		go func() {
			defer workers.Done()
			r.worker(ctx, i)
		}()
	}

	r.wg.Wait()
	close(r.ready)
	workers.Wait()

	res := r.result(started)
	s.metrics.RunFinished(res.Status.String())
	logger.Info("Run finished.",
		"status", res.Status.String(),
		"succeeded", res.Count(Succeeded),
		"failed", res.Count(Failed),
		"blocked", res.Count(Blocked),
		"cancelled", res.Count(Cancelled),
		"duration", res.Finished.Sub(res.Started),
	)
	if r.infraErr != nil {
		return res, r.infraErr
	}
	return res, nil
}

func (s *Scheduler) newRun(plan *expand.Plan) *run {
	r := &run{s: s, id: uuid.New()}
	if plan == nil {
		r.ready = make(chan *unit)
		return r
	}

	byInst := make(map[*expand.Instance]*unit, plan.Len())
	for _, inst := range plan.Instances {
		u := &unit{inst: inst}
		u.result = InstanceResult{ID: inst.ID.String(), Node: inst.Node.Name}
		byInst[inst] = u
		r.units = append(r.units, u)
	}
	for _, u := range r.units {
		for _, up := range u.inst.Upstream {
			u.upstream = append(u.upstream, byInst[up])
		}
		for _, down := range u.inst.Dependents {
			u.dependents = append(u.dependents, byInst[down])
		}
		u.depCount.Store(int32(len(u.upstream)))
	}
	r.ready = make(chan *unit, len(r.units))
	return r
}

// promote makes u Ready, or Cancelled when the run is no longer promoting.
func (r *run) promote(u *unit) {
	if r.ctx.Err() != nil {
		r.cancelPending(u)
		return
	}
	if u.transition(Ready, Pending) {
		r.ready <- u
	}
}

// succeed publishes u's outputs and unlocks its dependents.
func (r *run) succeed(ctx context.Context, u *unit) {
	u.result.State = Succeeded
	u.state.Store(int32(Succeeded))
	r.finished(u)

	for _, d := range u.dependents {
		if d.depCount.Add(-1) == 0 {
			ctxlog.FromContext(ctx).Debug("Unlocking dependent instance.", "dependent", d.id())
			r.promote(d)
		}
	}
}

func (r *run) fail(ctx context.Context, u *unit, err error) {
	u.result.State = Failed
	u.result.Cause = err
	u.state.Store(int32(Failed))
	r.finished(u)
	r.block(ctx, u)
}

// block marks every Pending dependent of u Blocked, transitively.
func (r *run) block(ctx context.Context, u *unit) {
	for _, d := range u.dependents {
		if !d.transition(Blocked, Pending) {
			continue
		}
		ctxlog.FromContext(ctx).Warn("Blocking instance due to upstream failure.", "instance", d.id(), "upstream", u.id())
		d.result.State = Blocked
		d.result.Cause = fmt.Errorf("%w: %s", ErrUpstreamFailed, u.id())
		r.finished(d)
		r.block(ctx, d)
	}
}

// cancelPending cancels u if it is still Pending, then its dependents.
func (r *run) cancelPending(u *unit) {
	if !u.transition(Cancelled, Pending) {
		return
	}
	r.markCancelled(u)
}

// cancelReady cancels a unit a worker took off the ready queue.
func (r *run) cancelReady(u *unit) {
	if !u.transition(Cancelled, Ready) {
		return
	}
	r.markCancelled(u)
}

func (r *run) markCancelled(u *unit) {
	u.result.State = Cancelled
	u.result.Cause = context.Cause(r.ctx)
	r.finished(u)
	for _, d := range u.dependents {
		r.cancelPending(d)
	}
}

func (r *run) finished(u *unit) {
	r.s.metrics.InstanceFinished(u.result.Node, u.result.State.String(), u.result.Duration)
	r.wg.Done()
}

// abort records an infrastructure failure and stops all further promotion.
func (r *run) abort(err error) {
	r.infraOnce.Do(func() {
		r.infraErr = err
		r.cancel(err)
	})
}

func (r *run) result(started time.Time) *RunResult {
	res := &RunResult{
		RunID:     r.id,
		Status:    Success,
		Instances: make([]InstanceResult, len(r.units)),
		Started:   started,
		Finished:  time.Now(),
		index:     make(map[string]int, len(r.units)),
	}
	for i, u := range r.units {
		res.Instances[i] = u.result
		res.index[u.result.ID] = i
		switch u.result.State {
		case Succeeded:
		case Cancelled:
			res.Cancelled = true
			res.Status = PartialFailure
		default:
			res.Status = PartialFailure
		}
	}
	return res
}

func isInfrastructure(err error) bool {
	var infra *cache.InfrastructureError
	return errors.As(err, &infra)
}
