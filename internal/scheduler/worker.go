package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/fingerprint"
	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// worker is the processing loop of one pool member.
func (r *run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "worker_id", workerID)

	for u := range r.ready {
		if r.ctx.Err() != nil {
			logger.Warn("Run cancelled, skipping instance.", "worker_id", workerID, "instance", u.id())
			r.cancelReady(u)
			continue
		}
		if !u.transition(Running, Ready) {
			continue
		}

		r.s.metrics.WorkerBusy()
		r.process(ctx, u, workerID)
		r.s.metrics.WorkerIdle()
	}
	logger.Debug("Worker finished.", "worker_id", workerID)
}

// process runs one instance to a terminal state.
func (r *run) process(ctx context.Context, u *unit, workerID int) {
	ctx, logger := ctxlog.With(ctx, "worker_id", workerID, "instance", u.id())
	// Running instances finish even when the run is cancelled.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	outputs, err := r.execute(ctx, u)
	u.result.Duration = time.Since(start)

	switch {
	case err == nil:
		u.result.Outputs = outputs
		if u.result.CacheHit {
			logger.Info("Instance satisfied from cache.", "fingerprint", u.result.Fingerprint.Short())
		} else {
			logger.Info("Instance succeeded.", "fingerprint", u.result.Fingerprint.Short(), "duration", u.result.Duration)
		}
		r.succeed(ctx, u)

	case isInfrastructure(err):
		logger.Error("Infrastructure failure, stopping the run.", "error", err)
		r.abort(err)
		r.fail(ctx, u, err)

	default:
		failure := &ExecutionFailure{Instance: u.id(), Err: err}
		logger.Error("Instance failed.", "error", err)
		r.fail(ctx, u, failure)
	}
}

// execute resolves inputs, consults the cache and invokes the task on a miss.
func (r *run) execute(ctx context.Context, u *unit) (map[string]cty.Value, error) {
	spec := u.inst.Node.Spec
	inputs, err := resolveInputs(u)
	if err != nil {
		return nil, err
	}
	fp, err := fingerprint.Compute(spec.Identity(), inputs)
	if err != nil {
		return nil, err
	}
	u.result.Fingerprint = fp
	ctx, logger := ctxlog.With(ctx, "fingerprint", fp.Short())

	c := r.s.cache
	l, err := r.lookup(ctx, fp)
	if err != nil {
		return nil, err
	}

	if l.Kind == cache.Hit {
		outputs, err := spec.ConformOutputs(l.Outputs)
		if err == nil {
			u.result.CacheHit = true
			return outputs, nil
		}
		cerr := &cache.CacheError{Op: "decode", Fingerprint: fp, Err: err}
		if c.Authoritative() {
			return nil, &cache.InfrastructureError{Err: cerr}
		}
		logger.Warn("Cached outputs do not match the task outputs, treating as a miss.", "error", cerr)
		if err := c.Invalidate(ctx, fp); err != nil {
			logger.Warn("Could not drop the stale entry.", "error", err)
		}

		if l, err = r.lookup(ctx, fp); err != nil {
			return nil, err
		}
		if l.Kind == cache.Hit {
			outputs, err := spec.ConformOutputs(l.Outputs)
			if err != nil {
				return nil, &cache.CacheError{Op: "decode", Fingerprint: fp, Err: err}
			}
			u.result.CacheHit = true
			return outputs, nil
		}
	}

	res := l.Reservation
	res.Task = spec.Identity().String()
	if res.Reclaimed {
		logger.Warn("Executing on a reclaimed reservation.", "error", res.Timeout)
	}

	outputs, err := r.invoke(ctx, u, spec, inputs, fp)
	if err != nil {
		if aerr := c.Abort(ctx, res, err); aerr != nil {
			logger.Warn("Could not release reservation.", "error", aerr)
		}
		return nil, err
	}

	if err := c.Commit(ctx, res, outputs); err != nil {
		if !errors.Is(err, cache.ErrReservationLost) {
			return nil, err
		}
		logger.Warn("Reservation was reclaimed while executing, outputs kept for this instance.")
	}
	return outputs, nil
}

// lookup consults the cache for fp, waiting out an in-flight execution. The
// result is either a Hit or a reservation the caller now holds.
func (r *run) lookup(ctx context.Context, fp fingerprint.Fingerprint) (cache.Lookup, error) {
	c := r.s.cache
	l, err := c.LookupOrReserve(ctx, fp)
	if err != nil {
		return cache.Lookup{}, err
	}
	if l.Kind == cache.InFlight {
		ctxlog.FromContext(ctx).Debug("Waiting for in-flight execution.")
		return c.Await(ctx, l)
	}
	return l, nil
}

// invoke calls the task executor, turning a panic into an error.
func (r *run) invoke(ctx context.Context, u *unit, spec *task.Spec, inputs map[string]cty.Value, fp fingerprint.Fingerprint) (out map[string]cty.Value, err error) {
	info := task.RunInfo{RunID: r.id.String(), Instance: u.id(), Fingerprint: fp.String()}
	if r.s.workDir != "" {
		info.WorkDir = filepath.Join(r.s.workDir, u.inst.Node.Name, fp.String())
		if err := os.MkdirAll(info.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating work dir: %w", err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	ctxlog.FromContext(ctx).Debug("Executing task.", "task", spec.Identity().String())
	return spec.Execute(task.WithRunInfo(ctx, info), inputs)
}
