package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/engine"
	"github.com/specialistvlad/sweepgrid/internal/filestore"
	"github.com/specialistvlad/sweepgrid/internal/inmemorystore"
	"github.com/specialistvlad/sweepgrid/internal/pgstore"
	"github.com/specialistvlad/sweepgrid/internal/scheduler"
	"golang.org/x/sync/errgroup"
)

// ErrRunFailed is returned by Run when at least one instance did not succeed.
var ErrRunFailed = errors.New("workflow finished with failures")

// Run executes the workflow graph. The health check server, when enabled,
// lives for the duration of the run. Cancelling ctx cancels the run.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if a.cfg.HealthcheckPort > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.HealthcheckPort))
		if err != nil {
			return fmt.Errorf("health check server: %w", err)
		}
		g.Go(func() error { return a.serveHealth(runCtx, ln) })
	}
	g.Go(func() error {
		defer stop()
		return a.execute(runCtx)
	})

	err := g.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// execute opens the cache and runs the graph once.
func (a *App) execute(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if a.cfg.GraphOut != "" {
		if err := a.writeGraph(a.cfg.GraphOut); err != nil {
			return err
		}
		logger.Info("Workflow graph written.", "path", a.cfg.GraphOut)
	}

	if a.graph.Len() == 0 {
		logger.Warn("No nodes found in workflow, execution not required.")
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	c := cache.New(store,
		cache.WithReservationTimeout(a.cfg.ReservationTimeout),
		cache.WithAuthoritative(a.cfg.CacheAuthoritative),
		cache.WithForce(a.cfg.ForceRerun),
		cache.WithMetrics(a.metrics),
	)
	eng := engine.New(c, engine.WithWorkDir(a.cfg.WorkDir), engine.WithMetrics(a.metrics))

	logger.Info("Starting workflow.", "workers", a.cfg.WorkerCount, "cache", a.cfg.CacheBackend, "force", a.cfg.ForceRerun)
	res, runErr := eng.Submit(ctx, a.graph, a.cfg.WorkerCount)

	if err := c.Flush(context.WithoutCancel(ctx)); err != nil {
		logger.Error("Failed to flush cache store.", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	if res != nil {
		if err := writeSummary(a.outW, res); err != nil {
			logger.Warn("Failed to write run summary.", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	if res.Status != scheduler.Success {
		return fmt.Errorf("%w: %d failed, %d blocked, %d cancelled", ErrRunFailed,
			res.Count(scheduler.Failed), res.Count(scheduler.Blocked), res.Count(scheduler.Cancelled))
	}
	return nil
}

// openStore creates the configured cache backend. The returned func
// releases its resources.
func (a *App) openStore(ctx context.Context) (cache.Store, func(), error) {
	noop := func() {}
	switch a.cfg.CacheBackend {
	case CacheFile:
		s, err := filestore.New(a.cfg.CacheDir)
		if err != nil {
			return nil, noop, fmt.Errorf("open file cache: %w", err)
		}
		return s, noop, nil
	case CachePostgres:
		pool, err := pgstore.NewPool(ctx, a.cfg.CacheDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres cache: %w", err)
		}
		s := pgstore.New(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("prepare postgres cache: %w", err)
		}
		return s, pool.Close, nil
	default:
		return inmemorystore.New(), noop, nil
	}
}

func (a *App) writeGraph(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	if err := a.graph.WriteDOT(f); err != nil {
		f.Close()
		return fmt.Errorf("write graph: %w", err)
	}
	return f.Close()
}
