package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/sweepgrid/internal/builder"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/metrics"
	"github.com/specialistvlad/sweepgrid/internal/registry"
	"github.com/specialistvlad/sweepgrid/internal/task"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	registry *registry.Registry
	model    *config.Model
	specs    map[string]*task.Spec
	graph    *graph.Graph
	metrics  *metrics.Metrics
}

// NewApp is the constructor for the main application. It loads the
// configuration, registers the Go modules (the core set when none are given),
// checks manifests against them and builds the workflow graph. Logs and the
// run summary go to outW.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Merge all configuration paths into a single collection for the loader.
	var paths []string
	if cfg.TasksPath != "" {
		paths = append(paths, cfg.TasksPath)
	}
	if cfg.WorkflowPath != "" {
		paths = append(paths, cfg.WorkflowPath)
	}

	model, conv, err := loader.Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	reg.PopulateDefinitionsFromModel(model)
	if err := reg.ValidateRegistry(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	specs, err := reg.Specs(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("failed to bind tasks: %w", err)
	}

	g, err := builder.Build(ctx, model, specs)
	if err != nil {
		return nil, fmt.Errorf("failed to build workflow graph: %w", err)
	}
	logger.Info("Workflow loaded.", "tasks", len(specs), "nodes", g.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		registry: reg,
		model:    model,
		specs:    specs,
		graph:    g,
		metrics:  metrics.New(),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Graph returns the workflow graph built from the configuration.
func (a *App) Graph() *graph.Graph {
	return a.graph
}
