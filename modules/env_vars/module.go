package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the env_vars task.
type Input struct {
	Prefix string `cty:"prefix"`
}

// Output defines the data structure returned by the task.
type Output struct {
	All map[string]string `cty:"all"`
}

// OnRunEnvVars returns the process environment, restricted to variables
// starting with Prefix when one is given.
func OnRunEnvVars(ctx context.Context, input *Input) (*Output, error) {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(key, input.Prefix) {
			continue
		}
		envMap[key] = value
	}
	return &Output{All: envMap}, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunEnvVars", &registry.Handler{
		NewInput: func() any { return new(Input) },
		Fn:       OnRunEnvVars,
	})
}
