package registry

import (
	"sort"

	"github.com/specialistvlad/sweepgrid/internal/config"
)

// Module is the interface that all built-in task modules implement.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered handlers and task definitions for a single
// application instance.
type Registry struct {
	HandlerRegistry    map[string]*Handler
	DefinitionRegistry map[string]*config.TaskDefinition
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		HandlerRegistry:    make(map[string]*Handler),
		DefinitionRegistry: make(map[string]*config.TaskDefinition),
	}
}

// PopulateDefinitionsFromModel copies the loaded task definitions from the
// config model into the registry.
func (r *Registry) PopulateDefinitionsFromModel(model *config.Model) {
	for name, def := range model.Tasks {
		r.DefinitionRegistry[name] = def
	}
}

// taskNames returns the definition names in sorted order.
func (r *Registry) taskNames() []string {
	names := make([]string, 0, len(r.DefinitionRegistry))
	for name := range r.DefinitionRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
