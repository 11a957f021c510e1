package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified representation of all loaded configuration: the task
// manifests and the workflow that uses them.
type Model struct {
	Tasks    map[string]*TaskDefinition
	Workflow *Workflow
}

// NewModel returns an empty model ready to be merged into.
func NewModel() *Model {
	return &Model{
		Tasks:    make(map[string]*TaskDefinition),
		Workflow: &Workflow{},
	}
}

// Workflow is the user's graph definition.
type Workflow struct {
	Nodes []*Node
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Name string
	Task string
	// Inputs holds one unevaluated expression per bound input field.
	Inputs map[string]hcl.Expression
	// Iterables keeps declaration order, which drives sweep enumeration.
	Iterables []*Iterable
}

// Iterable is one swept field of a node. Values must evaluate to a list or
// tuple of candidates.
type Iterable struct {
	Field  string
	Values hcl.Expression
}

// --- Task manifest models ---

// TaskDefinition is the format-agnostic representation of a task manifest.
// Exactly one of Lifecycle.OnRun and Command selects the executor.
type TaskDefinition struct {
	Name        string
	Version     string
	Description string
	Lifecycle   *Lifecycle
	Command     *CommandDefinition
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
}

// Lifecycle maps a task's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// CommandDefinition describes a subprocess-backed task.
type CommandDefinition struct {
	Program string
	// Args is evaluated per instance with `input.<field>` in scope.
	Args         hcl.Expression
	Env          map[string]string
	OutputFormat string
}

// InputDefinition defines a single input field of a task.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output field of a task.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}
