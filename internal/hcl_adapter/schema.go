package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block a file may contain. Manifests and
// workflows can live in the same file; anything else is a decode error.
type fileRoot struct {
	Tasks []*TaskBlock `hcl:"task,block"`
	Nodes []*NodeBlock `hcl:"node,block"`
}

// --- Task manifests ---

// TaskBlock represents a `task` manifest block.
type TaskBlock struct {
	Name        string              `hcl:"name,label"`
	Version     string              `hcl:"version,optional"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *Lifecycle          `hcl:"lifecycle,block"`
	Command     *CommandBlock       `hcl:"command,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}

// Lifecycle maps the task's run event to a registered Go handler.
type Lifecycle struct {
	OnRun string `hcl:"on_run"`
}

// CommandBlock declares a subprocess-backed task.
type CommandBlock struct {
	Program      string            `hcl:"program"`
	Args         hcl.Expression    `hcl:"args,optional"`
	Env          map[string]string `hcl:"env,optional"`
	OutputFormat string            `hcl:"output_format,optional"`
}

// InputDefinition defines a single input field of a task. gohcl leaves an
// omitted Type as an empty expression, so translation enforces its presence.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Optional    *bool          `hcl:"optional,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

// OutputDefinition defines a single output field of a task.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

// --- Workflow ---

// NodeBlock represents a `node` block of a workflow.
type NodeBlock struct {
	Name      string     `hcl:"name,label"`
	Task      string     `hcl:"task"`
	Inputs    *BodyBlock `hcl:"inputs,block"`
	Iterables *BodyBlock `hcl:"iterables,block"`
}

// BodyBlock captures a block made only of attributes, such as `inputs`.
type BodyBlock struct {
	Body hcl.Body `hcl:",remain"`
}
