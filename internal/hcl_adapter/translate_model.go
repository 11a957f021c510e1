// This file translates the HCL schema structs into the format-agnostic
// configuration model of the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
)

// translateTask converts a `task` block into a TaskDefinition.
func (l *Loader) translateTask(ctx context.Context, b *TaskBlock) (*config.TaskDefinition, error) {
	ctx, logger := ctxlog.With(ctx, "task", b.Name)
	logger.Debug("Translating HCL task to internal config model.")

	hasHandler := b.Lifecycle != nil && b.Lifecycle.OnRun != ""
	switch {
	case hasHandler && b.Command != nil:
		return nil, fmt.Errorf("task '%s' declares both lifecycle.on_run and a command block", b.Name)
	case !hasHandler && b.Command == nil:
		return nil, fmt.Errorf("task '%s' needs either lifecycle.on_run or a command block", b.Name)
	}

	t := &config.TaskDefinition{
		Name:        b.Name,
		Version:     b.Version,
		Description: b.Description,
		Inputs:      make(map[string]*config.InputDefinition),
		Outputs:     make(map[string]*config.OutputDefinition),
	}
	if hasHandler {
		t.Lifecycle = &config.Lifecycle{OnRun: b.Lifecycle.OnRun}
	}
	if b.Command != nil {
		cmd, err := translateCommand(ctx, b.Name, b.Command)
		if err != nil {
			return nil, err
		}
		t.Command = cmd
	}

	for _, in := range b.Inputs {
		if _, dup := t.Inputs[in.Name]; dup {
			return nil, fmt.Errorf("in task '%s': input '%s' is declared twice", b.Name, in.Name)
		}
		def, err := translateInputDefinition(ctx, in, b.Name)
		if err != nil {
			return nil, err
		}
		t.Inputs[in.Name] = def
	}

	for _, out := range b.Outputs {
		if _, dup := t.Outputs[out.Name]; dup {
			return nil, fmt.Errorf("in task '%s': output '%s' is declared twice", b.Name, out.Name)
		}
		if !isExprDefined(ctx, out.Type, "type") {
			return nil, fmt.Errorf("in task '%s': output '%s' has no type; use `type = any` to accept any value", b.Name, out.Name)
		}
		parsedType, err := typeExprToCtyType(ctx, out.Type)
		if err != nil {
			return nil, fmt.Errorf("in task '%s', output '%s': %w", b.Name, out.Name, err)
		}
		t.Outputs[out.Name] = &config.OutputDefinition{
			Name:        out.Name,
			Type:        parsedType,
			Description: out.Description,
		}
	}
	return t, nil
}

func translateCommand(ctx context.Context, taskName string, b *CommandBlock) (*config.CommandDefinition, error) {
	if b.Program == "" {
		return nil, fmt.Errorf("in task '%s': command program must not be empty", taskName)
	}
	switch b.OutputFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("in task '%s': output_format must be 'text' or 'json', got %q", taskName, b.OutputFormat)
	}

	cmd := &config.CommandDefinition{
		Program:      b.Program,
		Env:          b.Env,
		OutputFormat: b.OutputFormat,
	}
	if isExprDefined(ctx, b.Args, "args") {
		cmd.Args = b.Args
	}
	return cmd, nil
}

// translateInputDefinition processes a single `input` block, handling its
// type, optional flag and default value. A default implies optional.
func translateInputDefinition(ctx context.Context, in *InputDefinition, taskName string) (*config.InputDefinition, error) {
	if !isExprDefined(ctx, in.Type, "type") {
		return nil, fmt.Errorf("in task '%s': input '%s' has no type; use `type = any` to accept any value", taskName, in.Name)
	}
	parsedType, err := typeExprToCtyType(ctx, in.Type)
	if err != nil {
		return nil, fmt.Errorf("in task '%s', input '%s': %w", taskName, in.Name, err)
	}

	def := &config.InputDefinition{
		Name:        in.Name,
		Type:        parsedType,
		Description: in.Description,
	}
	if in.Optional != nil {
		def.Optional = *in.Optional
	}

	if isExprDefined(ctx, in.Default, "default") {
		val, diags := in.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for input '%s' in task '%s': %w", in.Name, taskName, diags)
		}
		if !val.IsNull() {
			if in.Optional != nil && !*in.Optional {
				return nil, fmt.Errorf("in task '%s': input '%s' is required and cannot have a default", taskName, in.Name)
			}
			def.Default = &val
			def.Optional = true
		}
	}
	return def, nil
}

// translateNode converts a `node` block. Input expressions stay unevaluated;
// the builder decides which of them are edges.
func (l *Loader) translateNode(ctx context.Context, b *NodeBlock) (*config.Node, error) {
	logger := ctxlog.FromContext(ctx).With("node", b.Name, "task", b.Task)
	logger.Debug("Translating HCL node to internal config model.")

	n := &config.Node{
		Name:   b.Name,
		Task:   b.Task,
		Inputs: make(map[string]hcl.Expression),
	}

	inputs, err := orderedAttributes(b.Inputs)
	if err != nil {
		return nil, fmt.Errorf("in node '%s', inputs: %w", b.Name, err)
	}
	for _, attr := range inputs {
		n.Inputs[attr.Name] = attr.Expr
	}

	iterables, err := orderedAttributes(b.Iterables)
	if err != nil {
		return nil, fmt.Errorf("in node '%s', iterables: %w", b.Name, err)
	}
	for _, attr := range iterables {
		n.Iterables = append(n.Iterables, &config.Iterable{Field: attr.Name, Values: attr.Expr})
	}

	logger.Debug("Translated node.", "inputs", len(n.Inputs), "iterables", len(n.Iterables))
	return n, nil
}
