package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Specs binds every task definition into an immutable task.Spec keyed by
// task name. conv decodes inputs for Go handlers and converts their results.
// ValidateRegistry should pass first.
func (r *Registry) Specs(ctx context.Context, conv config.Converter) (map[string]*task.Spec, error) {
	logger := ctxlog.FromContext(ctx)
	specs := make(map[string]*task.Spec, len(r.DefinitionRegistry))
	var errs []error

	for _, name := range r.taskNames() {
		def := r.DefinitionRegistry[name]
		exec, err := r.executorFor(def, conv)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		spec, err := task.New(
			task.Identity{Name: def.Name, Version: def.Version},
			inputFieldsOf(def),
			outputFieldsOf(def),
			exec,
			task.WithDescription(def.Description),
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("task '%s': %w", name, err))
			continue
		}
		logger.Debug("Bound task spec.", "task", spec.Identity().String(), "inputs", len(def.Inputs), "outputs", len(def.Outputs))
		specs[name] = spec
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return specs, nil
}

func (r *Registry) executorFor(def *config.TaskDefinition, conv config.Converter) (task.Executor, error) {
	switch {
	case def.Command != nil:
		if def.Command.OutputFormat != task.OutputJSON {
			for name := range def.Outputs {
				if name != task.TextOutput {
					return nil, fmt.Errorf("task '%s': a text-mode command can only declare the output '%s', got '%s'", def.Name, task.TextOutput, name)
				}
			}
		}
		return &task.CommandExecutor{
			Program:      def.Command.Program,
			Args:         def.Command.Args,
			Env:          def.Command.Env,
			OutputFormat: def.Command.OutputFormat,
			Outputs:      sortedOutputNames(def),
		}, nil
	case def.Lifecycle != nil:
		h, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			return nil, fmt.Errorf("task '%s': handler '%s' is not registered", def.Name, def.Lifecycle.OnRun)
		}
		return &handlerExecutor{name: def.Lifecycle.OnRun, handler: h, def: def, conv: conv}, nil
	default:
		return nil, fmt.Errorf("task '%s' has no executor", def.Name)
	}
}

func inputFieldsOf(def *config.TaskDefinition) []task.InputField {
	fields := make([]task.InputField, 0, len(def.Inputs))
	for _, in := range def.Inputs {
		fields = append(fields, task.InputField{
			Name:        in.Name,
			Type:        in.Type,
			Required:    !in.Optional,
			Default:     in.Default,
			Description: in.Description,
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

func outputFieldsOf(def *config.TaskDefinition) []task.OutputField {
	fields := make([]task.OutputField, 0, len(def.Outputs))
	for _, name := range sortedOutputNames(def) {
		out := def.Outputs[name]
		fields = append(fields, task.OutputField{Name: out.Name, Type: out.Type, Description: out.Description})
	}
	return fields
}

func sortedOutputNames(def *config.TaskDefinition) []string {
	names := make([]string, 0, len(def.Outputs))
	for name := range def.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// handlerExecutor adapts a registered Go handler to task.Executor.
type handlerExecutor struct {
	name    string
	handler *Handler
	def     *config.TaskDefinition
	conv    config.Converter
}

func (e *handlerExecutor) Execute(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	fn := reflect.ValueOf(e.handler.Fn)

	var input reflect.Value
	if e.handler.NewInput != nil {
		target := e.handler.NewInput()
		if err := e.conv.DecodeInputs(ctx, target, inputs, e.def.Inputs); err != nil {
			return nil, fmt.Errorf("decoding inputs for handler '%s': %w", e.name, err)
		}
		input = reflect.ValueOf(target)
	} else {
		input = reflect.Zero(fn.Type().In(1))
	}

	logger.Debug("Calling task handler.", "handler", e.name)
	results := fn.Call([]reflect.Value{reflect.ValueOf(ctx), input})
	if errResult := results[1].Interface(); errResult != nil {
		return nil, errResult.(error)
	}

	val, err := e.conv.ToCtyValue(results[0].Interface())
	if err != nil {
		return nil, fmt.Errorf("converting output of handler '%s': %w", e.name, err)
	}
	return e.splitOutputs(val)
}

// splitOutputs maps a handler result onto the declared outputs. An object
// or map is split by key; any other value fills the single declared output.
func (e *handlerExecutor) splitOutputs(val cty.Value) (map[string]cty.Value, error) {
	if val.IsNull() {
		return map[string]cty.Value{}, nil
	}
	ty := val.Type()
	if ty.IsObjectType() || ty.IsMapType() {
		return val.AsValueMap(), nil
	}
	if len(e.def.Outputs) == 1 {
		for name := range e.def.Outputs {
			return map[string]cty.Value{name: val}, nil
		}
	}
	return nil, fmt.Errorf("handler '%s' returned a %s, but the task declares %d outputs", e.name, ty.FriendlyName(), len(e.def.Outputs))
}
