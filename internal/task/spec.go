package task

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Identity names a TaskSpec. Two specs with the same identity are assumed to
// compute the same function of their inputs.
type Identity struct {
	Name    string
	Version string
}

// String renders the identity as "name@version", or just the name when the
// version is empty.
func (id Identity) String() string {
	if id.Version == "" {
		return id.Name
	}
	return id.Name + "@" + id.Version
}

// InputField declares one typed input of a TaskSpec.
type InputField struct {
	Name        string
	Type        cty.Type
	Required    bool
	Default     *cty.Value
	Description string
}

// OutputField declares one typed output of a TaskSpec.
type OutputField struct {
	Name        string
	Type        cty.Type
	Description string
}

// Executor is the externally supplied execution procedure of a TaskSpec. The
// engine never interprets what it does.
type Executor interface {
	Execute(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	return f(ctx, inputs)
}

// Spec is an immutable, registered unit of work: a typed input table, a typed
// output table and an executor.
type Spec struct {
	id          Identity
	description string
	inputs      map[string]InputField
	inputNames  []string
	outputs     map[string]OutputField
	outputNames []string
	exec        Executor
}

// Option customizes a Spec at construction time.
type Option func(*Spec)

// WithDescription attaches a human-readable description to the spec.
func WithDescription(d string) Option {
	return func(s *Spec) { s.description = d }
}

// New checks the capability contract and returns an immutable Spec. Every
// structural problem is reported, joined into a single error.
func New(id Identity, inputs []InputField, outputs []OutputField, exec Executor, opts ...Option) (*Spec, error) {
	var errs []error
	if id.Name == "" {
		errs = append(errs, fmt.Errorf("%w: task name is empty", ErrInvalidSpec))
	}
	if exec == nil {
		errs = append(errs, fmt.Errorf("%w: task %q has no executor", ErrInvalidSpec, id))
	}

	s := &Spec{
		id:      id,
		inputs:  make(map[string]InputField, len(inputs)),
		outputs: make(map[string]OutputField, len(outputs)),
		exec:    exec,
	}

	for _, f := range inputs {
		if err := checkField(id, "input", f.Name, f.Type); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.inputs[f.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: task %q declares input %q twice", ErrInvalidSpec, id, f.Name))
			continue
		}
		if f.Default != nil {
			if f.Required {
				errs = append(errs, fmt.Errorf("%w: task %q: required input %q cannot have a default", ErrInvalidSpec, id, f.Name))
				continue
			}
			v, err := convert.Convert(*f.Default, f.Type)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: task %q: default for input %q: %v", ErrInvalidSpec, id, f.Name, err))
				continue
			}
			f.Default = &v
		}
		s.inputs[f.Name] = f
		s.inputNames = append(s.inputNames, f.Name)
	}

	for _, f := range outputs {
		if err := checkField(id, "output", f.Name, f.Type); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.outputs[f.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: task %q declares output %q twice", ErrInvalidSpec, id, f.Name))
			continue
		}
		s.outputs[f.Name] = f
		s.outputNames = append(s.outputNames, f.Name)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Strings(s.inputNames)
	sort.Strings(s.outputNames)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func checkField(id Identity, kind, name string, ty cty.Type) error {
	if name == "" {
		return fmt.Errorf("%w: task %q has an unnamed %s", ErrInvalidSpec, id, kind)
	}
	if ty == cty.NilType {
		return fmt.Errorf("%w: task %q: %s %q has no type", ErrInvalidSpec, id, kind, name)
	}
	return nil
}

// Identity returns the spec's identity.
func (s *Spec) Identity() Identity { return s.id }

// Description returns the spec's description, if any.
func (s *Spec) Description() string { return s.description }

// Input looks up an input field by name.
func (s *Spec) Input(name string) (InputField, bool) {
	f, ok := s.inputs[name]
	return f, ok
}

// Output looks up an output field by name.
func (s *Spec) Output(name string) (OutputField, bool) {
	f, ok := s.outputs[name]
	return f, ok
}

// Inputs returns the input fields sorted by name.
func (s *Spec) Inputs() []InputField {
	out := make([]InputField, 0, len(s.inputNames))
	for _, n := range s.inputNames {
		out = append(out, s.inputs[n])
	}
	return out
}

// Outputs returns the output fields sorted by name.
func (s *Spec) Outputs() []OutputField {
	out := make([]OutputField, 0, len(s.outputNames))
	for _, n := range s.outputNames {
		out = append(out, s.outputs[n])
	}
	return out
}

// Execute runs the executor and checks its result against the output table.
// The returned values are converted to their declared types.
func (s *Spec) Execute(ctx context.Context, inputs map[string]cty.Value) (map[string]cty.Value, error) {
	raw, err := s.exec.Execute(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return s.ConformOutputs(raw)
}

// ConformOutputs checks raw against the output table and converts every
// value to its declared type. It is applied to executor results and to
// outputs read back from a cache.
func (s *Spec) ConformOutputs(raw map[string]cty.Value) (map[string]cty.Value, error) {
	var errs []error
	out := make(map[string]cty.Value, len(s.outputs))
	for _, name := range s.outputNames {
		f := s.outputs[name]
		v, ok := raw[name]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMissingOutput, name))
			continue
		}
		cv, err := convert.Convert(v, f.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: output %q: %v", ErrOutputType, name, err))
			continue
		}
		out[name] = cv
	}
	for name := range raw {
		if _, ok := s.outputs[name]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUndeclaredOutput, name))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("task %s: %w", s.id, errors.Join(errs...))
	}
	return out, nil
}
