package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrInvalidRegistry is wrapped by every ValidateRegistry failure.
var ErrInvalidRegistry = errors.New("registry validation failed")

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// ValidateRegistry performs a strict parity check between manifests and Go
// code: every on_run handler exists and has the handler shape, and the input
// struct and the manifest agree on input names and types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.taskNames() {
		def := r.DefinitionRegistry[name]
		if def.Lifecycle == nil {
			continue
		}
		handler, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("task '%s': handler '%s' is not registered", name, def.Lifecycle.OnRun))
			continue
		}
		if err := checkHandlerShape(handler); err != nil {
			errs = append(errs, fmt.Sprintf("task '%s': handler '%s': %v", name, def.Lifecycle.OnRun, err))
			continue
		}

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("task '%s': manifest declares inputs, but Go handler has no input struct", name))
			}
			continue
		}

		goInputs := inputFields(handler.InputType)
		for field := range goInputs {
			if _, ok := def.Inputs[field]; !ok {
				errs = append(errs, fmt.Sprintf("task '%s': Go struct has field for input '%s' which is not declared in manifest", name, field))
			}
		}
		for field := range def.Inputs {
			if _, ok := goInputs[field]; !ok {
				errs = append(errs, fmt.Sprintf("task '%s': manifest declares input '%s' which is not found in Go struct", name, field))
			}
		}

		for field, inputDef := range def.Inputs {
			goField, ok := goInputs[field]
			if !ok {
				continue
			}
			manifestType := inputDef.Type
			if manifestType.Equals(cty.DynamicPseudoType) {
				logger.Warn("Manifest input has 'type = any', which disables static type checking.", "task", name, "input", field)
				continue
			}
			if goField.Type == reflect.TypeOf(cty.Value{}) {
				continue
			}
			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("task '%s', input '%s': could not imply cty type from Go field type %s: %v", name, field, goField.Type, err))
				continue
			}
			if !manifestType.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("task '%s', input '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides '%s'",
					name, field, manifestType.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidRegistry, strings.Join(errs, "\n- "))
	}
	return nil
}

// checkHandlerShape verifies Fn is func(context.Context, *In) (Out, error).
func checkHandlerShape(h *Handler) error {
	if h.Fn == nil {
		return errors.New("no function")
	}
	ft := reflect.TypeOf(h.Fn)
	if ft.Kind() != reflect.Func {
		return fmt.Errorf("handler is a %s, not a function", ft.Kind())
	}
	if ft.NumIn() != 2 || ft.In(0) != contextType {
		return errors.New("handler must take (context.Context, input)")
	}
	if ft.NumOut() != 2 || ft.Out(1) != errorType {
		return errors.New("handler must return (output, error)")
	}
	if h.NewInput != nil {
		if in := reflect.TypeOf(h.NewInput()); in != ft.In(1) {
			return fmt.Errorf("NewInput returns %v but the handler takes %v", in, ft.In(1))
		}
	}
	return nil
}

// inputFields maps `cty` tag names to the exported fields of t.
func inputFields(t reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField)
	if t.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("cty"), ",")[0]
		if tag != "" && tag != "-" {
			out[tag] = field
		}
	}
	return out
}
