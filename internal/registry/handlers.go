package registry

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Handler holds the compiled Go parts of a task's on_run handler.
//
// Fn must have the shape
//
//	func(ctx context.Context, input *In) (Out, error)
//
// where In is a struct whose `cty` tags name the manifest inputs. Out is
// converted to cty and split into the declared outputs.
type Handler struct {
	// NewInput returns a fresh *In. Nil means the handler takes no input.
	NewInput func() any
	// InputType is In. It is derived from NewInput when left nil.
	InputType reflect.Type
	Fn        any
}

// RegisterHandler registers a Go handler under name.
func (r *Registry) RegisterHandler(name string, handler *Handler) {
	if _, exists := r.HandlerRegistry[name]; exists {
		panic(fmt.Sprintf("handler with name '%s' already registered", name))
	}
	if handler.InputType == nil && handler.NewInput != nil {
		if t := reflect.TypeOf(handler.NewInput()); t != nil && t.Kind() == reflect.Pointer {
			handler.InputType = t.Elem()
		}
	}
	slog.Debug("Registering task handler.", "name", name)
	r.HandlerRegistry[name] = handler
}
