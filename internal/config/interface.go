package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths, translates it into the
	// format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter bridges resolved task inputs and the Go types used by handlers.
type Converter interface {
	// DecodeInputs populates target, a pointer to a struct with `cty` tags,
	// from the resolved inputs of one task instance. defs guides the
	// conversion of each field.
	DecodeInputs(ctx context.Context, target any, inputs map[string]cty.Value, defs map[string]*InputDefinition) error

	// ToCtyValue converts a native Go value returned by a handler into its
	// cty.Value equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
