package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL implementation of config.Converter. Go structs bind
// to task fields through `cty` tags.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
// Nil values and nil pointers become cty.NilVal.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return cty.NilVal, nil
		}
		rv = rv.Elem()
	}
	native := rv.Interface()

	if val, ok := native.(cty.Value); ok {
		return val, nil
	}
	ty, err := gocty.ImpliedType(native)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(native, ty)
}

// DecodeInputs fills the tagged fields of target from inputs. Inputs that are
// absent or null leave their field untouched, since defaults were already
// applied when the inputs were resolved.
func (c *Converter) DecodeInputs(ctx context.Context, target any, inputs map[string]cty.Value, defs map[string]*config.InputDefinition) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding task inputs into Go struct.", "inputs", len(inputs))

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Pointer || structVal.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	structVal = structVal.Elem()
	if structVal.Kind() != reflect.Struct {
		return fmt.Errorf("decode target must point to a struct, got %T", target)
	}
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		fieldDef := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldDef.IsExported() || !fieldVal.CanSet() {
			continue
		}
		name := tagName(fieldDef)
		if name == "" {
			continue
		}

		val, ok := inputs[name]
		if !ok || val.IsNull() {
			continue
		}
		manifestType := val.Type()
		if def, ok := defs[name]; ok && def.Type != cty.NilType {
			manifestType = def.Type
		}

		if err := c.decode(ctx, val, manifestType, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("failed to decode input '%s': %w", name, err)
		}
	}
	logger.Debug("Finished decoding task inputs.")
	return nil
}

// tagName returns the `cty` tag name of a field, or "" when it has none.
func tagName(f reflect.StructField) string {
	name := strings.Split(f.Tag.Get("cty"), ",")[0]
	if name == "-" {
		return ""
	}
	return name
}
