package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// decode populates goVal, a pointer, from val. manifestType is the declared
// type of the task field and drives conversions of primitives.
func (c *Converter) decode(ctx context.Context, val cty.Value, manifestType cty.Type, goVal any) error {
	valPtr := reflect.ValueOf(goVal)
	goPtr := valPtr.Elem()
	goType := goPtr.Type()
	logger := ctxlog.FromContext(ctx).With("go_kind", goType.Kind().String())

	// cty.Value targets take the value as is.
	if goType == reflect.TypeOf(cty.Value{}) {
		logger.Debug("Target is cty.Value, performing direct assignment.")
		if val.IsKnown() {
			goPtr.Set(reflect.ValueOf(val))
		}
		return nil
	}

	if !val.IsKnown() || val.IsNull() {
		logger.Debug("Skipping decode for null or unknown value.")
		return nil
	}

	switch goType.Kind() {
	case reflect.Struct:
		logger.Debug("Decoding as struct.")
		if !val.Type().IsObjectType() && val.Type() != cty.DynamicPseudoType {
			return fmt.Errorf("type mismatch: cannot decode cty value of type %s into Go struct %s", val.Type().FriendlyName(), goType.String())
		}
		if !manifestType.IsObjectType() && manifestType != cty.DynamicPseudoType {
			return fmt.Errorf("type mismatch: manifest expected an object for Go struct %s, but got %s", goType.String(), manifestType.FriendlyName())
		}

		isManifestObject := manifestType.IsObjectType()
		attrMap := val.AsValueMap()

		for i := 0; i < goType.NumField(); i++ {
			fieldDef := goType.Field(i)
			fieldVal := goPtr.Field(i)

			if !fieldDef.IsExported() || !fieldVal.CanSet() {
				continue
			}

			name := tagName(fieldDef)
			if name == "" {
				continue
			}

			attrVal, ok := attrMap[name]
			if !ok {
				continue
			}

			var attrManifestType cty.Type
			if isManifestObject {
				attrManifestType = manifestType.AttributeTypes()[name]
			} else {
				attrManifestType = attrVal.Type()
			}

			if err := c.decode(ctx, attrVal, attrManifestType, fieldVal.Addr().Interface()); err != nil {
				return fmt.Errorf("in attribute '%s': %w", name, err)
			}
		}
		return nil

	case reflect.Interface:
		logger.Debug("Decoding as interface (any).")
		nativeVal, err := ctyToNative(val)
		if err != nil {
			return err
		}
		if nativeVal != nil {
			goPtr.Set(reflect.ValueOf(nativeVal))
		}
		return nil

	case reflect.Map:
		return c.decodeMap(ctx, val, manifestType, goPtr)

	case reflect.Slice:
		logger.Debug("Decoding as slice.")
		vt := val.Type()
		if !vt.IsListType() && !vt.IsSetType() && !vt.IsTupleType() {
			return fmt.Errorf("type mismatch: cannot decode cty.%s into Go slice %s", vt.FriendlyName(), goType.String())
		}
		isManifestCollection := manifestType.IsListType() || manifestType.IsSetType()
		if !isManifestCollection && manifestType != cty.DynamicPseudoType {
			return fmt.Errorf("type mismatch: manifest expected a list for Go slice %s, but got %s", goType.String(), manifestType.FriendlyName())
		}

		newSlice := reflect.MakeSlice(goType, val.LengthInt(), val.LengthInt())
		it := val.ElementIterator()
		for i := 0; it.Next(); i++ {
			_, elemVal := it.Element()
			// Tuple elements each carry their own type.
			elemManifestType := elemVal.Type()
			if isManifestCollection {
				elemManifestType = manifestType.ElementType()
			}
			if err := c.decode(ctx, elemVal, elemManifestType, newSlice.Index(i).Addr().Interface()); err != nil {
				return fmt.Errorf("in slice element %d: %w", i, err)
			}
		}
		goPtr.Set(newSlice)
		return nil

	default:
		logger.Debug("Decoding as primitive.")
		convertedVal, err := convert.Convert(val, manifestType)
		if err != nil {
			return fmt.Errorf("cannot convert value of type %s to required manifest type %s: %w", val.Type().FriendlyName(), manifestType.FriendlyName(), err)
		}
		return gocty.FromCtyValue(convertedVal, goVal)
	}
}
