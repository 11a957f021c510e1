package hcl_adapter

import (
	"context"
	"fmt"
	"reflect"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// decodeMap decodes a map or object value into a Go map. map[string]any
// takes a native fast path; typed maps are decoded element by element.
func (c *Converter) decodeMap(ctx context.Context, val cty.Value, manifestType cty.Type, goPtr reflect.Value) error {
	logger := ctxlog.FromContext(ctx).With("go_type", goPtr.Type().String(), "cty_type", val.Type().FriendlyName())
	logger.Debug("Decoding into Go map.")

	if goPtr.Type() == reflect.TypeOf((map[string]any)(nil)) {
		logger.Debug("Using fast path for map[string]any via ctyToNative.")
		nativeVal, err := ctyToNative(val)
		if err != nil {
			return err
		}
		if nativeVal != nil {
			goPtr.Set(reflect.ValueOf(nativeVal))
		}
		return nil
	}

	logger.Debug("Performing deep decode for typed map.")
	newMap := reflect.MakeMap(goPtr.Type())
	it := val.ElementIterator()

	for it.Next() {
		key, elemVal := it.Element()
		keyStr := key.AsString()
		elemLogger := logger.With("map_key", keyStr)
		elemLogger.Debug("Processing map element.")

		var elemManifestType cty.Type
		switch {
		case manifestType.IsMapType():
			elemManifestType = manifestType.ElementType()
		case manifestType.IsObjectType() && manifestType.HasAttribute(keyStr):
			elemManifestType = manifestType.AttributeType(keyStr)
		default:
			elemManifestType = elemVal.Type()
		}

		newElemPtr := reflect.New(goPtr.Type().Elem())
		if err := c.decode(ctx, elemVal, elemManifestType, newElemPtr.Interface()); err != nil {
			return fmt.Errorf("failed to decode map element '%s': %w", keyStr, err)
		}
		newMap.SetMapIndex(reflect.ValueOf(keyStr), newElemPtr.Elem())
	}
	goPtr.Set(newMap)
	logger.Debug("Successfully decoded into Go map.")
	return nil
}
