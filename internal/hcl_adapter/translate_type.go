// This file parses HCL type expressions (e.g. `string`, `list(number)`,
// `object({ name = string })`) into cty.Type values.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToCtyType converts an HCL type expression into its cty.Type
// equivalent. A missing expression means `any`.
func typeExprToCtyType(ctx context.Context, expr hcl.Expression) (cty.Type, error) {
	if expr == nil || !isExprDefined(ctx, expr, "type") {
		ctxlog.FromContext(ctx).Debug("Type expression is empty, defaulting to any.")
		return cty.DynamicPseudoType, nil
	}

	switch v := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		return primitiveType(ctx, v)
	case *hclsyntax.FunctionCallExpr:
		if v.Name == "object" {
			return objectType(ctx, v)
		}
		return collectionType(ctx, v)
	default:
		return cty.DynamicPseudoType, fmt.Errorf("unsupported expression for type definition: %T", v)
	}
}

func primitiveType(ctx context.Context, v *hclsyntax.ScopeTraversalExpr) (cty.Type, error) {
	if len(v.Traversal) != 1 {
		return cty.DynamicPseudoType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
	}
	keyword := v.Traversal.RootName()
	ctxlog.FromContext(ctx).Debug("Parsing type expression as a primitive.", "keyword", keyword)

	switch keyword {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	case "any":
		return cty.DynamicPseudoType, nil
	default:
		return cty.DynamicPseudoType, fmt.Errorf("unknown primitive type %q", keyword)
	}
}

// collectionType handles list(T), set(T) and map(T).
func collectionType(ctx context.Context, v *hclsyntax.FunctionCallExpr) (cty.Type, error) {
	if len(v.Args) != 1 {
		return cty.DynamicPseudoType, fmt.Errorf("type constructor %s() requires exactly one argument, got %d", v.Name, len(v.Args))
	}

	elem, err := typeExprToCtyType(ctx, v.Args[0])
	if err != nil {
		return cty.DynamicPseudoType, err
	}
	if elem == cty.DynamicPseudoType {
		return cty.DynamicPseudoType, fmt.Errorf("collection types cannot contain type 'any'")
	}
	ctxlog.FromContext(ctx).Debug("Parsed collection element type.", "constructor", v.Name, "type", elem.FriendlyName())

	switch v.Name {
	case "list":
		return cty.List(elem), nil
	case "map":
		return cty.Map(elem), nil
	case "set":
		return cty.Set(elem), nil
	default:
		return cty.DynamicPseudoType, fmt.Errorf("unknown type constructor function %q", v.Name)
	}
}

// objectType handles object({ key = T, ... }). object({}) is the empty object.
func objectType(ctx context.Context, v *hclsyntax.FunctionCallExpr) (cty.Type, error) {
	if len(v.Args) != 1 {
		return cty.DynamicPseudoType, fmt.Errorf("the object() type constructor requires exactly one argument (the object definition), got %d", len(v.Args))
	}
	obj, ok := v.Args[0].(*hclsyntax.ObjectConsExpr)
	if !ok {
		return cty.DynamicPseudoType, fmt.Errorf("the argument to object() must be an object literal like { key = type, ... }, got %T", v.Args[0])
	}

	attrTypes := make(map[string]cty.Type, len(obj.Items))
	for _, item := range obj.Items {
		key := objectKey(item.KeyExpr)
		if key == "" {
			return cty.DynamicPseudoType, fmt.Errorf("invalid key in object type definition: keys must be simple identifiers or quoted strings")
		}
		ty, err := typeExprToCtyType(ctx, item.ValueExpr)
		if err != nil {
			return cty.DynamicPseudoType, fmt.Errorf("in object attribute '%s': %w", key, err)
		}
		attrTypes[key] = ty
	}

	t := cty.Object(attrTypes)
	ctxlog.FromContext(ctx).Debug("Constructed object type.", "type", t.FriendlyName())
	return t, nil
}

// objectKey returns the literal name of an object type key, or "" when the
// key is a computed expression.
func objectKey(expr hclsyntax.Expression) string {
	wrapper, ok := expr.(*hclsyntax.ObjectConsKeyExpr)
	if !ok {
		return ""
	}
	switch k := wrapper.Wrapped.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		if len(k.Traversal) == 1 {
			return k.Traversal.RootName()
		}
	case *hclsyntax.TemplateExpr:
		if len(k.Parts) == 1 {
			if lit, ok := k.Parts[0].(*hclsyntax.LiteralValueExpr); ok && lit.Val.Type().Equals(cty.String) {
				return lit.Val.AsString()
			}
		}
	}
	return ""
}
