package hcl_adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
)

// isExprDefined checks if an HCL expression was actually present in the source.
// gohcl fills omitted optional expression fields with zero-width placeholders,
// so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// attribute is one attribute of a BodyBlock, in source order.
type attribute struct {
	Name string
	Expr hcl.Expression
}

// orderedAttributes returns the attributes of an attribute-only block sorted
// by their position in the file.
func orderedAttributes(block *BodyBlock) ([]attribute, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w", diags)
	}

	out := make([]attribute, 0, len(attrs))
	ranges := make(map[string]hcl.Range, len(attrs))
	for name, attr := range attrs {
		out = append(out, attribute{Name: name, Expr: attr.Expr})
		ranges[name] = attr.Range
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := ranges[out[i].Name], ranges[out[j].Name]
		if ri.Filename != rj.Filename {
			return ri.Filename < rj.Filename
		}
		return ri.Start.Byte < rj.Start.Byte
	})
	return out, nil
}
