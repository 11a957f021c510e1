package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// nodeRoot is the root name of a reference to another node's output.
const nodeRoot = "node"

// ref is a parsed `node.<name>.<output>` reference.
type ref struct {
	Node  string
	Field string
}

// Build constructs the graph described by model.Workflow. specs maps task
// names to their bound specs. All problems found are returned together.
func Build(ctx context.Context, model *config.Model, specs map[string]*task.Spec) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.")

	g := graph.New()
	if model == nil || model.Workflow == nil {
		return g, nil
	}

	var errs []error
	edges := make(map[string]map[string]ref)

	// First pass: create all nodes.
	for _, n := range model.Workflow.Nodes {
		gn, links, err := buildNode(ctx, n, specs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := g.AddNode(gn); err != nil {
			errs = append(errs, err)
			continue
		}
		edges[n.Name] = links
	}
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	// Second pass: link dependencies. Every node exists by now, so
	// declaration order does not matter.
	for _, n := range model.Workflow.Nodes {
		links := edges[n.Name]
		for _, field := range sortedFields(links) {
			src := links[field]
			logger.Debug("Linking dependency.", "from", src.Node+"."+src.Field, "to", n.Name+"."+field)
			if err := g.Connect(src.Node, src.Field, n.Name, field); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	logger.Debug("Build: Graph construction complete.", "nodes", g.Len(), "edges", len(g.Edges()))
	return g, nil
}

// buildNode creates the graph node for n and returns its pending edges keyed
// by destination field.
func buildNode(ctx context.Context, n *config.Node, specs map[string]*task.Spec) (*graph.Node, map[string]ref, error) {
	logger := ctxlog.FromContext(ctx).With("node", n.Name, "task", n.Task)

	spec, ok := specs[n.Task]
	if !ok {
		return nil, nil, fmt.Errorf("node '%s' uses unknown task '%s'", n.Name, n.Task)
	}

	gn := &graph.Node{
		Name:   n.Name,
		Spec:   spec,
		Static: make(map[string]cty.Value),
	}
	links := make(map[string]ref)
	var errs []error

	for _, field := range sortedFields(n.Inputs) {
		expr := n.Inputs[field]
		if r, ok := parseRef(expr); ok {
			logger.Debug("Input is a node reference.", "field", field, "traversal", formatTraversal(expr.Variables()[0]))
			links[field] = r
			continue
		}
		val, err := evalLiteral(expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("node '%s', input '%s': %w", n.Name, field, err))
			continue
		}
		gn.Static[field] = val
	}

	for _, it := range n.Iterables {
		values, err := evalIterable(it.Values)
		if err != nil {
			errs = append(errs, fmt.Errorf("node '%s', iterable '%s': %w", n.Name, it.Field, err))
			continue
		}
		logger.Debug("Parsed iterable.", "field", it.Field, "values", len(values))
		gn.Iterables = append(gn.Iterables, graph.Iterable{Field: it.Field, Values: values})
	}

	if len(errs) > 0 {
		return nil, nil, errors.Join(errs...)
	}
	return gn, links, nil
}

// parseRef reports whether expr is exactly a `node.<name>.<output>`
// traversal.
func parseRef(expr hcl.Expression) (ref, bool) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() || len(traversal) != 3 || traversal.RootName() != nodeRoot {
		return ref{}, false
	}
	nameAttr, nameOk := traversal[1].(hcl.TraverseAttr)
	fieldAttr, fieldOk := traversal[2].(hcl.TraverseAttr)
	if !nameOk || !fieldOk {
		return ref{}, false
	}
	return ref{Node: nameAttr.Name, Field: fieldAttr.Name}, true
}

// evalLiteral evaluates an expression that must not depend on any variable.
func evalLiteral(expr hcl.Expression) (cty.Value, error) {
	for _, traversal := range expr.Variables() {
		if traversal.RootName() == nodeRoot {
			return cty.NilVal, fmt.Errorf("reference %s must be the whole expression; node outputs cannot be combined with other values", formatTraversal(traversal))
		}
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	return val, nil
}

// evalIterable evaluates a sweep expression into its ordered values.
func evalIterable(expr hcl.Expression) ([]cty.Value, error) {
	val, err := evalLiteral(expr)
	if err != nil {
		return nil, err
	}
	ty := val.Type()
	if val.IsNull() || !(ty.IsListType() || ty.IsTupleType() || ty.IsSetType()) {
		return nil, fmt.Errorf("values must be a list, got %s", ty.FriendlyName())
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("values must be known")
	}

	values := make([]cty.Value, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, v := it.Element()
		values = append(values, v)
	}
	return values, nil
}

func sortedFields[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatTraversal converts an hcl.Traversal to a human-readable string for logging.
func formatTraversal(t hcl.Traversal) string {
	var sb strings.Builder
	for i, part := range t {
		switch p := part.(type) {
		case hcl.TraverseRoot:
			sb.WriteString(p.Name)
		case hcl.TraverseAttr:
			sb.WriteRune('.')
			sb.WriteString(p.Name)
		case hcl.TraverseIndex:
			sb.WriteRune('[')
			if p.Key.Type() == cty.String {
				sb.WriteString(fmt.Sprintf("%q", p.Key.AsString()))
			} else if p.Key.Type() == cty.Number {
				bf := p.Key.AsBigFloat()
				sb.WriteString(bf.Text('f', -1))
			} else {
				sb.WriteString("...")
			}
			sb.WriteRune(']')
		default:
			if i > 0 {
				sb.WriteRune('.')
			}
			sb.WriteString("?")
		}
	}
	return sb.String()
}
