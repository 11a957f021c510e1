package graph

import (
	"errors"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Validate runs every structural check and returns all defects joined into
// one error, or nil if the graph may be executed.
func (g *Graph) Validate() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var errs []error
	for _, name := range g.order {
		errs = append(errs, g.validateNode(g.nodes[name])...)
	}
	errs = append(errs, g.validateEdges()...)
	if err := g.detectCyclesLocked(); err != nil {
		errs = append(errs, err)
	}
	for _, name := range g.order {
		errs = append(errs, g.validateBindings(g.nodes[name])...)
	}
	return errors.Join(errs...)
}

// validateNode checks that statics and iterables reference declared inputs
// with convertible values.
func (g *Graph) validateNode(n *Node) []error {
	if n.Spec == nil {
		return []error{newValidationError(n.Name, "", ErrNoTask, "no task spec attached")}
	}

	var errs []error
	for _, field := range sortedKeys(n.Static) {
		in, ok := n.Spec.Input(field)
		if !ok {
			errs = append(errs, newValidationError(n.Name, field, ErrUnknownField, "static value for an input task %s does not declare", n.Spec.Identity()))
			continue
		}
		if _, err := convert.Convert(n.Static[field], in.Type); err != nil {
			errs = append(errs, newValidationError(n.Name, field, ErrTypeMismatch, "static value does not convert to %s: %v", in.Type.FriendlyName(), err))
		}
	}

	for _, it := range n.Iterables {
		in, ok := n.Spec.Input(it.Field)
		if !ok {
			errs = append(errs, newValidationError(n.Name, it.Field, ErrUnknownField, "iterable over an input task %s does not declare", n.Spec.Identity()))
			continue
		}
		if len(it.Values) == 0 {
			errs = append(errs, newValidationError(n.Name, it.Field, ErrEmptySweep, "iterable has no candidate values"))
			continue
		}
		for i, v := range it.Values {
			if _, err := convert.Convert(v, in.Type); err != nil {
				errs = append(errs, newValidationError(n.Name, it.Field, ErrTypeMismatch, "candidate %d does not convert to %s: %v", i, in.Type.FriendlyName(), err))
			}
		}
	}
	return errs
}

// validateEdges checks edge fields exist and that producer and consumer types
// are compatible.
func (g *Graph) validateEdges() []error {
	var errs []error
	for _, e := range g.edges {
		src, dst := g.nodes[e.From.Node], g.nodes[e.To.Node]
		if src.Spec == nil || dst.Spec == nil {
			// Reported by validateNode.
			continue
		}
		out, okOut := src.Spec.Output(e.From.Field)
		if !okOut {
			errs = append(errs, newValidationError(e.From.Node, e.From.Field, ErrUnknownField, "edge to %s reads an output task %s does not declare", e.To, src.Spec.Identity()))
		}
		in, okIn := dst.Spec.Input(e.To.Field)
		if !okIn {
			errs = append(errs, newValidationError(e.To.Node, e.To.Field, ErrUnknownField, "edge from %s writes an input task %s does not declare", e.From, dst.Spec.Identity()))
		}
		if okOut && okIn && !typesCompatible(out.Type, in.Type) {
			errs = append(errs, newValidationError(e.To.Node, e.To.Field, ErrTypeMismatch, "edge from %s carries %s, input wants %s", e.From, out.Type.FriendlyName(), in.Type.FriendlyName()))
		}
	}
	return errs
}

func typesCompatible(from, to cty.Type) bool {
	if from.Equals(to) || to == cty.DynamicPseudoType || from == cty.DynamicPseudoType {
		return true
	}
	return convert.GetConversionUnsafe(from, to) != nil
}

// validateBindings checks that every input of n is bound by at most one edge,
// never by an edge and a static value at once, and that required inputs are
// bound by exactly one of static, edge or iterable.
func (g *Graph) validateBindings(n *Node) []error {
	if n.Spec == nil {
		return nil
	}

	inbound := make(map[string][]Port)
	for _, e := range g.edges {
		if e.To.Node == n.Name {
			inbound[e.To.Field] = append(inbound[e.To.Field], e.From)
		}
	}
	iterables := make(map[string]int)
	for _, it := range n.Iterables {
		iterables[it.Field]++
	}

	var errs []error
	for _, in := range n.Spec.Inputs() {
		edges := inbound[in.Name]
		_, static := n.Static[in.Name]
		sweeps := iterables[in.Name]

		if len(edges) > 1 {
			errs = append(errs, newValidationError(n.Name, in.Name, ErrDoubleBound, "bound by %d edges (from %s)", len(edges), joinPorts(edges)))
		}
		if len(edges) > 0 && static {
			errs = append(errs, newValidationError(n.Name, in.Name, ErrStaticConflict, "bound by an edge from %s and a static value", joinPorts(edges)))
		}
		if sweeps > 1 || (sweeps > 0 && (static || len(edges) > 0)) {
			errs = append(errs, newValidationError(n.Name, in.Name, ErrAmbiguousInput, "iterable field is also bound by %s", describeOtherBindings(static, len(edges), sweeps)))
		}

		if in.Required && !static && len(edges) == 0 && sweeps == 0 {
			errs = append(errs, newValidationError(n.Name, in.Name, ErrMissingInput, "required input is not bound by a static value, an edge or an iterable"))
		}
	}
	return errs
}

func describeOtherBindings(static bool, edges, sweeps int) string {
	var parts []string
	if static {
		parts = append(parts, "a static value")
	}
	if edges > 0 {
		parts = append(parts, "an edge")
	}
	if sweeps > 1 {
		parts = append(parts, "another iterable")
	}
	return strings.Join(parts, " and ")
}

func joinPorts(ports []Port) string {
	s := make([]string, len(ports))
	for i, p := range ports {
		s[i] = p.String()
	}
	return strings.Join(s, ", ")
}

func sortedKeys(m map[string]cty.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
