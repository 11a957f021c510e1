package expand

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// MaxInstances bounds the size of a single plan.
const MaxInstances = 1 << 20

var (
	// ErrTooManyInstances means the sweeps multiply out beyond MaxInstances.
	ErrTooManyInstances = errors.New("sweep expansion exceeds the instance limit")

	// ErrUnresolvedBinding means no upstream instance matches an instance's coordinates.
	// It can only happen on a graph that skipped validation.
	ErrUnresolvedBinding = errors.New("no upstream instance matches the sweep coordinates")
)

// Expand produces the concrete execution plan of g. The graph is expected to
// have passed Validate.
func Expand(g *graph.Graph) (*Plan, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	e := &expander{
		g:       g,
		pos:     pos,
		sources: make(map[string][]string, len(order)),
		combos:  make(map[string][]map[string]cty.Value),
		plan: &Plan{
			byNode: make(map[string][]*Instance, len(order)),
			byID:   make(map[string]*Instance),
		},
	}

	for _, name := range order {
		if err := e.expandNode(name); err != nil {
			return nil, err
		}
	}
	return e.plan, nil
}

type expander struct {
	g   *graph.Graph
	pos map[string]int
	// sources holds each node's sweep sources ordered most upstream first.
	sources map[string][]string
	// combos holds every swept node's own value combinations in enumeration order.
	combos map[string][]map[string]cty.Value
	plan   *Plan
}

func (e *expander) expandNode(name string) error {
	n, _ := e.g.Node(name)

	set := make(map[string]struct{})
	for _, up := range e.g.Upstream(name) {
		for _, s := range e.sources[up] {
			set[s] = struct{}{}
		}
	}
	if n.IsSwept() {
		set[name] = struct{}{}
		e.combos[name] = combinations(n.Iterables)
	}

	sources := make([]string, 0, len(set))
	for s := range set {
		sources = append(sources, s)
	}
	slices.SortFunc(sources, func(a, b string) int { return e.pos[a] - e.pos[b] })
	e.sources[name] = sources

	sizes := make([]int, len(sources))
	total := 1
	for i, s := range sources {
		sizes[i] = len(e.combos[s])
		total *= sizes[i]
		if total > MaxInstances {
			return fmt.Errorf("%w: node %q would have more than %d instances", ErrTooManyInstances, name, MaxInstances)
		}
	}

	inbound := e.g.Inbound(name)
	for k := 0; k < total; k++ {
		inst := e.newInstance(n, sources, decode(k, sizes))
		if err := e.bind(inst, inbound); err != nil {
			return err
		}
		e.plan.Instances = append(e.plan.Instances, inst)
		e.plan.byNode[name] = append(e.plan.byNode[name], inst)
		e.plan.byID[inst.ID.String()] = inst
	}
	return nil
}

func (e *expander) newInstance(n *graph.Node, sources []string, indices []int) *Instance {
	inst := &Instance{
		Node:     n,
		Static:   make(map[string]cty.Value, len(n.Static)+len(n.Iterables)),
		Bindings: make(map[string]Binding),
	}
	maps.Copy(inst.Static, n.Static)

	coords := make([]nodeid.Coord, len(sources))
	for i, s := range sources {
		values := e.combos[s][indices[i]]
		coords[i] = nodeid.Coord{Source: s, Index: indices[i]}
		inst.Choices = append(inst.Choices, Choice{Source: s, Index: indices[i], Values: values})
		if s == n.Name {
			maps.Copy(inst.Static, values)
		}
	}
	inst.ID = nodeid.New(n.Name, coords...)
	return inst
}

// bind resolves every inbound edge of inst to the upstream instance whose
// coordinates are the restriction of inst's coordinates to that upstream
// node's sources.
func (e *expander) bind(inst *Instance, inbound []graph.Edge) error {
	seen := make(map[*Instance]struct{})
	for _, edge := range inbound {
		up := edge.From.Node
		upID := nodeid.New(up, inst.ID.Restrict(e.sources[up])...)
		upInst, ok := e.plan.byID[upID.String()]
		if !ok {
			return fmt.Errorf("%w: %s needs %s", ErrUnresolvedBinding, inst.ID, upID)
		}
		inst.Bindings[edge.To.Field] = Binding{Upstream: upInst, Field: edge.From.Field}

		if _, dup := seen[upInst]; dup {
			continue
		}
		seen[upInst] = struct{}{}
		inst.Upstream = append(inst.Upstream, upInst)
		upInst.Dependents = append(upInst.Dependents, inst)
	}
	return nil
}

// combinations enumerates the Cartesian product of a node's iterable fields,
// first declared field varying slowest.
func combinations(iterables []graph.Iterable) []map[string]cty.Value {
	sizes := make([]int, len(iterables))
	total := 1
	for i, it := range iterables {
		sizes[i] = len(it.Values)
		total *= sizes[i]
	}

	out := make([]map[string]cty.Value, 0, total)
	for k := 0; k < total; k++ {
		idx := decode(k, sizes)
		combo := make(map[string]cty.Value, len(iterables))
		for i, it := range iterables {
			combo[it.Field] = it.Values[idx[i]]
		}
		out = append(out, combo)
	}
	return out
}

// decode turns k into mixed-radix digits over sizes, last digit fastest.
func decode(k int, sizes []int) []int {
	digits := make([]int, len(sizes))
	for i := len(sizes) - 1; i >= 0; i-- {
		digits[i] = k % sizes[i]
		k /= sizes[i]
	}
	return digits
}
