package graph

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/zclconf/go-cty/cty"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		index: make(map[string]int),
	}
}

// AddNode adds a copy of n to the graph. Later changes to n's maps or slices
// do not affect the graph.
func (g *Graph) AddNode(n *Node) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.frozen {
		return ErrFrozen
	}
	if n == nil || !nameRegex.MatchString(n.Name) || n.Name == "-" || n.Name == "_" {
		name := ""
		if n != nil {
			name = n.Name
		}
		return newValidationError(name, "", ErrInvalidName, "node names must be identifiers of letters, digits, '_' or '-'")
	}
	if _, exists := g.nodes[n.Name]; exists {
		return newValidationError(n.Name, "", ErrDuplicateNode, "a node with this name already exists")
	}

	g.index[n.Name] = len(g.order)
	g.order = append(g.order, n.Name)
	g.nodes[n.Name] = cloneNode(n)
	return nil
}

func cloneNode(n *Node) *Node {
	c := &Node{
		Name:   n.Name,
		Spec:   n.Spec,
		Static: make(map[string]cty.Value, len(n.Static)),
	}
	maps.Copy(c.Static, n.Static)
	for _, it := range n.Iterables {
		c.Iterables = append(c.Iterables, Iterable{Field: it.Field, Values: slices.Clone(it.Values)})
	}
	return c
}

// Connect adds an edge from srcNode.srcField to dstNode.dstField. Both nodes
// must already exist; field checks are deferred to Validate.
func (g *Graph) Connect(srcNode, srcField, dstNode, dstField string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.frozen {
		return ErrFrozen
	}
	if srcNode == dstNode {
		return newValidationError(dstNode, dstField, ErrSelfEdge, "edge from %s.%s feeds its own node", srcNode, srcField)
	}
	if _, ok := g.nodes[srcNode]; !ok {
		return newValidationError(dstNode, dstField, ErrUnknownNode, "source node %q not found", srcNode)
	}
	if _, ok := g.nodes[dstNode]; !ok {
		return newValidationError(dstNode, dstField, ErrUnknownNode, "destination node %q not found", dstNode)
	}

	g.edges = append(g.edges, Edge{
		From: Port{Node: srcNode, Field: srcField},
		To:   Port{Node: dstNode, Field: dstField},
	})
	return nil
}

// Freeze makes the graph read-only.
func (g *Graph) Freeze() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.frozen = true
}

// Frozen reports whether Freeze has been called.
func (g *Graph) Frozen() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.frozen
}

// Node returns the node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Edges returns all edges in the order they were connected.
func (g *Graph) Edges() []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Clone(g.edges)
}

// Inbound returns the edges whose destination is the named node.
func (g *Graph) Inbound(name string) []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	var out []Edge
	for _, e := range g.edges {
		if e.To.Node == name {
			out = append(out, e)
		}
	}
	return out
}

// Upstream returns the distinct producers feeding the named node, in
// insertion order.
func (g *Graph) Upstream(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.upstreamLocked(name)
}

func (g *Graph) upstreamLocked(name string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range g.edges {
		if e.To.Node != name {
			continue
		}
		if _, ok := seen[e.From.Node]; ok {
			continue
		}
		seen[e.From.Node] = struct{}{}
		out = append(out, e.From.Node)
	}
	g.sortByInsertion(out)
	return out
}

// Downstream returns the distinct consumers of the named node, in insertion order.
func (g *Graph) Downstream(name string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.downstreamLocked(name)
}

func (g *Graph) downstreamLocked(name string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range g.edges {
		if e.From.Node != name {
			continue
		}
		if _, ok := seen[e.To.Node]; ok {
			continue
		}
		seen[e.To.Node] = struct{}{}
		out = append(out, e.To.Node)
	}
	g.sortByInsertion(out)
	return out
}

func (g *Graph) sortByInsertion(names []string) {
	slices.SortFunc(names, func(a, b string) int {
		return g.index[a] - g.index[b]
	})
}

func (g *Graph) String() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return fmt.Sprintf("graph(%d nodes, %d edges)", len(g.order), len(g.edges))
}
