package graph

import (
	"sync"

	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Node binds a task spec into a graph under a unique name.
type Node struct {
	Name string
	// Spec is shared between nodes, never copied.
	Spec *task.Spec
	// Iterables request sweep expansion. Declaration order drives the
	// enumeration order of the node's value combinations.
	Iterables []Iterable
	// Static holds literal input values.
	Static map[string]cty.Value
}

// Iterable sweeps one input field over an ordered list of candidate values.
type Iterable struct {
	Field  string
	Values []cty.Value
}

// IsSwept reports whether the node declares any iterable field.
func (n *Node) IsSwept() bool {
	return len(n.Iterables) > 0
}

// Port addresses one field of one node.
type Port struct {
	Node  string
	Field string
}

func (p Port) String() string {
	return p.Node + "." + p.Field
}

// Edge is a data dependency from a producer's output field to a consumer's
// input field.
type Edge struct {
	From Port
	To   Port
}

// Graph is a set of uniquely named nodes plus the edges between them.
// All operations are safe for concurrent use.
type Graph struct {
	mutex sync.RWMutex
	// nodes stores all nodes, keyed by name.
	nodes map[string]*Node
	// order keeps insertion order so every traversal is deterministic.
	order []string
	index map[string]int
	edges []Edge
	// frozen is set when a run starts.
	frozen bool
}
