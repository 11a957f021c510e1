package expand

import (
	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Choice records which value combination an instance took from one sweep source.
type Choice struct {
	Source string
	Index  int
	Values map[string]cty.Value
}

// Binding feeds an instance input from one output field of an upstream instance.
type Binding struct {
	Upstream *Instance
	Field    string
}

// Instance is one fully bound occurrence of a node.
type Instance struct {
	ID   *nodeid.Address
	Node *graph.Node
	// Choices holds one entry per sweep source, most upstream first.
	Choices []Choice
	// Static holds the node's static inputs plus the values of its own
	// iterable fields for this combination.
	Static map[string]cty.Value
	// Bindings maps an input field to the upstream output that feeds it.
	Bindings map[string]Binding
	// Upstream lists the distinct instances this one waits for.
	Upstream []*Instance
	// Dependents lists the distinct instances waiting for this one.
	Dependents []*Instance
}

// String returns the canonical instance identifier.
func (i *Instance) String() string {
	return i.ID.String()
}

// Plan is the concrete execution graph produced by Expand.
type Plan struct {
	// Instances are ordered topologically by node, then by enumeration order.
	Instances []*Instance
	byNode    map[string][]*Instance
	byID      map[string]*Instance
}

// ByNode returns the instances expanded from the named node.
func (p *Plan) ByNode(name string) []*Instance {
	return p.byNode[name]
}

// Instance looks up an instance by its canonical identifier.
func (p *Plan) Instance(id string) (*Instance, bool) {
	inst, ok := p.byID[id]
	return inst, ok
}

// Len returns the number of instances.
func (p *Plan) Len() int {
	return len(p.Instances)
}
