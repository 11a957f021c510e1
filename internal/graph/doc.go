// Package graph is the authoring model of a workflow: nodes bound to task
// specs, data edges between their fields, and the structural validation that
// must pass before anything runs.
//
// # Authoring
//
// A Graph is pure data. Callers add nodes and connect output fields to input
// fields; nothing executes and nothing is resolved at this point:
//
//	g := graph.New()
//	_ = g.AddNode(&graph.Node{Name: "source", Spec: listFiles})
//	_ = g.AddNode(&graph.Node{
//	    Name:      "strip",
//	    Spec:      bet,
//	    Static:    map[string]cty.Value{"mask": cty.True},
//	    Iterables: []graph.Iterable{{Field: "frac", Values: fracs}},
//	})
//	_ = g.Connect("source", "out_file", "strip", "in_file")
//
// # Validation
//
// Validate reports every structural defect at once, each as a *ValidationError
// joined with errors.Join. A graph is checked for unknown fields and type
// compatibility, fields bound by two edges, fields bound by both an edge and a
// static value, cycles (depth-first traversal with a recursion stack) and
// inputs that are unbound or bound more than once across static values,
// edges and iterables.
//
// # Lifecycle
//
// The engine freezes a graph when a run starts. A frozen graph rejects
// further AddNode and Connect calls with ErrFrozen, so the structure the
// expander sees is the structure that was validated.
package graph
