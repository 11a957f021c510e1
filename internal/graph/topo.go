package graph

import (
	"strings"
)

// DetectCycles checks the edge set for cycles. It returns a *ValidationError
// wrapping ErrCycle that names the cycle path, or nil.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.detectCyclesLocked()
}

func (g *Graph) detectCyclesLocked() error {
	// Classic depth-first search: `visited` nodes are fully explored and known
	// to be outside any cycle, `stack` holds the current recursion path.
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		onStack[name] = true
		stack = append(stack, name)

		for _, next := range g.downstreamLocked(name) {
			if onStack[next] {
				return newValidationError(next, "", ErrCycle, "cycle detected: %s", cyclePath(stack, next))
			}
			if !visited[next] {
				if err := visit(next); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, name)
		visited[name] = true
		return nil
	}

	for _, name := range g.order {
		if !visited[name] {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath renders the part of the recursion stack that closes on `back`.
func cyclePath(stack []string, back string) string {
	start := 0
	for i, n := range stack {
		if n == back {
			start = i
			break
		}
	}
	path := append(append([]string{}, stack[start:]...), back)
	return strings.Join(path, " -> ")
}

// TopologicalOrder returns node names so that every producer precedes its
// consumers. Ties are broken by insertion order, which makes the result
// deterministic for a given graph.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	inDegree := make(map[string]int, len(g.order))
	for _, name := range g.order {
		inDegree[name] = len(g.upstreamLocked(name))
	}

	// Kahn's algorithm with the ready set kept sorted by insertion index.
	var ready []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, name)

		for _, next := range g.downstreamLocked(name) {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
				g.sortByInsertion(ready)
			}
		}
	}

	if len(out) != len(g.order) {
		if err := g.detectCyclesLocked(); err != nil {
			return nil, err
		}
		return nil, newValidationError("", "", ErrCycle, "graph is not acyclic")
	}
	return out, nil
}
