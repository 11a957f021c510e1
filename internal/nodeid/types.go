// internal/nodeid/types.go
package nodeid

// Coord pins one sweep source of an instance to one of its value combinations.
type Coord struct {
	// Source is the name of the iterable node that introduced the sweep.
	Source string
	// Index is the position of the chosen combination in the source's
	// enumeration order.
	Index int
}

// Address is the structured identity of an execution instance: the node it
// was expanded from plus one coordinate per sweep source reaching it, most
// upstream source first.
type Address struct {
	Node   string
	Coords []Coord
}

// New creates an address for a node with the given coordinates.
func New(node string, coords ...Coord) *Address {
	return &Address{Node: node, Coords: coords}
}

// IsSwept reports whether the address carries any sweep coordinates.
func (a *Address) IsSwept() bool {
	return a != nil && len(a.Coords) > 0
}

// Index returns the coordinate index for source, or -1 if the address has no
// coordinate for it.
func (a *Address) Index(source string) int {
	if a == nil {
		return -1
	}
	for _, c := range a.Coords {
		if c.Source == source {
			return c.Index
		}
	}
	return -1
}
