// internal/nodeid/address.go
package nodeid

import (
	"reflect"
	"strconv"
	"strings"
)

// String serializes the Address into its canonical form: `node` or
// `node[a=0,b=2]`.
func (a *Address) String() string {
	if a == nil {
		return ""
	}
	if len(a.Coords) == 0 {
		return a.Node
	}

	var sb strings.Builder
	sb.WriteString(a.Node)
	sb.WriteRune('[')
	for i, c := range a.Coords {
		if i > 0 {
			sb.WriteRune(',')
		}
		sb.WriteString(c.Source)
		sb.WriteRune('=')
		sb.WriteString(strconv.Itoa(c.Index))
	}
	sb.WriteRune(']')
	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.Node != other.Node || len(a.Coords) != len(other.Coords) {
		return false
	}
	return len(a.Coords) == 0 || reflect.DeepEqual(a.Coords, other.Coords)
}

// Restrict returns the coordinates of a that belong to the given sources, in
// the order of a. Sources missing from a are skipped.
func (a *Address) Restrict(sources []string) []Coord {
	if a == nil {
		return nil
	}
	want := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		want[s] = struct{}{}
	}
	var out []Coord
	for _, c := range a.Coords {
		if _, ok := want[c.Source]; ok {
			out = append(out, c)
		}
	}
	return out
}
