package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteDOT writes the graph in Graphviz DOT format. Swept nodes are drawn as
// 3D boxes and labelled with their iterable fields.
func (g *Graph) WriteDOT(w io.Writer) error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph workflow {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, "  node [shape=box];")

	for _, name := range g.order {
		n := g.nodes[name]
		label := name
		if n.Spec != nil {
			label += `\n` + n.Spec.Identity().String()
		}
		attrs := ""
		if n.IsSwept() {
			var fields []string
			for _, it := range n.Iterables {
				fields = append(fields, fmt.Sprintf("%s(%d)", it.Field, len(it.Values)))
			}
			label += `\nsweep: ` + strings.Join(fields, ", ")
			attrs = ", shape=box3d"
		}
		fmt.Fprintf(bw, "  %s [label=%s%s];\n", dotQuote(name), dotQuote(label), attrs)
	}

	for _, e := range g.edges {
		fmt.Fprintf(bw, "  %s -> %s [label=%s];\n", dotQuote(e.From.Node), dotQuote(e.To.Node), dotQuote(e.From.Field+" -> "+e.To.Field))
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

// dotQuote quotes s for DOT. Backslash escapes such as \n are kept as-is so
// Graphviz renders them.
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
