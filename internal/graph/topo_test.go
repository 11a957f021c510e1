package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// diamond builds A -> B, A -> C, B -> D, C -> D using the "in"/"opt" inputs
// of passSpec for D's two inbound edges.
func diamond(t *testing.T) *Graph {
	t.Helper()
	g := New()
	require.NoError(t, g.AddNode(&Node{Name: "A", Spec: sourceSpec(t)}))
	require.NoError(t, g.AddNode(&Node{Name: "B", Spec: passSpec(t, "p")}))
	require.NoError(t, g.AddNode(&Node{Name: "C", Spec: passSpec(t, "p")}))
	require.NoError(t, g.AddNode(&Node{Name: "D", Spec: passSpec(t, "p")}))
	require.NoError(t, g.Connect("A", "out", "B", "in"))
	require.NoError(t, g.Connect("A", "out", "C", "in"))
	require.NoError(t, g.Connect("B", "out", "D", "in"))
	require.NoError(t, g.Connect("C", "out", "D", "opt"))
	return g
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("diamond has no cycles", func(t *testing.T) {
		assert.NoError(t, diamond(t).DetectCycles())
	})

	t.Run("longer cycle reports its path", func(t *testing.T) {
		g := New()
		for _, n := range []string{"a", "b", "c", "d"} {
			require.NoError(t, g.AddNode(&Node{Name: n, Spec: passSpec(t, "p")}))
		}
		require.NoError(t, g.Connect("a", "out", "b", "in"))
		require.NoError(t, g.Connect("b", "out", "c", "in"))
		require.NoError(t, g.Connect("c", "out", "d", "in"))
		require.NoError(t, g.Connect("d", "out", "b", "opt"))

		err := g.DetectCycles()
		require.ErrorIs(t, err, ErrCycle)
		assert.Contains(t, err.Error(), "b -> c -> d -> b")
	})
}

func TestTopologicalOrder(t *testing.T) {
	t.Run("diamond", func(t *testing.T) {
		order, err := diamond(t).TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	})

	t.Run("ties follow insertion order", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddNode(&Node{Name: "z", Spec: passSpec(t, "p")}))
		require.NoError(t, g.AddNode(&Node{Name: "y", Spec: sourceSpec(t)}))
		require.NoError(t, g.AddNode(&Node{Name: "x", Spec: sourceSpec(t)}))
		require.NoError(t, g.Connect("x", "out", "z", "in"))

		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"y", "x", "z"}, order)
	})

	t.Run("cycle", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddNode(&Node{Name: "A", Spec: passSpec(t, "p")}))
		require.NoError(t, g.AddNode(&Node{Name: "B", Spec: passSpec(t, "p")}))
		require.NoError(t, g.Connect("A", "out", "B", "in"))
		require.NoError(t, g.Connect("B", "out", "A", "in"))

		_, err := g.TopologicalOrder()
		assert.ErrorIs(t, err, ErrCycle)
	})
}

func TestWriteDOT(t *testing.T) {
	g := diamond(t)
	require.NoError(t, g.AddNode(&Node{
		Name:      "E",
		Spec:      passSpec(t, "p"),
		Iterables: []Iterable{{Field: "in", Values: []cty.Value{cty.StringVal("1"), cty.StringVal("2")}}},
	}))

	var buf bytes.Buffer
	require.NoError(t, g.WriteDOT(&buf))
	out := buf.String()

	assert.Contains(t, out, "digraph workflow {")
	assert.Contains(t, out, `"A" [label="A\nsource"];`)
	assert.Contains(t, out, `"B" -> "D" [label="out -> in"];`)
	assert.Contains(t, out, `"E" [label="E\np@1\nsweep: in(2)", shape=box3d];`)
}
