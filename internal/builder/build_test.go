package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/hcl_adapter"
	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func testSpecs(t *testing.T) map[string]*task.Spec {
	t.Helper()
	noop := task.ExecutorFunc(func(ctx context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
		return map[string]cty.Value{"out": cty.NumberIntVal(0)}, nil
	})
	spec, err := task.New(task.Identity{Name: "num"},
		[]task.InputField{
			{Name: "a", Type: cty.Number, Required: true},
			{Name: "b", Type: cty.Number, Required: true},
		},
		[]task.OutputField{{Name: "out", Type: cty.Number}},
		noop,
	)
	require.NoError(t, err)
	return map[string]*task.Spec{"num": spec}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	model := config.NewModel()
	model.Workflow.Nodes = []*config.Node{
		{
			Name: "sum",
			Task: "num",
			Inputs: map[string]hcl.Expression{
				"a": expr(t, "node.source.out"),
				"b": expr(t, "1 + 1"),
			},
		},
		{
			Name:      "source",
			Task:      "num",
			Inputs:    map[string]hcl.Expression{"b": expr(t, "10")},
			Iterables: []*config.Iterable{{Field: "a", Values: expr(t, "[1, 2, 3]")}},
		},
	}

	g, err := Build(testContext(), model, testSpecs(t))
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	sum, ok := g.Node("sum")
	require.True(t, ok)
	assert.True(t, sum.Static["b"].Equals(cty.NumberIntVal(2)).True())
	assert.NotContains(t, sum.Static, "a")

	source, _ := g.Node("source")
	require.Len(t, source.Iterables, 1)
	assert.Equal(t, "a", source.Iterables[0].Field)
	assert.Len(t, source.Iterables[0].Values, 3)

	assert.Equal(t, []graph.Edge{{
		From: graph.Port{Node: "source", Field: "out"},
		To:   graph.Port{Node: "sum", Field: "a"},
	}}, g.Edges())
	require.NoError(t, g.Validate())
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		nodes    func(t *testing.T) []*config.Node
		contains string
	}{
		{
			name: "unknown task",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{{Name: "x", Task: "missing"}}
			},
			contains: "node 'x' uses unknown task 'missing'",
		},
		{
			name: "unknown node reference",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{{Name: "x", Task: "num", Inputs: map[string]hcl.Expression{"a": expr(t, "node.ghost.out")}}}
			},
			contains: "source node \"ghost\" not found",
		},
		{
			name: "reference inside a larger expression",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{
					{Name: "src", Task: "num"},
					{Name: "x", Task: "num", Inputs: map[string]hcl.Expression{"a": expr(t, "node.src.out + 1")}},
				}
			},
			contains: "reference node.src.out must be the whole expression",
		},
		{
			name: "unknown variable",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{{Name: "x", Task: "num", Inputs: map[string]hcl.Expression{"a": expr(t, "var.a")}}}
			},
			contains: "node 'x', input 'a'",
		},
		{
			name: "iterable that is not a list",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{{Name: "x", Task: "num", Iterables: []*config.Iterable{{Field: "a", Values: expr(t, "5")}}}}
			},
			contains: "values must be a list, got number",
		},
		{
			name: "duplicate node name",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{{Name: "x", Task: "num"}, {Name: "x", Task: "num"}}
			},
			contains: "already exists",
		},
		{
			name: "self reference",
			nodes: func(t *testing.T) []*config.Node {
				return []*config.Node{{Name: "x", Task: "num", Inputs: map[string]hcl.Expression{"a": expr(t, "node.x.out")}}}
			},
			contains: "feeds its own node",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			model := config.NewModel()
			model.Workflow.Nodes = tc.nodes(t)
			_, err := Build(testContext(), model, testSpecs(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestBuild_FromHCL(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	dir := t.TempDir()
	src := `
node "a" {
  task = "num"
  inputs {
    b = 0
  }
  iterables {
    a = [1, 2]
  }
}

node "b" {
  task = "num"
  inputs {
    a = node.a.out
    b = 5
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flow.hcl"), []byte(src), 0o644))

	model, _, err := hcl_adapter.NewLoader().Load(ctx, dir)
	require.NoError(t, err)

	g, err := Build(ctx, model, testSpecs(t))
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, []string{"a"}, g.Upstream("b"))
}

func TestBuild_EmptyModel(t *testing.T) {
	t.Parallel()
	g, err := Build(testContext(), config.NewModel(), nil)
	require.NoError(t, err)
	assert.Zero(t, g.Len())
}
