package scheduler_test

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/sweepgrid/internal/cache"
	"github.com/specialistvlad/sweepgrid/internal/filestore"
	"github.com/specialistvlad/sweepgrid/internal/graph"
	"github.com/specialistvlad/sweepgrid/internal/scheduler"
	"github.com/specialistvlad/sweepgrid/internal/task"
	"github.com/specialistvlad/sweepgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"pgregory.net/rapid"
)

// fileScheduler returns a scheduler over a fresh cache on the store in dir,
// the way a new process would see it.
func fileScheduler(t testutil.TB, dir string, opts ...cache.Option) *scheduler.Scheduler {
	t.Helper()
	store, err := filestore.New(dir)
	require.NoError(t, err)
	return scheduler.New(cache.New(store, opts...))
}

// collectionsGraph builds `tags`, producing collection and null outputs,
// feeding `echo`, whose inputs are typed any.
func collectionsGraph(t *testing.T, calls *int) *graph.Graph {
	t.Helper()
	tags, err := task.New(
		task.Identity{Name: "tags", Version: "1"},
		nil,
		[]task.OutputField{
			{Name: "tags", Type: cty.List(cty.String)},
			{Name: "env", Type: cty.Map(cty.String)},
			{Name: "ids", Type: cty.Set(cty.Number)},
			{Name: "note", Type: cty.String},
		},
		task.ExecutorFunc(func(context.Context, map[string]cty.Value) (map[string]cty.Value, error) {
			*calls++
			return map[string]cty.Value{
				"tags": cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
				"env":  cty.MapVal(map[string]cty.Value{"HOME": cty.StringVal("/root")}),
				"ids":  cty.SetVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}),
				"note": cty.NullVal(cty.String),
			}, nil
		}),
	)
	require.NoError(t, err)

	echo, err := task.New(
		task.Identity{Name: "echo", Version: "1"},
		[]task.InputField{
			{Name: "tags", Type: cty.DynamicPseudoType, Required: true},
			{Name: "env", Type: cty.DynamicPseudoType, Required: true},
			{Name: "ids", Type: cty.DynamicPseudoType, Required: true},
			{Name: "note", Type: cty.DynamicPseudoType},
		},
		[]task.OutputField{{Name: "seen", Type: cty.DynamicPseudoType}},
		task.ExecutorFunc(func(_ context.Context, in map[string]cty.Value) (map[string]cty.Value, error) {
			*calls++
			return map[string]cty.Value{"seen": cty.ObjectVal(in)}, nil
		}),
	)
	require.NoError(t, err)

	g := graph.New()
	require.NoError(t, g.AddNode(&graph.Node{Name: "tags", Spec: tags}))
	require.NoError(t, g.AddNode(&graph.Node{Name: "echo", Spec: echo}))
	for _, field := range []string{"tags", "env", "ids", "note"} {
		require.NoError(t, g.Connect("tags", field, "echo", field))
	}
	return g
}

func TestRun_IdempotentRerunOverFileStore(t *testing.T) {
	ctx, _ := testutil.LogContext(t)
	dir := t.TempDir()
	calls := 0
	p := mustPlan(t, collectionsGraph(t, &calls))

	first, err := fileScheduler(t, dir).Run(ctx, p, 1)
	require.NoError(t, err)
	require.Equal(t, scheduler.Success, first.Status)
	require.Equal(t, 2, calls)

	second, err := fileScheduler(t, dir).Run(ctx, p, 1)
	require.NoError(t, err)
	require.Equal(t, scheduler.Success, second.Status)
	assert.Equal(t, 2, calls, "rerun must not execute anything")

	for i, ir := range second.Instances {
		want := first.Instances[i]
		assert.True(t, ir.CacheHit, ir.ID)
		assert.Equal(t, want.Fingerprint, ir.Fingerprint, ir.ID)
		require.Len(t, ir.Outputs, len(want.Outputs), ir.ID)
		for name, v := range want.Outputs {
			assert.True(t, v.RawEquals(ir.Outputs[name]), "%s.%s: %#v != %#v", ir.ID, name, v, ir.Outputs[name])
		}
	}
}

func TestRun_StaleCachedOutputsAreAMiss(t *testing.T) {
	ctx, _ := testutil.LogContext(t)
	dir := t.TempDir()
	c := testutil.NewCounter()
	g := graph.New()
	require.NoError(t, g.AddNode(&graph.Node{Name: "a", Spec: testutil.NumberSpec(t, "a", c, "x"), Static: map[string]cty.Value{"x": cty.NumberIntVal(3)}}))
	p := mustPlan(t, g)

	first, err := fileScheduler(t, dir).Run(ctx, p, 1)
	require.NoError(t, err)
	ir, _ := first.Instance("a")

	store, err := filestore.New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, &cache.Entry{
		Fingerprint: ir.Fingerprint,
		Task:        "a",
		Outputs:     map[string]cty.Value{"out": cty.StringVal("not a number")},
		Status:      cache.StatusDone,
	}))

	t.Run("authoritative cache stops the run", func(t *testing.T) {
		_, err := fileScheduler(t, dir, cache.WithAuthoritative(true)).Run(ctx, p, 1)
		var infra *cache.InfrastructureError
		require.ErrorAs(t, err, &infra)
		var cerr *cache.CacheError
		assert.ErrorAs(t, err, &cerr)
		assert.Equal(t, 1, c.Calls())
	})

	t.Run("entry is dropped and the task runs again", func(t *testing.T) {
		res, err := fileScheduler(t, dir).Run(ctx, p, 1)
		require.NoError(t, err)
		require.Equal(t, scheduler.Success, res.Status)
		got, _ := res.Instance("a")
		assert.False(t, got.CacheHit)
		assert.Equal(t, int64(3), out(t, res, "a"))
		assert.Equal(t, 2, c.Calls())

		again, err := fileScheduler(t, dir).Run(ctx, p, 1)
		require.NoError(t, err)
		hit, _ := again.Instance("a")
		assert.True(t, hit.CacheHit)
		assert.Equal(t, 2, c.Calls())
	})
}

func TestProperty_RerunOverFileStoreMatchesFirstRun(t *testing.T) {
	ctx, _ := testutil.LogContext(t)
	base := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		dir, err := os.MkdirTemp(base, "store")
		if err != nil {
			rt.Fatal(err)
		}
		c := testutil.NewCounter()
		p := randomPlan(rt, c)

		first, err := fileScheduler(rt, dir).Run(ctx, p, rapid.IntRange(1, 8).Draw(rt, "workers"))
		if err != nil {
			rt.Fatal(err)
		}
		calls := c.Calls()
		second, err := fileScheduler(rt, dir).Run(ctx, p, 4)
		if err != nil {
			rt.Fatal(err)
		}
		if c.Calls() != calls {
			rt.Fatalf("rerun executed %d tasks", c.Calls()-calls)
		}
		for i, ir := range second.Instances {
			want := first.Instances[i]
			if !ir.CacheHit || ir.Fingerprint != want.Fingerprint {
				rt.Fatalf("%s: cache hit %v, fingerprint %s vs %s", ir.ID, ir.CacheHit, ir.Fingerprint.Short(), want.Fingerprint.Short())
			}
			if !want.Outputs["out"].RawEquals(ir.Outputs["out"]) {
				rt.Fatalf("%s: outputs differ: %#v vs %#v", ir.ID, want.Outputs["out"], ir.Outputs["out"])
			}
		}
	})
}
