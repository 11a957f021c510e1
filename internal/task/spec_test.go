package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func echoExecutor(out map[string]cty.Value) Executor {
	return ExecutorFunc(func(context.Context, map[string]cty.Value) (map[string]cty.Value, error) {
		return out, nil
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("valid spec sorts fields and converts defaults", func(t *testing.T) {
		t.Parallel()
		def := cty.StringVal("3")
		s, err := New(
			Identity{Name: "bet", Version: "1"},
			[]InputField{
				{Name: "in_file", Type: cty.String, Required: true},
				{Name: "frac", Type: cty.Number, Default: &def},
			},
			[]OutputField{{Name: "out_file", Type: cty.String}},
			echoExecutor(nil),
			WithDescription("brain extraction"),
		)
		require.NoError(t, err)

		assert.Equal(t, "bet@1", s.Identity().String())
		assert.Equal(t, "brain extraction", s.Description())
		inputs := s.Inputs()
		require.Len(t, inputs, 2)
		assert.Equal(t, "frac", inputs[0].Name)
		assert.Equal(t, "in_file", inputs[1].Name)

		frac, ok := s.Input("frac")
		require.True(t, ok)
		require.NotNil(t, frac.Default)
		assert.True(t, frac.Default.RawEquals(cty.NumberIntVal(3)))

		_, ok = s.Output("out_file")
		assert.True(t, ok)
	})

	t.Run("contract violations are all reported", func(t *testing.T) {
		t.Parallel()
		def := cty.StringVal("x")
		_, err := New(
			Identity{},
			[]InputField{
				{Name: "a", Type: cty.String},
				{Name: "a", Type: cty.String},
				{Name: "b", Type: cty.Number, Required: true, Default: &def},
				{Name: "c"},
			},
			[]OutputField{{Name: ""}},
			nil,
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSpec)
		msg := err.Error()
		assert.Contains(t, msg, "task name is empty")
		assert.Contains(t, msg, "no executor")
		assert.Contains(t, msg, `declares input "a" twice`)
		assert.Contains(t, msg, `required input "b" cannot have a default`)
		assert.Contains(t, msg, `input "c" has no type`)
		assert.Contains(t, msg, "unnamed output")
	})

	t.Run("default that does not convert is rejected", func(t *testing.T) {
		t.Parallel()
		def := cty.StringVal("not a number")
		_, err := New(Identity{Name: "x"}, []InputField{{Name: "n", Type: cty.Number, Default: &def}}, nil, echoExecutor(nil))
		assert.ErrorIs(t, err, ErrInvalidSpec)
	})
}

func TestIdentityString(t *testing.T) {
	assert.Equal(t, "x", Identity{Name: "x"}.String())
	assert.Equal(t, "x@2", Identity{Name: "x", Version: "2"}.String())
}

func TestSpecExecute(t *testing.T) {
	t.Parallel()
	outputs := []OutputField{{Name: "n", Type: cty.Number}, {Name: "s", Type: cty.String}}

	t.Run("outputs are converted to declared types", func(t *testing.T) {
		t.Parallel()
		s, err := New(Identity{Name: "x"}, nil, outputs, echoExecutor(map[string]cty.Value{
			"n": cty.StringVal("42"),
			"s": cty.NumberIntVal(7),
		}))
		require.NoError(t, err)

		out, err := s.Execute(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, out["n"].RawEquals(cty.NumberIntVal(42)))
		assert.True(t, out["s"].RawEquals(cty.StringVal("7")))
	})

	t.Run("missing, undeclared and mistyped outputs fail", func(t *testing.T) {
		t.Parallel()
		s, err := New(Identity{Name: "x"}, nil, outputs, echoExecutor(map[string]cty.Value{
			"n":     cty.StringVal("nope"),
			"extra": cty.True,
		}))
		require.NoError(t, err)

		_, err = s.Execute(context.Background(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingOutput)
		assert.ErrorIs(t, err, ErrUndeclaredOutput)
		assert.ErrorIs(t, err, ErrOutputType)
	})

	t.Run("executor error passes through", func(t *testing.T) {
		t.Parallel()
		boom := assert.AnError
		s, err := New(Identity{Name: "x"}, nil, nil, ExecutorFunc(func(context.Context, map[string]cty.Value) (map[string]cty.Value, error) {
			return nil, boom
		}))
		require.NoError(t, err)

		_, err = s.Execute(context.Background(), nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRunInfo(t *testing.T) {
	_, ok := RunInfoFrom(context.Background())
	assert.False(t, ok)

	ctx := WithRunInfo(context.Background(), RunInfo{Instance: "a[0]", WorkDir: "/tmp/a"})
	info, ok := RunInfoFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "a[0]", info.Instance)
	assert.Equal(t, "/tmp/a", info.WorkDir)
}
