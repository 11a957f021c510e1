package hcl_adapter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/sweepgrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type nested struct {
	Host string `cty:"host"`
	Port int    `cty:"port"`
}

type decodeTarget struct {
	Name    string            `cty:"name"`
	Count   int               `cty:"count"`
	Ratio   float64           `cty:"ratio"`
	Enabled bool              `cty:"enabled"`
	Tags    []string          `cty:"tags"`
	Labels  map[string]string `cty:"labels"`
	Extra   map[string]any    `cty:"extra"`
	Server  nested            `cty:"server"`
	Raw     cty.Value         `cty:"raw"`
	Any     any               `cty:"any"`
	Skipped string            `cty:"-"`
	Untaged string
}

func TestConverter_DecodeInputs(t *testing.T) {
	t.Parallel()
	c := NewConverter()
	defs := map[string]*config.InputDefinition{
		"count": {Name: "count", Type: cty.Number},
		"tags":  {Name: "tags", Type: cty.List(cty.String)},
	}
	inputs := map[string]cty.Value{
		"name":    cty.StringVal("alpha"),
		"count":   cty.StringVal("3"),
		"ratio":   cty.NumberFloatVal(0.25),
		"enabled": cty.True,
		"tags":    cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
		"labels":  cty.ObjectVal(map[string]cty.Value{"env": cty.StringVal("dev")}),
		"extra": cty.ObjectVal(map[string]cty.Value{
			"n":    cty.NumberIntVal(2),
			"list": cty.TupleVal([]cty.Value{cty.True}),
		}),
		"server": cty.ObjectVal(map[string]cty.Value{
			"host": cty.StringVal("localhost"),
			"port": cty.NumberIntVal(8080),
		}),
		"raw":     cty.NumberIntVal(9),
		"any":     cty.StringVal("free"),
		"Skipped": cty.StringVal("ignored"),
	}

	var got decodeTarget
	require.NoError(t, c.DecodeInputs(testContext(), &got, inputs, defs))

	want := decodeTarget{
		Name:    "alpha",
		Count:   3,
		Ratio:   0.25,
		Enabled: true,
		Tags:    []string{"a", "b"},
		Labels:  map[string]string{"env": "dev"},
		Extra:   map[string]any{"n": int64(2), "list": []any{true}},
		Server:  nested{Host: "localhost", Port: 8080},
		Any:     "free",
	}
	assert.True(t, got.Raw.RawEquals(cty.NumberIntVal(9)))
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(decodeTarget{}, "Raw")); diff != "" {
		t.Errorf("decoded struct mismatch (-want +got):\n%s", diff)
	}
}

func TestConverter_DecodeInputs_NullLeavesField(t *testing.T) {
	t.Parallel()
	target := decodeTarget{Name: "preset"}
	err := NewConverter().DecodeInputs(testContext(), &target, map[string]cty.Value{
		"name": cty.NullVal(cty.String),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "preset", target.Name)
}

func TestConverter_DecodeInputs_Errors(t *testing.T) {
	t.Parallel()
	c := NewConverter()

	var notPtr decodeTarget
	assert.ErrorContains(t, c.DecodeInputs(testContext(), notPtr, nil, nil), "non-nil pointer")

	n := 3
	assert.ErrorContains(t, c.DecodeInputs(testContext(), &n, nil, nil), "point to a struct")

	var target decodeTarget
	err := c.DecodeInputs(testContext(), &target, map[string]cty.Value{"count": cty.StringVal("many")}, nil)
	assert.ErrorContains(t, err, "failed to decode input 'count'")

	err = c.DecodeInputs(testContext(), &target, map[string]cty.Value{"tags": cty.StringVal("a")}, nil)
	assert.ErrorContains(t, err, "cannot decode")
}

func TestConverter_ToCtyValue(t *testing.T) {
	t.Parallel()
	c := NewConverter()

	type out struct {
		All  map[string]string `cty:"all"`
		Code int               `cty:"code"`
	}
	val, err := c.ToCtyValue(&out{All: map[string]string{"A": "1"}, Code: 2})
	require.NoError(t, err)
	want := cty.ObjectVal(map[string]cty.Value{
		"all":  cty.MapVal(map[string]cty.Value{"A": cty.StringVal("1")}),
		"code": cty.NumberIntVal(2),
	})
	assert.True(t, want.RawEquals(val), "got %#v", val)

	val, err = c.ToCtyValue(nil)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, val)

	var nilOut *out
	val, err = c.ToCtyValue(nilOut)
	require.NoError(t, err)
	assert.Equal(t, cty.NilVal, val)

	passthrough := cty.StringVal("x")
	val, err = c.ToCtyValue(passthrough)
	require.NoError(t, err)
	assert.True(t, passthrough.RawEquals(val))

	_, err = c.ToCtyValue(make(chan int))
	assert.Error(t, err)
}
