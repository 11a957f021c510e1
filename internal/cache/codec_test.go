package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestOutputsCodec(t *testing.T) {
	in := map[string]cty.Value{
		"file":  cty.StringVal("out.nii"),
		"count": cty.NumberIntVal(3),
		"tags":  cty.ListVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
		"meta":  cty.ObjectVal(map[string]cty.Value{"ok": cty.True}),
		"none":  cty.NullVal(cty.String),
		"env":   cty.MapVal(map[string]cty.Value{"HOME": cty.StringVal("/root")}),
		"ids":   cty.SetVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}),
		"empty": cty.ListValEmpty(cty.String),
		"pair":  cty.TupleVal([]cty.Value{cty.StringVal("x"), cty.True}),
		"any":   cty.NullVal(cty.DynamicPseudoType),
		"shape": cty.NullVal(cty.Object(map[string]cty.Type{"n": cty.Number})),
	}

	data, err := MarshalOutputs(in)
	require.NoError(t, err)

	out, err := UnmarshalOutputs(data)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for name, v := range in {
		assert.True(t, v.Type().Equals(out[name].Type()), "output %q: type %s != %s", name, v.Type().FriendlyName(), out[name].Type().FriendlyName())
		assert.True(t, v.RawEquals(out[name]), "output %q: %#v != %#v", name, v, out[name])
	}

	_, err = UnmarshalOutputs([]byte("{not json"))
	assert.Error(t, err)
}

func TestOutputsCodec_RejectsValueOfWrongType(t *testing.T) {
	_, err := UnmarshalOutputs([]byte(`{"n": {"type": "number", "value": "abc"}}`))
	assert.ErrorContains(t, err, `decoding output "n"`)

	_, err = UnmarshalOutputs([]byte(`{"n": {"type": "float", "value": 1}}`))
	assert.ErrorContains(t, err, `decoding type of output "n"`)
}
