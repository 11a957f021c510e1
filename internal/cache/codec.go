package cache

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// storedValue is one output on disk: its cty type next to the value encoded
// against that type.
type storedValue struct {
	Type  json.RawMessage `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalOutputs encodes outputs as a JSON object whose members carry both
// the value and its cty type, so they decode back to the same types.
func MarshalOutputs(outputs map[string]cty.Value) ([]byte, error) {
	wrapped := make(map[string]storedValue, len(outputs))
	for name, v := range outputs {
		ty := v.Type()
		typeJSON, err := ctyjson.MarshalType(ty)
		if err != nil {
			return nil, fmt.Errorf("encoding type of output %q: %w", name, err)
		}
		valueJSON, err := ctyjson.Marshal(v, ty)
		if err != nil {
			return nil, fmt.Errorf("encoding output %q: %w", name, err)
		}
		wrapped[name] = storedValue{Type: typeJSON, Value: valueJSON}
	}
	data, err := json.Marshal(wrapped)
	if err != nil {
		return nil, fmt.Errorf("encoding outputs: %w", err)
	}
	return data, nil
}

// UnmarshalOutputs is the inverse of MarshalOutputs.
func UnmarshalOutputs(data []byte) (map[string]cty.Value, error) {
	var wrapped map[string]storedValue
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding outputs: %w", err)
	}
	out := make(map[string]cty.Value, len(wrapped))
	for name, sv := range wrapped {
		ty, err := ctyjson.UnmarshalType(sv.Type)
		if err != nil {
			return nil, fmt.Errorf("decoding type of output %q: %w", name, err)
		}
		v, err := ctyjson.Unmarshal(sv.Value, ty)
		if err != nil {
			return nil, fmt.Errorf("decoding output %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
