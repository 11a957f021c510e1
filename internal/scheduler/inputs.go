package scheduler

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// resolveInputs builds the complete input map of u from, in order of
// precedence, its static values, its upstream bindings, declared defaults and
// nulls for unset optional fields. Every value is converted to the declared
// input type.
func resolveInputs(u *unit) (map[string]cty.Value, error) {
	inst := u.inst
	fields := inst.Node.Spec.Inputs()
	inputs := make(map[string]cty.Value, len(fields))

	for _, f := range fields {
		var v cty.Value
		if sv, ok := inst.Static[f.Name]; ok {
			v = sv
		} else if b, ok := inst.Bindings[f.Name]; ok {
			up := b.Upstream.ID.String()
			out, ok := upstreamOutput(u, up, b.Field)
			if !ok {
				return nil, fmt.Errorf("input %q: upstream %s has no output %q", f.Name, up, b.Field)
			}
			v = out
		} else if f.Default != nil {
			v = *f.Default
		} else if !f.Required {
			v = cty.NullVal(f.Type)
		} else {
			return nil, fmt.Errorf("required input %q is not bound", f.Name)
		}

		cv, err := convert.Convert(v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", f.Name, err)
		}
		inputs[f.Name] = cv
	}
	return inputs, nil
}

func upstreamOutput(u *unit, id, field string) (cty.Value, bool) {
	for _, up := range u.upstream {
		if up.result.ID == id {
			v, ok := up.result.Outputs[field]
			return v, ok
		}
	}
	return cty.NilVal, false
}
