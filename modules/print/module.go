package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/sweepgrid/internal/ctxlog"
	"github.com/specialistvlad/sweepgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed values. Nil means stdout.
	Out io.Writer
}

// Input defines the arguments for the print task.
type Input struct {
	Label string    `cty:"label"`
	Value cty.Value `cty:"value"`
}

// OnRunPrint writes the input value, one attribute per line for objects and
// maps. Keys are sorted for stable output.
func (m *Module) OnRunPrint(ctx context.Context, input *Input) (any, error) {
	ctxlog.FromContext(ctx).Info("Printing input", "label", input.Label)

	w := m.Out
	if w == nil {
		w = os.Stdout
	}

	if input.Value.IsNull() {
		_, err := fmt.Fprintf(w, "%s: (null)\n", input.Label)
		return nil, err
	}

	ty := input.Value.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		_, err := fmt.Fprintf(w, "%s: %s\n", input.Label, render(input.Value))
		return nil, err
	}

	attrs := input.Value.AsValueMap()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if _, err := fmt.Fprintf(w, "%s:\n", input.Label); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "  %s = %s\n", k, render(attrs[k])); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func render(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	if v.Type() == cty.String {
		return fmt.Sprintf("%q", v.AsString())
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunPrint", &registry.Handler{
		NewInput: func() any { return new(Input) },
		Fn:       m.OnRunPrint,
	})
}
