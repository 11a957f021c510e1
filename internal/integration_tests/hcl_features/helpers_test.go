package hcl_features_test

import (
	"context"

	"github.com/specialistvlad/sweepgrid/internal/registry"
)

type echoInput struct {
	Note *string `cty:"note"`
}

// echoModule registers OnRunEcho, passing every decoded input to the func.
type echoModule func(*echoInput)

func (m echoModule) Register(r *registry.Registry) {
	r.RegisterHandler("OnRunEcho", &registry.Handler{
		NewInput: func() any { return new(echoInput) },
		Fn: func(_ context.Context, in *echoInput) (any, error) {
			m(in)
			return nil, nil
		},
	})
}
