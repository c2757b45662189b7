package testutil

import (
	"context"
	"reflect"

	"github.com/matrixci/matrixci/internal/registry"
)

// NoopManifest is the runner manifest matching NoOpModule.
const NoopManifest = `
runner "noop" {
  lifecycle {
    on_run = "OnRunNoop"
  }
}
`

// NoOpModule registers a single "noop" runner. It's useful for tests that
// should fail before execution begins but still need HCL that passes registry
// validation.
type NoOpModule struct{}

// Register registers a "noop" runner that takes no inputs, requires no
// services, and does nothing.
func (m *NoOpModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunNoop", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(ctx context.Context, deps any, input any) (any, error) {
			return nil, nil
		},
	})
}
