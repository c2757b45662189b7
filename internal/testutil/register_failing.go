package testutil

import (
	"context"
	"errors"
	"reflect"

	"github.com/matrixci/matrixci/internal/registry"
)

// FailingManifest is the runner manifest matching FailingModule.
const FailingManifest = `
runner "failing" {
  lifecycle {
    on_run = "OnRunFailing"
  }
  input "message" {
    type    = string
    default = "forced failure"
  }
}
`

// FailingModule registers a "failing" runner whose handler always errors with
// the configured message.
type FailingModule struct{}

type failingInput struct {
	Message string `mci:"message"`
}

// Register implements the registry.Module interface.
func (m *FailingModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunFailing", &registry.RegisteredRunner{
		NewInput:  func() any { return new(failingInput) },
		InputType: reflect.TypeOf(failingInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ any, inputRaw any) (any, error) {
			return nil, errors.New(inputRaw.(*failingInput).Message)
		},
	})
}
