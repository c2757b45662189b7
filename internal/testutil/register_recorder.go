package testutil

import (
	"context"
	"reflect"
	"sync"

	"github.com/matrixci/matrixci/internal/registry"
)

// RecorderManifest is the runner manifest matching RecorderModule.
const RecorderManifest = `
runner "recorder" {
  lifecycle {
    on_run = "OnRunRecorder"
  }
  input "id" {
    type = string
  }
  output "id" {
    type = string
  }
}
`

// RecorderModule registers a "recorder" runner that logs each invocation's id
// and echoes it back as output, so tests can assert both execution order and
// data flow between jobs.
type RecorderModule struct {
	mu    sync.Mutex
	calls []string
}

type recorderInput struct {
	ID string `mci:"id"`
}

type recorderOutput struct {
	ID string `cty:"id"`
}

// Calls returns the recorded invocation ids in completion order.
func (m *RecorderModule) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how many invocations carried the given id.
func (m *RecorderModule) CallCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == id {
			n++
		}
	}
	return n
}

// Register implements the registry.Module interface.
func (m *RecorderModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunRecorder", &registry.RegisteredRunner{
		NewInput:  func() any { return new(recorderInput) },
		InputType: reflect.TypeOf(recorderInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ any, inputRaw any) (*recorderOutput, error) {
			input := inputRaw.(*recorderInput)
			m.mu.Lock()
			m.calls = append(m.calls, input.ID)
			m.mu.Unlock()
			return &recorderOutput{ID: input.ID}, nil
		},
	})
}
