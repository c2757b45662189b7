package testutil

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/matrixci/matrixci/internal/registry"
)

// FlakyManifest is the runner manifest matching FlakyModule.
const FlakyManifest = `
runner "flaky" {
  lifecycle {
    on_run = "OnRunFlaky"
  }
  input "id" {
    type = string
  }
  input "succeed_after" {
    type    = number
    default = 1
  }
}
`

// FlakyModule registers a "flaky" runner that fails until a configured
// attempt number, for exercising retry policies.
type FlakyModule struct {
	mu       sync.Mutex
	attempts map[string]int
}

type flakyInput struct {
	ID           string `mci:"id"`
	SucceedAfter int    `mci:"succeed_after"`
}

// Attempts returns how many times the runner was invoked for the given id.
func (m *FlakyModule) Attempts(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[id]
}

// Register implements the registry.Module interface.
func (m *FlakyModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunFlaky", &registry.RegisteredRunner{
		NewInput:  func() any { return new(flakyInput) },
		InputType: reflect.TypeOf(flakyInput{}),
		NewDeps:   func() any { return new(struct{}) },
		Fn: func(_ context.Context, _ any, inputRaw any) (any, error) {
			input := inputRaw.(*flakyInput)

			m.mu.Lock()
			if m.attempts == nil {
				m.attempts = make(map[string]int)
			}
			m.attempts[input.ID]++
			attempt := m.attempts[input.ID]
			m.mu.Unlock()

			if attempt < input.SucceedAfter {
				return nil, fmt.Errorf("flaky %q: attempt %d of %d failed", input.ID, attempt, input.SucceedAfter)
			}
			return nil, nil
		},
	})
}
