package testutil

import (
	"context"
	"reflect"
	"sync"

	"github.com/matrixci/matrixci/internal/registry"
)

// TrackerManifest is the asset manifest matching TrackerModule.
const TrackerManifest = `
asset "tracker" {
  lifecycle {
    create  = "CreateTracker"
    destroy = "DestroyTracker"
  }
  input "name" {
    type    = string
    default = "tracked"
  }
}
`

// TrackedResource is the live instance the tracker asset hands out.
type TrackedResource struct {
	Name string
}

// TrackerModule registers a "tracker" asset whose create and destroy
// handlers count their invocations, for exercising service lifecycles.
type TrackerModule struct {
	mu        sync.Mutex
	created   int
	destroyed int
}

type trackerInput struct {
	Name string `mci:"name"`
}

// Created returns how many instances were created.
func (m *TrackerModule) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Destroyed returns how many instances were destroyed.
func (m *TrackerModule) Destroyed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// Register implements the registry.Module interface.
func (m *TrackerModule) Register(r *registry.Registry) {
	r.RegisterService("CreateTracker", &registry.RegisteredService{
		NewInput:  func() any { return new(trackerInput) },
		InputType: reflect.TypeOf(trackerInput{}),
		CreateFn: func(_ context.Context, input *trackerInput) (*TrackedResource, error) {
			m.mu.Lock()
			m.created++
			m.mu.Unlock()
			return &TrackedResource{Name: input.Name}, nil
		},
	})
	r.RegisterService("DestroyTracker", &registry.RegisteredService{
		DestroyFn: func(res *TrackedResource) error {
			m.mu.Lock()
			m.destroyed++
			m.mu.Unlock()
			return nil
		},
	})
}
