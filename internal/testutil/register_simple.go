package testutil

import "github.com/matrixci/matrixci/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single runner or service handler.
type SimpleModule struct {
	RunnerName string
	Runner     *registry.RegisteredRunner

	ServiceName string
	Service     *registry.RegisteredService
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.RunnerName != "" && m.Runner != nil {
		r.RegisterRunner(m.RunnerName, m.Runner)
	}
	if m.ServiceName != "" && m.Service != nil {
		r.RegisterService(m.ServiceName, m.Service)
	}
}
