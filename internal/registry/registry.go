package registry

import (
	"github.com/matrixci/matrixci/internal/config"
)

// Module is the interface every runner/service module implements to plug its
// Go handlers into an application instance.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered handlers and manifest definitions for a
// single application instance. It is populated during startup and read-only
// afterwards.
type Registry struct {
	RunnerHandlers  map[string]*RegisteredRunner
	ServiceHandlers map[string]*RegisteredService
	RunnerDefs      map[string]*config.RunnerDefinition
	ServiceDefs     map[string]*config.ServiceDefinition
}

// New creates and initializes an empty Registry instance.
func New() *Registry {
	return &Registry{
		RunnerHandlers:  make(map[string]*RegisteredRunner),
		ServiceHandlers: make(map[string]*RegisteredService),
		RunnerDefs:      make(map[string]*config.RunnerDefinition),
		ServiceDefs:     make(map[string]*config.ServiceDefinition),
	}
}

// PopulateFromModel copies the loaded manifest definitions from the config
// model into the registry for access during graph build and execution.
func (r *Registry) PopulateFromModel(model *config.Model) {
	for key, val := range model.Runners {
		r.RunnerDefs[key] = val
	}
	for key, val := range model.Services {
		r.ServiceDefs[key] = val
	}
}
