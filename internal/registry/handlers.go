package registry

import (
	"fmt"
	"log/slog"
	"reflect"
)

// RegisteredRunner holds the compiled Go parts of a runner's lifecycle
// function. Fn has the shape func(ctx, *Deps, *Input) (output, error).
type RegisteredRunner struct {
	NewInput  func() any
	InputType reflect.Type
	NewDeps   func() any
	Fn        any
}

// RegisterRunner registers a Go function for a runner's on_run lifecycle
// event. Duplicate registration is a programmer error and panics.
func (r *Registry) RegisterRunner(name string, handler *RegisteredRunner) {
	if _, exists := r.RunnerHandlers[name]; exists {
		panic(fmt.Sprintf("runner handler with name '%s' already registered", name))
	}
	slog.Debug("Registering runner handler.", "name", name)
	r.RunnerHandlers[name] = handler
}

// RegisteredService holds the Go functions for a service's lifecycle.
// CreateFn has the shape func(ctx, *Input) (instance, error); DestroyFn takes
// the instance CreateFn returned.
type RegisteredService struct {
	NewInput  func() any
	InputType reflect.Type
	CreateFn  any
	DestroyFn any
}

// RegisterService registers Go functions for a service's lifecycle events.
// Duplicate registration is a programmer error and panics.
func (r *Registry) RegisterService(name string, handler *RegisteredService) {
	if _, exists := r.ServiceHandlers[name]; exists {
		panic(fmt.Sprintf("service handler with name '%s' already registered", name))
	}
	slog.Debug("Registering service handler.", "name", name)
	r.ServiceHandlers[name] = handler
}
