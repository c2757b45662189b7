package workspace

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for creating a workspace service.
type Input struct {
	Prefix string `mci:"prefix"`
}

// Workspace is a scratch directory shared by every job that uses the service.
// It exists from service creation until the last dependent job finishes.
type Workspace struct {
	Dir string
}

// CreateWorkspace is the 'create' handler for the workspace asset.
func CreateWorkspace(ctx context.Context, input *Input) (*Workspace, error) {
	dir, err := os.MkdirTemp("", input.Prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Workspace directory created.", "dir", dir)
	return &Workspace{Dir: dir}, nil
}

// DestroyWorkspace is the 'destroy' handler. It removes the directory and
// everything the jobs left in it.
func DestroyWorkspace(ws *Workspace) error {
	return os.RemoveAll(ws.Dir)
}

// Register registers the asset handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterService("CreateWorkspace", &registry.RegisteredService{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		CreateFn:  CreateWorkspace,
	})
	r.RegisterService("DestroyWorkspace", &registry.RegisteredService{
		DestroyFn: DestroyWorkspace,
	})
}
