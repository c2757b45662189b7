package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"reflect"
	"strings"

	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/modules/workspace"
	"golang.org/x/sync/errgroup"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the exec runner.
type Input struct {
	Command string            `mci:"command"`
	Args    []string          `mci:"args"`
	Dir     string            `mci:"dir"`
	Env     map[string]string `mci:"env"`
}

// Output defines the data structure returned by the runner.
type Output struct {
	Stdout   string `cty:"stdout"`
	Stderr   string `cty:"stderr"`
	ExitCode int    `cty:"exit_code"`
}

// Deps declares the services the runner can use. The workspace is optional;
// when wired it becomes the default working directory.
type Deps struct {
	Workspace *workspace.Workspace `mci:"ws"`
}

// OnRunExec is the handler for the 'exec' runner's on_run lifecycle event. It
// runs the command to completion, capturing both output streams. A non-zero
// exit code is an error.
func OnRunExec(ctx context.Context, deps *Deps, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("command", input.Command)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	cmd := osexec.CommandContext(ctx, input.Command, input.Args...)

	cmd.Dir = input.Dir
	if cmd.Dir == "" && deps != nil && deps.Workspace != nil {
		cmd.Dir = deps.Workspace.Dir
	}

	cmd.Env = os.Environ()
	for k, v := range input.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	logger.Info("Executing command", "args", strings.Join(input.Args, " "), "dir", cmd.Dir)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	// Both pipes must be fully drained before Wait, or a chatty command can
	// deadlock on a full pipe buffer.
	var stdout, stderr bytes.Buffer
	g := new(errgroup.Group)
	g.Go(func() error {
		_, copyErr := io.Copy(&stdout, stdoutPipe)
		return copyErr
	})
	g.Go(func() error {
		_, copyErr := io.Copy(&stderr, stderrPipe)
		return copyErr
	})

	drainErr := g.Wait()
	waitErr := cmd.Wait()

	output := &Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if waitErr != nil {
		return nil, fmt.Errorf("command %q exited with code %d: %w", input.Command, output.ExitCode, waitErr)
	}
	if drainErr != nil {
		return nil, fmt.Errorf("failed to read command output: %w", drainErr)
	}

	logger.Info("Command finished", "exitCode", output.ExitCode)
	return output, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunExec", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunExec,
	})
}
