package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/matrixci/matrixci/internal/app"
	"github.com/matrixci/matrixci/internal/hcl"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/trigger"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	LogOutput string
	Err       error
	App       *app.App
}

// Options tunes a harness run. The zero value runs a manual trigger against
// the ref "main" with four workers.
type Options struct {
	Trigger      trigger.Context
	Resolver     resolver.Input
	Workers      int
	ArtifactsDir string
}

// RunPipelineTest runs a full pipeline through the real application with a
// background context and default options.
func RunPipelineTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPipelineTestWithOptions(context.Background(), t, files, Options{}, modules...)
}

// RunPipelineTestWithOptions writes the given HCL files into a temporary
// directory, boots the application with the provided test modules, and
// executes one run end to end. Test files use relative paths rooted at the
// temporary directory, e.g. "pipeline/main.hcl" or "modules/x/manifest.hcl".
func RunPipelineTestWithOptions(ctx context.Context, t *testing.T, files map[string]string, opts Options, modules ...registry.Module) *HarnessResult {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", ".tmp-matrixci-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	pipelineDir := filepath.Join(tmpDir, "pipeline")
	modulesDir := filepath.Join(tmpDir, "modules")
	require.NoError(t, os.Mkdir(pipelineDir, 0755))
	require.NoError(t, os.Mkdir(modulesDir, 0755))

	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	trig := opts.Trigger
	if trig == (trigger.Context{}) {
		trig = trigger.Context{Event: trigger.EventManual, Ref: "main"}
	}
	workers := opts.Workers
	if workers == 0 {
		workers = 4
	}

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: pipelineDir,
		ModulesPath:  modulesDir,
		Trigger:      trig,
		Resolver:     opts.Resolver,
		Workers:      workers,
		ArtifactsDir: opts.ArtifactsDir,
		LogLevel:     "debug",
		LogFormat:    "text",
	})
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				if os.Getenv("MATRIXCI_TEST_LOGS") == "true" {
					t.Logf("--- HARNESS RECOVERED PANIC ---\n%q", fmt.Sprintf("%v", r))
				}
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, appConfig, hcl.NewLoader(), modules...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.Run(ctx)

	if os.Getenv("MATRIXCI_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		App:       testApp,
	}
}
