package integration_tests

import (
	"context"
	"reflect"
	"testing"

	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/internal/result"
	"github.com/matrixci/matrixci/internal/testutil"
	"github.com/stretchr/testify/require"
)

// Syntactically broken configuration is a startup failure, before any job
// can run.
func TestErrorHandling_InvalidHCLIsRejected(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoopManifest,
		"pipeline/main.hcl":         `pipeline "broken" { job "noop" `,
	}

	res := testutil.RunPipelineTest(t, files, &testutil.NoOpModule{})

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "panicked")
	require.Nil(t, res.App)
}

// A manifest naming a handler that no module registered fails validation at
// startup.
func TestErrorHandling_UnregisteredHandlerIsRejected(t *testing.T) {
	t.Parallel()

	manifest := `
runner "ghost" {
  lifecycle {
    on_run = "OnRunGhost"
  }
}
`
	files := map[string]string{
		"modules/ghost/manifest.hcl": manifest,
		"pipeline/main.hcl":          `pipeline "empty" {}`,
	}

	res := testutil.RunPipelineTest(t, files, &testutil.NoOpModule{})

	require.Error(t, res.Err)
	require.Contains(t, res.LogOutput+res.Err.Error(), "OnRunGhost")
}

// A manifest input with no matching field in the handler's Go input struct
// fails the parity check.
func TestErrorHandling_InputParityMismatchIsRejected(t *testing.T) {
	t.Parallel()

	type mismatchInput struct {
		Present string `mci:"present"`
	}
	module := &testutil.SimpleModule{
		RunnerName: "OnRunMismatch",
		Runner: &registry.RegisteredRunner{
			NewInput:  func() any { return new(mismatchInput) },
			InputType: reflect.TypeOf(mismatchInput{}),
			NewDeps:   func() any { return new(struct{}) },
			Fn:        func(context.Context, any, any) (any, error) { return nil, nil },
		},
	}

	manifest := `
runner "mismatch" {
  lifecycle {
    on_run = "OnRunMismatch"
  }
  input "present" {
    type = string
  }
  input "missing" {
    type = string
  }
}
`
	files := map[string]string{
		"modules/mismatch/manifest.hcl": manifest,
		"pipeline/main.hcl":             `pipeline "empty" {}`,
	}

	res := testutil.RunPipelineTest(t, files, module)

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "missing")
}

// A required argument with no default fails the job at execution time.
func TestErrorHandling_MissingRequiredArgument(t *testing.T) {
	t.Parallel()
	recorder := &testutil.RecorderModule{}

	pipelineHCL := `
pipeline "args" {
  job "recorder" "incomplete" {
    arguments {}
  }
}
`
	files := map[string]string{
		"modules/recorder/manifest.hcl": testutil.RecorderManifest,
		"pipeline/main.hcl":             pipelineHCL,
	}

	res := testutil.RunPipelineTest(t, files, recorder)

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "missing required argument")
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "incomplete"), result.StatusFailure)
	require.Empty(t, recorder.Calls())
}

// A run whose configured paths contain no pipeline block must fail, not
// report an empty success: a mistyped path would otherwise pass the gate.
func TestErrorHandling_MissingPipelineIsAnError(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoopManifest,
	}

	res := testutil.RunPipelineTest(t, files, &testutil.NoOpModule{})

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "no pipeline definition")
	testutil.AssertOutcome(t, res, result.OutcomeFailure)
}

// A needs entry naming a job that does not exist is a graph construction
// error, reported before anything runs.
func TestErrorHandling_UnknownNeedIsRejected(t *testing.T) {
	t.Parallel()

	pipelineHCL := `
pipeline "dangling" {
  job "noop" "a" {
    needs = ["nonexistent"]
    arguments {}
  }
}
`
	files := map[string]string{
		"modules/noop/manifest.hcl": testutil.NoopManifest,
		"pipeline/main.hcl":         pipelineHCL,
	}

	res := testutil.RunPipelineTest(t, files, &testutil.NoOpModule{})

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "nonexistent")
}
