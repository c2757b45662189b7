package integration_tests

import (
	"context"
	"testing"

	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/result"
	"github.com/matrixci/matrixci/internal/testutil"
	"github.com/matrixci/matrixci/internal/trigger"
	"github.com/stretchr/testify/require"
)

// matrixPipeline covers every selection axis: platform gates, a layout gate,
// and a when gate driven by the resolved configuration.
const matrixPipeline = `
pipeline "matrix" {
  job "recorder" "build_linux" {
    platform = "linux"
    arguments {
      id = "linux"
    }
  }
  job "recorder" "build_windows" {
    platform = "windows"
    arguments {
      id = "windows"
    }
  }
  job "recorder" "build_macos" {
    platform = "macos"
    arguments {
      id = "macos"
    }
  }
  job "recorder" "unit" {
    when = config.unit_tests
    arguments {
      id = "unit"
    }
  }
  job "recorder" "wpt" {
    platform = "linux"
    layout   = "2020"
    arguments {
      id = "wpt"
    }
  }
}
`

func matrixFiles() map[string]string {
	return map[string]string{
		"modules/recorder/manifest.hcl": testutil.RecorderManifest,
		"pipeline/main.hcl":             matrixPipeline,
	}
}

func TestRunMatrix_PullRequestDefaults(t *testing.T) {
	t.Parallel()
	recorder := &testutil.RecorderModule{}

	res := testutil.RunPipelineTestWithOptions(context.Background(), t, matrixFiles(), testutil.Options{
		Trigger: trigger.Context{Event: trigger.EventPullRequest, Ref: "main", PullRequest: 42},
	}, recorder)

	require.NoError(t, res.Err)
	testutil.AssertOutcome(t, res, result.OutcomeSuccess)

	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_linux"), result.StatusSuccess)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_windows"), result.StatusSkipped)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_macos"), result.StatusSkipped)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "unit"), result.StatusSkipped)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "wpt"), result.StatusSkipped)

	require.Equal(t, []string{"linux"}, recorder.Calls())
}

func TestRunMatrix_ManualPlatformOverride(t *testing.T) {
	t.Parallel()
	recorder := &testutil.RecorderModule{}
	trig := trigger.Context{Event: trigger.EventManual, Ref: "main"}

	res := testutil.RunPipelineTestWithOptions(context.Background(), t, matrixFiles(), testutil.Options{
		Trigger: trig,
		Resolver: resolver.Raw{
			Trigger:   trig,
			Overrides: resolver.Overrides{Platforms: []resolver.Platform{resolver.PlatformWindows}},
		},
	}, recorder)

	require.NoError(t, res.Err)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_windows"), result.StatusSuccess)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_linux"), result.StatusSkipped)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "wpt"), result.StatusSkipped)
	require.Equal(t, []string{"windows"}, recorder.Calls())
}

// A push to a tracked branch must get the full matrix even when the caller
// asked for less.
func TestRunMatrix_PushForcesFullMatrix(t *testing.T) {
	t.Parallel()
	recorder := &testutil.RecorderModule{}
	trig := trigger.Context{Event: trigger.EventPush, Ref: "main"}

	layoutNone := resolver.LayoutNone
	unitTests := false
	res := testutil.RunPipelineTestWithOptions(context.Background(), t, matrixFiles(), testutil.Options{
		Trigger: trig,
		Resolver: resolver.Raw{
			Trigger: trig,
			Overrides: resolver.Overrides{
				Platforms: []resolver.Platform{resolver.PlatformWindows},
				Layout:    &layoutNone,
				UnitTests: &unitTests,
			},
		},
	}, recorder)

	require.NoError(t, res.Err)
	testutil.AssertOutcome(t, res, result.OutcomeSuccess)

	for _, name := range []string{"build_linux", "build_windows", "build_macos", "unit", "wpt"} {
		testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", name), result.StatusSuccess)
	}
	require.Len(t, recorder.Calls(), 5)
}

func TestRunMatrix_MergeQueueForcesFullMatrix(t *testing.T) {
	t.Parallel()
	recorder := &testutil.RecorderModule{}
	trig := trigger.Context{Event: trigger.EventMergeQueue, Ref: "main"}

	res := testutil.RunPipelineTestWithOptions(context.Background(), t, matrixFiles(), testutil.Options{
		Trigger: trig,
	}, recorder)

	require.NoError(t, res.Err)
	require.Len(t, recorder.Calls(), 5)
}

// A call event carries a configuration resolved by the caller; no policy is
// applied on top of it.
func TestRunMatrix_CallPreResolved(t *testing.T) {
	t.Parallel()
	recorder := &testutil.RecorderModule{}
	trig := trigger.Context{Event: trigger.EventCall, Ref: "main"}

	res := testutil.RunPipelineTestWithOptions(context.Background(), t, matrixFiles(), testutil.Options{
		Trigger: trig,
		Resolver: resolver.PreResolved{Config: resolver.Config{
			Platforms: []resolver.Platform{resolver.PlatformMacOS},
			Layout:    resolver.Layout2013,
			UnitTests: true,
			Profile:   resolver.ProfileDebug,
		}},
	}, recorder)

	require.NoError(t, res.Err)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_macos"), result.StatusSuccess)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "unit"), result.StatusSuccess)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "build_linux"), result.StatusSkipped)
	// Layout 2013 does not enable the 2020 suite.
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("recorder", "wpt"), result.StatusSkipped)
}
