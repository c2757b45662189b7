package integration_tests

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/internal/result"
	"github.com/matrixci/matrixci/internal/testutil"
	"github.com/stretchr/testify/require"
)

// trackerUserManifest declares a runner that consumes the tracker service.
const trackerUserManifest = `
runner "tracker_user" {
  lifecycle {
    on_run = "OnRunTrackerUser"
  }
  uses "res" {
    asset_type = "tracker"
  }
}
`

// trackerUserModule records the instances its handler received, so tests can
// prove that every job shared the same live service object.
type trackerUserModule struct {
	seen []*testutil.TrackedResource
}

type trackerUserDeps struct {
	Resource *testutil.TrackedResource `mci:"res"`
}

func (m *trackerUserModule) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunTrackerUser", &registry.RegisteredRunner{
		NewInput:  func() any { return new(struct{}) },
		InputType: reflect.TypeOf(struct{}{}),
		NewDeps:   func() any { return new(trackerUserDeps) },
		Fn: func(_ context.Context, depsRaw any, _ any) (any, error) {
			m.seen = append(m.seen, depsRaw.(*trackerUserDeps).Resource)
			return nil, nil
		},
	})
}

// One service instance is created, shared by every dependent job, and
// destroyed exactly once.
func TestServices_SharedInstanceCreatedAndDestroyedOnce(t *testing.T) {
	t.Parallel()
	tracker := &testutil.TrackerModule{}
	user := &trackerUserModule{}

	pipelineHCL := `
pipeline "shared" {
  service "tracker" "db" {
    arguments {
      name = "primary"
    }
  }
  job "tracker_user" "first" {
    uses {
      res = service.tracker.db
    }
    arguments {}
  }
  job "tracker_user" "second" {
    needs = ["first"]
    uses {
      res = service.tracker.db
    }
    arguments {}
  }
}
`
	files := map[string]string{
		"modules/tracker/manifest.hcl":      testutil.TrackerManifest,
		"modules/tracker_user/manifest.hcl": trackerUserManifest,
		"pipeline/main.hcl":                 pipelineHCL,
	}

	res := testutil.RunPipelineTestWithOptions(context.Background(), t, files, testutil.Options{Workers: 1}, tracker, user)

	require.NoError(t, res.Err)
	testutil.AssertOutcome(t, res, result.OutcomeSuccess)
	testutil.AssertNodeStatus(t, res, testutil.ServiceNodeID("tracker", "db"), result.StatusSuccess)

	require.Equal(t, 1, tracker.Created())
	require.Equal(t, 1, tracker.Destroyed())
	require.Len(t, user.seen, 2)
	require.Same(t, user.seen[0], user.seen[1], "both jobs must receive the same live instance")
	require.Equal(t, "primary", user.seen[0].Name)
}

// A failing create handler fails the service node and skips its dependents.
func TestServices_CreateFailureSkipsDependents(t *testing.T) {
	t.Parallel()
	user := &trackerUserModule{}

	failingTracker := &testutil.SimpleModule{
		ServiceName: "CreateTracker",
		Service: &registry.RegisteredService{
			NewInput:  func() any { return new(struct{}) },
			InputType: reflect.TypeOf(struct{}{}),
			CreateFn: func(context.Context, *struct{}) (*testutil.TrackedResource, error) {
				return nil, errors.New("connection refused")
			},
		},
	}
	destroyTracker := &testutil.SimpleModule{
		ServiceName: "DestroyTracker",
		Service: &registry.RegisteredService{
			DestroyFn: func(*testutil.TrackedResource) error { return nil },
		},
	}

	manifest := `
asset "tracker" {
  lifecycle {
    create  = "CreateTracker"
    destroy = "DestroyTracker"
  }
}
`
	pipelineHCL := `
pipeline "failing_service" {
  service "tracker" "db" {}

  job "tracker_user" "consumer" {
    uses {
      res = service.tracker.db
    }
    arguments {}
  }
}
`
	files := map[string]string{
		"modules/tracker/manifest.hcl":      manifest,
		"modules/tracker_user/manifest.hcl": trackerUserManifest,
		"pipeline/main.hcl":                 pipelineHCL,
	}

	res := testutil.RunPipelineTest(t, files, failingTracker, destroyTracker, user)

	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "connection refused")
	testutil.AssertOutcome(t, res, result.OutcomeFailure)
	testutil.AssertNodeStatus(t, res, testutil.ServiceNodeID("tracker", "db"), result.StatusFailure)
	testutil.AssertNodeStatus(t, res, testutil.JobNodeID("tracker_user", "consumer"), result.StatusSkipped)
	require.Empty(t, user.seen)
}
