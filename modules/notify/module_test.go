package notify

import (
	"context"
	"testing"

	"github.com/matrixci/matrixci/internal/hcl"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnRunNotify_RejectsBadURL(t *testing.T) {
	t.Parallel()
	input := &Input{
		URL:     "://not-a-url",
		Event:   "run.finished",
		Timeout: "1s",
	}

	_, err := OnRunNotify(context.Background(), &Deps{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse URL")
}

func TestOnRunNotify_UnreachableEndpointTimesOut(t *testing.T) {
	t.Parallel()
	// Port 1 is never a socket.io server; the handler must give up within
	// its own timeout instead of hanging the worker.
	input := &Input{
		URL:     "http://127.0.0.1:1/socket.io",
		Event:   "run.finished",
		Timeout: "250ms",
	}

	_, err := OnRunNotify(context.Background(), &Deps{}, input)
	require.Error(t, err)
}

// The packaged manifest and the Go handler must agree on the runner's inputs
// and lifecycle name.
func TestManifestMatchesHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	model, _, err := hcl.NewLoader().Load(ctx, ".")
	require.NoError(t, err)
	require.Contains(t, model.Runners, "notify")

	def := model.Runners["notify"]
	assert.Equal(t, "OnRunNotify", def.Lifecycle.OnRun)
	require.Contains(t, def.Outputs, "delivered")
	for _, name := range []string{"url", "namespace", "event", "data", "wait_for", "timeout", "insecure_skip_verify"} {
		require.Contains(t, def.Inputs, name)
	}
	assert.False(t, def.Inputs["url"].Optional, "url has no default")
	assert.True(t, def.Inputs["wait_for"].Optional, "wait_for defaults to empty")

	r := registry.New()
	(&Module{}).Register(r)
	r.PopulateFromModel(model)
	require.NoError(t, r.Validate(ctx))
}
