package testutil

import (
	"fmt"
	"testing"

	"github.com/matrixci/matrixci/internal/result"
	"github.com/stretchr/testify/require"
)

// JobNodeID returns the graph node ID for an unsharded job.
func JobNodeID(runnerType, name string) string {
	return fmt.Sprintf("job.%s.%s", runnerType, name)
}

// ShardNodeID returns the graph node ID for one chunk of a sharded job.
func ShardNodeID(runnerType, name string, index int) string {
	return fmt.Sprintf("job.%s.%s[%d]", runnerType, name, index)
}

// ServiceNodeID returns the graph node ID for a service.
func ServiceNodeID(assetType, name string) string {
	return fmt.Sprintf("service.%s.%s", assetType, name)
}

// RequireNodeResult finds the finalized result for a node ID, failing the
// test if the node never reached the store.
func RequireNodeResult(t *testing.T, res *HarnessResult, nodeID string) result.JobResult {
	t.Helper()
	require.NotNil(t, res.App, "application never started")
	for _, r := range res.App.Results() {
		if r.Name == nodeID {
			return r
		}
	}
	require.Failf(t, "node result missing", "no finalized result for node %q; have %v", nodeID, nodeNames(res))
	return result.JobResult{}
}

// AssertNodeStatus checks the finalized status of one node.
func AssertNodeStatus(t *testing.T, res *HarnessResult, nodeID string, want result.Status) {
	t.Helper()
	r := RequireNodeResult(t, res, nodeID)
	require.Equal(t, want, r.Status, "node %q finished %s, want %s", nodeID, r.Status, want)
}

// AssertNoNode checks that a node ID never entered the run at all, as opposed
// to being recorded skipped.
func AssertNoNode(t *testing.T, res *HarnessResult, nodeID string) {
	t.Helper()
	require.NotNil(t, res.App, "application never started")
	for _, r := range res.App.Results() {
		require.NotEqual(t, nodeID, r.Name, "node %q unexpectedly present in results", nodeID)
	}
}

// AssertOutcome checks the aggregate outcome of the run.
func AssertOutcome(t *testing.T, res *HarnessResult, want result.Outcome) {
	t.Helper()
	require.NotNil(t, res.App, "application never started")
	require.Equal(t, want, res.App.Outcome())
}

func nodeNames(res *HarnessResult) []string {
	var names []string
	for _, r := range res.App.Results() {
		names = append(names, r.Name)
	}
	return names
}
