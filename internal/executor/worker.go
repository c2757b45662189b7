package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/dag"
	"github.com/matrixci/matrixci/internal/result"
)

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		e.process(ctx, node, readyChan, cancel, workerID)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// process takes one ready node to a terminal state and unlocks its
// dependents. The order of checks implements the downward propagation rules:
// deselection and upstream non-success become skips, an already-cancelled run
// becomes a cancellation, and only then does the node actually execute.
func (e *Executor) process(ctx context.Context, node *dag.Node, readyChan chan *dag.Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID, "nodeID", node.ID)
	defer e.wg.Done()

	if !node.Selected {
		logger.Info("⏭️ Skipping deselected node.", "reason", node.SkipReason)
		e.finalize(ctx, node, result.JobResult{Name: node.ID, Status: result.StatusSkipped}, false)
		e.unlockDependents(node, readyChan, logger)
		return
	}

	if blocker := e.findUnsatisfiedDep(node); blocker != "" {
		logger.Warn("⏭️ Skipping node due to upstream outcome.", "dependency", blocker)
		e.finalize(ctx, node, result.JobResult{
			Name:   node.ID,
			Status: result.StatusSkipped,
			Err:    fmt.Errorf("skipped: dependency %q did not succeed", blocker),
		}, false)
		e.unlockDependents(node, readyChan, logger)
		return
	}

	if ctx.Err() != nil {
		logger.Warn("Run cancelled before node execution.")
		e.finalize(ctx, node, result.JobResult{Name: node.ID, Status: result.StatusCancelled, Err: ctx.Err()}, false)
		e.unlockDependents(node, readyChan, logger)
		return
	}

	e.store.SetStatus(node.ID, result.StatusRunning)
	e.metrics.JobStarted()
	start := time.Now()

	var artifacts []string
	var err error
	switch node.Kind {
	case dag.ServiceNode:
		err = e.createService(ctx, node)
	case dag.JobNode:
		artifacts, err = e.invokeJob(ctx, node)
	}
	duration := time.Since(start)

	res := result.JobResult{Name: node.ID, Status: result.StatusSuccess, Duration: duration, Artifacts: artifacts}
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Node cancelled during execution.", "error", err)
			res.Status = result.StatusCancelled
			res.Err = err
		} else {
			logger.Error("Node execution failed.", "error", err, "duration", duration)
			res.Status = result.StatusFailure
			res.Err = err
			if e.failFast {
				logger.Warn("Fail-fast enabled, cancelling the run.")
				cancel()
			}
		}
	}

	e.finalize(ctx, node, res, true)
	e.unlockDependents(node, readyChan, logger)
}

// finalize records a node's terminal result and releases the services it was
// holding open.
func (e *Executor) finalize(ctx context.Context, node *dag.Node, res result.JobResult, ran bool) {
	e.store.Finalize(res)
	e.metrics.JobFinished(res.Status, ran)

	// Whatever the outcome, this node no longer holds its service
	// dependencies open. The last dependent out destroys the service.
	for _, dep := range node.Deps {
		if dep.Kind != dag.ServiceNode {
			continue
		}
		if dep.DecrementUseCount() == 0 {
			go e.destroyService(ctx, dep)
		}
	}
}

// findUnsatisfiedDep returns the ID of a direct dependency that did not end
// in success, or empty when all of them did.
func (e *Executor) findUnsatisfiedDep(node *dag.Node) string {
	for _, dep := range node.Deps {
		if e.store.Status(dep.ID) != result.StatusSuccess {
			return dep.ID
		}
	}
	return ""
}

// unlockDependents decrements every dependent's counter and enqueues the ones
// whose dependencies have all reached a terminal state. This happens for
// every terminal node, successful or not: dependents of a failed node still
// flow through the pool so they are recorded as skipped, never lost.
func (e *Executor) unlockDependents(node *dag.Node, readyChan chan *dag.Node, logger *slog.Logger) {
	for _, dependent := range node.Dependents {
		if dependent.DecrementDepCount() == 0 {
			logger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
			readyChan <- dependent
		}
	}
}
