package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/dag"
	"github.com/matrixci/matrixci/internal/executor"
	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/result"
)

// Run plans and executes one pipeline run end to end: resolve the effective
// configuration, build the graph, execute it on the worker pool, and fold
// every terminal result into the single pass/fail outcome.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	if a.cfg.OpsPort > 0 {
		a.startOpsServer(a.cfg.OpsPort)
	}

	input := a.cfg.Resolver
	if input == nil {
		input = resolver.Raw{Trigger: a.cfg.Trigger}
	}
	resolved := resolver.Resolve(input)
	logger.Info("Resolved run configuration.",
		"platforms", fmt.Sprint(resolved.Platforms),
		"layout", resolved.Layout.String(),
		"unit_tests", resolved.UnitTests,
		"profile", resolved.Profile.String(),
		"upload", resolved.Upload,
	)

	// A run without a pipeline definition is a misconfiguration, not an
	// empty matrix: a mistyped path must never report success.
	if a.model.Pipeline == nil {
		a.outcome = result.OutcomeFailure
		return fmt.Errorf("no pipeline definition found under %q", a.cfg.PipelinePath)
	}

	graph, err := dag.Build(ctx, a.model, a.registry, resolved, a.cfg.Trigger)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	artifacts, err := a.newArtifactStore()
	if err != nil {
		return err
	}

	if len(graph.Nodes) == 0 {
		logger.Warn("No nodes found in graph, execution not required.")
		a.outcome = result.OutcomeSuccess
		return nil
	}

	logger.Info("🚀 Starting concurrent execution.", "nodes", len(graph.Nodes), "workers", a.cfg.Workers)
	start := time.Now()

	exec := executor.New(executor.Options{
		Graph:     graph,
		Workers:   a.cfg.Workers,
		Registry:  a.registry,
		Converter: a.converter,
		Store:     a.store,
		Artifacts: artifacts,
		Metrics:   a.metrics,
		BaseVars:  dag.BaseEvalVariables(resolved, a.cfg.Trigger),
		FailFast:  a.model.Pipeline.FailFast,
	})
	execErr := exec.Run(ctx)

	duration := time.Since(start)
	a.metrics.RunFinished(duration)

	// Aggregation runs unconditionally, whatever the executor reported.
	results := a.store.Results()
	a.outcome = result.Aggregate(results)
	tally := result.Tally(results)
	logger.Info("🏁 Execution finished.",
		"outcome", a.outcome.String(),
		"duration", duration.Round(time.Millisecond).String(),
		"success", tally[result.StatusSuccess],
		"failure", tally[result.StatusFailure],
		"cancelled", tally[result.StatusCancelled],
		"skipped", tally[result.StatusSkipped],
	)

	if execErr != nil {
		return fmt.Errorf("execution failed: %w", execErr)
	}
	if a.outcome == result.OutcomeFailure {
		return fmt.Errorf("run finished with outcome %s", a.outcome)
	}
	return nil
}

// newArtifactStore selects the run's artifact store: directory-backed when
// configured, in-memory otherwise.
func (a *App) newArtifactStore() (artifact.Store, error) {
	if a.cfg.ArtifactsDir != "" {
		store, err := artifact.NewDirectoryStore(a.cfg.ArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact directory: %w", err)
		}
		return store, nil
	}
	return artifact.NewMemoryStore(), nil
}
