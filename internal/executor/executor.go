// Package executor runs a built graph on a bounded worker pool. Workers drain
// a ready channel seeded with zero-dependency nodes; finishing a node
// decrements its dependents' counters and enqueues the ones that reach zero.
// Every node flows through the pool exactly once and always reaches a
// terminal status, so the aggregation step downstream is total.
package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/dag"
	"github.com/matrixci/matrixci/internal/metrics"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/internal/result"
	"github.com/matrixci/matrixci/internal/runstore"
	"github.com/zclconf/go-cty/cty"
)

// Options carries the collaborators an Executor needs for one run.
type Options struct {
	Graph     *dag.Graph
	Workers   int
	Registry  *registry.Registry
	Converter config.Converter
	Store     *runstore.Store
	Artifacts artifact.Store
	Metrics   *metrics.Collector
	// BaseVars holds the config.* and event.* evaluation variables shared by
	// every node.
	BaseVars map[string]cty.Value
	// FailFast cancels the whole run on the first job failure.
	FailFast bool
}

// Executor executes one graph. It is single-use: create a new one per run.
type Executor struct {
	graph     *dag.Graph
	workers   int
	registry  *registry.Registry
	converter config.Converter
	store     *runstore.Store
	artifacts artifact.Store
	metrics   *metrics.Collector
	baseVars  map[string]cty.Value
	failFast  bool

	// services maps service node IDs to the live instances their create
	// handlers returned.
	services sync.Map
	// destroyOnce guards each service's destroy handler, which may be raced
	// by the usage-count path and the end-of-run cleanup.
	destroyOnce sync.Map // node ID -> *sync.Once

	wg sync.WaitGroup
}

// New creates an executor for one run.
func New(opts Options) *Executor {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		graph:     opts.Graph,
		workers:   workers,
		registry:  opts.Registry,
		converter: opts.Converter,
		store:     opts.Store,
		artifacts: opts.Artifacts,
		metrics:   opts.Metrics,
		baseVars:  opts.BaseVars,
		failFast:  opts.FailFast,
	}
}

// Run executes the graph and blocks until every node reaches a terminal
// state. The returned error is the run summary: one multierror carrying every
// root-cause job failure, nil when nothing failed. Skips are not errors.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	defer e.destroyRemainingServices(ctx)

	readyChan := make(chan *dag.Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.DepCount() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Executor seeded ready channel with root nodes.", "count", rootCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.workers)
	for i := 0; i < e.workers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes reached a terminal state.")

	// The summary runs unconditionally, whatever mix of statuses the run
	// produced.
	var errs *multierror.Error
	for _, r := range e.store.Results() {
		if r.Status == result.StatusFailure && r.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	if errs.ErrorOrNil() == nil && ctx.Err() != nil {
		errs = multierror.Append(errs, fmt.Errorf("run cancelled: %w", ctx.Err()))
	}
	return errs.ErrorOrNil()
}
