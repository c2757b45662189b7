// Package runstore holds the mutable execution state of one run: per-node
// statuses, evaluated outputs, and finalized job results. It separates the
// state that changes during execution from the immutable graph structure the
// dag package builds, so workers can write concurrently while the eval
// context and the aggregator read.
package runstore

import (
	"sort"
	"sync"

	"github.com/matrixci/matrixci/internal/result"
	"github.com/zclconf/go-cty/cty"
)

// Store tracks run state for every node of a graph. All methods are safe for
// concurrent use; each node's state is independent, so sync.Map gives
// fine-grained access without a global lock.
type Store struct {
	statuses sync.Map // node ID -> result.Status
	outputs  sync.Map // node ID -> cty.Value
	results  sync.Map // node ID -> result.JobResult
}

// New creates a new, empty run state store.
func New() *Store {
	return &Store{}
}

// SetStatus records the current execution status of a node.
func (s *Store) SetStatus(id string, status result.Status) {
	s.statuses.Store(id, status)
}

// Status returns the current status of a node. Nodes never touched by a
// worker report StatusPending.
func (s *Store) Status(id string) result.Status {
	status, ok := s.statuses.Load(id)
	if !ok {
		return result.StatusPending
	}
	return status.(result.Status)
}

// SetOutput records the evaluated output value of a successful node.
func (s *Store) SetOutput(id string, output cty.Value) {
	s.outputs.Store(id, output)
}

// Output returns the recorded output of a node, and whether one exists.
func (s *Store) Output(id string) (cty.Value, bool) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return cty.NilVal, false
	}
	return output.(cty.Value), true
}

// Finalize records the terminal result of a node exactly once. Results are
// immutable: a second call for the same node is ignored, so a late writer can
// never overwrite the first terminal state.
func (s *Store) Finalize(r result.JobResult) {
	if _, loaded := s.results.LoadOrStore(r.Name, r); !loaded {
		s.SetStatus(r.Name, r.Status)
	}
}

// Result returns the finalized result for a node, and whether one exists.
func (s *Store) Result(id string) (result.JobResult, bool) {
	r, ok := s.results.Load(id)
	if !ok {
		return result.JobResult{}, false
	}
	return r.(result.JobResult), true
}

// Results returns a snapshot of every finalized result, sorted by node name
// so summaries and tests are deterministic.
func (s *Store) Results() []result.JobResult {
	var out []result.JobResult
	s.results.Range(func(_, v any) bool {
		out = append(out, v.(result.JobResult))
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
