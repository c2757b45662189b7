package dag

import (
	"fmt"
	"sync/atomic"

	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/shard"
)

// Kind distinguishes the two node flavors of the graph.
type Kind int

const (
	// JobNode is one fanned-out unit of work, possibly a single chunk of a
	// sharded job.
	JobNode Kind = iota
	// ServiceNode is a stateful collaborator with create/destroy lifecycle.
	ServiceNode
)

// Node is a single vertex of the run graph. Structure (ID, links, selection)
// is immutable after Build; only the counters move during execution.
type Node struct {
	ID   string
	Kind Kind

	// Job is set for JobNode, nil otherwise.
	Job *config.Job
	// Service is set for ServiceNode, nil otherwise.
	Service *config.Service
	// Chunk carries the shard coordinates of a chunked job node. The zero
	// value means the job is unsharded.
	Chunk shard.Chunk

	// Selected reports whether the resolved configuration picked this node
	// to run. Deselected nodes are executed as skips.
	Selected bool
	// SkipReason explains a deselection, empty for selected nodes.
	SkipReason string

	Deps       map[string]*Node
	Dependents map[string]*Node

	// depCount counts not-yet-terminal dependencies; a node becomes ready
	// when it reaches zero.
	depCount atomic.Int32
	// useCount counts not-yet-terminal dependents of a service node; the
	// service is destroyed when it reaches zero.
	useCount atomic.Int32
}

// Sharded reports whether this node is one chunk of a sharded job.
func (n *Node) Sharded() bool {
	return n.Chunk.Total > 0
}

// InitCounters seeds the dependency and usage counters from the link maps.
func (n *Node) InitCounters() {
	n.depCount.Store(int32(len(n.Deps)))
	n.useCount.Store(int32(len(n.Dependents)))
}

// DepCount returns the number of dependencies still outstanding.
func (n *Node) DepCount() int32 {
	return n.depCount.Load()
}

// DecrementDepCount marks one dependency terminal and returns the remainder.
func (n *Node) DecrementDepCount() int32 {
	return n.depCount.Add(-1)
}

// DecrementUseCount marks one dependent terminal and returns the remainder.
func (n *Node) DecrementUseCount() int32 {
	return n.useCount.Add(-1)
}

// Graph is the immutable dependency graph of one run.
type Graph struct {
	Nodes map[string]*Node
	// jobNodes indexes job nodes by their declared job name, in chunk order,
	// so links by name reach every chunk of a sharded job.
	jobNodes map[string][]*Node
}

// JobNodes returns every node expanded from the named job, in chunk order.
func (g *Graph) JobNodes(name string) []*Node {
	return g.jobNodes[name]
}

// jobNodeID builds the canonical node ID for a job or one of its chunks.
// Chunk indexes are 1-based and appear only for sharded jobs.
func jobNodeID(j *config.Job, chunk shard.Chunk) string {
	if chunk.Total > 0 {
		return fmt.Sprintf("job.%s.%s[%d]", j.RunnerType, j.Name, chunk.Index)
	}
	return fmt.Sprintf("job.%s.%s", j.RunnerType, j.Name)
}

// serviceNodeID builds the canonical node ID for a service instance.
func serviceNodeID(s *config.Service) string {
	return fmt.Sprintf("service.%s.%s", s.ServiceType, s.Name)
}

// link records a dependency edge from dep to node, once.
func link(node, dep *Node) {
	if _, exists := node.Deps[dep.ID]; exists {
		return
	}
	node.Deps[dep.ID] = dep
	dep.Dependents[node.ID] = node
}
