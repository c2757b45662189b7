// Package dag builds the dependency graph for one pipeline run.
//
// Building happens in passes: every declared job and service becomes a node
// (jobs sharded into chunks become one node per chunk), each node is marked
// selected or deselected against the resolved run configuration, explicit
// `needs` edges and implicit expression-reference edges are linked, dependency
// counters are initialized, and finally the graph is checked for cycles.
//
// Deselected jobs still get nodes: the executor records them as skipped so
// the aggregate can tell "didn't need to run" from "ran and failed".
package dag
