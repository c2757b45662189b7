package executor

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/dag"
	"github.com/matrixci/matrixci/internal/result"
	"github.com/zclconf/go-cty/cty"
)

// buildEvalContext creates the HCL evaluation context for one node: the
// shared config.* and event.* variables, the node's chunk coordinates when
// sharded, and the outputs and artifact keys of its successful upstream jobs
// under job.<name>.
func (e *Executor) buildEvalContext(ctx context.Context, node *dag.Node) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)

	vars := make(map[string]cty.Value, len(e.baseVars)+2)
	for k, v := range e.baseVars {
		vars[k] = v
	}

	if node.Sharded() {
		vars["chunk"] = cty.ObjectVal(map[string]cty.Value{
			"index": cty.NumberIntVal(int64(node.Chunk.Index)),
			"total": cty.NumberIntVal(int64(node.Chunk.Total)),
		})
	}

	// Group upstream job nodes by declared name so sharded dependencies
	// surface as one tuple of chunk outputs.
	depsByJob := make(map[string][]*dag.Node)
	for _, dep := range node.Deps {
		if dep.Kind != dag.JobNode {
			continue
		}
		if e.store.Status(dep.ID) != result.StatusSuccess {
			continue
		}
		depsByJob[dep.Job.Name] = append(depsByJob[dep.Job.Name], dep)
	}

	jobVars := make(map[string]cty.Value, len(depsByJob))
	for name, nodes := range depsByJob {
		jobVars[name] = e.upstreamJobValue(nodes)
	}
	if len(jobVars) > 0 {
		vars["job"] = cty.ObjectVal(jobVars)
	}

	logger.Debug("Built HCL evaluation context.", "node", node.ID, "upstream_jobs", len(jobVars))
	return &hcl.EvalContext{Variables: vars}
}

// upstreamJobValue renders one upstream job as an eval value with `output`
// and `artifact` fields. For a sharded upstream, output is the tuple of chunk
// outputs in chunk order.
func (e *Executor) upstreamJobValue(nodes []*dag.Node) cty.Value {
	fields := make(map[string]cty.Value, 2)

	if len(nodes) == 1 && !nodes[0].Sharded() {
		node := nodes[0]
		if out, ok := e.store.Output(node.ID); ok && !out.IsNull() {
			fields["output"] = out
		}
		if len(node.Job.Artifacts) > 0 {
			// The artifact field is the store key of the first declared
			// artifact; downstream jobs hand it to the archive runner.
			key := artifact.Key(artifactOwner(node), baseName(node.Job.Artifacts[0]))
			fields["artifact"] = cty.StringVal(key)
		}
	} else {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].Chunk.Index < nodes[j].Chunk.Index })
		outputs := make([]cty.Value, 0, len(nodes))
		for _, node := range nodes {
			if out, ok := e.store.Output(node.ID); ok && !out.IsNull() {
				outputs = append(outputs, out)
			}
		}
		if len(outputs) == 0 {
			fields["output"] = cty.EmptyTupleVal
		} else {
			fields["output"] = cty.TupleVal(outputs)
		}
	}

	if len(fields) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(fields)
}

// baseName strips the directory part of a declared artifact path.
func baseName(path string) string {
	return filepath.Base(path)
}
