package dag

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/shard"
	"github.com/matrixci/matrixci/internal/trigger"
	"github.com/zclconf/go-cty/cty"
)

// Build constructs a complete, validated run graph from the pipeline model
// and the resolved configuration. All errors here are configuration errors:
// nothing has been dispatched yet and the run must fail fast.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, cfg resolver.Config, trig trigger.Context) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.")

	if model.Pipeline == nil {
		return nil, fmt.Errorf("no pipeline block found in the loaded configuration")
	}

	graph := &Graph{
		Nodes:    make(map[string]*Node),
		jobNodes: make(map[string][]*Node),
	}

	evalCtx := &hcl.EvalContext{Variables: BaseEvalVariables(cfg, trig)}

	if err := createServiceNodes(model, reg, graph); err != nil {
		return nil, err
	}
	if err := createJobNodes(ctx, model, reg, graph, cfg, evalCtx); err != nil {
		return nil, err
	}
	logger.Debug("Build: node creation complete.", "node_count", len(graph.Nodes))

	if err := linkNodes(ctx, model, graph, reg); err != nil {
		return nil, err
	}
	logger.Debug("Build: node linking complete.")

	for _, node := range graph.Nodes {
		node.InitCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: cycle detection passed.")

	return graph, nil
}

// createServiceNodes performs the first creation pass for service instances.
func createServiceNodes(model *config.Model, reg *registry.Registry, graph *Graph) error {
	for _, s := range model.Pipeline.Services {
		if _, ok := reg.ServiceDefs[s.ServiceType]; !ok {
			return fmt.Errorf("service %q uses unknown asset type %q", s.Name, s.ServiceType)
		}
		id := serviceNodeID(s)
		if _, exists := graph.Nodes[id]; exists {
			return fmt.Errorf("duplicate service definition %q", id)
		}
		graph.Nodes[id] = &Node{
			ID:         id,
			Kind:       ServiceNode,
			Service:    s,
			Selected:   true,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		}
	}
	return nil
}

// createJobNodes performs the second creation pass: one node per job, or one
// per chunk for sharded jobs, each marked selected or deselected against the
// resolved configuration.
func createJobNodes(ctx context.Context, model *config.Model, reg *registry.Registry, graph *Graph, cfg resolver.Config, evalCtx *hcl.EvalContext) error {
	logger := ctxlog.FromContext(ctx)
	seenNames := make(map[string]string)

	for _, j := range model.Pipeline.Jobs {
		if _, ok := reg.RunnerDefs[j.RunnerType]; !ok {
			return fmt.Errorf("job %q uses unknown runner type %q", j.Name, j.RunnerType)
		}
		if prev, dup := seenNames[j.Name]; dup {
			return fmt.Errorf("duplicate job name %q (runners %q and %q); job names must be unique for dependency references", j.Name, prev, j.RunnerType)
		}
		seenNames[j.Name] = j.RunnerType

		selected, reason, err := selectJob(j, cfg, evalCtx)
		if err != nil {
			return fmt.Errorf("job %q: %w", j.Name, err)
		}
		if !selected {
			logger.Debug("Job deselected by resolved configuration.", "job", j.Name, "reason", reason)
		}

		for _, chunk := range expandChunks(j) {
			id := jobNodeID(j, chunk)
			node := &Node{
				ID:         id,
				Kind:       JobNode,
				Job:        j,
				Chunk:      chunk,
				Selected:   selected,
				SkipReason: reason,
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			}
			graph.Nodes[id] = node
			graph.jobNodes[j.Name] = append(graph.jobNodes[j.Name], node)
		}
	}
	return nil
}

// expandChunks returns the shard coordinates for a job's nodes: a single
// zero Chunk for unsharded jobs, or 1..N for a job declaring chunks = N.
func expandChunks(j *config.Job) []shard.Chunk {
	if j.Chunks <= 1 {
		return []shard.Chunk{{}}
	}
	chunks := make([]shard.Chunk, j.Chunks)
	for i := range chunks {
		chunks[i] = shard.Chunk{Index: i + 1, Total: j.Chunks}
	}
	return chunks
}

// selectJob decides whether the resolved configuration picks a job, and if
// not, why. A job is selected iff its platform (if set) is in the resolved
// platform set, its layout (if set) is enabled by the resolved layout, and
// its when expression (if set) evaluates to true.
func selectJob(j *config.Job, cfg resolver.Config, evalCtx *hcl.EvalContext) (bool, string, error) {
	if j.Platform != "" {
		p, err := resolver.ParsePlatform(j.Platform)
		if err != nil {
			return false, "", err
		}
		if !cfg.HasPlatform(p) {
			return false, fmt.Sprintf("platform %s not in resolved set", p), nil
		}
	}

	if j.Layout != "" {
		variant, err := resolver.ParseLayout(j.Layout)
		if err != nil {
			return false, "", err
		}
		if variant != resolver.Layout2013 && variant != resolver.Layout2020 {
			return false, "", fmt.Errorf("job layout must be a concrete suite variant, got %q", j.Layout)
		}
		if !cfg.Layout.Enables(variant) {
			return false, fmt.Sprintf("layout %s not enabled by resolved layout %s", variant, cfg.Layout), nil
		}
	}

	if j.When != nil {
		val, diags := j.When.Value(evalCtx)
		if diags.HasErrors() {
			return false, "", fmt.Errorf("evaluating when expression: %w", diags)
		}
		// gohcl decodes an omitted optional attribute into an expression
		// that evaluates to null, so null means "no when gate", not an
		// evaluation error.
		if val.IsNull() {
			return true, "", nil
		}
		if !val.IsKnown() {
			return false, "", fmt.Errorf("when expression must produce a known boolean")
		}
		if val.Type() != cty.Bool {
			return false, "", fmt.Errorf("when expression must be a boolean, got %s", val.Type().FriendlyName())
		}
		if !val.True() {
			return false, "when expression is false", nil
		}
	}

	return true, "", nil
}
