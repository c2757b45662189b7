package dag

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/registry"
)

// linkNodes establishes every dependency edge: explicit `needs` entries plus
// implicit references found inside argument and uses expressions. A reference
// to a sharded job links to every one of its chunks, so a dependent only
// becomes ready once the whole fan-out has finished.
func linkNodes(ctx context.Context, model *config.Model, graph *Graph, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node linking pass.")

	for _, node := range graph.Nodes {
		var needs []string
		var expressions []hcl.Expression

		switch node.Kind {
		case JobNode:
			needs = node.Job.Needs
			for _, expr := range node.Job.Arguments {
				expressions = append(expressions, expr)
			}
			for _, expr := range node.Job.Uses {
				expressions = append(expressions, expr)
			}
		case ServiceNode:
			needs = node.Service.Needs
			for _, expr := range node.Service.Arguments {
				expressions = append(expressions, expr)
			}
		}

		if err := linkExplicit(node, needs, graph); err != nil {
			return err
		}
		for _, expr := range expressions {
			if err := linkImplicit(ctx, node, expr, graph, reg); err != nil {
				return err
			}
		}
	}

	logger.Debug("Finished node linking pass.")
	return nil
}

// linkExplicit resolves `needs` entries. Each entry names a job; service
// dependencies are declared through uses blocks, not needs.
func linkExplicit(node *Node, needs []string, graph *Graph) error {
	for _, name := range needs {
		targets := graph.JobNodes(name)
		if len(targets) == 0 {
			return fmt.Errorf("node %q needs non-existent job %q", node.ID, name)
		}
		for _, dep := range targets {
			if dep.ID == node.ID {
				return fmt.Errorf("node %q cannot depend on itself", node.ID)
			}
			link(node, dep)
		}
	}
	return nil
}

// linkImplicit walks an expression's variable traversals and links the jobs
// and services it references. A data dependency expressed as
// `job.build-linux.artifact` is thereby also a control dependency.
func linkImplicit(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph, reg *registry.Registry) error {
	logger := ctxlog.FromContext(ctx)

	for _, traversal := range expr.Variables() {
		switch traversal.RootName() {
		case "job":
			if len(traversal) < 2 {
				continue
			}
			nameAttr, ok := traversal[1].(hcl.TraverseAttr)
			if !ok {
				continue
			}
			targets := graph.JobNodes(nameAttr.Name)
			if len(targets) == 0 {
				return fmt.Errorf("node %q references non-existent job %q", node.ID, nameAttr.Name)
			}
			if err := validateJobReference(traversal, targets[0], reg); err != nil {
				return fmt.Errorf("node %q: %w", node.ID, err)
			}
			for _, dep := range targets {
				if dep.ID == node.ID {
					return fmt.Errorf("node %q cannot reference itself", node.ID)
				}
				logger.Debug("Linking implicit dependency.", "from", node.ID, "to", dep.ID)
				link(node, dep)
			}

		case "service":
			if len(traversal) < 3 {
				continue
			}
			typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
			nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
			if !typeOk || !nameOk {
				continue
			}
			depID := fmt.Sprintf("service.%s.%s", typeAttr.Name, nameAttr.Name)
			dep, ok := graph.Nodes[depID]
			if !ok {
				return fmt.Errorf("node %q references non-existent service %q", node.ID, depID)
			}
			logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
			link(node, dep)
		}
	}
	return nil
}

// validateJobReference checks the field accessed on a referenced job. Only
// `output` and `artifact` exist; an output sub-attribute must additionally be
// declared in the runner's manifest, catching typos before any job runs.
func validateJobReference(traversal hcl.Traversal, dep *Node, reg *registry.Registry) error {
	if len(traversal) < 3 {
		return nil // Bare `job.<name>` reference; nothing to validate.
	}
	fieldAttr, ok := traversal[2].(hcl.TraverseAttr)
	if !ok {
		return nil
	}

	switch fieldAttr.Name {
	case "artifact":
		return nil
	case "output":
		if len(traversal) < 4 {
			return nil
		}
		outputAttr, ok := traversal[3].(hcl.TraverseAttr)
		if !ok {
			return nil
		}
		runnerDef, ok := reg.RunnerDefs[dep.Job.RunnerType]
		if !ok {
			return fmt.Errorf("internal error: no definition for runner type %q", dep.Job.RunnerType)
		}
		if _, declared := runnerDef.Outputs[outputAttr.Name]; !declared {
			return fmt.Errorf("reference to undeclared output %q on job %q", outputAttr.Name, dep.Job.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown field %q on job reference %q; use 'output' or 'artifact'", fieldAttr.Name, dep.Job.Name)
	}
}
