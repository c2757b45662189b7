package executor

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/dag"
	"github.com/matrixci/matrixci/internal/registry"
)

var artifactStoreType = reflect.TypeOf((*artifact.Store)(nil)).Elem()

// buildDepsStruct populates a runner's Deps struct: fields tagged `mci` are
// matched to the job's uses block and receive the live service instances the
// referenced expressions point at, and a field of type artifact.Store
// receives the run's artifact store.
func (e *Executor) buildDepsStruct(ctx context.Context, node *dag.Node, handler *registry.RegisteredRunner, runnerDef *config.RunnerDefinition) (any, error) {
	if handler.NewDeps == nil {
		return nil, nil
	}
	depsStruct := handler.NewDeps()
	if depsStruct == nil {
		return nil, nil
	}

	structVal := reflect.ValueOf(depsStruct).Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		if field.Type == artifactStoreType {
			fieldVal.Set(reflect.ValueOf(e.artifacts))
			continue
		}

		localName := strings.Split(field.Tag.Get("mci"), ",")[0]
		if localName == "" || localName == "-" {
			continue
		}

		if _, declared := runnerDef.Uses[localName]; !declared {
			return nil, fmt.Errorf("job %s: deps field %q is not declared in the runner manifest's uses blocks", node.ID, localName)
		}
		expr, ok := node.Job.Uses[localName]
		if !ok {
			// Declared service dependencies are optional: a job that does
			// not wire one leaves the field zero and the handler copes.
			continue
		}

		instance, err := e.resolveServiceRef(node, expr)
		if err != nil {
			return nil, fmt.Errorf("job %s, uses %q: %w", node.ID, localName, err)
		}

		instVal := reflect.ValueOf(instance)
		if !instVal.Type().AssignableTo(field.Type) {
			return nil, fmt.Errorf("job %s, uses %q: service instance type %s is not assignable to deps field type %s",
				node.ID, localName, instVal.Type(), field.Type)
		}
		fieldVal.Set(instVal)
	}

	return depsStruct, nil
}

// resolveServiceRef maps a uses expression like `service.workspace.scratch`
// to the live instance created for that service node.
func (e *Executor) resolveServiceRef(node *dag.Node, expr hcl.Expression) (any, error) {
	for _, traversal := range expr.Variables() {
		if traversal.RootName() != "service" || len(traversal) < 3 {
			continue
		}
		typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
		nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
		if !typeOk || !nameOk {
			continue
		}
		id := fmt.Sprintf("service.%s.%s", typeAttr.Name, nameAttr.Name)
		instAny, ok := e.services.Load(id)
		if !ok {
			return nil, fmt.Errorf("service %q has no live instance", id)
		}
		return instAny.(*serviceInstance).value, nil
	}
	return nil, fmt.Errorf("expression does not reference a service")
}
