package executor

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/dag"
)

// createService executes a service node's create handler and stores the live
// instance for injection into dependent jobs.
func (e *Executor) createService(ctx context.Context, node *dag.Node) error {
	logger := ctxlog.FromContext(ctx).With("service", node.ID)
	logger.Info("▶️ Creating service.")

	serviceDef, ok := e.registry.ServiceDefs[node.Service.ServiceType]
	if !ok {
		return fmt.Errorf("unknown asset type %q", node.Service.ServiceType)
	}

	createHandler, ok := e.registry.ServiceHandlers[serviceDef.Lifecycle.Create]
	if !ok || createHandler.CreateFn == nil {
		return fmt.Errorf("create handler %q not registered", serviceDef.Lifecycle.Create)
	}
	destroyHandler, ok := e.registry.ServiceHandlers[serviceDef.Lifecycle.Destroy]
	if !ok || destroyHandler.DestroyFn == nil {
		return fmt.Errorf("destroy handler %q not registered", serviceDef.Lifecycle.Destroy)
	}

	inputStruct := createHandler.NewInput()
	if inputStruct != nil {
		evalCtx := e.buildEvalContext(ctx, node)
		if err := e.converter.DecodeArgs(ctx, inputStruct, node.Service.Arguments, serviceDef.Inputs, evalCtx); err != nil {
			return fmt.Errorf("failed to decode arguments for service %s: %w", node.ID, err)
		}
	}

	instance, err := callHandler(ctx, wrapCreateFn(createHandler.CreateFn), nil, inputStruct)
	if err != nil {
		return err
	}

	e.services.Store(node.ID, &serviceInstance{
		value:     instance,
		destroyFn: destroyHandler.DestroyFn,
	})

	logger.Info("✅ Service created.")
	return nil
}

// serviceInstance pairs a live service object with its destroy handler.
type serviceInstance struct {
	value     any
	destroyFn any
}

// destroyService tears a service down, at most once, whether triggered by
// the last dependent finishing or by end-of-run cleanup.
func (e *Executor) destroyService(ctx context.Context, node *dag.Node) {
	onceAny, _ := e.destroyOnce.LoadOrStore(node.ID, &sync.Once{})
	onceAny.(*sync.Once).Do(func() {
		instAny, ok := e.services.Load(node.ID)
		if !ok {
			return // Never created (skipped or failed), nothing to destroy.
		}
		inst := instAny.(*serviceInstance)

		logger := ctxlog.FromContext(ctx).With("service", node.ID)
		logger.Info("🔥 Destroying service.")

		results := reflect.ValueOf(inst.destroyFn).Call([]reflect.Value{reflect.ValueOf(inst.value)})
		if len(results) == 1 {
			if err, _ := results[0].Interface().(error); err != nil {
				logger.Error("Service destroy handler failed.", "error", err)
			}
		}
		e.services.Delete(node.ID)
	})
}

// destroyRemainingServices tears down every service still alive at the end of
// a run, covering runs where failures left usage counters above zero.
func (e *Executor) destroyRemainingServices(ctx context.Context) {
	for _, node := range e.graph.Nodes {
		if node.Kind == dag.ServiceNode {
			e.destroyService(ctx, node)
		}
	}
}

// wrapCreateFn adapts a service create handler, shaped func(ctx, *Input)
// (instance, error), to the three-argument form callHandler expects.
func wrapCreateFn(createFn any) any {
	return func(ctx context.Context, _ any, input any) (any, error) {
		fn := reflect.ValueOf(createFn)
		callArgs := []reflect.Value{reflect.ValueOf(ctx)}
		if input == nil {
			callArgs = append(callArgs, reflect.Zero(fn.Type().In(1)))
		} else {
			callArgs = append(callArgs, reflect.ValueOf(input))
		}
		results := fn.Call(callArgs)
		instance, errResult := results[0].Interface(), results[1].Interface()
		if errResult != nil {
			return nil, errResult.(error)
		}
		return instance, nil
	}
}
