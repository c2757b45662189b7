package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/dag"
	"github.com/sethvargo/go-retry"
)

// invokeJob executes a job node's runner handler, wrapped in the job's
// bounded-attempt retry policy, and publishes its declared artifacts on
// success. It returns the published artifact keys.
func (e *Executor) invokeJob(ctx context.Context, node *dag.Node) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("job", node.ID)
	logger.Info("▶️ Starting job.")

	runnerDef, ok := e.registry.RunnerDefs[node.Job.RunnerType]
	if !ok {
		return nil, fmt.Errorf("unknown runner type %q", node.Job.RunnerType)
	}
	handlerName := runnerDef.Lifecycle.OnRun
	handler, ok := e.registry.RunnerHandlers[handlerName]
	if !ok {
		return nil, fmt.Errorf("handler %q not registered", handlerName)
	}

	evalCtx := e.buildEvalContext(ctx, node)

	inputStruct := handler.NewInput()
	if inputStruct != nil {
		if err := e.converter.DecodeArgs(ctx, inputStruct, node.Job.Arguments, runnerDef.Inputs, evalCtx); err != nil {
			return nil, fmt.Errorf("failed to decode arguments for job %s: %w", node.ID, err)
		}
	}

	depsStruct, err := e.buildDepsStruct(ctx, node, handler, runnerDef)
	if err != nil {
		return nil, err
	}

	output, err := e.callWithRetry(ctx, node, handler.Fn, depsStruct, inputStruct)
	if err != nil {
		return nil, err
	}

	ctyOutput, err := e.converter.ToCtyValue(output)
	if err != nil {
		return nil, fmt.Errorf("failed to convert handler output for job %s: %w", node.ID, err)
	}
	e.store.SetOutput(node.ID, ctyOutput)

	keys, err := e.publishArtifacts(ctx, node)
	if err != nil {
		return nil, err
	}

	logger.Info("✅ Finished job.")
	return keys, nil
}

// callWithRetry invokes the handler under the job's retry policy: a fixed
// number of attempts with constant backoff and an optional per-attempt
// timeout, first success wins. A run-level cancellation is never retried.
func (e *Executor) callWithRetry(ctx context.Context, node *dag.Node, fn, depsStruct, inputStruct any) (any, error) {
	logger := ctxlog.FromContext(ctx).With("job", node.ID)

	attempts := 1
	var perAttempt time.Duration
	if node.Job.Retry != nil {
		attempts = node.Job.Retry.Attempts
		perAttempt = node.Job.Retry.Timeout
	}

	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(time.Second))

	attempt := 0
	var output any
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx := ctx
		if perAttempt > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, perAttempt)
			defer cancel()
		}

		out, callErr := callHandler(attemptCtx, fn, depsStruct, inputStruct)
		if callErr != nil {
			if ctx.Err() != nil {
				// The run was cancelled; surface it without another attempt.
				return callErr
			}
			logger.Warn("Job attempt failed.", "attempt", attempt, "error", callErr)
			return retry.RetryableError(callErr)
		}
		output = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// callHandler performs the reflective call of a runner handler with the shape
// func(ctx, *Deps, *Input) (output, error).
func callHandler(ctx context.Context, fn, depsStruct, inputStruct any) (any, error) {
	handlerFunc := reflect.ValueOf(fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx)}

	if depsStruct == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(1)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(depsStruct))
	}
	if inputStruct == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(2)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	output, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return nil, errResult.(error)
	}
	return output, nil
}

// publishArtifacts stores each of the job's declared artifact files in the
// run's write-once artifact store. Paths are taken as the job body left them.
func (e *Executor) publishArtifacts(ctx context.Context, node *dag.Node) ([]string, error) {
	logger := ctxlog.FromContext(ctx).With("job", node.ID)

	var keys []string
	for _, path := range node.Job.Artifacts {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening declared artifact %q: %w", path, err)
		}
		key := artifact.Key(artifactOwner(node), filepath.Base(path))
		err = e.artifacts.Publish(ctx, key, f)
		f.Close()
		if err != nil {
			return nil, err
		}
		logger.Info("📦 Published artifact.", "key", key)
		keys = append(keys, key)
	}
	return keys, nil
}

// artifactOwner is the store owner segment for a node's artifacts: the job
// name, with the chunk index appended for sharded jobs so chunks never race
// for the same write-once key.
func artifactOwner(node *dag.Node) string {
	if node.Sharded() {
		return fmt.Sprintf("%s[%d]", node.Job.Name, node.Chunk.Index)
	}
	return node.Job.Name
}
