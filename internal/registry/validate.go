package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Validate performs a strict parity check between the loaded manifests and
// the registered Go handlers. It checks that every manifest lifecycle handler
// exists, that declared inputs and Go struct fields match one-to-one, and
// that their types are compatible.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string

	for runnerType, def := range r.RunnerDefs {
		if def.Lifecycle == nil || def.Lifecycle.OnRun == "" {
			errs = append(errs, fmt.Sprintf("runner '%s': manifest declares no on_run handler", runnerType))
			continue
		}
		handler, ok := r.RunnerHandlers[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("runner '%s': manifest references unregistered handler '%s'", runnerType, def.Lifecycle.OnRun))
			continue
		}
		errs = append(errs, checkInputParity(ctx, logInfo{"runner", runnerType}, handler.InputType, def.Inputs)...)
	}

	for serviceType, def := range r.ServiceDefs {
		if def.Lifecycle == nil || def.Lifecycle.Create == "" || def.Lifecycle.Destroy == "" {
			errs = append(errs, fmt.Sprintf("service '%s': manifest must declare both create and destroy handlers", serviceType))
			continue
		}
		createHandler, ok := r.ServiceHandlers[def.Lifecycle.Create]
		if !ok {
			errs = append(errs, fmt.Sprintf("service '%s': manifest references unregistered create handler '%s'", serviceType, def.Lifecycle.Create))
			continue
		}
		if destroyHandler, ok := r.ServiceHandlers[def.Lifecycle.Destroy]; !ok || destroyHandler.DestroyFn == nil {
			errs = append(errs, fmt.Sprintf("service '%s': manifest references unregistered destroy handler '%s'", serviceType, def.Lifecycle.Destroy))
		}
		errs = append(errs, checkInputParity(ctx, logInfo{"service", serviceType}, createHandler.InputType, def.Inputs)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

type logInfo struct {
	kind string
	name string
}

// checkInputParity cross-checks a manifest's declared inputs against the
// fields of the registered Go input struct, matched through their `mci` tags.
func checkInputParity(ctx context.Context, owner logInfo, inputType reflect.Type, inputs map[string]*config.InputDefinition) []string {
	logger := ctxlog.FromContext(ctx)
	var errs []string

	if inputType == nil {
		if len(inputs) > 0 {
			errs = append(errs, fmt.Sprintf("%s '%s': manifest declares inputs, but Go handler has no input struct", owner.kind, owner.name))
		}
		return errs
	}

	goInputs := make(map[string]reflect.StructField)
	for i := 0; i < inputType.NumField(); i++ {
		field := inputType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagName := strings.Split(field.Tag.Get("mci"), ",")[0]
		if tagName != "" && tagName != "-" {
			goInputs[tagName] = field
		}
	}

	for name := range goInputs {
		if _, ok := inputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("%s '%s': Go struct has field for input '%s' which is not declared in the manifest", owner.kind, owner.name, name))
		}
	}
	for name := range inputs {
		if _, ok := goInputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("%s '%s': manifest declares input '%s' which is not found in the Go struct", owner.kind, owner.name, name))
		}
	}

	for name, inputDef := range inputs {
		goField, ok := goInputs[name]
		if !ok {
			continue // Presence mismatch already reported.
		}

		manifestType := inputDef.Type
		if manifestType.Equals(cty.DynamicPseudoType) {
			logger.Warn("Manifest input uses 'type = any', which disables static type checking.", owner.kind, owner.name, "input", name)
			continue
		}

		goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s '%s', input '%s': could not imply cty type from Go field type %s: %v", owner.kind, owner.name, name, goField.Type, err))
			continue
		}

		if !manifestType.Equals(goFieldType) {
			errs = append(errs, fmt.Sprintf("%s '%s', input '%s': type mismatch: manifest requires '%s' but Go field '%s' provides '%s'",
				owner.kind, owner.name, name, manifestType.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
		}
	}
	return errs
}
