package dag

import (
	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/trigger"
	"github.com/zclconf/go-cty/cty"
)

// BaseEvalVariables exposes the resolved run configuration and the trigger
// context to pipeline expressions as `config.*` and `event.*`. The same
// variables gate `when` expressions at build time and feed argument
// evaluation in the executor.
func BaseEvalVariables(cfg resolver.Config, trig trigger.Context) map[string]cty.Value {
	platforms := make([]cty.Value, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		platforms = append(platforms, cty.StringVal(p.String()))
	}
	platformsVal := cty.ListValEmpty(cty.String)
	if len(platforms) > 0 {
		platformsVal = cty.ListVal(platforms)
	}

	return map[string]cty.Value{
		"config": cty.ObjectVal(map[string]cty.Value{
			"profile":    cty.StringVal(cfg.Profile.String()),
			"layout":     cty.StringVal(cfg.Layout.String()),
			"unit_tests": cty.BoolVal(cfg.UnitTests),
			"upload":     cty.BoolVal(cfg.Upload),
			"platforms":  platformsVal,
		}),
		"event": cty.ObjectVal(map[string]cty.Value{
			"kind": cty.StringVal(trig.Event.String()),
			"ref":  cty.StringVal(trig.Ref),
			"pr":   cty.NumberIntVal(int64(trig.PullRequest)),
		}),
	}
}
