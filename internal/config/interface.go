package config

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads pipeline and manifest files from the given paths,
	// translates them into the format-agnostic model, and returns a
	// matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter is the interface for format-specific data binding between raw
// configuration expressions and the Go structs runner handlers consume.
type Converter interface {
	// DecodeArgs evaluates the raw argument expressions of a job or service
	// against the evaluation context, applies manifest defaults, and
	// populates the target Go struct.
	DecodeArgs(
		ctx context.Context,
		target any,
		args map[string]hcl.Expression,
		defs map[string]*InputDefinition,
		evalCtx *hcl.EvalContext,
	) error

	// ToCtyValue converts a native Go value returned by a handler into its
	// cty equivalent for use in downstream evaluation contexts.
	ToCtyValue(v any) (cty.Value, error)
}
