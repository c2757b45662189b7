package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Pipeline structures ---

// JobArgs represents the content of the 'arguments' block within a job.
type JobArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// UsesBlock represents the content of the 'uses' block within a job.
type UsesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// Retry represents the 'retry' block within a job: a bounded-attempt wrapper
// around the job body.
type Retry struct {
	Attempts int    `hcl:"attempts"`
	Timeout  string `hcl:"timeout,optional"`
}

// Job represents a `job` block from a pipeline file. It is a runnable
// instance of a defined runner, optionally gated by platform, layout, or a
// `when` expression, and optionally sharded into parallel chunks.
type Job struct {
	RunnerType string         `hcl:"runner_type,label"`
	Name       string         `hcl:"instance_name,label"`
	Platform   string         `hcl:"platform,optional"`
	Layout     string         `hcl:"layout,optional"`
	When       hcl.Expression `hcl:"when,optional"`
	Needs      []string       `hcl:"needs,optional"`
	Chunks     int            `hcl:"chunks,optional"`
	Arguments  *JobArgs       `hcl:"arguments,block"`
	Uses       *UsesBlock     `hcl:"uses,block"`
	Artifacts  []string       `hcl:"artifacts,optional"`
	Retry      *Retry         `hcl:"retry,block"`
}

// Service represents a `service` block from a pipeline file. It is a managed,
// stateful instance of a defined asset, shared by the jobs that use it.
type Service struct {
	AssetType string   `hcl:"asset_type,label"`
	Name      string   `hcl:"instance_name,label"`
	Arguments *JobArgs `hcl:"arguments,block"`
	Needs     []string `hcl:"needs,optional"`
}

// Pipeline represents a top-level `pipeline` block: the declared run, holding
// all jobs and services.
type Pipeline struct {
	Name     string     `hcl:"name,label"`
	FailFast *bool      `hcl:"fail_fast,optional"`
	Jobs     []*Job     `hcl:"job,block"`
	Services []*Service `hcl:"service,block"`
}

// --- Module manifest schemas ---

// Lifecycle defines the mapping from a runner's lifecycle event to a
// registered Go handler function.
type Lifecycle struct {
	OnRun string `hcl:"on_run,optional"`
}

// AssetLifecycle defines the mapping from an asset's lifecycle events
// (create, destroy) to registered Go handler functions.
type AssetLifecycle struct {
	Create  string `hcl:"create"`
	Destroy string `hcl:"destroy"`
}

// InputDefinition defines a single input argument for a runner or asset.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     *cty.Value     `hcl:"default,optional"`
}

// OutputDefinition defines a single output value produced by a runner.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

// UsesDefinition defines a service dependency required by a runner.
type UsesDefinition struct {
	LocalName string `hcl:"local_name,label"`
	AssetType string `hcl:"asset_type"`
}

// RunnerDefinition represents the HCL manifest for a runnable `runner` type.
type RunnerDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *Lifecycle          `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
	Uses        []*UsesDefinition   `hcl:"uses,block"`
}

// AssetDefinition represents the HCL manifest for a stateful `asset` type.
type AssetDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *AssetLifecycle     `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}
