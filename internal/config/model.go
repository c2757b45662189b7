package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of everything loaded
// at startup: the pipeline definition plus all runner and service manifests.
type Model struct {
	Runners  map[string]*RunnerDefinition
	Services map[string]*ServiceDefinition
	Pipeline *Pipeline
}

// Pipeline is the user's declared run: the jobs to fan out and the stateful
// services they share.
type Pipeline struct {
	Name string
	// FailFast cancels the whole run on the first job failure. Off by
	// default: matrix legs are independent and one platform's failure must
	// not knock out its siblings.
	FailFast bool
	Jobs     []*Job
	Services []*Service
}

// Job is the format-agnostic representation of a `job` block: one unit of
// work, selected or skipped by the resolved run configuration.
type Job struct {
	// RunnerType names the registered handler that executes the job body.
	RunnerType string
	Name       string

	// Platform gates the job on the resolved platform set. Empty means the
	// job runs on any configuration.
	Platform string
	// Layout gates the job on the resolved layout selection. Empty means no
	// layout requirement.
	Layout string
	// When is an optional boolean expression evaluated against the resolved
	// configuration and trigger context. A false result skips the job.
	When hcl.Expression

	// Needs lists explicit upstream job names.
	Needs []string
	// Chunks shards the job into this many parallel slices. Zero or one
	// means unsharded.
	Chunks int

	Arguments map[string]hcl.Expression
	Uses      map[string]hcl.Expression

	// Artifacts lists workspace-relative paths the job publishes to the
	// artifact store under its own name when it succeeds.
	Artifacts []string
	// Retry bounds re-invocations of a flaky job body. Nil means exactly one
	// attempt.
	Retry *RetryPolicy
}

// RetryPolicy is the bounded-attempt wrapper configuration for one job.
type RetryPolicy struct {
	// Attempts is the maximum number of invocations, including the first.
	Attempts int
	// Timeout caps each individual attempt. Zero means no per-attempt cap.
	Timeout time.Duration
}

// Service is the format-agnostic representation of a `service` block: a
// stateful collaborator with create/destroy lifecycle shared by jobs.
type Service struct {
	// ServiceType names the registered asset implementation.
	ServiceType string
	Name        string
	Arguments   map[string]hcl.Expression
	Needs       []string
}

// --- Module manifest models ---

// RunnerDefinition is the format-agnostic representation of a runner's
// manifest.
type RunnerDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
	Uses        map[string]*UsesDefinition
}

// ServiceDefinition is the format-agnostic representation of a service's
// manifest.
type ServiceDefinition struct {
	Type        string
	Description string
	Lifecycle   *ServiceLifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
}

// Lifecycle maps a runner's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// ServiceLifecycle maps a service's events to Go handler names.
type ServiceLifecycle struct {
	Create  string
	Destroy string
}

// InputDefinition defines a single input argument for a runner or service.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output value from a runner.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}

// UsesDefinition defines a service dependency of a runner.
type UsesDefinition struct {
	LocalName   string
	ServiceType string
}
