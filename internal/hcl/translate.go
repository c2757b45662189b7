package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/schema"
)

// translatePipeline converts the HCL-specific pipeline schema into the
// agnostic model, validating the attributes that can be checked statically.
func (l *Loader) translatePipeline(ctx context.Context, p *schema.Pipeline) (*config.Pipeline, error) {
	pipeline := &config.Pipeline{Name: p.Name}
	if p.FailFast != nil {
		pipeline.FailFast = *p.FailFast
	}

	for _, j := range p.Jobs {
		job, err := l.translateJob(ctx, j)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q, job %q: %w", p.Name, j.Name, err)
		}
		pipeline.Jobs = append(pipeline.Jobs, job)
	}
	for _, s := range p.Services {
		pipeline.Services = append(pipeline.Services, l.translateService(s))
	}
	return pipeline, nil
}

// translateJob converts the HCL-specific job schema into the agnostic model.
func (l *Loader) translateJob(_ context.Context, j *schema.Job) (*config.Job, error) {
	if j.Chunks < 0 {
		return nil, fmt.Errorf("chunks must be at least 1, got %d", j.Chunks)
	}

	job := &config.Job{
		RunnerType: j.RunnerType,
		Name:       j.Name,
		Platform:   j.Platform,
		Layout:     j.Layout,
		When:       j.When,
		Needs:      j.Needs,
		Chunks:     j.Chunks,
		Arguments:  l.extractBodyAttributes(j.Arguments),
		Uses:       l.extractBodyAttributes(j.Uses),
		Artifacts:  j.Artifacts,
	}

	if j.Retry != nil {
		if j.Retry.Attempts < 1 {
			return nil, fmt.Errorf("retry attempts must be at least 1, got %d", j.Retry.Attempts)
		}
		policy := &config.RetryPolicy{Attempts: j.Retry.Attempts}
		if j.Retry.Timeout != "" {
			timeout, err := time.ParseDuration(j.Retry.Timeout)
			if err != nil {
				return nil, fmt.Errorf("invalid retry timeout %q: %w", j.Retry.Timeout, err)
			}
			policy.Timeout = timeout
		}
		job.Retry = policy
	}

	return job, nil
}

// translateService converts the HCL-specific service schema into the agnostic model.
func (l *Loader) translateService(s *schema.Service) *config.Service {
	return &config.Service{
		ServiceType: s.AssetType,
		Name:        s.Name,
		Arguments:   l.extractBodyAttributes(s.Arguments),
		Needs:       s.Needs,
	}
}

// extractBodyAttributes flattens an arguments or uses block into a map of
// named, unevaluated expressions.
func (l *Loader) extractBodyAttributes(block interface{}) map[string]hcl.Expression {
	if block == nil {
		return nil
	}
	var body hcl.Body
	switch b := block.(type) {
	case *schema.JobArgs:
		if b == nil {
			return nil
		}
		body = b.Body
	case *schema.UsesBlock:
		if b == nil {
			return nil
		}
		body = b.Body
	default:
		return nil
	}
	if body == nil {
		return nil
	}
	attrs, _ := body.JustAttributes()
	if attrs == nil {
		return nil
	}
	exprMap := make(map[string]hcl.Expression)
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap
}
