package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestLoader_ParsesPipelineAndManifests(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{
		"modules/exec/manifest.hcl": `
runner "exec" {
  lifecycle {
    on_run = "OnRunExec"
  }
  input "command" {
    type = string
  }
  input "args" {
    type    = list(string)
    default = []
  }
  output "stdout" {
    type = string
  }
  uses "ws" {
    asset_type = "workspace"
  }
}
`,
		"modules/workspace/manifest.hcl": `
asset "workspace" {
  lifecycle {
    create  = "CreateWorkspace"
    destroy = "DestroyWorkspace"
  }
  input "prefix" {
    type    = string
    default = "ws"
  }
}
`,
		"pipeline/main.hcl": `
pipeline "browser" {
  fail_fast = true

  service "workspace" "scratch" {}

  job "exec" "build" {
    platform = "linux"
    layout   = "2020"
    chunks   = 4
    needs    = []
    arguments {
      command = "make"
    }
    uses {
      ws = service.workspace.scratch
    }
    artifacts = ["out/build.tar.gz"]
    retry {
      attempts = 3
      timeout  = "5m"
    }
  }
}
`,
	})

	model, converter, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, converter)

	// Manifests.
	execDef := model.Runners["exec"]
	require.NotNil(t, execDef)
	assert.Equal(t, "OnRunExec", execDef.Lifecycle.OnRun)
	require.Contains(t, execDef.Inputs, "command")
	assert.True(t, execDef.Inputs["command"].Type.Equals(cty.String))
	require.Contains(t, execDef.Inputs, "args")
	assert.True(t, execDef.Inputs["args"].Type.Equals(cty.List(cty.String)))
	assert.True(t, execDef.Inputs["args"].Optional, "inputs with defaults are optional")
	require.NotNil(t, execDef.Inputs["args"].Default)
	assert.True(t, execDef.Inputs["args"].Default.RawEquals(cty.EmptyTupleVal))
	require.Contains(t, execDef.Outputs, "stdout")
	require.Contains(t, execDef.Uses, "ws")
	assert.Equal(t, "workspace", execDef.Uses["ws"].ServiceType)

	wsDef := model.Services["workspace"]
	require.NotNil(t, wsDef)
	assert.Equal(t, "CreateWorkspace", wsDef.Lifecycle.Create)
	assert.Equal(t, "DestroyWorkspace", wsDef.Lifecycle.Destroy)
	require.Contains(t, wsDef.Inputs, "prefix")
	require.NotNil(t, wsDef.Inputs["prefix"].Default)
	assert.True(t, wsDef.Inputs["prefix"].Default.RawEquals(cty.StringVal("ws")))

	// Pipeline.
	require.NotNil(t, model.Pipeline)
	assert.Equal(t, "browser", model.Pipeline.Name)
	assert.True(t, model.Pipeline.FailFast)
	require.Len(t, model.Pipeline.Jobs, 1)
	require.Len(t, model.Pipeline.Services, 1)

	job := model.Pipeline.Jobs[0]
	assert.Equal(t, "exec", job.RunnerType)
	assert.Equal(t, "build", job.Name)
	assert.Equal(t, "linux", job.Platform)
	assert.Equal(t, "2020", job.Layout)
	assert.Equal(t, 4, job.Chunks)
	assert.Equal(t, []string{"out/build.tar.gz"}, job.Artifacts)
	require.Contains(t, job.Arguments, "command")
	require.Contains(t, job.Uses, "ws")
	require.NotNil(t, job.Retry)
	assert.Equal(t, 3, job.Retry.Attempts)
	assert.Equal(t, 5*time.Minute, job.Retry.Timeout)
}

func TestLoader_RejectsMultiplePipelines(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{
		"a.hcl": `pipeline "one" {}`,
		"b.hcl": `pipeline "two" {}`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple pipeline blocks")
}

func TestLoader_RejectsInvalidRetry(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{
		"main.hcl": `
pipeline "p" {
  job "noop" "a" {
    arguments {}
    retry {
      attempts = 0
    }
  }
}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry attempts")
}

func TestLoader_RejectsDuplicateManifest(t *testing.T) {
	t.Parallel()
	manifest := `
runner "exec" {
  lifecycle {
    on_run = "OnRunExec"
  }
}
`
	dir := writeFiles(t, map[string]string{
		"a/manifest.hcl": manifest,
		"b/manifest.hcl": manifest,
	})

	_, _, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate runner manifest")
}

// The loader stays lenient about missing paths so the default modules
// directory is optional; the CLI and the app enforce that a run actually
// found a pipeline.
func TestLoader_MissingPathIsNotAnError(t *testing.T) {
	t.Parallel()
	model, _, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, model.Pipeline)
}

func TestTypeExprParsing(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{
		"manifest.hcl": `
runner "typed" {
  lifecycle {
    on_run = "OnRunTyped"
  }
  input "flag" {
    type = bool
  }
  input "count" {
    type = number
  }
  input "labels" {
    type = map(string)
  }
  input "anything" {
    type = any
  }
}
`,
	})

	model, _, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	def := model.Runners["typed"]
	require.NotNil(t, def)
	assert.True(t, def.Inputs["flag"].Type.Equals(cty.Bool))
	assert.True(t, def.Inputs["count"].Type.Equals(cty.Number))
	assert.True(t, def.Inputs["labels"].Type.Equals(cty.Map(cty.String)))
	assert.True(t, def.Inputs["anything"].Type.Equals(cty.DynamicPseudoType))
}

func TestLoader_RejectsUnknownType(t *testing.T) {
	t.Parallel()
	dir := writeFiles(t, map[string]string{
		"manifest.hcl": `
runner "typed" {
  lifecycle {
    on_run = "OnRunTyped"
  }
  input "bad" {
    type = banana
  }
}
`,
	})

	_, _, err := NewLoader().Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banana")
}
