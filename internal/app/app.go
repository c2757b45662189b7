package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/matrixci/matrixci/internal/config"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/metrics"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/result"
	"github.com/matrixci/matrixci/internal/runstore"
	"github.com/matrixci/matrixci/internal/trigger"
)

// Config holds everything an App instance needs to run one pipeline.
type Config struct {
	PipelinePath string // pipeline .hcl file or directory
	ModulesPath  string // runner/service manifest directory

	// Trigger is the event context the run was started with.
	Trigger trigger.Context
	// Resolver is the boundary-validated resolver input: Raw trigger context
	// with overrides, or a PreResolved configuration for the call path. Nil
	// defaults to Raw with no overrides.
	Resolver resolver.Input

	Workers      int
	ArtifactsDir string // empty selects the in-memory artifact store
	OpsPort      int    // health/metrics port, 0 disabled

	LogFormat string
	LogLevel  string
}

// NewConfig validates an application configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	return &cfg, nil
}

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	cfg       *Config
	registry  *registry.Registry
	model     *config.Model
	converter config.Converter
	metrics   *metrics.Collector

	store   *runstore.Store
	outcome result.Outcome
}

// NewApp constructs the main application: it configures an isolated logger,
// loads and translates all configuration, registers the Go modules, and
// validates manifest/handler parity. A failure here is a fatal startup error
// and panics; main recovers it into a clean exit.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var configPaths []string
	if cfg.PipelinePath != "" {
		configPaths = append(configPaths, cfg.PipelinePath)
	}
	if cfg.ModulesPath != "" {
		configPaths = append(configPaths, cfg.ModulesPath)
	}

	model, converter, err := loader.Load(ctx, configPaths...)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Debug("Configuration loaded and translated into the unified model.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	reg.PopulateFromModel(model)

	if err := reg.Validate(ctx); err != nil {
		// A mismatch between code and manifests is a programmer error.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:      outW,
		logger:    logger,
		cfg:       cfg,
		registry:  reg,
		model:     model,
		converter: converter,
		metrics:   metrics.New(),
		store:     runstore.New(),
	}
}

// Registry returns the application's registry, primarily for tests.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Results returns the finalized per-node results of the last run.
func (a *App) Results() []result.JobResult {
	return a.store.Results()
}

// Outcome returns the aggregate outcome of the last run.
func (a *App) Outcome() result.Outcome {
	return a.outcome
}
