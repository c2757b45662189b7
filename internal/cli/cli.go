package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/matrixci/matrixci/internal/app"
	"github.com/matrixci/matrixci/internal/resolver"
	"github.com/matrixci/matrixci/internal/trigger"
)

// ExitError is a boundary error carrying the process exit code. Configuration
// errors use code 2 so the hosting platform can tell them from run failures.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func configError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments into an application configuration.
// It is the boundary where malformed values are rejected, so the resolver
// behind it never sees an invalid enum. The returned bool reports a clean
// early exit (help requested).
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("matrixci", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
matrixci - a declarative CI fan-out orchestrator.

Usage:
  matrixci [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a single pipeline .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	modulesPathFlag := flagSet.String("modules-path", "modules", "Path to the directory containing module manifests.")

	eventFlag := flagSet.String("event", "manual", "Trigger event kind: 'push', 'pull-request', 'merge-queue', 'manual', or 'call'.")
	refFlag := flagSet.String("ref", "main", "Target branch ref.")
	prFlag := flagSet.Int("pr", 0, "Pull request number (pull-request events only).")

	platformFlag := flagSet.String("platform", "", "Platform override: 'linux', 'windows', 'macos', or 'all'.")
	layoutFlag := flagSet.String("layout", "", "Layout override: 'none', '2013', '2020', or 'all'.")
	unitTestsFlag := flagSet.Bool("unit-tests", false, "Unit tests override.")
	profileFlag := flagSet.String("profile", "release", "Build profile: 'release', 'debug', or 'production'.")

	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the executor.")
	artifactsDirFlag := flagSet.String("artifacts-dir", "", "Directory for the artifact store. Empty keeps artifacts in memory.")
	opsPortFlag := flagSet.Int("ops-port", 0, "Port for the HTTP health/metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level: 'debug', 'info', 'warn', or 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, configError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	set := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return nil, false, configError("no pipeline path provided")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, false, configError("pipeline path %q: %s", path, err.Error())
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, configError("invalid log-format: must be 'text' or 'json'")
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, configError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	event, err := trigger.ParseEvent(*eventFlag)
	if err != nil {
		return nil, false, configError("%s", err.Error())
	}
	trig := trigger.Context{Event: event, Ref: *refFlag, PullRequest: *prFlag}
	if err := trig.Validate(); err != nil {
		return nil, false, configError("%s", err.Error())
	}

	profile, err := resolver.ParseProfile(*profileFlag)
	if err != nil {
		return nil, false, configError("%s", err.Error())
	}

	input, err := buildResolverInput(trig, profile, set, *platformFlag, *layoutFlag, *unitTestsFlag)
	if err != nil {
		return nil, false, err
	}

	config, err := app.NewConfig(app.Config{
		PipelinePath: path,
		ModulesPath:  *modulesPathFlag,
		Trigger:      trig,
		Resolver:     input,
		Workers:      *workersFlag,
		ArtifactsDir: *artifactsDirFlag,
		OpsPort:      *opsPortFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, configError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}

// buildResolverInput maps the boundary flags onto the resolver's sealed input
// type. The call event is the pre-resolved bypass: all three configuration
// flags are then required and taken verbatim.
func buildResolverInput(trig trigger.Context, profile resolver.Profile, set map[string]bool, platform, layout string, unitTests bool) (resolver.Input, error) {
	if trig.Event == trigger.EventCall {
		if !set["platform"] || !set["layout"] || !set["unit-tests"] {
			return nil, configError("event 'call' requires explicit -platform, -layout, and -unit-tests values")
		}
		platforms, err := resolver.ParsePlatformChoice(platform)
		if err != nil {
			return nil, configError("%s", err.Error())
		}
		layoutVal, err := resolver.ParseLayout(layout)
		if err != nil {
			return nil, configError("%s", err.Error())
		}
		return resolver.PreResolved{Config: resolver.Config{
			Platforms: platforms,
			Layout:    layoutVal,
			UnitTests: unitTests,
			Profile:   profile,
		}}, nil
	}

	overrides := resolver.Overrides{Profile: &profile}
	if set["platform"] {
		platforms, err := resolver.ParsePlatformChoice(platform)
		if err != nil {
			return nil, configError("%s", err.Error())
		}
		overrides.Platforms = platforms
	}
	if set["layout"] {
		layoutVal, err := resolver.ParseLayout(layout)
		if err != nil {
			return nil, configError("%s", err.Error())
		}
		overrides.Layout = &layoutVal
	}
	if set["unit-tests"] {
		v := unitTests
		overrides.UnitTests = &v
	}
	return resolver.Raw{Trigger: trig, Overrides: overrides}, nil
}
