package archive

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/matrixci/matrixci/internal/ctxlog"
	"github.com/matrixci/matrixci/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// fallbackClient serves runs whose pipeline wires no http_client service.
var fallbackClient = &http.Client{}

// Input defines the arguments for the archive runner.
type Input struct {
	Action string `mci:"action"`
	Key    string `mci:"key"`
	URL    string `mci:"url"`
}

// Deps declares what the runner needs from the engine: the run's artifact
// store, injected by type, and an optional shared HTTP client service.
type Deps struct {
	Store  artifact.Store
	Client *http.Client `mci:"client"`
}

// client returns the wired HTTP client service, or the package fallback.
func (d *Deps) client() *http.Client {
	if d != nil && d.Client != nil {
		return d.Client
	}
	return fallbackClient
}

// handleUpload streams an artifact out of the run's store to a pre-signed URL.
func handleUpload(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload", "key", input.Key)

	blob, err := deps.Store.Open(ctx, input.Key)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to open artifact %q: %w", input.Key, err)
	}
	defer blob.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, input.URL, blob)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(input.Key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	logger.Info("Uploading artifact", "contentType", contentType)

	resp, err := deps.client().Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cty.NilVal, fmt.Errorf("upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded artifact", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"success": cty.BoolVal(true),
		"status":  cty.StringVal(resp.Status),
	}), nil
}

// handleDownload fetches a URL and publishes the body into the run's store.
func handleDownload(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "download", "key", input.Key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := deps.client().Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return cty.NilVal, fmt.Errorf("download failed with status: %s", resp.Status)
	}

	if err := deps.Store.Publish(ctx, input.Key, resp.Body); err != nil {
		return cty.NilVal, fmt.Errorf("failed to store downloaded artifact: %w", err)
	}

	logger.Info("Successfully downloaded artifact", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"success": cty.BoolVal(true),
		"status":  cty.StringVal(resp.Status),
	}), nil
}

// OnRunArchive is the handler for the 'archive' runner's on_run lifecycle
// event. It moves artifacts between the run's store and pre-signed URLs.
func OnRunArchive(ctx context.Context, deps *Deps, input *Input) (cty.Value, error) {
	if input.Key == "" || input.URL == "" {
		return cty.NilVal, fmt.Errorf("archive requires both 'key' and 'url'")
	}
	switch strings.ToLower(input.Action) {
	case "upload":
		return handleUpload(ctx, deps, input)
	case "download":
		return handleDownload(ctx, deps, input)
	default:
		return cty.NilVal, fmt.Errorf("unknown archive action: '%s'", input.Action)
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunArchive", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		NewDeps:   func() any { return new(Deps) },
		Fn:        OnRunArchive,
	})
}
