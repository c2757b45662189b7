package httpclient

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/matrixci/matrixci/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for creating an http_client service.
type Input struct {
	Timeout string `mci:"timeout"`
}

// CreateHTTPClient is the 'create' handler for the asset. It returns a live
// *http.Client shared by every job that uses the service, so a run's HTTP
// traffic reuses TCP connections.
func CreateHTTPClient(ctx context.Context, input *Input) (*http.Client, error) {
	timeout, err := time.ParseDuration(input.Timeout)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return client, nil
}

// DestroyHTTPClient is the 'destroy' handler. For an http.Client we just
// need to close idle connections.
func DestroyHTTPClient(client *http.Client) error {
	client.CloseIdleConnections()
	return nil
}

// Register registers the asset handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterService("CreateHTTPClient", &registry.RegisteredService{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		CreateFn:  CreateHTTPClient,
	})
	r.RegisterService("DestroyHTTPClient", &registry.RegisteredService{
		DestroyFn: DestroyHTTPClient,
	})
}
