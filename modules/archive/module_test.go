package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matrixci/matrixci/internal/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestOnRunArchive_Upload(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	store := artifact.NewMemoryStore()
	require.NoError(t, store.Publish(context.Background(), "build/out.txt", strings.NewReader("artifact-bytes")))

	deps := &Deps{Store: store, Client: server.Client()}
	input := &Input{Action: "upload", Key: "build/out.txt", URL: server.URL + "/put"}

	out, err := OnRunArchive(context.Background(), deps, input)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "artifact-bytes", gotBody)
	assert.True(t, out.GetAttr("success").True())
}

func TestOnRunArchive_Download(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "remote-bytes")
	}))
	t.Cleanup(server.Close)

	store := artifact.NewMemoryStore()
	deps := &Deps{Store: store, Client: server.Client()}
	input := &Input{Action: "download", Key: "fetched/blob.bin", URL: server.URL + "/get"}

	_, err := OnRunArchive(context.Background(), deps, input)
	require.NoError(t, err)

	blob, err := store.Open(context.Background(), "fetched/blob.bin")
	require.NoError(t, err)
	t.Cleanup(func() { blob.Close() })
	data, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "remote-bytes", string(data))
}

func TestOnRunArchive_UploadRejectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	store := artifact.NewMemoryStore()
	require.NoError(t, store.Publish(context.Background(), "build/out.txt", strings.NewReader("x")))

	deps := &Deps{Store: store, Client: server.Client()}
	input := &Input{Action: "upload", Key: "build/out.txt", URL: server.URL}

	_, err := OnRunArchive(context.Background(), deps, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestOnRunArchive_BadInput(t *testing.T) {
	t.Parallel()
	deps := &Deps{Store: artifact.NewMemoryStore()}

	_, err := OnRunArchive(context.Background(), deps, &Input{Action: "upload"})
	require.Error(t, err)

	out, err := OnRunArchive(context.Background(), deps, &Input{Action: "shred", Key: "k", URL: "u"})
	require.Error(t, err)
	assert.Equal(t, cty.NilVal, out)
	assert.Contains(t, err.Error(), "unknown archive action")
}
