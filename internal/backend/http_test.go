package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/pkg/schema"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(HTTPConfig{BaseURL: srv.URL + "/api/"})
	require.NoError(t, err)
	return c
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{})
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	_, err = NewHTTPClient(HTTPConfig{BaseURL: "ftp://example.com"})
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestFetchCatalogSteps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/steps", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]schema.Step{
			{Name: "timer-source", Type: schema.StepTypeStart, Kind: "Kamelet"},
			{Name: "choice", Type: schema.StepTypeMiddle, Kind: "EIP", MaxBranches: -1, Branches: []schema.Branch{}},
		})
	})

	got, err := c.FetchCatalogSteps(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "timer-source", got[0].Name)
	assert.Equal(t, schema.RoleBranching, got[1].Role())
}

func TestFetchCapabilities(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/capabilities", r.URL.Path)
		_, _ = w.Write([]byte(`{"dsls":[{"name":"KameletBinding","output":"true"},{"name":"Camel Route"}]}`))
	})

	caps, err := c.FetchCapabilities(context.Background())
	require.NoError(t, err)
	require.Len(t, caps.DSL, 2)
	assert.Equal(t, "KameletBinding", caps.DSL[0].Name)
}

func TestFetchIntegrationSourceCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/integrations", r.URL.Path)
		assert.Equal(t, "KameletBinding", r.URL.Query().Get("dsl"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var in schema.Integration
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "orders", in.Metadata.Name)
		_, _ = w.Write([]byte("kind: KameletBinding\n"))
	})

	in := schema.NewIntegration()
	in.Metadata.Name = "orders"
	src, err := c.FetchIntegrationSourceCode(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "kind: KameletBinding\n", src)
}

func TestFetchIntegrationJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/integrations/customResource", r.URL.Path)
		assert.Equal(t, "prod", r.URL.Query().Get("namespace"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "kind: KameletBinding", string(body))
		_, _ = w.Write([]byte(`{"metadata":{"name":"orders","dsl":"KameletBinding"},"steps":[{"name":"log","type":"MIDDLE"}],"params":[]}`))
	})

	in, err := c.FetchIntegrationJSON(context.Background(), "kind: KameletBinding", "KameletBinding", "prod")
	require.NoError(t, err)
	assert.Equal(t, "orders", in.Metadata.Name)
	require.Len(t, in.Steps, 1)
	assert.Equal(t, "log", in.Steps[0].Name)
}

func TestFetchViews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/view-definitions", r.URL.Path)
		var in []schema.Step
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Len(t, in, 1)
		_, _ = w.Write([]byte(`[{"id":"detail","name":"Details","type":"generic"}]`))
	})

	views, err := c.FetchViews(context.Background(), []schema.Step{{Name: "log"}}, "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, schema.ViewTypeGeneric, views[0].Type)
}

func TestDeployments(t *testing.T) {
	var stopped bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/deployments":
			_, _ = w.Write([]byte(`[{"name":"orders","namespace":"default","status":"Running"}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/deployments/orders/logs":
			assert.Equal(t, "50", r.URL.Query().Get("lines"))
			_, _ = w.Write([]byte("line one\nline two\n"))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/deployments/orders":
			_, _ = w.Write([]byte("created"))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/deployments/orders":
			stopped = true
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	list, err := c.FetchDeployments(ctx, "default")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Running", list[0].Status)

	logs, err := c.FetchDeploymentLogs(ctx, "orders", "default", 50)
	require.NoError(t, err)
	assert.Contains(t, logs, "line two")

	out, err := c.StartDeployment(ctx, schema.NewIntegration(), "orders", "default")
	require.NoError(t, err)
	assert.Equal(t, "created", out)

	require.NoError(t, c.StopDeployment(ctx, "orders", "default"))
	assert.True(t, stopped)

	_, err = c.FetchDeployment(ctx, "missing", "default")
	assert.True(t, schema.IsNotFound(err))
}

func TestBackendErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	_, err := c.FetchCatalogSteps(context.Background())
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeBackend, schema.ErrorCode(err))

	var fe *schema.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 500, fe.Details["status_code"])
	assert.Equal(t, "boom", fe.Details["body"])
}

func TestRequestIDForwarded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[]`))
	})

	ctx := logging.WithRequestID(context.Background(), "req-42")
	_, err := c.FetchCatalogSteps(ctx)
	require.NoError(t, err)
}

func TestMalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	})

	_, err := c.FetchCapabilities(context.Background())
	assert.Equal(t, schema.ErrCodeBackend, schema.ErrorCode(err))
}
