package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/pkg/schema"
)

const (
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
	defaultHTTPTimeout     = 30 * time.Second

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain"

	requestIDHeader = "X-Request-ID"
)

// HTTPConfig configures the backend REST client.
type HTTPConfig struct {
	BaseURL         string
	Timeout         time.Duration
	MaxResponseBody int64
	Logger          *slog.Logger
	Client          *http.Client
}

// HTTPClient implements every backend service against the REST API.
type HTTPClient struct {
	base    *url.URL
	client  *http.Client
	maxBody int64
	logger  *slog.Logger
}

// NewHTTPClient validates cfg and returns a client rooted at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "backend base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "invalid backend URL: %v", err).WithCause(err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unsupported backend URL scheme %q", base.Scheme)
	}
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HTTPClient{base: base, client: client, maxBody: cfg.MaxResponseBody, logger: logger}, nil
}

// --- CatalogService ---

func (c *HTTPClient) FetchCapabilities(ctx context.Context) (*Capabilities, error) {
	var caps Capabilities
	if err := c.getJSON(ctx, "/v1/capabilities", nil, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

func (c *HTTPClient) FetchCatalogSteps(ctx context.Context) ([]schema.Step, error) {
	var steps []schema.Step
	if err := c.getJSON(ctx, "/v1/steps", nil, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// --- SourceService ---

// FetchIntegrationSourceCode posts the integration and returns the rendered source.
func (c *HTTPClient) FetchIntegrationSourceCode(ctx context.Context, in *schema.Integration) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeBackend, "encode integration: %v", err).WithCause(err)
	}
	q := url.Values{}
	if in.Metadata.DSL != "" {
		q.Set("dsl", in.Metadata.DSL)
	}
	data, err := c.do(ctx, http.MethodPost, "/v1/integrations", q, bytes.NewReader(body), contentTypeJSON)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FetchIntegrationJSON parses source text into an Integration on the backend.
func (c *HTTPClient) FetchIntegrationJSON(ctx context.Context, source, dsl, namespace string) (*schema.Integration, error) {
	q := url.Values{}
	if dsl != "" {
		q.Set("dsl", dsl)
	}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	data, err := c.do(ctx, http.MethodPost, "/v1/integrations/customResource", q, strings.NewReader(source), contentTypeText)
	if err != nil {
		return nil, err
	}
	var in schema.Integration
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, decodeError("/v1/integrations/customResource", err)
	}
	return &in, nil
}

// --- ViewsService ---

func (c *HTTPClient) FetchViews(ctx context.Context, steps []schema.Step, namespace string) ([]schema.View, error) {
	body, err := json.Marshal(steps)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeBackend, "encode steps: %v", err).WithCause(err)
	}
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	data, err := c.do(ctx, http.MethodPost, "/v1/view-definitions", q, bytes.NewReader(body), contentTypeJSON)
	if err != nil {
		return nil, err
	}
	var views []schema.View
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, decodeError("/v1/view-definitions", err)
	}
	return views, nil
}

// --- DeploymentService ---

func (c *HTTPClient) FetchDeployment(ctx context.Context, name, namespace string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, deploymentPath(name), namespaceQuery(namespace), nil, "")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *HTTPClient) FetchDeployments(ctx context.Context, namespace string) ([]Deployment, error) {
	var out []Deployment
	if err := c.getJSON(ctx, "/v1/deployments", namespaceQuery(namespace), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) FetchDeploymentLogs(ctx context.Context, name, namespace string, lines int) (string, error) {
	q := namespaceQuery(namespace)
	if lines > 0 {
		q.Set("lines", strconv.Itoa(lines))
	}
	data, err := c.do(ctx, http.MethodGet, deploymentPath(name)+"/logs", q, nil, "")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *HTTPClient) StartDeployment(ctx context.Context, in *schema.Integration, name, namespace string) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeBackend, "encode integration: %v", err).WithCause(err)
	}
	data, err := c.do(ctx, http.MethodPost, deploymentPath(name), namespaceQuery(namespace), bytes.NewReader(body), contentTypeJSON)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *HTTPClient) StopDeployment(ctx context.Context, name, namespace string) error {
	_, err := c.do(ctx, http.MethodDelete, deploymentPath(name), namespaceQuery(namespace), nil, "")
	return err
}

// --- transport ---

func (c *HTTPClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, q, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return decodeError(path, err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeBackend, "build request: %v", err).WithCause(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", contentTypeJSON+", "+contentTypeText)
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set(requestIDHeader, id)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeBackend, "%s %s: %v", method, path, err).WithCause(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeBackend, "read response: %v", err).WithCause(err)
	}

	logging.LogWith(ctx, c.logger).Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		code := schema.ErrCodeBackend
		if resp.StatusCode == http.StatusNotFound {
			code = schema.ErrCodeNotFound
		}
		return nil, schema.NewErrorf(code, "%s %s returned %d", method, path, resp.StatusCode).
			WithDetails(map[string]any{
				"status_code": resp.StatusCode,
				"body":        truncateBody(data),
			})
	}
	return data, nil
}

func deploymentPath(name string) string {
	return "/v1/deployments/" + name
}

func namespaceQuery(namespace string) url.Values {
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	return q
}

func decodeError(path string, err error) error {
	return schema.NewErrorf(schema.ErrCodeBackend, "decode %s response: %v", path, err).WithCause(err)
}

func truncateBody(data []byte) string {
	const max = 512
	if len(data) <= max {
		return string(data)
	}
	return fmt.Sprintf("%s... (%d bytes)", data[:max], len(data))
}

var (
	_ CatalogService    = (*HTTPClient)(nil)
	_ SourceService     = (*HTTPClient)(nil)
	_ ViewsService      = (*HTTPClient)(nil)
	_ DeploymentService = (*HTTPClient)(nil)
)
