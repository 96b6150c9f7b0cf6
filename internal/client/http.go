package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jcolombo/paymo/internal/idgen"
)

// DefaultBaseURL is the public Paymo API root.
const DefaultBaseURL = "https://app.paymoapp.com/api"

// HTTPClient implements Transport using the Paymo HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "https://app.paymoapp.com/api"). When apiKey is non-empty it is sent
// as the basic-auth user with a dummy password, as the API expects.
func NewHTTPClient(baseURL, apiKey string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client targets.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Do performs req and returns the decoded status and raw body.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	requestID := idgen.RequestID()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", requestID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.SetBasicAuth(c.apiKey, "X")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("path", req.Path),
			zap.Error(err))
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	out := &Response{
		Success:      resp.StatusCode < 400,
		StatusCode:   resp.StatusCode,
		StatusReason: http.StatusText(resp.StatusCode),
		Body:         respBody,
	}
	if !out.Success {
		if msg := errorMessage(respBody); msg != "" {
			out.StatusReason = msg
		}
	}
	return out, nil
}

func (c *HTTPClient) url(req *Request) string {
	q := url.Values{}
	if req.Include != "" {
		q.Set("include", req.Include)
	}
	if req.Where != "" {
		q.Set("where", req.Where)
	}
	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// errorMessage extracts the server's reason from an error body, which the
// API sends as {"message": "..."}; {"error": "..."} is accepted as well.
func errorMessage(body []byte) string {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return strings.TrimSpace(string(body))
}
