package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"
)

// DefaultTimeout bounds every request unless WithTimeout or WithHTTPClient
// is used.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to a chunkopt server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *responseCache
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the timeout of the HTTP client in use.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCache configures the chunk response cache. Zero values select
// DefaultCacheTTL and DefaultCacheSize.
func WithCache(ttl time.Duration, size int) Option {
	return func(c *Client) {
		c.cache = newResponseCache(ttl, size)
	}
}

// WithoutCache disables the chunk response cache.
func WithoutCache() Option {
	return func(c *Client) {
		c.cache = nil
	}
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080". The chunk response cache is enabled by default.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("base URL must start with http:// or https://, got %q", baseURL)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		cache:      newResponseCache(DefaultCacheTTL, DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AnalyzeChunk scores one chunk. Responses are served from the cache while
// fresh and the request content, domain and options are unchanged.
func (c *Client) AnalyzeChunk(ctx context.Context, req *v1.AnalyzeChunkRequest) (*v1.AnalyzeChunkResponse, error) {
	if resp, ok := c.cache.get(req); ok {
		return &resp, nil
	}

	var resp v1.AnalyzeChunkResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/chunks/analyze", req, &resp); err != nil {
		return nil, err
	}
	c.cache.add(req, resp)
	return &resp, nil
}

// AnalyzeDocument scores every chunk of a document. Results are never cached.
func (c *Client) AnalyzeDocument(ctx context.Context, req *v1.AnalyzeDocumentRequest) (*v1.DocumentResponse, error) {
	var resp v1.DocumentResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AnalyzeBatch scores a set of chunks. An empty BatchID is replaced by a
// generated one before sending.
func (c *Client) AnalyzeBatch(ctx context.Context, req *v1.AnalyzeBatchRequest) (*v1.BatchResponse, error) {
	if req.BatchID == "" {
		r := *req
		r.BatchID = uuid.NewString()
		req = &r
	}

	var resp v1.BatchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/batch/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Similarity returns the lexical similarity of a and b.
func (c *Client) Similarity(ctx context.Context, a, b string) (float64, error) {
	var resp v1.SimilarityResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/similarity", v1.SimilarityRequest{A: a, B: b}, &resp); err != nil {
		return 0, err
	}
	return resp.Similarity, nil
}

// Profiles lists the server's domain profiles.
func (c *Client) Profiles(ctx context.Context) ([]v1.Profile, error) {
	var resp v1.ProfilesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/profiles", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Profiles, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (*v1.HealthResponse, error) {
	var resp v1.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.purge()
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Cancellation by the caller is not a network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &APIError{Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: ErrServer, StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	return nil
}

func errorFromResponse(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil && !errors.Is(err, io.EOF) {
		return &APIError{Kind: ErrNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	msg := strings.TrimSpace(string(raw))
	var body v1.ErrorResponse
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{Kind: kindFor(resp.StatusCode), StatusCode: resp.StatusCode, Message: msg}
}
