package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"

	"github.com/fyrsmithlabs/chunkopt/internal/config"
	chunkhttp "github.com/fyrsmithlabs/chunkopt/internal/http"
	"github.com/fyrsmithlabs/chunkopt/internal/logging"
	"github.com/fyrsmithlabs/chunkopt/internal/optimizer"
)

const goodContent = "The quick brown fox jumps over the lazy dog near a quiet river bank."

// newServer starts a real chunkopt server.
func newServer(t *testing.T, cfg *chunkhttp.Config) *httptest.Server {
	t.Helper()
	engine, err := optimizer.NewEngine()
	require.NoError(t, err)
	srv, err := chunkhttp.NewServer(engine, logging.NewNop(), cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// countingServer answers every chunk request with a fixed response.
func countingServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req v1.AnalyzeChunkRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v1.AnalyzeChunkResponse{Metrics: v1.Metrics{ChunkID: req.ChunkID, OverallScore: 0.5}})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"valid", "http://localhost:8080/", ""},
		{"empty", "  ", "base URL is required"},
		{"no scheme", "localhost:8080", "must start with http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.url)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:8080", c.baseURL)
			assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
			assert.NotNil(t, c.cache)
		})
	}

	t.Run("options", func(t *testing.T) {
		hc := &http.Client{}
		c, err := New("https://example.com", WithHTTPClient(hc), WithTimeout(time.Second), WithAPIKey("k"), WithoutCache())
		require.NoError(t, err)
		assert.Same(t, hc, c.httpClient)
		assert.Equal(t, time.Second, hc.Timeout)
		assert.Equal(t, "k", c.apiKey)
		assert.Nil(t, c.cache)
	})
}

func TestClientAgainstServer(t *testing.T) {
	ts := newServer(t, &chunkhttp.Config{Version: "test"})
	c, err := New(ts.URL)
	require.NoError(t, err)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	chunk, err := c.AnalyzeChunk(ctx, &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: goodContent})
	require.NoError(t, err)
	assert.Equal(t, "c1", chunk.Metrics.ChunkID)
	assert.Equal(t, chunk.Optimizations[0], chunk.Optimization)

	doc, err := c.AnalyzeDocument(ctx, &v1.AnalyzeDocumentRequest{
		DocumentID: "doc-1",
		Chunks:     []v1.Chunk{{ChunkID: "a", Content: goodContent}, {ChunkID: "b", Content: goodContent}},
		Domain:     "operations",
	})
	require.NoError(t, err)
	assert.Equal(t, "operations", doc.Domain)
	assert.Len(t, doc.Items, 2)

	batch, err := c.AnalyzeBatch(ctx, &v1.AnalyzeBatchRequest{Items: []v1.Chunk{{ChunkID: "a", Content: goodContent}}})
	require.NoError(t, err)
	assert.NotEmpty(t, batch.BatchID)
	assert.Equal(t, 1, batch.Processed)

	sim, err := c.Similarity(ctx, goodContent, goodContent)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	profiles, err := c.Profiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 4)
}

func TestAnalyzeBatchKeepsCallerRequest(t *testing.T) {
	var got v1.AnalyzeBatchRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(v1.BatchResponse{BatchID: got.BatchID})
	}))
	defer ts.Close()

	c, err := New(ts.URL)
	require.NoError(t, err)

	req := &v1.AnalyzeBatchRequest{Items: []v1.Chunk{{ChunkID: "a"}}}
	resp, err := c.AnalyzeBatch(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, got.BatchID)
	assert.Equal(t, got.BatchID, resp.BatchID)
	assert.Empty(t, req.BatchID)
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   error
		msg    string
	}{
		{http.StatusUnauthorized, `{"message":"unauthorized"}`, ErrAuthentication, "unauthorized"},
		{http.StatusTooManyRequests, `{"message":"rate limit exceeded"}`, ErrRateLimit, "rate limit exceeded"},
		{http.StatusBadRequest, `{"message":"chunk_id is required"}`, ErrValidation, "chunk_id is required"},
		{http.StatusUnprocessableEntity, `not json`, ErrValidation, "not json"},
		{http.StatusServiceUnavailable, ``, ErrServer, "Service Unavailable"},
		{http.StatusInternalServerError, `{"message":"Internal Server Error"}`, ErrServer, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c, err := New(ts.URL)
			require.NoError(t, err)

			_, err = c.Profiles(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.msg, apiErr.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := New(url)
	require.NoError(t, err)

	_, err = c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestCancelledContextIsNotANetworkError(t *testing.T) {
	ts := newServer(t, nil)
	c, err := New(ts.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.Health(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestAuthentication(t *testing.T) {
	ts := newServer(t, &chunkhttp.Config{APIKey: config.Secret("s3cret")})
	ctx := context.Background()

	anon, err := New(ts.URL)
	require.NoError(t, err)
	_, err = anon.Profiles(ctx)
	assert.ErrorIs(t, err, ErrAuthentication)

	authed, err := New(ts.URL, WithAPIKey("s3cret"))
	require.NoError(t, err)
	_, err = authed.Profiles(ctx)
	assert.NoError(t, err)
}

func TestChunkCache(t *testing.T) {
	var calls atomic.Int32
	ts := countingServer(t, &calls)
	ctx := context.Background()

	c, err := New(ts.URL, WithCache(time.Minute, 10))
	require.NoError(t, err)

	req := &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: "alpha"}
	_, err = c.AnalyzeChunk(ctx, req)
	require.NoError(t, err)
	_, err = c.AnalyzeChunk(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second call served from cache")
	assert.Equal(t, 1, c.cache.size())

	_, err = c.AnalyzeChunk(ctx, &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: "beta"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "changed content bypasses the cache")

	_, err = c.AnalyzeChunk(ctx, &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: "beta", Domain: "medical"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load(), "changed domain bypasses the cache")

	c.ClearCache()
	assert.Equal(t, 0, c.cache.size())
}

func TestChunkCacheExpires(t *testing.T) {
	var calls atomic.Int32
	ts := countingServer(t, &calls)

	c, err := New(ts.URL, WithCache(50*time.Millisecond, 10))
	require.NoError(t, err)

	req := &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: "alpha"}
	_, err = c.AnalyzeChunk(context.Background(), req)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := c.AnalyzeChunk(context.Background(), req)
		return err == nil && calls.Load() == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWithoutCache(t *testing.T) {
	var calls atomic.Int32
	ts := countingServer(t, &calls)

	c, err := New(ts.URL, WithoutCache())
	require.NoError(t, err)

	req := &v1.AnalyzeChunkRequest{ChunkID: "c1", Content: "alpha"}
	for i := 0; i < 3; i++ {
		_, err := c.AnalyzeChunk(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}
