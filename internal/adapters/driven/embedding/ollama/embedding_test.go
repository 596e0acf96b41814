package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

type recordingLimiter struct {
	waits    int
	overload time.Duration
	marked   bool
}

func (l *recordingLimiter) Wait(context.Context) error {
	l.waits++
	return nil
}

func (l *recordingLimiter) RecordOverload(d time.Duration) {
	l.marked = true
	l.overload = d
}

func TestNewEmbedder_Defaults(t *testing.T) {
	e := NewEmbedder(Config{})
	assert.Equal(t, DefaultBaseURL, e.baseURL)
	assert.Equal(t, DefaultTimeout, e.client.Timeout)
}

func TestEmbed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		assert.Equal(t, "hello", req.Prompt)

		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{0.25, -0.5, 1}})
	}))
	defer server.Close()

	limiter := &recordingLimiter{}
	e := NewEmbedder(Config{BaseURL: server.URL, Limiter: limiter})

	vec, err := e.Embed(context.Background(), "nomic-embed-text", "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)
	assert.Equal(t, 1, limiter.waits)
}

func TestEmbed_MissingModel(t *testing.T) {
	_, err := NewEmbedder(Config{}).Embed(context.Background(), "", "hello")
	assert.Equal(t, domain.CodeEmbeddingsFailed, domain.CodeOf(err))
}

func TestEmbed_ServerErrorIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewEmbedder(Config{BaseURL: server.URL}).Embed(context.Background(), "missing", "hello")

	require.Error(t, err)
	assert.Equal(t, domain.CodeEmbeddingsFailed, domain.CodeOf(err))
	assert.False(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "status=404")
}

func TestEmbed_OverloadIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := &recordingLimiter{}
	_, err := NewEmbedder(Config{BaseURL: server.URL, Limiter: limiter}).Embed(context.Background(), "m", "hello")

	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.True(t, limiter.marked)
	assert.Equal(t, 3*time.Second, limiter.overload)
}

func TestEmbed_TransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewEmbedder(Config{BaseURL: url}).Embed(context.Background(), "m", "hello")

	require.Error(t, err)
	assert.Equal(t, domain.CodeEmbeddingsFailed, domain.CodeOf(err))
	assert.True(t, domain.IsRetryable(err))
}

func TestEmbed_EmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embedding":[]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(Config{BaseURL: server.URL}).Embed(context.Background(), "m", "hello")

	require.Error(t, err)
	assert.Equal(t, domain.CodeEmbeddingsFailed, domain.CodeOf(err))
}

func TestEmbed_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewEmbedder(Config{BaseURL: server.URL}).Embed(context.Background(), "m", "hello")

	require.Error(t, err)
	assert.False(t, domain.IsRetryable(err))
}
