// Package ollama provides an embedding adapter for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure Embedder implements the interface.
var _ driven.Embedder = (*Embedder)(nil)

// Default configuration values.
const (
	DefaultBaseURL = domain.DefaultOllamaBaseURL
	DefaultTimeout = domain.DefaultEmbedTimeout
)

// maxErrorBody bounds how much of an error response is kept for details.
const maxErrorBody = 512

// Limiter paces outgoing requests.
type Limiter interface {
	Wait(ctx context.Context) error
	RecordOverload(retryAfter time.Duration)
}

// Config holds configuration for the Ollama embedder.
type Config struct {
	// BaseURL is the Ollama API base URL. It must already satisfy the
	// loopback policy.
	BaseURL string

	// Timeout bounds each request (default: 10s).
	Timeout time.Duration

	// Limiter is optional.
	Limiter Limiter
}

// Embedder generates embeddings with POST /api/embeddings.
type Embedder struct {
	client  *http.Client
	baseURL string
	limiter Limiter
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama API response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbedder creates a new Ollama embedder.
func NewEmbedder(cfg Config) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Embedder{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		limiter: cfg.Limiter,
	}
}

// Embed returns the embedding of text under model. Transport failures and
// overload responses are retryable; other failures are not.
func (e *Embedder) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if model == "" {
		return nil, domain.ErrEmbeddingsFailed.WithDetails("embedding model is required")
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, domain.ErrEmbeddingsFailed.Wrap(err).AsRetryable()
		}
	}

	body, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, domain.ErrEmbeddingsFailed.Wrap(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrEmbeddingsFailed.Wrap(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, domain.ErrEmbeddingsFailed.Wrap(fmt.Errorf("send request: %w", err)).AsRetryable()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		coded := domain.ErrEmbeddingsFailed.WithDetailsf("model=%s; status=%d; body=%s", model, resp.StatusCode, detail)
		if overloaded(resp) {
			if e.limiter != nil {
				e.limiter.RecordOverload(retryAfter(resp))
			}
			return nil, coded.AsRetryable()
		}
		return nil, coded
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.ErrEmbeddingsFailed.Wrap(fmt.Errorf("decode response: %w", err))
	}
	if len(out.Embedding) == 0 {
		return nil, domain.ErrEmbeddingsFailed.WithDetailsf("model=%s returned an empty embedding", model)
	}

	embedding := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

func overloaded(resp *http.Response) bool {
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
