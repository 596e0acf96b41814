// Package ollama provides a text generation adapter for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure Generator implements the interface.
var _ driven.Generator = (*Generator)(nil)

// Default configuration values.
const (
	DefaultBaseURL = domain.DefaultOllamaBaseURL
	DefaultTimeout = domain.DefaultGenerateTimeout
)

const maxErrorBody = 512

// Limiter paces outgoing requests.
type Limiter interface {
	Wait(ctx context.Context) error
	RecordOverload(retryAfter time.Duration)
}

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API base URL. It must already satisfy the
	// loopback policy.
	BaseURL string

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration

	// Limiter is optional.
	Limiter Limiter
}

// Generator produces text with non-streaming POST /api/generate.
type Generator struct {
	client  *http.Client
	baseURL string
	limiter Limiter
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewGenerator creates a new Ollama generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Generator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		limiter: cfg.Limiter,
	}
}

// Generate returns the completion for prompt under model.
func (g *Generator) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		return "", domain.ErrDraftFailed.WithDetails("generation model is required")
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", domain.ErrDraftFailed.Wrap(err).AsRetryable()
		}
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", domain.ErrDraftFailed.Wrap(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", domain.ErrDraftFailed.Wrap(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", domain.ErrDraftFailed.Wrap(fmt.Errorf("send request: %w", err)).AsRetryable()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		coded := domain.ErrDraftFailed.WithDetailsf("model=%s; status=%d; body=%s", model, resp.StatusCode, detail)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			if g.limiter != nil {
				secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
				g.limiter.RecordOverload(time.Duration(secs) * time.Second)
			}
			return "", coded.AsRetryable()
		}
		return "", coded
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.ErrDraftFailed.Wrap(fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", domain.ErrDraftFailed.WithDetailsf("model=%s returned an empty response", model)
	}
	return out.Response, nil
}
