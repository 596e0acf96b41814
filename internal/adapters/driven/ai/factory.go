// Package ai wires the local Ollama providers behind the loopback network
// policy and a shared request limiter.
package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"

	ollamaembed "github.com/custodia-labs/qir-evidence/internal/adapters/driven/embedding/ollama"
	ollamallm "github.com/custodia-labs/qir-evidence/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Providers holds the embedder and generator built from one settings block.
type Providers struct {
	BaseURL   string
	Embedder  driven.Embedder
	Generator driven.Generator
	Limiter   *RateLimiter
}

// NewProviders validates the base URL and creates both providers sharing a
// single rate limiter.
func NewProviders(settings *domain.OllamaSettings) (*Providers, error) {
	if settings == nil {
		return nil, domain.ErrConfigInvalid.WithDetails("ollama settings are required")
	}
	baseURL, err := ValidateLoopbackBaseURL(settings.BaseURL)
	if err != nil {
		return nil, err
	}

	limiter := NewRateLimiter(settings.RequestsPerSecond, settings.Burst)
	return &Providers{
		BaseURL: baseURL,
		Embedder: ollamaembed.NewEmbedder(ollamaembed.Config{
			BaseURL: baseURL,
			Timeout: settings.EmbedTimeout,
			Limiter: limiter,
		}),
		Generator: ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: baseURL,
			Timeout: settings.GenerateTimeout,
			Limiter: limiter,
		}),
		Limiter: limiter,
	}, nil
}

// HealthCheck calls GET /api/tags within the health timeout. Any failure is
// reported as a retryable AI_OLLAMA_UNHEALTHY.
func HealthCheck(ctx context.Context, settings *domain.OllamaSettings) error {
	if settings == nil {
		return domain.ErrConfigInvalid.WithDetails("ollama settings are required")
	}
	baseURL, err := ValidateLoopbackBaseURL(settings.BaseURL)
	if err != nil {
		return err
	}

	timeout := settings.HealthTimeout
	if timeout <= 0 {
		timeout = domain.DefaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return domain.ErrOllamaUnhealthy.Wrap(fmt.Errorf("create request: %w", err))
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return domain.ErrOllamaUnhealthy.Wrap(err).WithDetailsf("base_url=%s; err=%v", baseURL, err).AsRetryable()
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return domain.ErrOllamaUnhealthy.WithDetailsf("base_url=%s; status=%d", baseURL, resp.StatusCode).AsRetryable()
	}
	return nil
}
