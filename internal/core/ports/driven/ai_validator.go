package driven

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// AIConfigValidator validates provider configuration.
// Implementations enforce the loopback-only network policy and test
// connectivity to the provider.
type AIConfigValidator interface {
	// ValidateBaseURL checks the provider address against the network policy.
	ValidateBaseURL(raw string) error

	// Ping checks the provider is reachable within the health timeout.
	Ping(ctx context.Context, settings *domain.OllamaSettings) error
}
