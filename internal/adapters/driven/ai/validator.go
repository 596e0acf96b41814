package ai

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates provider settings.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateBaseURL applies the loopback policy.
func (v *ConfigValidator) ValidateBaseURL(raw string) error {
	_, err := ValidateLoopbackBaseURL(raw)
	return err
}

// Ping checks the provider is reachable.
func (v *ConfigValidator) Ping(ctx context.Context, settings *domain.OllamaSettings) error {
	return HealthCheck(ctx, settings)
}
