package driving

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, filling in defaults.
	Get() (*domain.AppSettings, error)

	// Set stores a single setting by key after validating it.
	Set(key string, value string) error

	// Keys returns every supported setting key in display order.
	Keys() []string

	// Value returns the effective value of a key, defaults included.
	Value(key string) (string, error)

	// Validate checks the current settings, including the network policy.
	Validate() error

	// CheckHealth pings the configured provider.
	CheckHealth(ctx context.Context) error
}
