package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyDataDir            = "data_dir"
	KeyOllamaBaseURL      = "ollama.base_url"
	KeyEmbeddingModel     = "ollama.embedding_model"
	KeyGenerationModel    = "ollama.generation_model"
	KeyHealthTimeoutMS    = "ollama.health_timeout_ms"
	KeyEmbedTimeoutMS     = "ollama.embed_timeout_ms"
	KeyGenerateTimeoutMS  = "ollama.generate_timeout_ms"
	KeyRequestsPerSecond  = "ollama.requests_per_second"
	KeyRequestBurst       = "ollama.burst"
	KeyChunkMaxChars      = "chunking.max_chars"
	KeyContextMaxWindow   = "context.max_window"
	KeyIndexConcurrency   = "index.concurrency"
	settingsDurationScale = time.Millisecond
)

// settingKeys lists every supported key in display order.
var settingKeys = []string{
	KeyDataDir,
	KeyOllamaBaseURL,
	KeyEmbeddingModel,
	KeyGenerationModel,
	KeyHealthTimeoutMS,
	KeyEmbedTimeoutMS,
	KeyGenerateTimeoutMS,
	KeyRequestsPerSecond,
	KeyRequestBurst,
	KeyChunkMaxChars,
	KeyContextMaxWindow,
	KeyIndexConcurrency,
}

// intKeys are the settings stored as positive integers.
var intKeys = map[string]bool{
	KeyHealthTimeoutMS:   true,
	KeyEmbedTimeoutMS:    true,
	KeyGenerateTimeoutMS: true,
	KeyRequestsPerSecond: true,
	KeyRequestBurst:      true,
	KeyChunkMaxChars:     true,
	KeyContextMaxWindow:  true,
	KeyIndexConcurrency:  true,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, filling in defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	if s.configStore == nil {
		return nil, domain.ErrNotImplemented
	}
	defaults := domain.DefaultAppSettings()

	return &domain.AppSettings{
		DataDir: s.configStore.GetString(KeyDataDir),
		Ollama: domain.OllamaSettings{
			BaseURL:           s.getString(KeyOllamaBaseURL, defaults.Ollama.BaseURL),
			EmbeddingModel:    s.getString(KeyEmbeddingModel, defaults.Ollama.EmbeddingModel),
			GenerationModel:   s.getString(KeyGenerationModel, defaults.Ollama.GenerationModel),
			HealthTimeout:     s.getDuration(KeyHealthTimeoutMS, defaults.Ollama.HealthTimeout),
			EmbedTimeout:      s.getDuration(KeyEmbedTimeoutMS, defaults.Ollama.EmbedTimeout),
			GenerateTimeout:   s.getDuration(KeyGenerateTimeoutMS, defaults.Ollama.GenerateTimeout),
			RequestsPerSecond: s.getInt(KeyRequestsPerSecond, defaults.Ollama.RequestsPerSecond),
			Burst:             s.getInt(KeyRequestBurst, defaults.Ollama.Burst),
		},
		Chunking: domain.ChunkingSettings{
			MaxChars: s.getInt(KeyChunkMaxChars, defaults.Chunking.MaxChars),
		},
		Context: domain.ContextSettings{
			MaxWindow: s.getInt(KeyContextMaxWindow, defaults.Context.MaxWindow),
		},
		Index: domain.IndexSettings{
			Concurrency: s.getInt(KeyIndexConcurrency, defaults.Index.Concurrency),
		},
	}, nil
}

// Set validates and stores a single setting.
func (s *SettingsService) Set(key, value string) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	value = strings.TrimSpace(value)

	known := false
	for _, k := range settingKeys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return domain.ErrConfigInvalid.WithDetailsf("unknown setting %q", key)
	}

	if intKeys[key] {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return domain.ErrConfigInvalid.WithDetailsf("%s must be a positive integer, got %q", key, value)
		}
		if err := s.configStore.Set(key, n); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}

	if key == KeyOllamaBaseURL && s.aiValidator != nil {
		if err := s.aiValidator.ValidateBaseURL(value); err != nil {
			return err
		}
	}
	if value == "" && key != KeyDataDir {
		return domain.ErrConfigInvalid.WithDetailsf("%s must not be empty", key)
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every supported setting key in display order.
func (s *SettingsService) Keys() []string {
	out := make([]string, len(settingKeys))
	copy(out, settingKeys)
	return out
}

// Value returns the effective value of a key, defaults included.
func (s *SettingsService) Value(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}
	ms := func(d time.Duration) string { return strconv.FormatInt(int64(d/settingsDurationScale), 10) }

	switch key {
	case KeyDataDir:
		return settings.DataDir, nil
	case KeyOllamaBaseURL:
		return settings.Ollama.BaseURL, nil
	case KeyEmbeddingModel:
		return settings.Ollama.EmbeddingModel, nil
	case KeyGenerationModel:
		return settings.Ollama.GenerationModel, nil
	case KeyHealthTimeoutMS:
		return ms(settings.Ollama.HealthTimeout), nil
	case KeyEmbedTimeoutMS:
		return ms(settings.Ollama.EmbedTimeout), nil
	case KeyGenerateTimeoutMS:
		return ms(settings.Ollama.GenerateTimeout), nil
	case KeyRequestsPerSecond:
		return strconv.Itoa(settings.Ollama.RequestsPerSecond), nil
	case KeyRequestBurst:
		return strconv.Itoa(settings.Ollama.Burst), nil
	case KeyChunkMaxChars:
		return strconv.Itoa(settings.Chunking.MaxChars), nil
	case KeyContextMaxWindow:
		return strconv.Itoa(settings.Context.MaxWindow), nil
	case KeyIndexConcurrency:
		return strconv.Itoa(settings.Index.Concurrency), nil
	default:
		return "", domain.ErrConfigInvalid.WithDetailsf("unknown setting %q", key)
	}
}

// Validate checks the current settings, including the network policy.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if s.aiValidator != nil {
		if err := s.aiValidator.ValidateBaseURL(settings.Ollama.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

// CheckHealth pings the configured provider within the health timeout.
func (s *SettingsService) CheckHealth(ctx context.Context) error {
	if s.aiValidator == nil {
		return domain.ErrNotImplemented
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.Ping(ctx, &settings.Ollama)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * settingsDurationScale
}
