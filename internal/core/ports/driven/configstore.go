package driven

// ConfigStore holds flat, dot-separated settings keys such as
// "ollama.base_url". Implementations own persistence and type conversion.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns "" for missing or non-string values.
	GetString(key string) string

	// GetInt returns 0 for missing or non-integer values.
	GetInt(key string) int

	// Set stores and persists a value.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Keys returns every stored key.
	Keys() []string

	// Path returns where the configuration lives.
	Path() string
}
