package domain

import "time"

// Default policy values. All of them can be overridden in the config file.
const (
	DefaultOllamaBaseURL     = "http://127.0.0.1:11434"
	DefaultEmbeddingModel    = "nomic-embed-text"
	DefaultGenerationModel   = "llama3.1:8b"
	DefaultHealthTimeout     = 800 * time.Millisecond
	DefaultEmbedTimeout      = 10 * time.Second
	DefaultGenerateTimeout   = 30 * time.Second
	DefaultRequestsPerSecond = 8
	DefaultRequestBurst      = 4
	DefaultMaxChunkChars     = 1600
	DefaultMaxContextWindow  = 50
	DefaultIndexConcurrency  = 1
	DefaultSnippetChars      = 280
)

// OllamaSettings configures the local embedding and generation provider.
type OllamaSettings struct {
	// BaseURL must be a loopback literal, e.g. http://127.0.0.1:11434.
	BaseURL string

	EmbeddingModel  string
	GenerationModel string

	HealthTimeout   time.Duration
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration

	// RequestsPerSecond and Burst bound provider calls across both services.
	RequestsPerSecond int
	Burst             int
}

// ChunkingSettings configures paragraph packing.
type ChunkingSettings struct {
	MaxChars int
}

// ContextSettings bounds context-window requests.
type ContextSettings struct {
	MaxWindow int
}

// IndexSettings configures index builds.
type IndexSettings struct {
	// Concurrency is the number of embedding calls in flight during a build.
	Concurrency int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir holds the evidence root and the draft database.
	// Empty means the default location under the user's home directory.
	DataDir string

	Ollama   OllamaSettings
	Chunking ChunkingSettings
	Context  ContextSettings
	Index    IndexSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Ollama: OllamaSettings{
			BaseURL:           DefaultOllamaBaseURL,
			EmbeddingModel:    DefaultEmbeddingModel,
			GenerationModel:   DefaultGenerationModel,
			HealthTimeout:     DefaultHealthTimeout,
			EmbedTimeout:      DefaultEmbedTimeout,
			GenerateTimeout:   DefaultGenerateTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultRequestBurst,
		},
		Chunking: ChunkingSettings{MaxChars: DefaultMaxChunkChars},
		Context:  ContextSettings{MaxWindow: DefaultMaxContextWindow},
		Index:    IndexSettings{Concurrency: DefaultIndexConcurrency},
	}
}
