package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// EvidenceService manages sources and their content-addressed chunks.
type EvidenceService interface {
	// AddSource validates and registers a source. Re-adding an identical
	// descriptor replaces the record under the same ID.
	AddSource(ctx context.Context, input domain.AddSourceInput) (*domain.EvidenceSource, error)

	// ListSources returns all sources ordered by ID.
	ListSources(ctx context.Context) ([]domain.EvidenceSource, error)

	// BuildChunks regenerates chunks for one source, or all when sourceID is empty.
	BuildChunks(ctx context.Context, sourceID string, updatedAt time.Time) (*domain.BuildChunksResult, error)

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.EvidenceChunk, error)

	// GetChunkSummary retrieves a chunk summary by ID.
	GetChunkSummary(ctx context.Context, id string) (*domain.ChunkSummary, error)

	// GetContext returns the chunks within window of the given chunk.
	GetContext(ctx context.Context, chunkID string, window int) (*domain.ContextResponse, error)

	// ListChunks returns summaries ordered by (source_id, ordinal, chunk_id).
	ListChunks(ctx context.Context, sourceID string) ([]domain.ChunkSummary, error)

	// ValidateCitations checks each citation against the stored chunk.
	ValidateCitations(ctx context.Context, citations []domain.Citation) error
}
