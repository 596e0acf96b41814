package driven

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// EvidenceRepository persists sources and chunks.
//
// Implementations are not required to serialise concurrent writers. Lookups
// of missing documents must return an error matching domain.ErrNotFound.
type EvidenceRepository interface {
	// LoadSources returns every source record. A missing document yields none.
	LoadSources(ctx context.Context) ([]domain.SourceRecord, error)

	// SaveSources replaces the source records.
	SaveSources(ctx context.Context, records []domain.SourceRecord) error

	// SavePasteText stores a paste body and returns its path relative to the root.
	SavePasteText(ctx context.Context, sourceID, text string) (string, error)

	// LoadPasteText reads a paste body by its relative path.
	LoadPasteText(ctx context.Context, relPath string) (string, error)

	// LoadChunkIndex returns the source ID to chunk IDs mapping.
	LoadChunkIndex(ctx context.Context) (map[string][]string, error)

	// SaveChunkIndex replaces the source ID to chunk IDs mapping.
	SaveChunkIndex(ctx context.Context, index map[string][]string) error

	// SaveChunk stores a chunk together with its summary.
	SaveChunk(ctx context.Context, chunk domain.EvidenceChunk, summary domain.ChunkSummary) error

	// LoadChunk reads a chunk by ID.
	LoadChunk(ctx context.Context, id string) (*domain.EvidenceChunk, error)

	// LoadChunkSummary reads a chunk summary by ID.
	LoadChunkSummary(ctx context.Context, id string) (*domain.ChunkSummary, error)

	// DeleteChunks removes chunks and their summaries. Missing IDs are ignored.
	DeleteChunks(ctx context.Context, ids []string) error
}
