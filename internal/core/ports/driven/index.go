package driven

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// IndexRepository persists the embedding index.
//
// Callers write vectors, then hashes, then status. Each write must be atomic
// so a crash never leaves a ready status pointing at stale data.
type IndexRepository interface {
	// LoadStatus returns the persisted status, or nil if none exists.
	LoadStatus(ctx context.Context) (*domain.IndexStatus, error)
	SaveStatus(ctx context.Context, status domain.IndexStatus) error

	// LoadVectors returns chunk ID to vector. A missing document yields an empty map.
	LoadVectors(ctx context.Context) (map[string][]float32, error)
	SaveVectors(ctx context.Context, vectors map[string][]float32) error

	// LoadHashes returns chunk ID to the text hash at last embedding time.
	LoadHashes(ctx context.Context) (map[string]string, error)
	SaveHashes(ctx context.Context, hashes map[string]string) error
}
