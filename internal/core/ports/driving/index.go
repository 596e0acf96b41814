package driving

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// IndexService builds and reports on the embedding index.
type IndexService interface {
	// Status returns the current index status. Never fails for a missing index.
	Status(ctx context.Context) (*domain.IndexStatus, error)

	// Build embeds new or changed chunks in scope and persists the index.
	Build(ctx context.Context, input domain.IndexBuildInput) (*domain.IndexStatus, error)
}
