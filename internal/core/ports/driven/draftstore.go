package driven

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// DraftStore persists draft artifacts and their revision links.
type DraftStore interface {
	// Save inserts a new draft artifact.
	Save(ctx context.Context, draft domain.DraftArtifact) error

	// Get retrieves a draft by ID. Returns domain.ErrDraftNotFound if missing.
	Get(ctx context.Context, id string) (*domain.DraftArtifact, error)

	// ListByQuarter returns drafts for a quarter, newest first.
	ListByQuarter(ctx context.Context, quarterLabel string) ([]domain.DraftArtifact, error)

	// ListChildren returns drafts whose parent is parentID, oldest first.
	ListChildren(ctx context.Context, parentID string) ([]domain.DraftArtifact, error)
}
