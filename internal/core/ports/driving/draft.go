package driving

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// DraftService drafts report sections and manages saved draft artifacts.
type DraftService interface {
	// DraftSection generates a section grounded in the approved chunks.
	DraftSection(ctx context.Context, req domain.DraftRequest) (*domain.DraftResponse, error)

	// SaveDraft persists a draft response, optionally as a revision.
	SaveDraft(ctx context.Context, input domain.SaveDraftInput) (*domain.DraftArtifact, error)

	// GetDraft retrieves a saved draft.
	GetDraft(ctx context.Context, id string) (*domain.DraftArtifact, error)

	// ListDrafts returns saved drafts for a quarter, newest first.
	ListDrafts(ctx context.Context, quarterLabel string) ([]domain.DraftArtifact, error)

	// DraftLineage places a draft within its revision tree.
	DraftLineage(ctx context.Context, id string) (*domain.DraftLineage, error)
}
