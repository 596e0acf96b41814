package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure DraftStore implements the interface.
var _ driven.DraftStore = (*DraftStore)(nil)

// DraftStore is an in-memory implementation of driven.DraftStore.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]domain.DraftArtifact
}

// NewDraftStore creates a new in-memory draft store.
func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]domain.DraftArtifact)}
}

// Save inserts a draft. Saving an existing ID fails.
func (s *DraftStore) Save(_ context.Context, draft domain.DraftArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.drafts[draft.ID]; exists {
		return domain.ErrDraftStoreFailed.WithDetailsf("draft %s already exists", draft.ID)
	}
	s.drafts[draft.ID] = draft
	return nil
}

// Get retrieves a draft by ID.
func (s *DraftStore) Get(_ context.Context, id string) (*domain.DraftArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[id]
	if !ok {
		return nil, domain.ErrDraftNotFound.WithDetailsf("draft_id=%s", id)
	}
	return &draft, nil
}

// ListByQuarter returns drafts for a quarter, newest first.
func (s *DraftStore) ListByQuarter(_ context.Context, quarterLabel string) ([]domain.DraftArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DraftArtifact
	for _, d := range s.drafts {
		if d.QuarterLabel == quarterLabel {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListChildren returns drafts whose parent is parentID, oldest first.
func (s *DraftStore) ListChildren(_ context.Context, parentID string) ([]domain.DraftArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.DraftArtifact
	for _, d := range s.drafts {
		if d.ParentDraftID == parentID && parentID != "" {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
