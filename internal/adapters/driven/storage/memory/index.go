package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexRepository = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexRepository.
type IndexStore struct {
	mu      sync.RWMutex
	status  *domain.IndexStatus
	vectors map[string][]float32
	hashes  map[string]string
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{
		vectors: make(map[string][]float32),
		hashes:  make(map[string]string),
	}
}

// LoadStatus returns the stored status, or nil if none was saved.
func (s *IndexStore) LoadStatus(_ context.Context) (*domain.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == nil {
		return nil, nil
	}
	status := *s.status
	return &status, nil
}

// SaveStatus replaces the status.
func (s *IndexStore) SaveStatus(_ context.Context, status domain.IndexStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = &status
	return nil
}

// LoadVectors returns a copy of the vectors.
func (s *IndexStore) LoadVectors(_ context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]float32, len(s.vectors))
	for k, v := range s.vectors {
		out[k] = append([]float32(nil), v...)
	}
	return out, nil
}

// SaveVectors replaces the vectors.
func (s *IndexStore) SaveVectors(_ context.Context, vectors map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = make(map[string][]float32, len(vectors))
	for k, v := range vectors {
		s.vectors[k] = append([]float32(nil), v...)
	}
	return nil
}

// LoadHashes returns a copy of the embedding-time text hashes.
func (s *IndexStore) LoadHashes(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes))
	for k, v := range s.hashes {
		out[k] = v
	}
	return out, nil
}

// SaveHashes replaces the hashes.
func (s *IndexStore) SaveHashes(_ context.Context, hashes map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes = make(map[string]string, len(hashes))
	for k, v := range hashes {
		s.hashes[k] = v
	}
	return nil
}
