package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure EvidenceStore implements the interface.
var _ driven.EvidenceRepository = (*EvidenceStore)(nil)

// EvidenceStore is an in-memory implementation of driven.EvidenceRepository.
type EvidenceStore struct {
	mu        sync.RWMutex
	sources   []domain.SourceRecord
	pastes    map[string]string
	index     map[string][]string
	chunks    map[string]domain.EvidenceChunk
	summaries map[string]domain.ChunkSummary
	saves     int
}

// NewEvidenceStore creates a new in-memory evidence store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{
		pastes:    make(map[string]string),
		index:     make(map[string][]string),
		chunks:    make(map[string]domain.EvidenceChunk),
		summaries: make(map[string]domain.ChunkSummary),
	}
}

// LoadSources returns a copy of the source records.
func (s *EvidenceStore) LoadSources(_ context.Context) ([]domain.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SourceRecord, len(s.sources))
	copy(out, s.sources)
	return out, nil
}

// SaveSources replaces the source records.
func (s *EvidenceStore) SaveSources(_ context.Context, records []domain.SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = make([]domain.SourceRecord, len(records))
	copy(s.sources, records)
	return nil
}

// SavePasteText stores a paste body.
func (s *EvidenceStore) SavePasteText(_ context.Context, sourceID, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel := "sources/" + sourceID + ".txt"
	s.pastes[rel] = text
	return rel, nil
}

// LoadPasteText reads a paste body.
func (s *EvidenceStore) LoadPasteText(_ context.Context, relPath string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.pastes[relPath]
	if !ok {
		return "", fmt.Errorf("%s: %w", relPath, domain.ErrNotFound)
	}
	return text, nil
}

// LoadChunkIndex returns a copy of the source to chunk IDs mapping.
func (s *EvidenceStore) LoadChunkIndex(_ context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.index))
	for k, v := range s.index {
		out[k] = append([]string(nil), v...)
	}
	return out, nil
}

// SaveChunkIndex replaces the source to chunk IDs mapping.
func (s *EvidenceStore) SaveChunkIndex(_ context.Context, index map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = make(map[string][]string, len(index))
	for k, v := range index {
		s.index[k] = append([]string(nil), v...)
	}
	return nil
}

// SaveChunk stores a chunk and its summary.
func (s *EvidenceStore) SaveChunk(_ context.Context, chunk domain.EvidenceChunk, summary domain.ChunkSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
	s.summaries[chunk.ID] = summary
	s.saves++
	return nil
}

// LoadChunk retrieves a chunk by ID.
func (s *EvidenceStore) LoadChunk(_ context.Context, id string) (*domain.EvidenceChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return &chunk, nil
}

// LoadChunkSummary retrieves a chunk summary by ID.
func (s *EvidenceStore) LoadChunkSummary(_ context.Context, id string) (*domain.ChunkSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	return &summary, nil
}

// DeleteChunks removes chunks and summaries. Missing IDs are ignored.
func (s *EvidenceStore) DeleteChunks(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.chunks, id)
		delete(s.summaries, id)
	}
	return nil
}

// ChunkCount returns the number of stored chunks.
func (s *EvidenceStore) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// SaveCount returns how many chunk writes have happened.
func (s *EvidenceStore) SaveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
