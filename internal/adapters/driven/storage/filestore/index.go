package filestore

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure Store implements the index repository.
var _ driven.IndexRepository = (*Store)(nil)

// LoadStatus returns the persisted status, or nil if none exists.
func (s *Store) LoadStatus(ctx context.Context) (*domain.IndexStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status domain.IndexStatus
	if err := s.readJSON(filepath.Join(indexDir, statusFile), &status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// SaveStatus replaces the index status.
func (s *Store) SaveStatus(ctx context.Context, status domain.IndexStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(filepath.Join(indexDir, statusFile), status)
}

// LoadVectors returns chunk ID to vector.
func (s *Store) LoadVectors(ctx context.Context) (map[string][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	vectors := map[string][]float32{}
	if err := s.readJSON(filepath.Join(indexDir, vectorsFile), &vectors); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string][]float32{}, nil
		}
		return nil, err
	}
	return vectors, nil
}

// SaveVectors replaces the vector document.
func (s *Store) SaveVectors(ctx context.Context, vectors map[string][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if vectors == nil {
		vectors = map[string][]float32{}
	}
	return s.writeJSON(filepath.Join(indexDir, vectorsFile), vectors)
}

// LoadHashes returns chunk ID to text hash at last embedding time.
func (s *Store) LoadHashes(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := map[string]string{}
	if err := s.readJSON(filepath.Join(indexDir, hashesFile), &hashes); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return hashes, nil
}

// SaveHashes replaces the hash document.
func (s *Store) SaveHashes(ctx context.Context, hashes map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if hashes == nil {
		hashes = map[string]string{}
	}
	return s.writeJSON(filepath.Join(indexDir, hashesFile), hashes)
}
