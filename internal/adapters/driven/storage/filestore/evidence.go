package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure Store implements the evidence repository.
var _ driven.EvidenceRepository = (*Store)(nil)

// LoadSources returns every source record.
func (s *Store) LoadSources(ctx context.Context) ([]domain.SourceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []domain.SourceRecord
	if err := s.readJSON(sourcesFile, &records); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.SourceRecord{}, nil
		}
		return nil, err
	}
	return records, nil
}

// SaveSources replaces the source records.
func (s *Store) SaveSources(ctx context.Context, records []domain.SourceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if records == nil {
		records = []domain.SourceRecord{}
	}
	return s.writeJSON(sourcesFile, records)
}

// SavePasteText stores a paste body as sources/<id>.txt.
func (s *Store) SavePasteText(ctx context.Context, sourceID, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := checkID(sourceID); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rel := filepath.ToSlash(filepath.Join(sourcesDir, sourceID+".txt"))
	if err := writeAtomic(filepath.Join(s.root, rel), []byte(text)); err != nil {
		return "", err
	}
	return rel, nil
}

// LoadPasteText reads a paste body. The path must stay inside the sources directory.
func (s *Store) LoadPasteText(ctx context.Context, relPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(clean) || filepath.Dir(clean) != sourcesDir {
		return "", fmt.Errorf("paste path %q: %w", relPath, domain.ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", relPath, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", relPath, err)
	}
	return string(data), nil
}

// LoadChunkIndex returns the source ID to chunk IDs mapping.
func (s *Store) LoadChunkIndex(ctx context.Context) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := map[string][]string{}
	if err := s.readJSON(chunkIndexFile, &index); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return map[string][]string{}, nil
		}
		return nil, err
	}
	return index, nil
}

// SaveChunkIndex replaces the source ID to chunk IDs mapping.
func (s *Store) SaveChunkIndex(ctx context.Context, index map[string][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if index == nil {
		index = map[string][]string{}
	}
	return s.writeJSON(chunkIndexFile, index)
}

// SaveChunk stores chunks/<id>.json and chunk_summaries/<id>.json.
func (s *Store) SaveChunk(ctx context.Context, chunk domain.EvidenceChunk, summary domain.ChunkSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkID(chunk.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(chunkPath(chunk.ID), chunk); err != nil {
		return err
	}
	return s.writeJSON(summaryPath(chunk.ID), summary)
}

// LoadChunk reads a chunk by ID.
func (s *Store) LoadChunk(ctx context.Context, id string) (*domain.EvidenceChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("chunk %q: %w", id, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunk domain.EvidenceChunk
	if err := s.readJSON(chunkPath(id), &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// LoadChunkSummary reads a chunk summary by ID.
func (s *Store) LoadChunkSummary(ctx context.Context, id string) (*domain.ChunkSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("chunk %q: %w", id, domain.ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.ChunkSummary
	if err := s.readJSON(summaryPath(id), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// DeleteChunks removes chunks and their summaries. Missing IDs are ignored.
func (s *Store) DeleteChunks(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []string
	for _, id := range ids {
		if checkID(id) != nil {
			continue
		}
		for _, rel := range []string{chunkPath(id), summaryPath(id)} {
			if err := removeIfExists(filepath.Join(s.root, rel)); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("delete chunks: %s", strings.Join(errs, "; "))
	}
	return nil
}

func chunkPath(id string) string {
	return filepath.Join(chunksDir, id+".json")
}

func summaryPath(id string) string {
	return filepath.Join(summariesDir, id+".json")
}
