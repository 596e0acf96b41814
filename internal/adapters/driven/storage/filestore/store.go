// Package filestore persists evidence and the embedding index as JSON
// documents under a single root directory.
package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// Layout of the root directory.
const (
	sourcesFile     = "sources.json"
	sourcesDir      = "sources"
	chunksDir       = "chunks"
	summariesDir    = "chunk_summaries"
	chunkIndexFile  = "chunks_by_source.json"
	indexDir        = "index"
	statusFile      = "index_status.json"
	vectorsFile     = "index_vectors.json"
	hashesFile      = "index_hashes.json"
	dirPermissions  = 0o700
	filePermissions = 0o600
)

// Store is a directory-backed evidence and index repository.
type Store struct {
	root string
	mu   sync.RWMutex
}

// New creates a store rooted at root, creating the directory layout.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("store root is required")
	}
	for _, dir := range []string{root, filepath.Join(root, sourcesDir), filepath.Join(root, chunksDir),
		filepath.Join(root, summariesDir), filepath.Join(root, indexDir)} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// readJSON decodes the document at rel into out. A missing document returns
// an error matching domain.ErrNotFound.
func (s *Store) readJSON(rel string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", rel, domain.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", rel, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", rel, err)
	}
	return nil
}

// writeJSON encodes v and writes it atomically to rel.
func (s *Store) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	return writeAtomic(filepath.Join(s.root, rel), data)
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// checkID rejects IDs that could escape the store layout.
func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("empty id: %w", domain.ErrInvalidInput)
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '_') {
			return fmt.Errorf("invalid id %q: %w", id, domain.ErrInvalidInput)
		}
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
