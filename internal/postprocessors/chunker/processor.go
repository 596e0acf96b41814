// Package chunker turns evidence source content into ordered chunk drafts.
package chunker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
)

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// DefaultMaxChars is the default character budget of a packed paragraph chunk.
const DefaultMaxChars = domain.DefaultMaxChunkChars

// paragraphSeparator separates paragraphs both when splitting and joining.
const paragraphSeparator = "\n\n"

// textExtensions are the files read when a directory origin holds prose.
var textExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Chunker splits prose into paragraph-packed chunks and sanitized exports
// into one chunk per incident.
type Chunker struct {
	maxChars int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the character budget of a packed chunk.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the chunker name.
func (c *Chunker) Name() string {
	return "chunker"
}

// MaxChars returns the configured character budget.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Paragraphs packs the paragraphs of text greedily into chunks of at most
// MaxChars characters. A single paragraph longer than the budget becomes a
// chunk of its own. Text without paragraph breaks is one paragraph.
func (c *Chunker) Paragraphs(text string) []domain.ChunkDraft {
	var paragraphs []string
	for _, p := range strings.Split(text, paragraphSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			paragraphs = []string{trimmed}
		}
	}

	var drafts []domain.ChunkDraft
	var buf []string
	size := 0

	flush := func() {
		joined := strings.Join(buf, paragraphSeparator)
		if strings.TrimSpace(joined) != "" {
			drafts = append(drafts, domain.ChunkDraft{
				Text: joined,
				Meta: domain.ChunkMeta{Kind: domain.ChunkKindParagraph},
			})
		}
		buf = buf[:0]
		size = 0
	}

	for _, p := range paragraphs {
		cost := len(p)
		if len(buf) > 0 {
			cost += len(paragraphSeparator)
		}
		if len(buf) > 0 && size+cost > c.maxChars {
			flush()
			cost = len(p)
		}
		buf = append(buf, p)
		size += cost
	}
	if len(buf) > 0 {
		flush()
	}
	return drafts
}

// ReadText loads the text behind a file or directory origin. A directory
// contributes its .md and .txt files in name order, joined as paragraphs.
func (c *Chunker) ReadText(ctx context.Context, origin domain.EvidenceOrigin) (string, error) {
	if origin.Path == nil || strings.TrimSpace(*origin.Path) == "" {
		return "", domain.ErrSourceInvalid.WithDetails("origin path is required")
	}
	path := *origin.Path

	info, err := os.Stat(path)
	if err != nil {
		return "", sourceError(path, err)
	}

	switch origin.Kind {
	case domain.OriginKindFile:
		if info.IsDir() {
			return "", sourceError(path, errors.New("expected a file, found a directory"))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", sourceError(path, err)
		}
		return string(data), nil
	case domain.OriginKindDirectory:
		if !info.IsDir() {
			return "", sourceError(path, errors.New("not a directory"))
		}
		return readTextDir(ctx, path)
	default:
		return "", domain.ErrSourceInvalid.WithDetailsf("origin kind %q has no readable path", origin.Kind)
	}
}

func readTextDir(ctx context.Context, dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", sourceError(dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", sourceError(path, err)
		}
		parts = append(parts, strings.TrimSpace(string(data)))
	}
	if len(parts) == 0 {
		return "", sourceError(dir, fmt.Errorf("no .md or .txt files: %w", fs.ErrNotExist))
	}
	return strings.Join(parts, paragraphSeparator), nil
}

// sourceError reports an unreadable evidence source.
func sourceError(path string, err error) error {
	return domain.ErrSourceInvalid.WithDetailsf("path=%s; err=%v", path, err)
}
