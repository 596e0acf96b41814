package driven

import (
	"context"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// Chunker splits source content into ordered chunk drafts.
type Chunker interface {
	// ReadText loads the raw text behind a file or directory origin.
	ReadText(ctx context.Context, origin domain.EvidenceOrigin) (string, error)

	// Paragraphs packs the paragraphs of text into chunks.
	Paragraphs(text string) []domain.ChunkDraft

	// SanitizedExport formats one chunk per incident from the export in dir.
	SanitizedExport(ctx context.Context, dir string) ([]domain.ChunkDraft, error)
}
