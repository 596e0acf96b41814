package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driven"
	"github.com/custodia-labs/qir-evidence/internal/core/ports/driving"
	"github.com/custodia-labs/qir-evidence/internal/logger"
)

// Ensure EvidenceService implements the interface.
var _ driving.EvidenceService = (*EvidenceService)(nil)

// EvidenceService owns sources and their content-addressed chunks.
//
// Mutating calls are not serialised; one writer per evidence root.
type EvidenceService struct {
	repo         driven.EvidenceRepository
	chunker      driven.Chunker
	maxWindow    int
	snippetChars int
}

// NewEvidenceService creates a new evidence service.
func NewEvidenceService(repo driven.EvidenceRepository, chunker driven.Chunker) *EvidenceService {
	return &EvidenceService{
		repo:         repo,
		chunker:      chunker,
		maxWindow:    domain.DefaultMaxContextWindow,
		snippetChars: domain.DefaultSnippetChars,
	}
}

// SetMaxContextWindow bounds the window accepted by GetContext.
func (s *EvidenceService) SetMaxContextWindow(n int) {
	if n > 0 {
		s.maxWindow = n
	}
}

// AddSource validates and registers a source.
func (s *EvidenceService) AddSource(
	ctx context.Context, input domain.AddSourceInput,
) (*domain.EvidenceSource, error) {
	if s.repo == nil {
		return nil, domain.ErrNotImplemented
	}

	origin, err := validateSourceInput(input)
	if err != nil {
		return nil, err
	}

	id, err := ComputeSourceID(input.Type, origin)
	if err != nil {
		return nil, domain.ErrStoreFailed.Wrap(err)
	}

	records, err := s.repo.LoadSources(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	source := domain.EvidenceSource{
		ID:        id,
		Type:      input.Type,
		Origin:    origin,
		Label:     strings.TrimSpace(input.Label),
		CreatedAt: input.CreatedAt,
	}
	record := domain.SourceRecord{Source: source}

	if origin.Kind == domain.OriginKindPaste {
		rel, err := s.repo.SavePasteText(ctx, id, NormalizeText(input.Text))
		if err != nil {
			return nil, storeError(err)
		}
		record.ContentRelPath = rel
	}

	replaced := false
	for i := range records {
		if records[i].Source.ID == id {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	sortSourceRecords(records)

	if err := s.repo.SaveSources(ctx, records); err != nil {
		return nil, storeError(err)
	}

	logger.Debug("Added source %s (%s, %s, replaced=%t)", id, source.Type, origin.Kind, replaced)
	return &source, nil
}

// ListSources returns all sources ordered by ID.
func (s *EvidenceService) ListSources(ctx context.Context) ([]domain.EvidenceSource, error) {
	if s.repo == nil {
		return nil, domain.ErrNotImplemented
	}
	records, err := s.repo.LoadSources(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	sortSourceRecords(records)

	sources := make([]domain.EvidenceSource, 0, len(records))
	for _, r := range records {
		sources = append(sources, r.Source)
	}
	return sources, nil
}

// builtSource holds a freshly generated chunk set before it is persisted.
type builtSource struct {
	sourceID string
	chunks   []domain.EvidenceChunk
}

// BuildChunks regenerates the chunks of one source, or all sources when
// sourceID is empty. Every chunk set is generated before anything is
// written, so a failing source leaves the store untouched.
func (s *EvidenceService) BuildChunks(
	ctx context.Context, sourceID string, updatedAt time.Time,
) (*domain.BuildChunksResult, error) {
	if s.repo == nil || s.chunker == nil {
		return nil, domain.ErrNotImplemented
	}
	logger.Section("Chunk Build")

	records, err := s.repo.LoadSources(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if len(records) == 0 {
		return nil, domain.ErrEvidenceEmpty.WithDetails("add a source before building chunks")
	}
	sortSourceRecords(records)

	selected := records
	if sourceID != "" {
		selected = nil
		for _, r := range records {
			if r.Source.ID == sourceID {
				selected = append(selected, r)
				break
			}
		}
		if len(selected) == 0 {
			return nil, domain.ErrEvidenceNotFound.WithDetailsf("source_id=%s", sourceID)
		}
	}

	built := make([]builtSource, 0, len(selected))
	for _, record := range selected {
		drafts, err := s.draftsFor(ctx, record)
		if err != nil {
			return nil, err
		}
		chunks, err := materializeChunks(record.Source.ID, drafts)
		if err != nil {
			return nil, err
		}
		logger.Debug("Source %s: %d chunks", record.Source.ID, len(chunks))
		built = append(built, builtSource{sourceID: record.Source.ID, chunks: chunks})
	}

	index, err := s.repo.LoadChunkIndex(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	total := 0
	for _, b := range built {
		if err := s.repo.DeleteChunks(ctx, index[b.sourceID]); err != nil {
			return nil, storeError(err)
		}

		ids := make([]string, 0, len(b.chunks))
		for i := range b.chunks {
			chunk := b.chunks[i]
			summary := chunk.Summary(Snippet(chunk.Text, s.snippetChars))
			if err := s.repo.SaveChunk(ctx, chunk, summary); err != nil {
				return nil, storeError(err)
			}
			ids = append(ids, chunk.ID)
		}
		index[b.sourceID] = ids
		total += len(ids)
	}

	if err := s.repo.SaveChunkIndex(ctx, index); err != nil {
		return nil, storeError(err)
	}

	logger.Debug("Built %d chunks across %d sources", total, len(built))
	return &domain.BuildChunksResult{
		SourceCount: len(built),
		ChunkCount:  total,
		UpdatedAt:   updatedAt,
	}, nil
}

// draftsFor runs the chunking strategy selected by the source type.
func (s *EvidenceService) draftsFor(ctx context.Context, record domain.SourceRecord) ([]domain.ChunkDraft, error) {
	src := record.Source

	if !src.Type.UsesParagraphPacking() {
		if src.Origin.Kind != domain.OriginKindDirectory || src.Origin.Path == nil {
			return nil, domain.ErrSourceInvalid.WithDetailsf(
				"source_id=%s: sanitized exports require a directory origin", src.ID)
		}
		drafts, err := s.chunker.SanitizedExport(ctx, *src.Origin.Path)
		if err != nil {
			return nil, chunkerError(err, src.ID)
		}
		return drafts, nil
	}

	var text string
	switch src.Origin.Kind {
	case domain.OriginKindPaste:
		if record.ContentRelPath == "" {
			return nil, domain.ErrStoreFailed.WithDetailsf("source_id=%s: paste body missing", src.ID)
		}
		t, err := s.repo.LoadPasteText(ctx, record.ContentRelPath)
		if err != nil {
			return nil, storeError(err)
		}
		text = t
	default:
		t, err := s.chunker.ReadText(ctx, src.Origin)
		if err != nil {
			return nil, chunkerError(err, src.ID)
		}
		text = t
	}

	return s.chunker.Paragraphs(NormalizeText(text)), nil
}

// materializeChunks assigns ordinals and content-addressed IDs to drafts.
func materializeChunks(sourceID string, drafts []domain.ChunkDraft) ([]domain.EvidenceChunk, error) {
	chunks := make([]domain.EvidenceChunk, 0, len(drafts))
	for ordinal, d := range drafts {
		text := NormalizeText(d.Text)
		textSHA := TextSHA256(text)
		id, err := ComputeChunkID(sourceID, ordinal, textSHA, d.Meta)
		if err != nil {
			return nil, domain.ErrStoreFailed.Wrap(err)
		}
		chunks = append(chunks, domain.EvidenceChunk{
			ID:            id,
			SourceID:      sourceID,
			Ordinal:       ordinal,
			Text:          text,
			TextSHA256:    textSHA,
			TokenCountEst: len(text),
			Meta:          d.Meta,
		})
	}
	return chunks, nil
}

// GetChunk retrieves a chunk by ID.
func (s *EvidenceService) GetChunk(ctx context.Context, id string) (*domain.EvidenceChunk, error) {
	if s.repo == nil {
		return nil, domain.ErrNotImplemented
	}
	chunk, err := s.repo.LoadChunk(ctx, id)
	if err != nil {
		return nil, lookupError(err, "chunk_id", id)
	}
	return chunk, nil
}

// GetChunkSummary retrieves a chunk summary by ID.
func (s *EvidenceService) GetChunkSummary(ctx context.Context, id string) (*domain.ChunkSummary, error) {
	if s.repo == nil {
		return nil, domain.ErrNotImplemented
	}
	summary, err := s.repo.LoadChunkSummary(ctx, id)
	if err != nil {
		return nil, lookupError(err, "chunk_id", id)
	}
	return summary, nil
}

// GetContext returns the center chunk plus up to window neighbours on each
// side within the same source, ordered by ordinal.
func (s *EvidenceService) GetContext(
	ctx context.Context, chunkID string, window int,
) (*domain.ContextResponse, error) {
	if window < 0 || window > s.maxWindow {
		return nil, domain.ErrContextInvalid.WithDetailsf("window=%d (max %d)", window, s.maxWindow)
	}

	center, err := s.GetChunkSummary(ctx, chunkID)
	if err != nil {
		return nil, err
	}

	siblings, err := s.ListChunks(ctx, center.SourceID)
	if err != nil {
		return nil, err
	}

	pos := -1
	for i := range siblings {
		if siblings[i].ChunkID == chunkID {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, domain.ErrStoreFailed.WithDetailsf(
			"chunk_id=%s missing from chunk index of source %s", chunkID, center.SourceID)
	}

	lo := max(0, pos-window)
	hi := min(len(siblings), pos+window+1)

	return &domain.ContextResponse{
		CenterChunkID: chunkID,
		Chunks:        siblings[lo:hi],
	}, nil
}

// ListChunks returns summaries for one source, or all sources when sourceID
// is empty, ordered by (source_id, ordinal, chunk_id).
func (s *EvidenceService) ListChunks(ctx context.Context, sourceID string) ([]domain.ChunkSummary, error) {
	if s.repo == nil {
		return nil, domain.ErrNotImplemented
	}
	index, err := s.repo.LoadChunkIndex(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	var ids []string
	if sourceID != "" {
		ids = index[sourceID]
	} else {
		for _, chunkIDs := range index {
			ids = append(ids, chunkIDs...)
		}
	}

	summaries := make([]domain.ChunkSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := s.repo.LoadChunkSummary(ctx, id)
		if err != nil {
			return nil, lookupError(err, "chunk_id", id)
		}
		summaries = append(summaries, *summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.Ordinal != b.Ordinal {
			return a.Ordinal < b.Ordinal
		}
		return a.ChunkID < b.ChunkID
	})
	return summaries, nil
}

// CitationForChunk builds the citation for the currently stored chunk.
func (s *EvidenceService) CitationForChunk(ctx context.Context, id string) (*domain.Citation, error) {
	chunk, err := s.GetChunk(ctx, id)
	if err != nil {
		return nil, err
	}
	c := chunk.Citation()
	return &c, nil
}

// ValidateCitations requires a non-empty list whose every locator equals the
// locator derived from the stored chunk.
func (s *EvidenceService) ValidateCitations(ctx context.Context, citations []domain.Citation) error {
	if len(citations) == 0 {
		return domain.ErrCitationRequired.WithDetails("at least one citation is required")
	}
	for _, c := range citations {
		chunk, err := s.GetChunk(ctx, c.ChunkID)
		if err != nil {
			return err
		}
		expected := chunk.Locator()
		if !expected.Equal(c.Locator) {
			return domain.ErrCitationInvalid.WithDetailsf(
				"chunk_id=%s: locator mismatch (expected source_id=%s ordinal=%d text_sha256=%s)",
				c.ChunkID, expected.SourceID, expected.Ordinal, expected.TextSHA256)
		}
	}
	return nil
}

// validateSourceInput checks a source descriptor and returns its normalised origin.
func validateSourceInput(input domain.AddSourceInput) (domain.EvidenceOrigin, error) {
	origin := input.Origin

	if strings.TrimSpace(input.Label) == "" {
		return origin, domain.ErrSourceInvalid.WithDetails("label is required")
	}
	if !input.Type.IsValid() {
		return origin, domain.ErrSourceInvalid.WithDetailsf("unknown source type %q", input.Type)
	}
	if !origin.Kind.IsValid() {
		return origin, domain.ErrSourceInvalid.WithDetailsf("unknown origin kind %q", origin.Kind)
	}

	switch origin.Kind {
	case domain.OriginKindFile, domain.OriginKindDirectory:
		if origin.Path == nil || strings.TrimSpace(*origin.Path) == "" {
			return origin, domain.ErrSourceInvalid.WithDetailsf("path is required for %s origins", origin.Kind)
		}
		path := strings.TrimSpace(*origin.Path)
		origin.Path = &path
	case domain.OriginKindPaste:
		if strings.TrimSpace(input.Text) == "" {
			return origin, domain.ErrSourceInvalid.WithDetails("text is required for paste origins")
		}
		origin.Path = nil
	}

	if input.Type == domain.SourceTypeSanitizedExport && origin.Kind != domain.OriginKindDirectory {
		return origin, domain.ErrSourceInvalid.WithDetails("sanitized exports require a directory origin")
	}
	return origin, nil
}

func sortSourceRecords(records []domain.SourceRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Source.ID < records[j].Source.ID
	})
}

// storeError converts a repository failure into a coded error.
func storeError(err error) error {
	var coded *domain.Error
	if errors.As(err, &coded) {
		return err
	}
	return domain.ErrStoreFailed.Wrap(err)
}

// chunkerError keeps coded chunker errors and tags them with the source.
func chunkerError(err error, sourceID string) error {
	var coded *domain.Error
	if errors.As(err, &coded) {
		return coded.WithDetailsf("source_id=%s; %s", sourceID, coded.Details)
	}
	return domain.ErrSourceInvalid.Wrap(err).WithDetailsf("source_id=%s; err=%v", sourceID, err)
}

// lookupError maps a missing document to not-found and anything else to a
// store failure.
func lookupError(err error, field, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrEvidenceNotFound.Wrap(err).WithDetailsf("%s=%s", field, id)
	}
	return storeError(err)
}
