package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/postprocessors/chunker"
)

// letterEmbedder embeds text as [count('a'), count('b')].
type letterEmbedder struct {
	calls int
}

func (e *letterEmbedder) Embed(_ context.Context, _ string, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(strings.Count(text, "a")), float32(strings.Count(text, "b"))}, nil
}

type pipeline struct {
	evidence  *EvidenceService
	index     *IndexService
	retrieval *RetrievalService
	embedder  *letterEmbedder
}

func newPipeline(c *chunker.Chunker) *pipeline {
	evidenceStore := memory.NewEvidenceStore()
	indexStore := memory.NewIndexStore()
	embedder := &letterEmbedder{}
	evidence := NewEvidenceService(evidenceStore, c)
	index := NewIndexService(evidence, indexStore, embedder)
	return &pipeline{
		evidence:  evidence,
		index:     index,
		retrieval: NewRetrievalService(evidence, index, indexStore, embedder),
		embedder:  embedder,
	}
}

func (p *pipeline) paste(t *testing.T, text string) []domain.ChunkSummary {
	t.Helper()
	ctx := context.Background()
	src, err := p.evidence.AddSource(ctx, domain.AddSourceInput{
		Type:   domain.SourceTypeFreeformText,
		Origin: domain.EvidenceOrigin{Kind: domain.OriginKindPaste},
		Label:  "paste",
		Text:   text,
	})
	require.NoError(t, err)
	_, err = p.evidence.BuildChunks(ctx, src.ID, testTime)
	require.NoError(t, err)
	chunks, err := p.evidence.ListChunks(ctx, src.ID)
	require.NoError(t, err)
	return chunks
}

func (p *pipeline) buildIndex(t *testing.T) {
	t.Helper()
	_, err := p.index.Build(context.Background(), domain.IndexBuildInput{Model: testModel, UpdatedAt: testTime})
	require.NoError(t, err)
}

func TestScenario_TwoParagraphsTwoChunks(t *testing.T) {
	p := newPipeline(chunker.New(chunker.WithMaxChars(8)))

	chunks := p.paste(t, "alpha\n\nbeta")

	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[1].Ordinal)
}

func TestScenario_RebuildWithoutChangesEmbedsNothing(t *testing.T) {
	p := newPipeline(chunker.New(chunker.WithMaxChars(8)))
	p.paste(t, "alpha\n\nbeta")

	p.buildIndex(t)
	require.Equal(t, 2, p.embedder.calls)

	p.buildIndex(t)
	assert.Equal(t, 2, p.embedder.calls)
}

func TestScenario_QueryRanksMatchingChunkFirst(t *testing.T) {
	p := newPipeline(chunker.New())
	chunks := p.paste(t, strings.Repeat("a", 900)+"\n\n"+strings.Repeat("b", 900))
	require.Len(t, chunks, 2)
	p.buildIndex(t)

	resp, err := p.retrieval.Query(context.Background(), domain.QueryInput{Text: "aaaa", TopK: 2})

	require.NoError(t, err)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, chunks[0].ChunkID, resp.Hits[0].ChunkID)
	assert.InDelta(t, 1.0, resp.Hits[0].Score, 1e-6)
}

func TestScenario_DraftCitationEnforcement(t *testing.T) {
	p := newPipeline(chunker.New())
	chunks := p.paste(t, "Executive evidence.")
	approved := chunks[0].ChunkID
	gen := &fakeGenerator{}
	drafter := NewDraftService(p.evidence, gen, DraftConfig{Model: "llama3.1:8b"})
	ctx := context.Background()

	req := domain.DraftRequest{SectionID: domain.SectionExecSummary, QuarterLabel: "2026-Q1"}
	_, err := drafter.DraftSection(ctx, req)
	assert.Equal(t, domain.CodeCitationRequired, domain.CodeOf(err))

	req.CitationChunkIDs = []string{approved}
	gen.output = "[[chunk:unapproved]]"
	_, err = drafter.DraftSection(ctx, req)
	assert.Equal(t, domain.CodeCitationInvalid, domain.CodeOf(err))

	gen.output = "Executive summary [[chunk:" + approved + "]]"
	resp, err := drafter.DraftSection(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, approved, resp.Citations[0].ChunkID)
}
