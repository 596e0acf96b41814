package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceType(t *testing.T) {
	for _, st := range []SourceType{SourceTypeSanitizedExport, SourceTypeSlackTranscript,
		SourceTypeIncidentReportMd, SourceTypeFreeformText} {
		assert.True(t, st.IsValid(), st)
	}
	assert.False(t, SourceType("pdf").IsValid())

	assert.False(t, SourceTypeSanitizedExport.UsesParagraphPacking())
	assert.True(t, SourceTypeSlackTranscript.UsesParagraphPacking())
	assert.True(t, SourceTypeFreeformText.UsesParagraphPacking())
}

func TestOriginKind_IsValid(t *testing.T) {
	assert.True(t, OriginKindFile.IsValid())
	assert.True(t, OriginKindDirectory.IsValid())
	assert.True(t, OriginKindPaste.IsValid())
	assert.False(t, OriginKind("url").IsValid())
}

func TestEvidenceChunk_Projections(t *testing.T) {
	chunk := EvidenceChunk{
		ID:            "c1",
		SourceID:      "s1",
		Ordinal:       2,
		Text:          "text",
		TextSHA256:    "h",
		TokenCountEst: 4,
		Meta:          ChunkMeta{Kind: ChunkKindParagraph},
	}

	summary := chunk.Summary("te")
	assert.Equal(t, ChunkSummary{
		ChunkID:       "c1",
		SourceID:      "s1",
		Ordinal:       2,
		TextSHA256:    "h",
		TokenCountEst: 4,
		Meta:          ChunkMeta{Kind: ChunkKindParagraph},
		Snippet:       "te",
	}, summary)

	assert.Equal(t, Citation{
		ChunkID: "c1",
		Locator: CitationLocator{SourceID: "s1", Ordinal: 2, TextSHA256: "h"},
	}, chunk.Citation())
}

func TestCitationLocator_Equal(t *testing.T) {
	base := CitationLocator{SourceID: "s", Ordinal: 1, TextSHA256: "h"}
	ranged := base
	ranged.CharRange = &CharRange{Start: 0, End: 4}
	sameRange := base
	sameRange.CharRange = &CharRange{Start: 0, End: 4}
	otherRange := base
	otherRange.CharRange = &CharRange{Start: 1, End: 4}

	assert.True(t, base.Equal(base))
	assert.True(t, ranged.Equal(sameRange))
	assert.False(t, base.Equal(ranged))
	assert.False(t, ranged.Equal(base))
	assert.False(t, ranged.Equal(otherRange))
	assert.False(t, base.Equal(CitationLocator{SourceID: "s", Ordinal: 2, TextSHA256: "h"}))
	assert.False(t, base.Equal(CitationLocator{SourceID: "s", Ordinal: 1, TextSHA256: "x"}))
}
