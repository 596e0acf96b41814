package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

func TestCanonicalJSON_SortsKeysRecursively(t *testing.T) {
	v := map[string]any{
		"b": 1,
		"a": map[string]any{"z": true, "y": []any{3, 1, 2}},
		"c": "<tag>&",
	}

	got, err := canonicalJSON(v)

	require.NoError(t, err)
	assert.Equal(t, `{"a":{"y":[3,1,2],"z":true},"b":1,"c":"<tag>&"}`, string(got))
}

func TestCanonicalJSON_StructFieldOrderIrrelevant(t *testing.T) {
	type ab struct {
		B string `json:"b"`
		A string `json:"a"`
	}

	got, err := canonicalJSON(ab{B: "2", A: "1"})

	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2"}`, string(got))
}

func TestCanonicalJSON_PreservesNumberLiterals(t *testing.T) {
	got, err := canonicalJSON(map[string]any{"n": 12345678901234567, "f": 0.5})

	require.NoError(t, err)
	assert.Equal(t, `{"f":0.5,"n":12345678901234567}`, string(got))
}

func TestComputeSourceID_IgnoresLabelAndTime(t *testing.T) {
	origin := domain.EvidenceOrigin{Kind: domain.OriginKindFile, Path: strPtr("/evidence/a.md")}

	id1, err := ComputeSourceID(domain.SourceTypeIncidentReportMd, origin)
	require.NoError(t, err)
	id2, err := ComputeSourceID(domain.SourceTypeIncidentReportMd, origin)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestComputeSourceID_DiffersByTypeAndPath(t *testing.T) {
	a := domain.EvidenceOrigin{Kind: domain.OriginKindFile, Path: strPtr("/evidence/a.md")}
	b := domain.EvidenceOrigin{Kind: domain.OriginKindFile, Path: strPtr("/evidence/b.md")}

	idA, _ := ComputeSourceID(domain.SourceTypeIncidentReportMd, a)
	idB, _ := ComputeSourceID(domain.SourceTypeIncidentReportMd, b)
	idT, _ := ComputeSourceID(domain.SourceTypeFreeformText, a)

	assert.NotEqual(t, idA, idB)
	assert.NotEqual(t, idA, idT)
}

func TestComputeChunkID_Deterministic(t *testing.T) {
	meta := domain.ChunkMeta{Kind: domain.ChunkKindParagraph}
	sha := TextSHA256("hello")

	id1, err := ComputeChunkID("src", 0, sha, meta)
	require.NoError(t, err)
	id2, err := ComputeChunkID("src", 0, sha, meta)
	require.NoError(t, err)
	other, err := ComputeChunkID("src", 1, sha, meta)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.NotEqual(t, id1, other)
}

func TestComputeChunkID_MetaChangesID(t *testing.T) {
	sha := TextSHA256("hello")
	id1, _ := ComputeChunkID("src", 0, sha, domain.ChunkMeta{Kind: domain.ChunkKindParagraph})
	id2, _ := ComputeChunkID("src", 0, sha, domain.ChunkMeta{Kind: domain.ChunkKindSanitizedIncidentBundle})

	assert.NotEqual(t, id1, id2)
}

func TestTextSHA256(t *testing.T) {
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", TextSHA256("hello"))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\nb\nc\n", NormalizeText("a\r\nb\rc\n"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("  short  ", 10))
	assert.Equal(t, "abcde...", Snippet("abcdefghij", 5))
	// "é" is two bytes; the cut must not split it.
	assert.Equal(t, "ab...", Snippet("abécd", 3))
}
