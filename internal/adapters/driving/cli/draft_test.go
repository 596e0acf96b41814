package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

func testDraftResponse() *domain.DraftResponse {
	return &domain.DraftResponse{
		SectionID:             domain.SectionExecSummary,
		Markdown:              "Availability held at 99.95%. [[chunk:c1]]\n",
		Citations:             []domain.Citation{{ChunkID: "c1", Locator: domain.CitationLocator{SourceID: "s1", Ordinal: 0}}},
		ModelName:             "llama3.1:8b",
		ModelParamsHash:       "params",
		PromptTemplateVersion: "tmpl",
	}
}

func TestDraft_PassesRequest(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.response = testDraftResponse()

	out, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1",
		"--chunk", "c1", "--chunk", "c2", "--prompt", "focus on impact")

	require.NoError(t, err)
	assert.Equal(t, domain.DraftRequest{
		SectionID:        domain.SectionExecSummary,
		QuarterLabel:     "2026-Q1",
		Prompt:           "focus on impact",
		CitationChunkIDs: []string{"c1", "c2"},
	}, ts.draft.request)
	assert.Nil(t, ts.draft.saved)
	assert.Contains(t, out, "Availability held at 99.95%. [[chunk:c1]]")
	assert.Contains(t, out, "Citations: 1")
	assert.Contains(t, out, "c1 (source s1, ordinal 0)")
}

func TestDraft_RequiresChunks(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1")

	assert.Error(t, err)
}

func TestDraft_PromptFromStdin(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.response = testDraftResponse()

	rootCmd.SetIn(strings.NewReader("stdin prompt"))
	_, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1", "-c", "c1", "--prompt-file", "-")

	require.NoError(t, err)
	assert.Equal(t, "stdin prompt", ts.draft.request.Prompt)
}

func TestDraft_PromptFromFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.response = testDraftResponse()
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("file prompt"), 0600))

	_, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1", "-c", "c1", "--prompt-file", path)

	require.NoError(t, err)
	assert.Equal(t, "file prompt", ts.draft.request.Prompt)
}

func TestDraft_SaveAsRevision(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.response = testDraftResponse()
	ts.draft.artifact = &domain.DraftArtifact{ID: "d2", RevisionNumber: 2}

	out, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1", "-c", "c1",
		"--save", "--parent", "d1", "--notes", "tighter", "--branch", "alt")

	require.NoError(t, err)
	require.NotNil(t, ts.draft.saved)
	assert.Equal(t, domain.SaveDraftInput{
		QuarterLabel:  "2026-Q1",
		Response:      *testDraftResponse(),
		ParentDraftID: "d1",
		RevisionNotes: "tighter",
		BranchLabel:   "alt",
		CreatedAt:     fixedNow,
	}, *ts.draft.saved)
	assert.Contains(t, out, "Saved draft d2 (revision 2)")
}

func TestDraft_RevisionFlagsRequireSave(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.response = testDraftResponse()

	_, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1", "-c", "c1", "--parent", "d1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "require --save")
}

func TestDraft_GuardrailRejection(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.err = domain.ErrCitationRequired.WithDetails("paragraph 2 has no citation")

	_, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1", "-c", "c1")

	assert.ErrorIs(t, err, domain.ErrCitationRequired)
}

func TestDraft_JSONWithArtifact(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.response = testDraftResponse()
	ts.draft.artifact = &domain.DraftArtifact{ID: "d1", RevisionNumber: 1}

	out, err := runCmd(t, "draft", "--section", "exec_summary", "--quarter", "2026-Q1", "-c", "c1", "--save", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"draft": {`)
	assert.Contains(t, out, `"artifact": {`)
}

func TestDraftsList(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.drafts = []domain.DraftArtifact{
		{ID: "d2", RevisionNumber: 2, SectionType: domain.SectionExecSummary, BranchLabel: "alt", CreatedAt: fixedNow},
		{ID: "d1", RevisionNumber: 1, SectionType: domain.SectionExecSummary, CreatedAt: fixedNow},
	}

	out, err := runCmd(t, "drafts", "list", "--quarter", "2026-Q1")

	require.NoError(t, err)
	assert.Contains(t, out, "d2  r2  exec_summary [alt]  2026-04-02 09:30")
	assert.Contains(t, out, "d1  r1  exec_summary  2026-04-02 09:30")
	assert.Contains(t, out, "Total: 2 drafts")
}

func TestDraftsList_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCmd(t, "drafts", "list", "-q", "2026-Q2")

	require.NoError(t, err)
	assert.Equal(t, "No drafts saved for 2026-Q2.\n", out)
}

func TestDraftsShow(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.artifact = &domain.DraftArtifact{
		ID: "d2", QuarterLabel: "2026-Q1", SectionType: domain.SectionThemeAnalysis,
		DraftText: "- Theme [[chunk:c1]]\n", CitationChunkIDs: []string{"c1"},
		ParentDraftID: "d1", RevisionNumber: 2, RevisionNotes: "tighter",
	}

	out, err := runCmd(t, "drafts", "show", "d2")

	require.NoError(t, err)
	assert.Contains(t, out, "Draft: d2")
	assert.Contains(t, out, "Parent:    d1")
	assert.Contains(t, out, "Notes:     tighter")
	assert.Contains(t, out, "- Theme [[chunk:c1]]")
}

func TestDraftsShow_NotFound(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.draft.err = domain.ErrDraftNotFound

	_, err := runCmd(t, "drafts", "show", "missing")

	assert.ErrorIs(t, err, domain.ErrDraftNotFound)
}

func TestDraftsLineage(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	root := domain.DraftArtifact{ID: "d1", RevisionNumber: 1}
	mid := domain.DraftArtifact{ID: "d2", RevisionNumber: 2, ParentDraftID: "d1"}
	ts.draft.lineage = &domain.DraftLineage{
		Draft:    mid,
		Root:     root,
		Path:     []domain.DraftArtifact{root, mid},
		Siblings: []domain.DraftArtifact{{ID: "d3", RevisionNumber: 2, ParentDraftID: "d1"}},
		Children: []domain.DraftArtifact{},
	}

	out, err := runCmd(t, "drafts", "lineage", "d2")

	require.NoError(t, err)
	assert.Contains(t, out, "Path from root:")
	assert.Contains(t, out, "Siblings: 1")
	assert.Contains(t, out, "Children: 0")
}
