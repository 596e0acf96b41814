package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

type mockEvidenceService struct {
	added       domain.AddSourceInput
	sources     []domain.EvidenceSource
	chunk       *domain.EvidenceChunk
	summaries   []domain.ChunkSummary
	context     *domain.ContextResponse
	built       []string
	validated   []domain.Citation
	err         error
	validateErr error
}

func (m *mockEvidenceService) AddSource(_ context.Context, input domain.AddSourceInput) (*domain.EvidenceSource, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.added = input
	return &domain.EvidenceSource{
		ID:        "src-new",
		Type:      input.Type,
		Origin:    input.Origin,
		Label:     input.Label,
		CreatedAt: input.CreatedAt,
	}, nil
}

func (m *mockEvidenceService) ListSources(_ context.Context) ([]domain.EvidenceSource, error) {
	return m.sources, m.err
}

func (m *mockEvidenceService) BuildChunks(_ context.Context, sourceID string, updatedAt time.Time) (*domain.BuildChunksResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.built = append(m.built, sourceID)
	return &domain.BuildChunksResult{SourceCount: 1, ChunkCount: 3, UpdatedAt: updatedAt}, nil
}

func (m *mockEvidenceService) GetChunk(_ context.Context, _ string) (*domain.EvidenceChunk, error) {
	return m.chunk, m.err
}

func (m *mockEvidenceService) GetChunkSummary(_ context.Context, _ string) (*domain.ChunkSummary, error) {
	return nil, m.err
}

func (m *mockEvidenceService) GetContext(_ context.Context, _ string, _ int) (*domain.ContextResponse, error) {
	return m.context, m.err
}

func (m *mockEvidenceService) ListChunks(_ context.Context, _ string) ([]domain.ChunkSummary, error) {
	return m.summaries, m.err
}

func (m *mockEvidenceService) ValidateCitations(_ context.Context, citations []domain.Citation) error {
	m.validated = citations
	return m.validateErr
}

type mockIndexService struct {
	status *domain.IndexStatus
	input  domain.IndexBuildInput
	builds int
	err    error
}

func (m *mockIndexService) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexService) Build(_ context.Context, input domain.IndexBuildInput) (*domain.IndexStatus, error) {
	m.input = input
	m.builds++
	return m.status, m.err
}

type mockRetrievalService struct {
	response *domain.QueryResponse
	input    domain.QueryInput
	err      error
}

func (m *mockRetrievalService) Query(_ context.Context, input domain.QueryInput) (*domain.QueryResponse, error) {
	m.input = input
	return m.response, m.err
}

type mockDraftService struct {
	response *domain.DraftResponse
	artifact *domain.DraftArtifact
	drafts   []domain.DraftArtifact
	lineage  *domain.DraftLineage
	request  domain.DraftRequest
	saved    *domain.SaveDraftInput
	err      error
}

func (m *mockDraftService) DraftSection(_ context.Context, req domain.DraftRequest) (*domain.DraftResponse, error) {
	m.request = req
	return m.response, m.err
}

func (m *mockDraftService) SaveDraft(_ context.Context, input domain.SaveDraftInput) (*domain.DraftArtifact, error) {
	m.saved = &input
	return m.artifact, m.err
}

func (m *mockDraftService) GetDraft(_ context.Context, _ string) (*domain.DraftArtifact, error) {
	return m.artifact, m.err
}

func (m *mockDraftService) ListDrafts(_ context.Context, _ string) ([]domain.DraftArtifact, error) {
	return m.drafts, m.err
}

func (m *mockDraftService) DraftLineage(_ context.Context, _ string) (*domain.DraftLineage, error) {
	return m.lineage, m.err
}

type mockSettingsService struct {
	settings  domain.AppSettings
	values    map[string]string
	setKey    string
	setValue  string
	setErr    error
	healthErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values: map[string]string{
			"data_dir":        "",
			"ollama.base_url": domain.DefaultOllamaBaseURL,
		},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	m.setKey, m.setValue = key, value
	return m.setErr
}

func (m *mockSettingsService) Keys() []string {
	return []string{"data_dir", "ollama.base_url"}
}

func (m *mockSettingsService) Value(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrConfigInvalid.WithDetailsf("unknown setting %q", key)
	}
	return v, nil
}

func (m *mockSettingsService) Validate() error {
	return nil
}

func (m *mockSettingsService) CheckHealth(_ context.Context) error {
	return m.healthErr
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	evidence  *mockEvidenceService
	index     *mockIndexService
	retrieval *mockRetrievalService
	draft     *mockDraftService
	settings  *mockSettingsService
}

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

// setupTestServices installs mocks and returns them with a cleanup that
// restores globals and resets flags shared between runs.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		evidence:  &mockEvidenceService{},
		index:     &mockIndexService{status: &domain.IndexStatus{}},
		retrieval: &mockRetrievalService{response: &domain.QueryResponse{}},
		draft:     &mockDraftService{},
		settings:  newMockSettingsService(),
	}
	SetServices(&Services{
		Evidence:   ts.evidence,
		Index:      ts.index,
		Retrieval:  ts.retrieval,
		Draft:      ts.draft,
		Settings:   ts.settings,
		ConfigPath: "/tmp/qir/config.toml",
	})
	oldNow := now
	now = func() time.Time { return fixedNow }

	return ts, func() {
		SetServices(nil)
		wired = false
		now = oldNow
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

func resetFlags() {
	sourceType, sourceFile, sourceDir, sourcePaste, sourceLabel, sourceJSON = "", "", "", "", "", false
	chunksSource, chunksWindow, chunksJSON = "", 1, false
	indexSource, indexModel, indexJSON = "", "", false
	queryTopK, querySources, queryJSON = 8, nil, false
	draftSection, draftQuarter, draftPrompt, draftPromptFile = "", "", "", ""
	draftChunks, draftSave, draftParent, draftNotes, draftBranch = nil, false, "", "", ""
	draftJSON, draftsQuarter = false, ""
	watchNoIndex = false
	resetChanged(rootCmd)
}

func resetChanged(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, sub := range c.Commands() {
		resetChanged(sub)
	}
}
