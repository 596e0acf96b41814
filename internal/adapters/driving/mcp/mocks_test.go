package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

// mockEvidenceService is a mock implementation of driving.EvidenceService.
type mockEvidenceService struct {
	sources []domain.EvidenceSource
	chunk   *domain.EvidenceChunk
	context *domain.ContextResponse
	err     error

	lastChunkID string
	lastWindow  int
}

func (m *mockEvidenceService) AddSource(_ context.Context, _ domain.AddSourceInput) (*domain.EvidenceSource, error) {
	return nil, m.err
}

func (m *mockEvidenceService) ListSources(_ context.Context) ([]domain.EvidenceSource, error) {
	return m.sources, m.err
}

func (m *mockEvidenceService) BuildChunks(_ context.Context, _ string, _ time.Time) (*domain.BuildChunksResult, error) {
	return nil, m.err
}

func (m *mockEvidenceService) GetChunk(_ context.Context, id string) (*domain.EvidenceChunk, error) {
	m.lastChunkID = id
	return m.chunk, m.err
}

func (m *mockEvidenceService) GetChunkSummary(_ context.Context, _ string) (*domain.ChunkSummary, error) {
	return nil, m.err
}

func (m *mockEvidenceService) GetContext(_ context.Context, chunkID string, window int) (*domain.ContextResponse, error) {
	m.lastChunkID = chunkID
	m.lastWindow = window
	return m.context, m.err
}

func (m *mockEvidenceService) ListChunks(_ context.Context, _ string) ([]domain.ChunkSummary, error) {
	return nil, m.err
}

func (m *mockEvidenceService) ValidateCitations(_ context.Context, _ []domain.Citation) error {
	return m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	response *domain.QueryResponse
	err      error
	last     domain.QueryInput
}

func (m *mockRetrievalService) Query(_ context.Context, input domain.QueryInput) (*domain.QueryResponse, error) {
	m.last = input
	return m.response, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	status *domain.IndexStatus
	err    error
}

func (m *mockIndexService) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexService) Build(_ context.Context, _ domain.IndexBuildInput) (*domain.IndexStatus, error) {
	return m.status, m.err
}

// mockDraftService is a mock implementation of driving.DraftService.
type mockDraftService struct {
	response *domain.DraftResponse
	err      error
	last     domain.DraftRequest
}

func (m *mockDraftService) DraftSection(_ context.Context, req domain.DraftRequest) (*domain.DraftResponse, error) {
	m.last = req
	return m.response, m.err
}

func (m *mockDraftService) SaveDraft(_ context.Context, _ domain.SaveDraftInput) (*domain.DraftArtifact, error) {
	return nil, m.err
}

func (m *mockDraftService) GetDraft(_ context.Context, _ string) (*domain.DraftArtifact, error) {
	return nil, m.err
}

func (m *mockDraftService) ListDrafts(_ context.Context, _ string) ([]domain.DraftArtifact, error) {
	return nil, m.err
}

func (m *mockDraftService) DraftLineage(_ context.Context, _ string) (*domain.DraftLineage, error) {
	return nil, m.err
}
