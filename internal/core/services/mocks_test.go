package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/qir-evidence/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qir-evidence/internal/core/domain"
	"github.com/custodia-labs/qir-evidence/internal/postprocessors/chunker"
)

var testTime = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

// fakeEmbedder returns fixed vectors for known texts and a vector derived
// from keyword counts otherwise. It records every text it embeds.
type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   []string
	err     error
	dims    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{}, dims: 3}
}

var embedKeywords = []string{"database", "network", "deploy"}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, f.dims)
	lower := strings.ToLower(text)
	for i := 0; i < f.dims && i < len(embedKeywords); i++ {
		v[i] = float32(strings.Count(lower, embedKeywords[i]))
	}
	v[0] += 0.1
	return v, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEmbedder) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// fakeGenerator returns a canned response and records the prompt.
type fakeGenerator struct {
	output string
	err    error
	prompt string
	model  string
}

func (f *fakeGenerator) Generate(_ context.Context, model, prompt string) (string, error) {
	f.model, f.prompt = model, prompt
	return f.output, f.err
}

// fakePromptStore serves templates from a map.
type fakePromptStore struct {
	templates map[string]string
}

func (f *fakePromptStore) Load(name string) (string, error) {
	t, ok := f.templates[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return t, nil
}

func (f *fakePromptStore) Reload() {}

// evidenceFixture wires an evidence service over memory stores.
type evidenceFixture struct {
	service *EvidenceService
	store   *memory.EvidenceStore
}

func newEvidenceFixture(t *testing.T) *evidenceFixture {
	t.Helper()
	store := memory.NewEvidenceStore()
	// A small budget keeps every test paragraph in its own chunk.
	return &evidenceFixture{
		service: NewEvidenceService(store, chunker.New(chunker.WithMaxChars(20))),
		store:   store,
	}
}

// addPaste registers a paste source and builds its chunks.
func (f *evidenceFixture) addPaste(t *testing.T, label, text string) (*domain.EvidenceSource, []domain.ChunkSummary) {
	t.Helper()
	ctx := context.Background()
	src, err := f.service.AddSource(ctx, domain.AddSourceInput{
		Type:      domain.SourceTypeFreeformText,
		Origin:    domain.EvidenceOrigin{Kind: domain.OriginKindPaste},
		Label:     label,
		CreatedAt: testTime,
		Text:      text,
	})
	if err != nil {
		t.Fatalf("add source: %v", err)
	}
	if _, err := f.service.BuildChunks(ctx, src.ID, testTime); err != nil {
		t.Fatalf("build chunks: %v", err)
	}
	summaries, err := f.service.ListChunks(ctx, src.ID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	return src, summaries
}

func strPtr(s string) *string { return &s }
