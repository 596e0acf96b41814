package cli

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func testWatchSources() []domain.EvidenceSource {
	return []domain.EvidenceSource{
		{ID: "report", Origin: domain.EvidenceOrigin{Kind: domain.OriginKindFile, Path: strPtr("/ev/reports/INC-1.md")}},
		{ID: "export", Origin: domain.EvidenceOrigin{Kind: domain.OriginKindDirectory, Path: strPtr("/ev/export/")}},
		{ID: "report-copy", Origin: domain.EvidenceOrigin{Kind: domain.OriginKindFile, Path: strPtr("/ev/reports/INC-1.md")}},
		{ID: "notes", Origin: domain.EvidenceOrigin{Kind: domain.OriginKindPaste}},
	}
}

func TestWatchTargets_GroupsByDirectory(t *testing.T) {
	targets := watchTargets(testWatchSources())

	require.Len(t, targets, 2)
	assert.Equal(t, watchTarget{dir: filepath.Clean("/ev/export"), sourceIDs: []string{"export"}}, targets[0])
	assert.Equal(t, watchTarget{dir: "/ev/reports", fileName: "INC-1.md", sourceIDs: []string{"report", "report-copy"}}, targets[1])
}

func TestWatchTargets_SkipsPaste(t *testing.T) {
	targets := watchTargets([]domain.EvidenceSource{{ID: "p", Origin: domain.EvidenceOrigin{Kind: domain.OriginKindPaste}}})
	assert.Empty(t, targets)
}

func TestAffectedSources(t *testing.T) {
	targets := watchTargets(testWatchSources())

	assert.Equal(t, []string{"report", "report-copy"}, affectedSources(targets, "/ev/reports/INC-1.md"))
	assert.Nil(t, affectedSources(targets, "/ev/reports/INC-2.md"))
	assert.Equal(t, []string{"export"}, affectedSources(targets, "/ev/export/incidents.json"))
	assert.Nil(t, affectedSources(targets, "/elsewhere/file.md"))
}

// rebuildRecorder collects rebuild calls from watchLoop.
type rebuildRecorder struct {
	mu    sync.Mutex
	calls [][]string
	done  chan struct{}
	err   error
}

func newRebuildRecorder() *rebuildRecorder {
	return &rebuildRecorder{done: make(chan struct{}, 10)}
}

func (r *rebuildRecorder) rebuild(_ context.Context, ids []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, ids)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func (r *rebuildRecorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func startWatchLoop(t *testing.T, rec *rebuildRecorder) (chan fsnotify.Event, chan error, context.CancelFunc, <-chan error) {
	t.Helper()
	events := make(chan fsnotify.Event, 10)
	errs := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- watchLoop(ctx, events, errs, watchTargets(testWatchSources()), 20*time.Millisecond, rec.rebuild)
	}()
	return events, errs, cancel, result
}

func waitRebuild(t *testing.T, rec *rebuildRecorder) {
	t.Helper()
	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("rebuild was not called")
	}
}

func TestWatchLoop_DebouncesIntoOneRebuild(t *testing.T) {
	rec := newRebuildRecorder()
	events, _, cancel, result := startWatchLoop(t, rec)

	events <- fsnotify.Event{Name: "/ev/export/incidents.json", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/ev/reports/INC-1.md", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "/ev/export/warnings.json", Op: fsnotify.Create}
	waitRebuild(t, rec)

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
	assert.Equal(t, [][]string{{"export", "report", "report-copy"}}, rec.snapshot())
}

func TestWatchLoop_IgnoresChmodAndUnrelated(t *testing.T) {
	rec := newRebuildRecorder()
	events, _, cancel, result := startWatchLoop(t, rec)

	events <- fsnotify.Event{Name: "/ev/reports/INC-1.md", Op: fsnotify.Chmod}
	events <- fsnotify.Event{Name: "/ev/reports/other.md", Op: fsnotify.Write}
	time.Sleep(100 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
	assert.Empty(t, rec.snapshot())
}

func TestWatchLoop_ContinuesAfterRebuildError(t *testing.T) {
	rec := newRebuildRecorder()
	rec.err = errors.New("ollama down")
	events, errs, cancel, result := startWatchLoop(t, rec)

	events <- fsnotify.Event{Name: "/ev/export/incidents.json", Op: fsnotify.Write}
	waitRebuild(t, rec)
	errs <- errors.New("overflow")
	events <- fsnotify.Event{Name: "/ev/reports/INC-1.md", Op: fsnotify.Remove}
	waitRebuild(t, rec)

	cancel()
	assert.ErrorIs(t, <-result, context.Canceled)
	assert.Equal(t, [][]string{{"export"}, {"report", "report-copy"}}, rec.snapshot())
}

func TestWatchLoop_ClosedEventsStops(t *testing.T) {
	rec := newRebuildRecorder()
	events, _, cancel, result := startWatchLoop(t, rec)
	defer cancel()

	close(events)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}

func TestWatch_NoWatchableSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.evidence.sources = []domain.EvidenceSource{{ID: "p", Origin: domain.EvidenceOrigin{Kind: domain.OriginKindPaste}}}

	_, err := runCmd(t, "watch")

	assert.ErrorIs(t, err, domain.ErrEvidenceEmpty)
}

func TestRebuild_ChunksThenIndex(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.index.status = &domain.IndexStatus{ChunkCount: 6, ChunksTotal: 6}

	err := rebuild(context.Background(), watchCmd, []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ts.evidence.built)
	assert.Equal(t, domain.IndexBuildInput{Model: domain.DefaultEmbeddingModel, UpdatedAt: fixedNow}, ts.index.input)
}

func TestRebuild_KeepsReadyIndexScope(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.IndexStatus
		changed    []string
		wantBuilds int
		wantInput  domain.IndexBuildInput
	}{
		{
			name:       "scoped source changed",
			status:     domain.IndexStatus{Ready: true, Model: "mxbai-embed-large", SourceID: "a"},
			changed:    []string{"a", "b"},
			wantBuilds: 1,
			wantInput:  domain.IndexBuildInput{Model: "mxbai-embed-large", SourceID: "a", UpdatedAt: fixedNow},
		},
		{
			name:       "scoped source untouched",
			status:     domain.IndexStatus{Ready: true, Model: "mxbai-embed-large", SourceID: "a"},
			changed:    []string{"b"},
			wantBuilds: 0,
		},
		{
			name:       "all sources keeps model",
			status:     domain.IndexStatus{Ready: true, Model: "mxbai-embed-large"},
			changed:    []string{"b"},
			wantBuilds: 1,
			wantInput:  domain.IndexBuildInput{Model: "mxbai-embed-large", UpdatedAt: fixedNow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			status := tt.status
			ts.index.status = &status

			err := rebuild(context.Background(), watchCmd, tt.changed)

			require.NoError(t, err)
			assert.Equal(t, tt.changed, ts.evidence.built)
			assert.Equal(t, tt.wantBuilds, ts.index.builds)
			assert.Equal(t, tt.wantInput, ts.index.input)
		})
	}
}
