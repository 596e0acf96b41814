package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

func TestDraftStore_SaveGet(t *testing.T) {
	store := NewDraftStore()
	ctx := context.Background()

	draft := domain.DraftArtifact{ID: "d1", QuarterLabel: "2026-Q1", RevisionNumber: 1}
	require.NoError(t, store.Save(ctx, draft))

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, draft, *got)

	err = store.Save(ctx, draft)
	assert.ErrorIs(t, err, domain.ErrDraftStoreFailed)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDraftNotFound)
}

func TestDraftStore_Listing(t *testing.T) {
	store := NewDraftStore()
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range []domain.DraftArtifact{
		{ID: "root", QuarterLabel: "2026-Q1", CreatedAt: base},
		{ID: "b", QuarterLabel: "2026-Q1", ParentDraftID: "root", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "a", QuarterLabel: "2026-Q1", ParentDraftID: "root", CreatedAt: base.Add(time.Minute)},
		{ID: "other", QuarterLabel: "2025-Q4", CreatedAt: base},
	} {
		require.NoError(t, store.Save(ctx, d))
	}

	byQuarter, err := store.ListByQuarter(ctx, "2026-Q1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "root"}, ids(byQuarter))

	children, err := store.ListChildren(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(children))

	roots, err := store.ListChildren(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func ids(drafts []domain.DraftArtifact) []string {
	out := make([]string, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.ID)
	}
	return out
}
