package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qir-evidence/internal/core/domain"
)

func TestIndexStore_Empty(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	status, err := store.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, status)

	vectors, err := store.LoadVectors(ctx)
	require.NoError(t, err)
	assert.Empty(t, vectors)

	hashes, err := store.LoadHashes(ctx)
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestIndexStore_RoundTripCopies(t *testing.T) {
	store := NewIndexStore()
	ctx := context.Background()

	vectors := map[string][]float32{"c1": {1, 2}}
	require.NoError(t, store.SaveVectors(ctx, vectors))
	require.NoError(t, store.SaveHashes(ctx, map[string]string{"c1": "h"}))
	require.NoError(t, store.SaveStatus(ctx, domain.IndexStatus{Ready: true, Dims: 2}))
	vectors["c1"][0] = 9

	gotVectors, err := store.LoadVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"c1": {1, 2}}, gotVectors)
	gotVectors["c1"][1] = 7

	again, err := store.LoadVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, float32(2), again["c1"][1])

	hashes, err := store.LoadHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c1": "h"}, hashes)

	status, err := store.LoadStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, status.Ready)
	assert.Equal(t, 2, status.Dims)
}
