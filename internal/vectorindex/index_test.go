package vectorindex

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRanksByCosine(t *testing.T) {
	idx := NewMemory()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 1, Name: "tent", Vector: []float32{1, 0, 0}}))
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 2, Name: "stove", Vector: []float32{0, 1, 0}}))
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 3, Name: "lantern", Vector: []float32{0.9, 0.1, 0}}))

	matches, err := idx.Search(ctx, []float32{10, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, int64(1), matches[0].Record.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Equal(t, int64(3), matches[1].Record.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestUpsertReplacesByID(t *testing.T) {
	idx := NewMemory()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 1, Name: "old", Vector: []float32{1, 0}}))
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 1, Name: "new", Vector: []float32{0, 1}}))

	assert.Equal(t, 1, idx.Count())
	matches, err := idx.Search(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Record.Name)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	idx := NewMemory()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 1, Vector: []float32{1, 0, 0}}))
	require.NoError(t, idx.Upsert(ctx, ProductVector{ID: 2, Vector: []float32{1, 0}}))

	matches, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(2), matches[0].Record.ID)
}

func TestSearchTieBreaksOnLowerID(t *testing.T) {
	idx := NewMemory()
	ctx := context.Background()
	for id := int64(5); id >= 1; id-- {
		require.NoError(t, idx.Upsert(ctx, ProductVector{ID: id, Vector: []float32{1, 1}}))
	}

	matches, err := idx.Search(ctx, []float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{matches[0].Record.ID, matches[1].Record.ID, matches[2].Record.ID})
}

func TestUpsertRejectsEmptyVector(t *testing.T) {
	assert.Error(t, NewMemory().Upsert(context.Background(), ProductVector{ID: 1}))
}

func TestSearchEmptyAndCanceled(t *testing.T) {
	idx := NewMemory()
	matches, err := idx.Search(context.Background(), []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, []float32{1}, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentUpsertAndSearch(t *testing.T) {
	idx := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = idx.Upsert(ctx, ProductVector{ID: int64(i), Name: fmt.Sprint(i), Vector: []float32{float32(i), 1}})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = idx.Search(ctx, []float32{1, 1}, 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, idx.Count())
}
