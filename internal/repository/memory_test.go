package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func TestMemoryStore_Identity(t *testing.T) {
	runIdentityContract(t, context.Background(), NewMemoryStore())
}

func TestMemoryStore_Match(t *testing.T) {
	store := NewMemoryStore()
	runMatchContract(t, context.Background(), store, store)
}

func TestMemoryStore_ReturnsSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Given: a stored identity
	require.NoError(t, store.Create(ctx, &entity.Identity{ID: "1", Handle: "alice"}))

	// When: the caller mutates the returned value
	found, err := store.GetByID(ctx, "1")
	require.NoError(t, err)
	found.Wins = 100

	// Then: the store is unaffected
	again, err := store.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Wins)
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, &entity.Identity{ID: "1", Handle: "alice"}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementOutcome(ctx, "1", entity.OutcomeWin))
		}()
	}
	wg.Wait()

	found, err := store.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 50, found.Wins)
}

func TestMemoryStore_History(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Append(ctx, &entity.MatchRecord{RoomID: "a"}))
	require.NoError(t, store.Append(ctx, &entity.MatchRecord{RoomID: "b"}))

	assert.Equal(t, []string{"a", "b"}, store.History())
}
