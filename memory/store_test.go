package memory_test

import (
	"context"
	"testing"

	"github.com/medguideai/medguide/errors"
	"github.com/medguideai/medguide/memory"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSetOverwrites(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &memory.Memory{
		Key:       "allergy_penicillin",
		Value:     "Allergic to penicillin",
		Source:    memory.MemorySourceUser,
		Embedding: []float32{1, 0},
	}))
	require.NoError(t, store.Set(ctx, &memory.Memory{
		Key:       "allergy_penicillin",
		Value:     "Severe anaphylactic reaction to penicillin",
		Source:    memory.MemorySourceUser,
		Embedding: []float32{1, 0},
	}))

	got, err := store.Get(ctx, "allergy_penicillin")
	require.NoError(t, err)
	require.Equal(t, "Severe anaphylactic reaction to penicillin", got.Value)
	require.False(t, got.UpdatedAt.IsZero())
}

func TestInMemoryStoreGetMissing(t *testing.T) {
	store := memory.NewInMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestInMemoryStoreSearchRanking(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &memory.Memory{
		Key: "med_metformin", Value: "Takes metformin daily", Source: memory.MemorySourceUser,
		Embedding: []float32{1, 0, 0},
	}))
	require.NoError(t, store.Set(ctx, &memory.Memory{
		Key: "diet_low_salt", Value: "Follows a low-salt diet", Source: memory.MemorySourceUser,
		Embedding: []float32{0, 1, 0},
	}))
	require.NoError(t, store.Set(ctx, &memory.Memory{
		Key: "wrong_dim", Value: "ignored", Source: memory.MemorySourceUser,
		Embedding: []float32{1, 0},
	}))

	results, err := store.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "med_metformin", results[0].Memory.Key)
	require.InDelta(t, 1.0, results[0].Score, 1e-6)
	require.InDelta(t, 0.5, results[1].Score, 1e-6)
}

func TestInMemoryStoreSearchLimit(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, &memory.Memory{
			Key: key, Value: key, Source: memory.MemorySourceUser, Embedding: []float32{1, 0},
		}))
	}

	results, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestInMemoryStoreListSorted(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"c", "a", "b"} {
		require.NoError(t, store.Set(ctx, &memory.Memory{
			Key: key, Value: key, Source: memory.MemorySourceAssistant,
		}))
	}

	memories, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, memories, 3)
	require.Equal(t, "a", memories[0].Key)
	require.Equal(t, "c", memories[2].Key)
}

func TestInMemoryStoreDelete(t *testing.T) {
	store := memory.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, &memory.Memory{Key: "k", Value: "v", Source: memory.MemorySourceUser}))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, errors.ErrNotFound)
}
