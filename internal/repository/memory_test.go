package repository

import (
	"context"
	"testing"
	"time"

	"turfbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOccupancyCache(t *testing.T) {
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		cache := NewMemoryOccupancyCache(time.Hour)
		states := map[string]models.OccupancyState{
			"2026-09-01#06": models.OccupancyFull,
		}

		require.NoError(t, cache.Set(ctx, states))

		got, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, states, got)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		cache := NewMemoryOccupancyCache(time.Hour)
		states := map[string]models.OccupancyState{"2026-09-01#06": models.OccupancyHalf}
		require.NoError(t, cache.Set(ctx, states))

		got, _, _ := cache.Get(ctx)
		got["2026-09-01#06"] = models.OccupancyFull

		again, _, _ := cache.Get(ctx)
		assert.Equal(t, models.OccupancyHalf, again["2026-09-01#06"])
	})

	t.Run("EmptyMiss", func(t *testing.T) {
		cache := NewMemoryOccupancyCache(time.Hour)

		_, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expired", func(t *testing.T) {
		cache := NewMemoryOccupancyCache(10 * time.Millisecond)
		require.NoError(t, cache.Set(ctx, map[string]models.OccupancyState{"a": models.OccupancyHalf}))

		time.Sleep(20 * time.Millisecond)

		_, ok, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		cache := NewMemoryOccupancyCache(time.Hour)
		require.NoError(t, cache.Set(ctx, map[string]models.OccupancyState{"a": models.OccupancyHalf}))
		require.NoError(t, cache.Invalidate(ctx))

		_, ok, _ := cache.Get(ctx)
		assert.False(t, ok)
	})
}
