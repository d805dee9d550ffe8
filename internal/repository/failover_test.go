package repository

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"turfbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context) (map[string]models.OccupancyState, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(map[string]models.OccupancyState), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, states map[string]models.OccupancyState) error {
	args := m.Called(ctx, states)
	return args.Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestFailoverOccupancyCache(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	cache := NewFailoverOccupancyCache(primary, fallback, &logger)
	ctx := context.Background()

	snapshot := map[string]models.OccupancyState{
		"2026-09-01#06": models.OccupancyHalf,
	}

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Get", ctx).Return(snapshot, true, nil).Once()

		got, ok, err := cache.Get(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, snapshot, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("Get", ctx).Return(nil, false, errors.New("fail")).Once()
		fallback.On("Get", ctx).Return(snapshot, true, nil).Once()

		got, ok, err := cache.Get(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, snapshot, got)
		assert.True(t, cache.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		cache.isDown.Store(true)
		cache.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("Get", ctx).Return(snapshot, true, nil).Once()

		got, ok, err := cache.Get(ctx)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, snapshot, got)
		assert.False(t, cache.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		cache.isDown.Store(true)
		cache.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("Get", ctx).Return(nil, false, errors.New("still fail")).Once()
		fallback.On("Get", ctx).Return(nil, false, nil).Once()

		_, ok, err := cache.Get(ctx)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, cache.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetWritesBothWhenHealthy", func(t *testing.T) {
		cache.isDown.Store(false)
		primary.On("Set", ctx, snapshot).Return(nil).Once()
		fallback.On("Set", ctx, snapshot).Return(nil).Once()

		err := cache.Set(ctx, snapshot)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetFailover", func(t *testing.T) {
		cache.isDown.Store(false)
		primary.On("Set", ctx, snapshot).Return(errors.New("fail")).Once()
		fallback.On("Set", ctx, snapshot).Return(nil).Once()

		err := cache.Set(ctx, snapshot)
		assert.NoError(t, err)
		assert.True(t, cache.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetAlreadyDown", func(t *testing.T) {
		cache.isDown.Store(true)
		fallback.On("Set", ctx, snapshot).Return(nil).Once()

		err := cache.Set(ctx, snapshot)
		assert.NoError(t, err)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateSuccess", func(t *testing.T) {
		cache.isDown.Store(false)
		primary.On("Invalidate", ctx).Return(nil).Once()
		fallback.On("Invalidate", ctx).Return(nil).Once()

		err := cache.Invalidate(ctx)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateFailover", func(t *testing.T) {
		cache.isDown.Store(false)
		primary.On("Invalidate", ctx).Return(errors.New("fail")).Once()
		fallback.On("Invalidate", ctx).Return(nil).Once()

		err := cache.Invalidate(ctx)
		assert.NoError(t, err)
		assert.True(t, cache.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

// errCache всегда отвечает ошибкой; для конкурентных сценариев, где
// testify-мок со счетчиками вызовов не годится.
type errCache struct{}

func (errCache) Get(context.Context) (map[string]models.OccupancyState, bool, error) {
	return nil, false, errors.New("down")
}
func (errCache) Set(context.Context, map[string]models.OccupancyState) error {
	return errors.New("down")
}
func (errCache) Invalidate(context.Context) error { return errors.New("down") }

func TestFailoverConcurrentPrimaryFailure(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cache := NewFailoverOccupancyCache(errCache{}, NewMemoryOccupancyCache(time.Minute), &logger)
	ctx := context.Background()

	snapshot := map[string]models.OccupancyState{
		"2026-09-01#06": models.OccupancyHalf,
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = cache.Get(ctx)
			_ = cache.Set(ctx, snapshot)
			_ = cache.Invalidate(ctx)
		}()
	}
	wg.Wait()

	assert.True(t, cache.isDown.Load())
	assert.NotZero(t, cache.lastCheck.Load())
}
