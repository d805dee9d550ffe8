package repository

import (
	"context"
	"sync/atomic"
	"time"

	"turfbook/internal/domain"
	"turfbook/internal/models"

	"github.com/rs/zerolog"
)

type FailoverOccupancyCache struct {
	primary  domain.OccupancyCache
	fallback domain.OccupancyCache
	logger   *zerolog.Logger
	isDown   atomic.Bool
	// lastCheck — unix-наносекунды последней неудачной попытки primary.
	// Атомарно: сбои Get/Set/Invalidate идут из конкурентных запросов.
	lastCheck atomic.Int64
}

func (r *FailoverOccupancyCache) markFailure() {
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverOccupancyCache) recoveryDue() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func NewFailoverOccupancyCache(primary, fallback domain.OccupancyCache, logger *zerolog.Logger) *FailoverOccupancyCache {
	return &FailoverOccupancyCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverOccupancyCache) Get(ctx context.Context) (map[string]models.OccupancyState, bool, error) {
	if !r.isDown.Load() {
		states, ok, err := r.primary.Get(ctx)
		if err == nil {
			return states, ok, nil
		}
		r.logger.Error().Err(err).Msg("Primary occupancy cache failed, falling back to memory")
		r.markFailure()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && r.recoveryDue() {
		states, ok, err := r.primary.Get(ctx)
		if err == nil {
			r.isDown.Store(false)
			return states, ok, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Get(ctx)
}

func (r *FailoverOccupancyCache) Set(ctx context.Context, states map[string]models.OccupancyState) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, states)
		if err == nil {
			// Дублируем в память: при падении Redis снимок не теряется.
			_ = r.fallback.Set(ctx, states)
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary occupancy cache failed, falling back to memory")
		r.markFailure()
	}

	return r.fallback.Set(ctx, states)
}

func (r *FailoverOccupancyCache) Invalidate(ctx context.Context) error {
	if !r.isDown.Load() {
		err := r.primary.Invalidate(ctx)
		if err == nil {
			return r.fallback.Invalidate(ctx)
		}
		r.logger.Error().Err(err).Msg("Primary occupancy cache failed, falling back to memory")
		r.markFailure()
	}

	return r.fallback.Invalidate(ctx)
}
