package repository

import (
	"context"
	"sync"
	"time"

	"turfbook/internal/models"
)

// MemoryOccupancyCache — запасной кэш в памяти на случай недоступности Redis.
// Снимок живет не дольше ttl, затем считается отсутствующим.
type MemoryOccupancyCache struct {
	mu      sync.RWMutex
	states  map[string]models.OccupancyState
	ttl     time.Duration
	savedAt time.Time
}

func NewMemoryOccupancyCache(ttl time.Duration) *MemoryOccupancyCache {
	return &MemoryOccupancyCache{ttl: ttl}
}

func (m *MemoryOccupancyCache) Get(_ context.Context) (map[string]models.OccupancyState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.states == nil || time.Since(m.savedAt) > m.ttl {
		return nil, false, nil
	}

	out := make(map[string]models.OccupancyState, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out, true, nil
}

func (m *MemoryOccupancyCache) Set(_ context.Context, states map[string]models.OccupancyState) error {
	cp := make(map[string]models.OccupancyState, len(states))
	for k, v := range states {
		cp[k] = v
	}

	m.mu.Lock()
	m.states = cp
	m.savedAt = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *MemoryOccupancyCache) Invalidate(_ context.Context) error {
	m.mu.Lock()
	m.states = nil
	m.mu.Unlock()
	return nil
}
