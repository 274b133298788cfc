package cache

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// InMemoryScheduleCache is a process-local stand-in for ScheduleCache, used
// in tests and single-process deployments that don't run Redis.
type InMemoryScheduleCache struct {
	backing domain.ScheduleRepository
	mu      sync.RWMutex
	entries map[uuid.UUID]*domain.Schedule
}

// NewInMemoryScheduleCache wraps backing with a process-local cache.
func NewInMemoryScheduleCache(backing domain.ScheduleRepository) *InMemoryScheduleCache {
	return &InMemoryScheduleCache{
		backing: backing,
		entries: make(map[uuid.UUID]*domain.Schedule),
	}
}

var _ domain.ScheduleRepository = (*InMemoryScheduleCache)(nil)

// SaveSchedule persists s to the backing repository, then writes through to
// the cache.
func (c *InMemoryScheduleCache) SaveSchedule(ctx context.Context, s *domain.Schedule) error {
	if err := c.backing.SaveSchedule(ctx, s); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[s.ProjectID] = s
	c.mu.Unlock()
	return nil
}

// LatestSchedule returns the cached snapshot if present, otherwise loads it
// from the backing repository and populates the cache.
func (c *InMemoryScheduleCache) LatestSchedule(ctx context.Context, projectID uuid.UUID) (*domain.Schedule, error) {
	c.mu.RLock()
	s, ok := c.entries[projectID]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := c.backing.LatestSchedule(ctx, projectID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[projectID] = s
	c.mu.Unlock()
	return s, nil
}

// Invalidate removes a project's cached snapshot.
func (c *InMemoryScheduleCache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, projectID)
	c.mu.Unlock()
	return nil
}
