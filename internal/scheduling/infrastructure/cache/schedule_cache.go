// Package cache provides a Redis-backed read-through cache in front of a
// Schedule snapshot store, so repeated reads of a project's latest schedule
// (report rendering, status polling) don't all fall through to the
// underlying repository.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

const keyPrefix = "chronoforge:schedule:"

func cacheKey(projectID uuid.UUID) string {
	return fmt.Sprintf("%s%s", keyPrefix, projectID.String())
}

// ScheduleCache decorates a domain.ScheduleRepository with a read-through
// cache: SaveSchedule writes through to both the cache and the backing
// repository, LatestSchedule serves from the cache on a hit and populates it
// on a miss.
type ScheduleCache struct {
	backing domain.ScheduleRepository
	client  *redis.Client
	ttl     time.Duration
}

// NewScheduleCache wraps backing with a Redis read-through cache. A ttl of
// zero caches snapshots without expiration.
func NewScheduleCache(backing domain.ScheduleRepository, client *redis.Client, ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{backing: backing, client: client, ttl: ttl}
}

var _ domain.ScheduleRepository = (*ScheduleCache)(nil)

// SaveSchedule persists s to the backing repository, then writes through to
// the cache. A cache write failure does not fail the save: the next read
// simply falls through and repopulates it.
func (c *ScheduleCache) SaveSchedule(ctx context.Context, s *domain.Schedule) error {
	if err := c.backing.SaveSchedule(ctx, s); err != nil {
		return err
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	_ = c.client.Set(ctx, cacheKey(s.ProjectID), payload, c.ttl).Err()
	return nil
}

// LatestSchedule returns the cached snapshot if present, otherwise loads it
// from the backing repository and populates the cache for next time.
func (c *ScheduleCache) LatestSchedule(ctx context.Context, projectID uuid.UUID) (*domain.Schedule, error) {
	key := cacheKey(projectID)

	val, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var s domain.Schedule
		if jsonErr := json.Unmarshal(val, &s); jsonErr == nil {
			return &s, nil
		}
		// Corrupt cache entry: fall through to the backing repository.
	} else if !errors.Is(err, redis.Nil) {
		// Redis unavailable: fall through rather than fail the read.
	}

	s, err := c.backing.LatestSchedule(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if payload, marshalErr := json.Marshal(s); marshalErr == nil {
		_ = c.client.Set(ctx, key, payload, c.ttl).Err()
	}

	return s, nil
}

// Invalidate removes a project's cached snapshot, e.g. after a rejected run
// that should not serve stale data until the next successful SaveSchedule.
func (c *ScheduleCache) Invalidate(ctx context.Context, projectID uuid.UUID) error {
	return c.client.Del(ctx, cacheKey(projectID)).Err()
}
