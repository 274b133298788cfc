package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/infrastructure/cache"
	"github.com/google/uuid"
)

var errNotFound = errors.New("schedule not found")

type countingRepo struct {
	saved    map[uuid.UUID]*domain.Schedule
	loadHits int
}

func newCountingRepo() *countingRepo {
	return &countingRepo{saved: make(map[uuid.UUID]*domain.Schedule)}
}

func (r *countingRepo) SaveSchedule(ctx context.Context, s *domain.Schedule) error {
	r.saved[s.ProjectID] = s
	return nil
}

func (r *countingRepo) LatestSchedule(ctx context.Context, projectID uuid.UUID) (*domain.Schedule, error) {
	r.loadHits++
	s, ok := r.saved[projectID]
	if !ok {
		return nil, errNotFound
	}
	return s, nil
}

func TestInMemoryScheduleCache_SaveThenReadFromCache(t *testing.T) {
	backing := newCountingRepo()
	c := cache.NewInMemoryScheduleCache(backing)
	ctx := context.Background()

	projectID := uuid.New()
	schedule := &domain.Schedule{ProjectID: projectID, Rounds: 3, Converged: true}

	require.NoError(t, c.SaveSchedule(ctx, schedule))

	got, err := c.LatestSchedule(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, schedule, got)
	assert.Equal(t, 0, backing.loadHits, "save should populate the cache without hitting the backing repository on read")
}

func TestInMemoryScheduleCache_MissFallsThroughAndPopulates(t *testing.T) {
	backing := newCountingRepo()
	projectID := uuid.New()
	backing.saved[projectID] = &domain.Schedule{ProjectID: projectID, Rounds: 1, Converged: false}

	c := cache.NewInMemoryScheduleCache(backing)
	ctx := context.Background()

	got, err := c.LatestSchedule(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rounds)
	assert.Equal(t, 1, backing.loadHits)

	// Second read should be served from the cache.
	_, err = c.LatestSchedule(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.loadHits)
}

func TestInMemoryScheduleCache_Invalidate(t *testing.T) {
	backing := newCountingRepo()
	c := cache.NewInMemoryScheduleCache(backing)
	ctx := context.Background()

	projectID := uuid.New()
	require.NoError(t, c.SaveSchedule(ctx, &domain.Schedule{ProjectID: projectID, Rounds: 1}))

	require.NoError(t, c.Invalidate(ctx, projectID))

	_, err := c.LatestSchedule(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.loadHits, "invalidated entry should fall through to the backing repository once")
}

func TestInMemoryScheduleCache_NotFoundPropagates(t *testing.T) {
	backing := newCountingRepo()
	c := cache.NewInMemoryScheduleCache(backing)

	_, err := c.LatestSchedule(context.Background(), uuid.New())
	require.ErrorIs(t, err, errNotFound)
}
