package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProject_BuildsGridAndAssignsIndices(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)
	opts := domain.DefaultProjectOptions()

	proj, err := domain.NewProject("road works", start, end, opts)
	require.NoError(t, err)

	cal := domain.NewCalendar(proj.Grid(), opts.DailyWorkingHours, opts.Timezone)
	resource := domain.NewLeafResource(uuid.New(), "crew-1", domain.One, domain.Limits{}, cal, proj.Grid())
	proj.AddResource(resource)
	assert.Equal(t, 0, resource.Index())

	task := domain.NewTask(uuid.New(), "dig", 0)
	proj.AddTask(task)
	assert.Equal(t, 0, task.Index())

	require.NoError(t, proj.Build())
	assert.Equal(t, domain.StateReady, task.State())
	require.NotNil(t, proj.Graph())
}

func TestProject_Build_SurfacesCycleAsScheduleFailed(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	proj, err := domain.NewProject("p", start, end, domain.DefaultProjectOptions())
	require.NoError(t, err)

	a := domain.NewTask(uuid.New(), "a", 0)
	b := domain.NewTask(uuid.New(), "b", 1)
	a.AddDependency(domain.DependencyEdge{Source: b.ID(), Kind: domain.KindEndToStart})
	b.AddDependency(domain.DependencyEdge{Source: a.ID(), Kind: domain.KindEndToStart})
	proj.AddTask(a)
	proj.AddTask(b)

	err = proj.Build()
	require.Error(t, err)

	events := proj.DomainEvents()
	require.Len(t, events, 1)
	failed, ok := events[0].(domain.ScheduleFailed)
	require.True(t, ok)
	assert.Equal(t, domain.ErrKindCycleDetected, failed.Kind)
}

func TestProject_RecordPlacementEmitsEvent(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	proj, err := domain.NewProject("p", start, end, domain.DefaultProjectOptions())
	require.NoError(t, err)

	task := domain.NewTask(uuid.New(), "t", 0)
	proj.AddTask(task)
	require.NoError(t, proj.Build())

	proj.RecordPlacement(task, 9, 13)
	assert.Equal(t, domain.StatePlaced, task.State())

	events := proj.DomainEvents()
	require.Len(t, events, 1)
	placed, ok := events[0].(domain.TaskPlaced)
	require.True(t, ok)
	assert.Equal(t, int64(9), placed.Start)
	assert.Equal(t, int64(13), placed.End)
}
