package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeGrid_RejectsNonDivisorResolution(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	_, err := domain.NewTimeGrid(7, start, end)
	require.Error(t, err)
	var schedErr *domain.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, domain.ErrKindInvalidTime, schedErr.Kind)
}

func TestNewTimeGrid_RejectsEndBeforeStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := domain.NewTimeGrid(3600, start, start)
	require.Error(t, err)
}

func TestTimeGrid_IndexAndInstantRoundTrip(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	grid, err := domain.NewTimeGrid(3600, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(49), grid.Size())

	idx := grid.Index(start.Add(5*time.Hour), false)
	assert.Equal(t, int64(5), idx)
	assert.Equal(t, start.Add(5*time.Hour), grid.Instant(idx, false))
}

func TestTimeGrid_IndexClampsOutOfRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	grid, err := domain.NewTimeGrid(3600, start, end)
	require.NoError(t, err)

	before := grid.Index(start.Add(-time.Hour), true)
	assert.Equal(t, int64(0), before)

	after := grid.Index(end.Add(time.Hour), true)
	assert.Equal(t, grid.Size()-1, after)
}

func TestTimeGrid_InBoundsAndClamp(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	grid, err := domain.NewTimeGrid(3600, start, end)
	require.NoError(t, err)

	assert.True(t, grid.InBounds(0))
	assert.False(t, grid.InBounds(-1))
	assert.False(t, grid.InBounds(grid.Size()))
	assert.Equal(t, int64(0), grid.Clamp(-5))
	assert.Equal(t, grid.Size()-1, grid.Clamp(grid.Size()+5))
}
