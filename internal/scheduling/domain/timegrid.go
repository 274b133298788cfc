package domain

import (
	"fmt"
	"time"
)

// TimeGrid maps wall-clock instants to integer slot indices at a fixed
// resolution and back. All internal scheduling arithmetic operates on slot
// indices; wall time is only ever produced at the grid's edges.
type TimeGrid struct {
	resolutionSeconds int64
	projectStart      time.Time
	projectEnd        time.Time
	size              int64
}

// NewTimeGrid builds a TimeGrid for [projectStart, projectEnd] at the given
// resolution. resolutionSeconds must be a positive divisor of 3600.
func NewTimeGrid(resolutionSeconds int64, projectStart, projectEnd time.Time) (*TimeGrid, error) {
	if resolutionSeconds <= 0 || 3600%resolutionSeconds != 0 {
		return nil, &SchedulingError{
			Kind:    ErrKindInvalidTime,
			Message: fmt.Sprintf("resolution_seconds %d must be a positive divisor of 3600", resolutionSeconds),
		}
	}
	if !projectEnd.After(projectStart) {
		return nil, &SchedulingError{
			Kind:    ErrKindInvalidTime,
			Message: "project_end must be after project_start",
		}
	}

	span := projectEnd.Sub(projectStart)
	size := int64(span/time.Second)/resolutionSeconds + 1
	if int64(span/time.Second)%resolutionSeconds != 0 {
		size++
	}

	return &TimeGrid{
		resolutionSeconds: resolutionSeconds,
		projectStart:      projectStart,
		projectEnd:        projectEnd,
		size:              size,
	}, nil
}

// ResolutionSeconds returns the grid's slot width in seconds.
func (g *TimeGrid) ResolutionSeconds() int64 { return g.resolutionSeconds }

// ProjectStart returns the instant slot 0 represents.
func (g *TimeGrid) ProjectStart() time.Time { return g.projectStart }

// ProjectEnd returns the instant the grid was built to cover.
func (g *TimeGrid) ProjectEnd() time.Time { return g.projectEnd }

// Size returns ceil((end-start)/resolution)+1, the number of valid slot
// indices (and therefore the length every Scoreboard must have).
func (g *TimeGrid) Size() int64 { return g.size }

// Index maps an instant to floor((t - project_start)/resolution). When clamp
// is true, out-of-range instants map to 0 or size-1 instead of an
// out-of-bounds index.
func (g *TimeGrid) Index(t time.Time, clamp bool) int64 {
	delta := t.Sub(g.projectStart)
	idx := int64(delta / time.Second / time.Duration(g.resolutionSeconds))
	// floor toward negative infinity for instants before project_start
	if delta < 0 && int64(delta/time.Second)%g.resolutionSeconds != 0 {
		idx--
	}
	if clamp {
		if idx < 0 {
			return 0
		}
		if idx >= g.size {
			return g.size - 1
		}
	}
	return idx
}

// Instant inverts Index: instant(i) = project_start + i*resolution. When
// clamp is true, an out-of-range index is clamped to [0, size-1] first.
func (g *TimeGrid) Instant(index int64, clamp bool) time.Time {
	if clamp {
		if index < 0 {
			index = 0
		}
		if index >= g.size {
			index = g.size - 1
		}
	}
	return g.projectStart.Add(time.Duration(index*g.resolutionSeconds) * time.Second)
}

// InBounds reports whether index lies in [0, size).
func (g *TimeGrid) InBounds(index int64) bool {
	return index >= 0 && index < g.size
}

// Clamp folds an index into [0, size).
func (g *TimeGrid) Clamp(index int64) int64 {
	if index < 0 {
		return 0
	}
	if index >= g.size {
		return g.size - 1
	}
	return index
}
