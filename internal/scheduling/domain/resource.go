package domain

import (
	"time"

	"github.com/google/uuid"
)

// Limits bounds how much booked time a resource may accumulate within a
// rolling window, expressed in slot counts. A zero field means "no limit"
// in that dimension.
type Limits struct {
	DailyMax   int64
	WeeklyMax  int64
	MonthlyMax int64
}

// HasAny reports whether any limit dimension is configured.
func (l Limits) HasAny() bool {
	return l.DailyMax > 0 || l.WeeklyMax > 0 || l.MonthlyMax > 0
}

// Resource is a leaf or container resource. Leaf resources own a
// Scoreboard; container resources aggregate their children's limits
// downward and never hold bookings directly.
type Resource struct {
	id         uuid.UUID
	name       string
	isLeaf     bool
	parentID   uuid.UUID
	hasParent  bool
	timezone   *time.Location
	efficiency Rational
	limits     Limits
	calendar   *Calendar
	scoreboard *Scoreboard // nil for containers

	// index is this resource's position in the owning Project's resource
	// slice; it doubles as the Cell.TaskIndex-style compact handle used by
	// windows that need O(1) resource identity without a map lookup.
	index int
}

// NewLeafResource creates a leaf resource with its own scoreboard.
func NewLeafResource(id uuid.UUID, name string, efficiency Rational, limits Limits, calendar *Calendar, grid *TimeGrid) *Resource {
	r := &Resource{
		id:         id,
		name:       name,
		isLeaf:     true,
		timezone:   time.UTC,
		efficiency: efficiency,
		limits:     limits,
		calendar:   calendar,
	}
	r.scoreboard = NewScoreboard(grid.Size(), calendar)
	return r
}

// NewContainerResource creates a container (non-leaf) resource. Containers
// aggregate limits downward over their children but hold no scoreboard.
func NewContainerResource(id uuid.UUID, name string, limits Limits) *Resource {
	return &Resource{
		id:     id,
		name:   name,
		isLeaf: false,
		limits: limits,
	}
}

func (r *Resource) ID() uuid.UUID        { return r.id }
func (r *Resource) Name() string         { return r.name }
func (r *Resource) IsLeaf() bool         { return r.isLeaf }
func (r *Resource) Efficiency() Rational { return r.efficiency }
func (r *Resource) Limits() Limits       { return r.limits }
func (r *Resource) Calendar() *Calendar  { return r.calendar }
func (r *Resource) Scoreboard() *Scoreboard { return r.scoreboard }
func (r *Resource) Index() int           { return r.index }

// SetIndex is called once by Project when the resource is registered.
func (r *Resource) SetIndex(i int) { r.index = i }

// SetParent records the container this resource aggregates into.
func (r *Resource) SetParent(parentID uuid.UUID) {
	r.parentID = parentID
	r.hasParent = true
}

// Parent returns the parent resource id and whether one is set.
func (r *Resource) Parent() (uuid.UUID, bool) { return r.parentID, r.hasParent }

// SetTimezone overrides the resource's local timezone for wall-instant
// rendering.
func (r *Resource) SetTimezone(loc *time.Location) { r.timezone = loc }

// Timezone returns the resource's local timezone.
func (r *Resource) Timezone() *time.Location { return r.timezone }
