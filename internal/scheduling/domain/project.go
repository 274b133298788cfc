package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/chronoforge/internal/shared/domain"
	"github.com/google/uuid"
)

// ProjectOptions collects the project-wide recognised options: the
// timezone/timeformat rendering defaults, the timing grid resolution, the
// default scheduling direction new tasks inherit, and the project default
// working-hours template resources fall back to absent their own shift or
// explicit hours.
type ProjectOptions struct {
	Timezone            *time.Location
	ResolutionSeconds    int64
	DefaultDirection     Direction
	DailyWorkingHours    WeeklyTemplate
	DefaultLimits        Limits
}

// DefaultProjectOptions mirrors the documented defaults: UTC, hourly
// slots, ASAP scheduling, Monday-Friday 09:00-17:00.
func DefaultProjectOptions() ProjectOptions {
	return ProjectOptions{
		Timezone:          time.UTC,
		ResolutionSeconds: 3600,
		DefaultDirection:  DirectionASAP,
		DailyWorkingHours: DefaultWorkWeek(),
	}
}

// Project is the aggregate root of one scheduling run: the time grid, the
// default calendar, every registered resource and task, and the dependency
// graph built from them. It follows the same aggregate-root shape used
// elsewhere in this codebase (BaseAggregateRoot, domain events) but holds
// the deterministic engine's own data model.
type Project struct {
	sharedDomain.BaseAggregateRoot

	name    string
	options ProjectOptions
	grid    *TimeGrid

	resources   []*Resource
	resourceIdx map[uuid.UUID]int
	tasks       []*Task
	taskIdx     map[uuid.UUID]int

	graph *DependencyGraph
}

// NewProject constructs an empty project over [start, end) at the given
// resolution; resources and tasks are added afterward via AddResource and
// AddTask, then Build finalizes the dependency graph.
func NewProject(name string, start, end time.Time, options ProjectOptions) (*Project, error) {
	grid, err := NewTimeGrid(options.ResolutionSeconds, start, end)
	if err != nil {
		return nil, err
	}
	return &Project{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		options:           options,
		grid:              grid,
		resourceIdx:       make(map[uuid.UUID]int),
		taskIdx:           make(map[uuid.UUID]int),
	}, nil
}

func (p *Project) Name() string           { return p.name }
func (p *Project) Options() ProjectOptions { return p.options }
func (p *Project) Grid() *TimeGrid        { return p.grid }

// AddResource registers a resource, assigning it a stable slice index.
func (p *Project) AddResource(r *Resource) {
	r.SetIndex(len(p.resources))
	p.resourceIdx[r.ID()] = len(p.resources)
	p.resources = append(p.resources, r)
}

// Resources returns every registered resource, in registration order.
func (p *Project) Resources() []*Resource { return p.resources }

// Resource looks up a registered resource by id.
func (p *Project) Resource(id uuid.UUID) (*Resource, bool) {
	idx, ok := p.resourceIdx[id]
	if !ok {
		return nil, false
	}
	return p.resources[idx], true
}

// AddTask registers a task, assigning it a stable slice index.
func (p *Project) AddTask(t *Task) {
	t.SetIndex(len(p.tasks))
	p.taskIdx[t.ID()] = len(p.tasks)
	p.tasks = append(p.tasks, t)
}

// Tasks returns every registered task, in registration (declaration) order.
func (p *Project) Tasks() []*Task { return p.tasks }

// Task looks up a registered task by id.
func (p *Project) Task(id uuid.UUID) (*Task, bool) {
	idx, ok := p.taskIdx[id]
	if !ok {
		return nil, false
	}
	return p.tasks[idx], true
}

// Build finalizes the project: derives every resource's calendar bitmap and
// builds the dependency graph. Must run once after every resource and task
// has been added, before the allocator or driver touch the project.
func (p *Project) Build() error {
	for _, r := range p.resources {
		if r.Calendar() != nil {
			r.Calendar().Build()
			if r.Scoreboard() != nil {
				r.Scoreboard().MarkOffDuty()
				applyCalendarBookings(r)
			}
		}
	}

	graph, err := BuildDependencyGraph(p.tasks)
	if err != nil {
		if schedErr, ok := err.(*SchedulingError); ok {
			p.AddDomainEvent(NewScheduleFailed(p.ID(), schedErr))
		}
		return err
	}
	p.graph = graph

	for _, t := range p.tasks {
		t.TransitionTo(StateReady)
	}
	return nil
}

// applyCalendarBookings marks every explicit Booking as Reserved on the
// resource's scoreboard, after the working bitmap is built.
func applyCalendarBookings(r *Resource) {
	grid := r.Calendar().Grid()
	for _, b := range r.Calendar().Bookings() {
		start := grid.Index(b.Start, true)
		end := grid.Index(b.End, true)
		if end <= start {
			continue
		}
		r.Scoreboard().Reserve(start, end, -1)
	}
}

// Graph returns the built dependency graph; valid only after Build succeeds.
func (p *Project) Graph() *DependencyGraph { return p.graph }

// RecordPlacement emits TaskPlaced and advances the task to Placed.
func (p *Project) RecordPlacement(t *Task, start, end int64) {
	t.SetSchedule(start, end)
	t.TransitionTo(StatePlaced)
	p.AddDomainEvent(NewTaskPlaced(p.ID(), t.ID(), start, end))
}

// RecordPreemption emits TaskPreempted and pushes the evicted task back to
// Ready for re-placement next round.
func (p *Project) RecordPreemption(evicted, preempting *Task, resourceID uuid.UUID) {
	evicted.ClearSchedule()
	evicted.TransitionTo(StateReady)
	p.AddDomainEvent(NewTaskPreempted(p.ID(), evicted.ID(), preempting.ID(), resourceID))
}

// RecordRebound emits TaskRebounded and pushes a Placed task back to Ready:
// the caller must already have released its scoreboard bookings before
// calling this, since ClearSchedule only clears the task's own bookkeeping.
func (p *Project) RecordRebound(t *Task) {
	t.ClearSchedule()
	t.TransitionTo(StateReady)
	p.AddDomainEvent(NewTaskRebounded(p.ID(), t.ID()))
}

// RecordFreeze emits TaskFrozen and advances the task to Frozen.
func (p *Project) RecordFreeze(t *Task) {
	t.TransitionTo(StateFrozen)
	p.AddDomainEvent(NewTaskFrozen(p.ID(), t.ID()))
}

// RecordConvergence emits ScheduleConverged.
func (p *Project) RecordConvergence(rounds int) {
	p.AddDomainEvent(NewScheduleConverged(p.ID(), rounds))
}

// RecordFailure emits ScheduleFailed and marks the offending task Failed, if
// one is named on the error.
func (p *Project) RecordFailure(schedErr *SchedulingError) {
	if schedErr.TaskID != uuid.Nil {
		if t, ok := p.Task(schedErr.TaskID); ok {
			t.TransitionTo(StateFailed)
		}
	}
	p.AddDomainEvent(NewScheduleFailed(p.ID(), schedErr))
}
