package domain

import "github.com/google/uuid"

// Direction is a task's scheduling direction: minimize start (ASAP) or
// maximize end (ALAP) within its constraints.
type Direction string

const (
	DirectionASAP Direction = "asap"
	DirectionALAP Direction = "alap"
)

// DemandKind identifies which of the three mutually exclusive demand forms
// a task uses.
type DemandKind string

const (
	// DemandEffort is work, scaled by resource efficiency.
	DemandEffort DemandKind = "effort"
	// DemandDuration is raw clock time, ignoring the calendar entirely.
	DemandDuration DemandKind = "duration"
	// DemandLength is working time on the project calendar, unscaled by
	// efficiency.
	DemandLength DemandKind = "length"
)

// Demand is the exactly-one-of effort/duration/length requirement.
type Demand struct {
	Kind  DemandKind
	Slots int64 // effort or duration or length, in slot-units per Kind
}

// AllocationGroup names one primary resource plus an ordered list of
// alternative resources. Combine, when true, means every resource in the
// group (primary + alternatives) must supply the demand simultaneously via
// bitmap intersection; otherwise alternatives are tried in order and the
// earliest/latest-finishing option wins.
type AllocationGroup struct {
	Primary      uuid.UUID
	Alternatives []uuid.UUID
	Combine      bool
}

// Resources returns primary followed by alternatives, the declaration order
// used for alternative tie-breaks.
func (g AllocationGroup) Resources() []uuid.UUID {
	out := make([]uuid.UUID, 0, 1+len(g.Alternatives))
	out = append(out, g.Primary)
	out = append(out, g.Alternatives...)
	return out
}

// Anchors holds the optional hard bounds: start/end pin the task exactly,
// min_start/max_end only bound one side.
type Anchors struct {
	Start    *int64
	End      *int64
	MinStart *int64
	MaxEnd   *int64
}

// Bookings is resource -> sorted, non-overlapping slot ranges booked for a
// task, the per-task schedule output.
type Bookings map[uuid.UUID][]Interval

// TotalSlots sums every booked range across every resource.
func (b Bookings) TotalSlots() int64 {
	var total int64
	for _, ranges := range b {
		for _, r := range ranges {
			total += r.Len()
		}
	}
	return total
}

// Task is a node in the project's task tree. Only leaves (no children)
// consume resource time; containers derive start/end from their
// descendants.
type Task struct {
	id       uuid.UUID
	name     string
	parentID uuid.UUID
	hasParent bool
	children []uuid.UUID

	direction Direction
	demand    Demand
	allocGroups []AllocationGroup
	contiguous  bool
	priority    int
	anchors     Anchors
	dependencies []DependencyEdge
	carried      map[string]float64

	state            TaskState
	replacementCount int

	scheduledStart int64
	scheduledEnd   int64
	hasSchedule    bool
	bookings       Bookings

	// declarationOrder is the task's position in source order, the final
	// tie-break applied throughout ordering and allocation.
	declarationOrder int
	// index mirrors Resource.index: this task's position in Project's task
	// slice, used as the Scoreboard Cell.TaskIndex payload.
	index int
}

// NewTask constructs a task with defaults: Unscheduled state, ASAP
// direction, zero priority, no dependencies.
func NewTask(id uuid.UUID, name string, declarationOrder int) *Task {
	return &Task{
		id:               id,
		name:             name,
		direction:        DirectionASAP,
		state:            StateUnscheduled,
		carried:          make(map[string]float64),
		bookings:         make(Bookings),
		declarationOrder: declarationOrder,
	}
}

func (t *Task) ID() uuid.UUID   { return t.id }
func (t *Task) Name() string    { return t.name }
func (t *Task) DeclarationOrder() int { return t.declarationOrder }
func (t *Task) Index() int      { return t.index }
func (t *Task) SetIndex(i int)  { t.index = i }

// IsLeaf reports whether the task has no sub-tasks.
func (t *Task) IsLeaf() bool { return len(t.children) == 0 }

// IsMilestone reports whether the task has no demand and no children, the
// single-slot-collapse case.
func (t *Task) IsMilestone() bool {
	return t.IsLeaf() && t.demand.Kind == "" && len(t.allocGroups) == 0
}

func (t *Task) SetParent(parentID uuid.UUID) { t.parentID = parentID; t.hasParent = true }
func (t *Task) Parent() (uuid.UUID, bool)    { return t.parentID, t.hasParent }
func (t *Task) AddChild(childID uuid.UUID)   { t.children = append(t.children, childID) }
func (t *Task) Children() []uuid.UUID        { return t.children }

func (t *Task) SetDirection(d Direction) { t.direction = d }
func (t *Task) Direction() Direction     { return t.direction }

func (t *Task) SetDemand(d Demand) { t.demand = d }
func (t *Task) Demand() Demand     { return t.demand }

func (t *Task) AddAllocationGroup(g AllocationGroup) { t.allocGroups = append(t.allocGroups, g) }
func (t *Task) AllocationGroups() []AllocationGroup  { return t.allocGroups }

func (t *Task) SetContiguous(v bool) { t.contiguous = v }
func (t *Task) Contiguous() bool     { return t.contiguous }

func (t *Task) SetPriority(p int) { t.priority = p }
func (t *Task) Priority() int     { return t.priority }

func (t *Task) SetAnchors(a Anchors) { t.anchors = a }
func (t *Task) Anchors() Anchors     { return t.anchors }

func (t *Task) AddDependency(e DependencyEdge) { t.dependencies = append(t.dependencies, e) }
func (t *Task) Dependencies() []DependencyEdge { return t.dependencies }

func (t *Task) SetCarried(key string, value float64) { t.carried[key] = value }
func (t *Task) Carried(key string) (float64, bool)   { v, ok := t.carried[key]; return v, ok }
func (t *Task) CarriedAttributes() map[string]float64 { return t.carried }

func (t *Task) State() TaskState { return t.state }

// TransitionTo moves the task to next if the edge is a legal state
// transition; returns false (no-op) if the edge is not a documented
// transition.
func (t *Task) TransitionTo(next TaskState) bool {
	if !t.state.CanTransition(next) {
		return false
	}
	if t.state == StatePlaced && next == StateReady {
		t.replacementCount++
	}
	t.state = next
	return true
}

// ReplacementCount returns how many times the task has been pushed from
// Placed back to Ready this run, the count a bounded re-placement budget
// is checked against.
func (t *Task) ReplacementCount() int { return t.replacementCount }

// RehydrateState restores a task's lifecycle state directly from storage,
// bypassing CanTransition. Only valid immediately after construction, before
// the task re-enters a live fixed-point run.
func (t *Task) RehydrateState(s TaskState) { t.state = s }

// SetSchedule records the result of a successful placement.
func (t *Task) SetSchedule(start, end int64) {
	t.scheduledStart = start
	t.scheduledEnd = end
	t.hasSchedule = true
}

// ClearSchedule discards a placement, e.g. on eviction or re-placement.
func (t *Task) ClearSchedule() {
	t.hasSchedule = false
	t.bookings = make(Bookings)
}

// Schedule returns (start, end, ok); ok is false until the task has been
// placed at least once.
func (t *Task) Schedule() (int64, int64, bool) { return t.scheduledStart, t.scheduledEnd, t.hasSchedule }

func (t *Task) AddBooking(resourceID uuid.UUID, iv Interval) {
	t.bookings[resourceID] = append(t.bookings[resourceID], iv)
}

func (t *Task) Bookings() Bookings { return t.bookings }
