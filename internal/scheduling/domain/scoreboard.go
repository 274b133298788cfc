package domain

// SlotState is the tagged state of a single scoreboard cell, a small
// fixed-width value in place of a per-slot object.
type SlotState uint8

const (
	// SlotFree is available, working time not yet booked.
	SlotFree SlotState = iota
	// SlotOffDuty is outside the resource's working hours.
	SlotOffDuty
	// SlotBooked is claimed by a task the allocator placed, whatever its
	// demand kind, and is subject to preemption by a higher-priority task.
	SlotBooked
	// SlotReserved is claimed by an explicit calendar `booking` entry;
	// reserved slots are never evicted by preemption. The allocator does not
	// reserve slots for duration or length tasks: they are Booked like
	// effort tasks.
	SlotReserved
	// SlotBlocked is unavailable for a reason outside scheduling (e.g. a
	// leave or holiday subtraction applied after booking).
	SlotBlocked
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "Free"
	case SlotOffDuty:
		return "OffDuty"
	case SlotBooked:
		return "Booked"
	case SlotReserved:
		return "Reserved"
	case SlotBlocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

// noTask is the sentinel TaskIndex for cells that carry no task payload.
const noTask int32 = -1

// Cell is the scoreboard's per-slot value: a state tag plus an owning task
// index, packed into a fixed-width struct rather than a polymorphic handle.
type Cell struct {
	State     SlotState
	TaskIndex int32
}

// Predicate names a scan condition CollectIntervals matches against, in
// place of a callable predicate object.
type Predicate uint8

const (
	// PredicateFree matches any non-working-hours-aware Free cell.
	PredicateFree Predicate = iota
	// PredicateFreeAndWorking matches Free cells that are also working time
	// on the owning resource's calendar — the allocator's primary query.
	PredicateFreeAndWorking
	// PredicateMatchingTask matches Booked/Reserved cells owned by a specific
	// task index (used when releasing or re-measuring a task's bookings).
	PredicateMatchingTask
)

// Scoreboard is the dense per-resource timeline: O(1) slot reads, O(k)
// range writes, every resource sized exactly to its TimeGrid.
type Scoreboard struct {
	cells    []Cell
	calendar *Calendar // resolves "working" for MarkOffDuty and Free
}

// NewScoreboard allocates a scoreboard of the given size, all cells Free,
// backed by calendar for working-hours lookups.
func NewScoreboard(size int64, calendar *Calendar) *Scoreboard {
	cells := make([]Cell, size)
	for i := range cells {
		cells[i] = Cell{State: SlotFree, TaskIndex: noTask}
	}
	return &Scoreboard{cells: cells, calendar: calendar}
}

// Len returns the number of slots.
func (sb *Scoreboard) Len() int64 { return int64(len(sb.cells)) }

// At returns the cell at slot (constant time).
func (sb *Scoreboard) At(slot int64) Cell {
	if slot < 0 || slot >= int64(len(sb.cells)) {
		return Cell{State: SlotOffDuty, TaskIndex: noTask}
	}
	return sb.cells[slot]
}

// MarkOffDuty sets every slot where calendar reports non-working to
// SlotOffDuty. Called once after the calendar's bitmap is finalized and
// whenever a leave/holiday override changes it.
func (sb *Scoreboard) MarkOffDuty() {
	for i := range sb.cells {
		if sb.cells[i].State == SlotFree && !sb.calendar.IsWorkingBit(int64(i)) {
			sb.cells[i].State = SlotOffDuty
		}
	}
}

// Book marks [start, end) as Booked by taskIndex. O(k) in the range length.
func (sb *Scoreboard) Book(start, end int64, taskIndex int32) {
	sb.setRange(start, end, SlotBooked, taskIndex)
}

// Reserve marks [start, end) as Reserved by taskIndex (Project.Build uses it
// for explicit calendar bookings — never evicted by preemption).
func (sb *Scoreboard) Reserve(start, end int64, taskIndex int32) {
	sb.setRange(start, end, SlotReserved, taskIndex)
}

// Free releases [start, end) back to Free, respecting the underlying
// calendar (a slot that is off-duty stays off-duty even after release).
func (sb *Scoreboard) Free(start, end int64) {
	for i := start; i < end && i < int64(len(sb.cells)); i++ {
		if i < 0 {
			continue
		}
		if sb.calendar != nil && !sb.calendar.IsWorkingBit(i) {
			sb.cells[i] = Cell{State: SlotOffDuty, TaskIndex: noTask}
			continue
		}
		sb.cells[i] = Cell{State: SlotFree, TaskIndex: noTask}
	}
}

func (sb *Scoreboard) setRange(start, end int64, state SlotState, taskIndex int32) {
	for i := start; i < end && i < int64(len(sb.cells)); i++ {
		if i < 0 {
			continue
		}
		sb.cells[i] = Cell{State: state, TaskIndex: taskIndex}
	}
}

// Interval is a half-open maximal run [Start, End) of slots satisfying a
// CollectIntervals predicate; End is the first non-matching slot after the
// run.
type Interval struct {
	Start int64
	End   int64
}

// Len returns the number of slots in the interval.
func (iv Interval) Len() int64 { return iv.End - iv.Start }

// CollectIntervals extracts maximal runs of slots satisfying predicate,
// bounded (inclusively on both ends) to [start, end], discarding runs
// shorter than minDuration. This is the allocator's primary scoreboard
// query.
func (sb *Scoreboard) CollectIntervals(start, end int64, predicate Predicate, matchTask int32, minDuration int64) []Interval {
	if start < 0 {
		start = 0
	}
	if end >= int64(len(sb.cells)) {
		end = int64(len(sb.cells)) - 1
	}
	if end < start {
		return nil
	}

	var out []Interval
	runStart := int64(-1)
	for i := start; i <= end; i++ {
		match := sb.matches(sb.cells[i], predicate, matchTask)
		if match {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			if i-runStart >= minDuration {
				out = append(out, Interval{Start: runStart, End: i})
			}
			runStart = -1
		}
	}
	if runStart >= 0 {
		runEnd := end + 1
		if runEnd-runStart >= minDuration {
			out = append(out, Interval{Start: runStart, End: runEnd})
		}
	}
	return out
}

func (sb *Scoreboard) matches(c Cell, predicate Predicate, matchTask int32) bool {
	switch predicate {
	case PredicateFree:
		return c.State == SlotFree
	case PredicateFreeAndWorking:
		return c.State == SlotFree
	case PredicateMatchingTask:
		return (c.State == SlotBooked || c.State == SlotReserved) && c.TaskIndex == matchTask
	default:
		return false
	}
}
