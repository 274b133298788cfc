package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/services"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWeekProject(t *testing.T) *domain.Project {
	t.Helper()
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC) // Monday
	end := start.Add(14 * 24 * time.Hour)
	proj, err := domain.NewProject("test", start, end, domain.DefaultProjectOptions())
	require.NoError(t, err)
	return proj
}

func addLeafResource(t *testing.T, proj *domain.Project, name string) *domain.Resource {
	t.Helper()
	cal := domain.NewCalendar(proj.Grid(), domain.DefaultWorkWeek(), time.UTC)
	r := domain.NewLeafResource(uuid.New(), name, domain.One, domain.Limits{}, cal, proj.Grid())
	proj.AddResource(r)
	return r
}

func TestEngine_Schedule_SingleEffortTask(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	task := domain.NewTask(uuid.New(), "dig trench", 0)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 4})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	schedule, err := engine.Schedule(context.Background(), proj)
	require.NoError(t, err)
	assert.True(t, schedule.Converged)

	require.Len(t, schedule.Tasks, 1)
	row := schedule.Tasks[0]
	assert.Equal(t, domain.StateFrozen, row.State)
	assert.Equal(t, int64(9), row.Start) // first working slot, Monday 09:00
	assert.Equal(t, int64(13), row.End)
}

func TestEngine_Schedule_SequentialDependencyChain(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	a := domain.NewTask(uuid.New(), "a", 0)
	a.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	a.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(a)

	b := domain.NewTask(uuid.New(), "b", 1)
	b.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	b.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	b.AddDependency(domain.DependencyEdge{Source: a.ID(), Kind: domain.KindEndToStart})
	proj.AddTask(b)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	schedule, err := engine.Schedule(context.Background(), proj)
	require.NoError(t, err)
	assert.True(t, schedule.Converged)

	var aRow, bRow domain.TaskSchedule
	for _, row := range schedule.Tasks {
		if row.TaskID == a.ID() {
			aRow = row
		}
		if row.TaskID == b.ID() {
			bRow = row
		}
	}
	assert.True(t, bRow.Start >= aRow.End, "b must start no earlier than a ends")
}

func TestEngine_Schedule_MilestoneCollapsesToOneSlot(t *testing.T) {
	proj := newWeekProject(t)
	milestone := domain.NewTask(uuid.New(), "kickoff", 0)
	start := int64(10)
	milestone.SetAnchors(domain.Anchors{Start: &start})
	proj.AddTask(milestone)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	schedule, err := engine.Schedule(context.Background(), proj)
	require.NoError(t, err)

	require.Len(t, schedule.Tasks, 1)
	row := schedule.Tasks[0]
	assert.Equal(t, int64(10), row.Start)
	assert.Equal(t, int64(11), row.End)
}

func TestEngine_Schedule_ALAPPlacesAtWindowEnd(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	deadline := int64(17) // Monday 17:00, the last working slot boundary
	task := domain.NewTask(uuid.New(), "file report", 0)
	task.SetDirection(domain.DirectionALAP)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	task.SetAnchors(domain.Anchors{End: &deadline})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	schedule, err := engine.Schedule(context.Background(), proj)
	require.NoError(t, err)

	require.Len(t, schedule.Tasks, 1)
	row := schedule.Tasks[0]
	assert.Equal(t, int64(17), row.End)
	assert.Equal(t, int64(15), row.Start)
}

func TestEngine_Schedule_NoResourceFitsDemand(t *testing.T) {
	proj := newWeekProject(t)
	task := domain.NewTask(uuid.New(), "orphan", 0)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: uuid.New()})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	_, err := engine.Schedule(context.Background(), proj)
	require.Error(t, err)
	var schedErr *domain.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, domain.ErrKindNoResource, schedErr.Kind)
}

func TestAllocator_HigherPriorityPreemptsStillPlacedLower(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	low := domain.NewTask(uuid.New(), "low priority", 0)
	low.SetPriority(1)
	low.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 8})
	low.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(low)

	require.NoError(t, proj.Build())

	allocator := services.NewAllocator()
	window := domain.Window{Lower: 0, Upper: proj.Grid().Size()}

	// Place low directly, as the driver would mid-round: it fills Monday's
	// entire working window and is left in Placed (not yet Frozen).
	low.TransitionTo(domain.StateReady)
	placement, err := allocator.Place(context.Background(), proj, low, window)
	require.NoError(t, err)
	proj.RecordPlacement(low, placement.Start, placement.End)
	require.Equal(t, domain.StatePlaced, low.State())

	high := domain.NewTask(uuid.New(), "high priority", 2)
	high.SetPriority(10)
	high.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	high.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(high)

	// Confine high to Monday alone: the only slots available there are the
	// ones low already holds, forcing the allocator to preempt rather than
	// spill over onto the free capacity later in the week.
	mondayOnly := domain.Window{Lower: 0, Upper: 17}
	highPlacement, err := allocator.Place(context.Background(), proj, high, mondayOnly)
	require.NoError(t, err)
	assert.NotEmpty(t, highPlacement.Evicted)
	assert.Equal(t, low.ID(), highPlacement.Evicted[0].ID())
}

func TestEngine_Schedule_ContainerSpansItsChildren(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	parent := domain.NewTask(uuid.New(), "phase", 0)
	proj.AddTask(parent)

	childA := domain.NewTask(uuid.New(), "phase.a", 1)
	childA.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	childA.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	childA.SetParent(parent.ID())
	parent.AddChild(childA.ID())
	proj.AddTask(childA)

	childB := domain.NewTask(uuid.New(), "phase.b", 2)
	childB.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	childB.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	childB.AddDependency(domain.DependencyEdge{Source: childA.ID(), Kind: domain.KindEndToStart})
	childB.SetParent(parent.ID())
	parent.AddChild(childB.ID())
	proj.AddTask(childB)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	schedule, err := engine.Schedule(context.Background(), proj)
	require.NoError(t, err)
	assert.True(t, schedule.Converged)

	var parentRow, aRow, bRow domain.TaskSchedule
	for _, row := range schedule.Tasks {
		switch row.TaskID {
		case parent.ID():
			parentRow = row
		case childA.ID():
			aRow = row
		case childB.ID():
			bRow = row
		}
	}
	assert.Equal(t, domain.StateFrozen, parentRow.State)
	assert.Equal(t, aRow.Start, parentRow.Start)
	assert.Equal(t, bRow.End, parentRow.End)
}

func TestAllocator_NonContiguousDemandSpansMultipleRuns(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	// Book a single slot mid-Monday so the remaining working time splits into
	// two runs too short individually to hold 7 slots contiguously, but
	// enough together for non-contiguous demand.
	crew.Scoreboard().Book(12, 13, -1)

	task := domain.NewTask(uuid.New(), "scattered", 0)
	task.SetContiguous(false)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 7})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	allocator := services.NewAllocator()
	window := domain.Window{Lower: 0, Upper: 17}
	placement, err := allocator.Place(context.Background(), proj, task, window)
	require.NoError(t, err)
	assert.Equal(t, int64(9), placement.Start)
	assert.Equal(t, int64(17), placement.End)
}

func TestAllocator_ContiguousDemandRejectsSplitRuns(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")
	crew.Scoreboard().Book(12, 13, -1)

	task := domain.NewTask(uuid.New(), "needs one block", 0)
	task.SetContiguous(true)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 7})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	allocator := services.NewAllocator()
	window := domain.Window{Lower: 0, Upper: 17}
	_, err := allocator.Place(context.Background(), proj, task, window)
	require.Error(t, err)
	var schedErr *domain.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, domain.ErrKindNoResource, schedErr.Kind)
}

func TestAllocator_CombineGroupBooksEveryResourceAtOnce(t *testing.T) {
	proj := newWeekProject(t)
	crane := addLeafResource(t, proj, "crane")
	crew := addLeafResource(t, proj, "crew")

	// Crew is already busy for the first hour; the combined run must start
	// after both are simultaneously free.
	crew.Scoreboard().Book(9, 10, -1)

	task := domain.NewTask(uuid.New(), "lift", 0)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	task.AddAllocationGroup(domain.AllocationGroup{
		Primary:      crane.ID(),
		Alternatives: []uuid.UUID{crew.ID()},
		Combine:      true,
	})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	schedule, err := engine.Schedule(context.Background(), proj)
	require.NoError(t, err)

	require.Len(t, schedule.Tasks, 1)
	row := schedule.Tasks[0]
	assert.Equal(t, int64(10), row.Start)
	assert.Equal(t, int64(12), row.End)
	assert.Len(t, row.Bookings[crane.ID()], 1)
	assert.Len(t, row.Bookings[crew.ID()], 1)
}

func TestEngine_Schedule_UnsatisfiableAnchorsFail(t *testing.T) {
	proj := newWeekProject(t)
	start := int64(20)
	end := int64(10)
	task := domain.NewTask(uuid.New(), "impossible", 0)
	task.SetAnchors(domain.Anchors{Start: &start, End: &end})
	proj.AddTask(task)

	require.NoError(t, proj.Build())

	engine := services.NewEngine()
	_, err := engine.Schedule(context.Background(), proj)
	require.Error(t, err)
	var schedErr *domain.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, domain.ErrKindUnsatisfiable, schedErr.Kind)
}

func TestEngine_Schedule_ExceedsReplacementBoundIsNonconvergent(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	task := domain.NewTask(uuid.New(), "flaky", 0)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(task)

	require.NoError(t, proj.Build())
	require.Equal(t, domain.StateReady, task.State())

	// Simulate a task that has already been bounced between Placed and Ready
	// past the bound the driver enforces, as if earlier rounds kept evicting
	// and re-placing it.
	for i := 0; i < domain.MaxReplacements+1; i++ {
		require.True(t, task.TransitionTo(domain.StatePlaced))
		require.True(t, task.TransitionTo(domain.StateReady))
	}
	require.Equal(t, domain.MaxReplacements+1, task.ReplacementCount())

	engine := services.NewEngine()
	_, err := engine.Schedule(context.Background(), proj)
	require.Error(t, err)
	var schedErr *domain.SchedulingError
	require.ErrorAs(t, err, &schedErr)
	assert.Equal(t, domain.ErrKindNonconvergent, schedErr.Kind)
}

func TestAllocator_FrozenBookingIsNotPreempted(t *testing.T) {
	proj := newWeekProject(t)
	crew := addLeafResource(t, proj, "crew")

	low := domain.NewTask(uuid.New(), "low priority", 0)
	low.SetPriority(1)
	low.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 8})
	low.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(low)

	require.NoError(t, proj.Build())

	allocator := services.NewAllocator()
	window := domain.Window{Lower: 0, Upper: proj.Grid().Size()}

	low.TransitionTo(domain.StateReady)
	placement, err := allocator.Place(context.Background(), proj, low, window)
	require.NoError(t, err)
	proj.RecordPlacement(low, placement.Start, placement.End)
	proj.RecordFreeze(low)
	require.Equal(t, domain.StateFrozen, low.State())

	high := domain.NewTask(uuid.New(), "high priority", 2)
	high.SetPriority(10)
	high.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 2})
	high.AddAllocationGroup(domain.AllocationGroup{Primary: crew.ID()})
	proj.AddTask(high)

	// Monday is fully booked by a Frozen task; the only remaining free time
	// is later in the week, so placement must succeed without eviction.
	highPlacement, err := allocator.Place(context.Background(), proj, high, window)
	require.NoError(t, err)
	assert.Empty(t, highPlacement.Evicted)
	assert.True(t, highPlacement.Start >= 24)
}
