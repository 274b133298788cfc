package domain_test

import (
	"testing"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewTask_Defaults(t *testing.T) {
	task := domain.NewTask(uuid.New(), "dig trench", 3)
	assert.Equal(t, domain.DirectionASAP, task.Direction())
	assert.Equal(t, domain.StateUnscheduled, task.State())
	assert.Equal(t, 3, task.DeclarationOrder())
	assert.True(t, task.IsLeaf())
	assert.True(t, task.IsMilestone())
}

func TestTask_AllocationGroupIsNotAMilestone(t *testing.T) {
	task := domain.NewTask(uuid.New(), "pour concrete", 0)
	task.SetDemand(domain.Demand{Kind: domain.DemandEffort, Slots: 8})
	task.AddAllocationGroup(domain.AllocationGroup{Primary: uuid.New()})
	assert.False(t, task.IsMilestone())
}

func TestTask_ChildMakesItNotALeaf(t *testing.T) {
	task := domain.NewTask(uuid.New(), "phase 1", 0)
	task.AddChild(uuid.New())
	assert.False(t, task.IsLeaf())
}

func TestTask_TransitionTo_FollowsStateMachine(t *testing.T) {
	task := domain.NewTask(uuid.New(), "t", 0)

	assert.True(t, task.TransitionTo(domain.StateReady))
	assert.True(t, task.TransitionTo(domain.StatePlaced))
	assert.Equal(t, domain.StatePlaced, task.State())

	// Placed -> Ready is legal and counts as a re-placement.
	assert.True(t, task.TransitionTo(domain.StateReady))
	assert.Equal(t, 1, task.ReplacementCount())

	assert.True(t, task.TransitionTo(domain.StatePlaced))
	assert.True(t, task.TransitionTo(domain.StateFrozen))

	// Frozen is terminal.
	assert.False(t, task.TransitionTo(domain.StateReady))
	assert.Equal(t, domain.StateFrozen, task.State())
}

func TestTask_TransitionTo_RejectsIllegalJump(t *testing.T) {
	task := domain.NewTask(uuid.New(), "t", 0)
	assert.False(t, task.TransitionTo(domain.StatePlaced))
	assert.Equal(t, domain.StateUnscheduled, task.State())
}

func TestTask_ScheduleAndClear(t *testing.T) {
	task := domain.NewTask(uuid.New(), "t", 0)
	_, _, ok := task.Schedule()
	assert.False(t, ok)

	task.SetSchedule(10, 20)
	start, end, ok := task.Schedule()
	assert.True(t, ok)
	assert.Equal(t, int64(10), start)
	assert.Equal(t, int64(20), end)

	resourceID := uuid.New()
	task.AddBooking(resourceID, domain.Interval{Start: 10, End: 20})
	assert.Equal(t, int64(10), task.Bookings().TotalSlots())

	task.ClearSchedule()
	_, _, ok = task.Schedule()
	assert.False(t, ok)
	assert.Equal(t, int64(0), task.Bookings().TotalSlots())
}

func TestAllocationGroup_Resources_PrimaryFirst(t *testing.T) {
	primary := uuid.New()
	alt1 := uuid.New()
	alt2 := uuid.New()
	g := domain.AllocationGroup{Primary: primary, Alternatives: []uuid.UUID{alt1, alt2}}
	assert.Equal(t, []uuid.UUID{primary, alt1, alt2}, g.Resources())
}
