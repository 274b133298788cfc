package domain

import (
	sharedDomain "github.com/felixgeelhaar/chronoforge/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateTypeProject = "scheduling.Project"

// TaskPlaced is emitted when the allocator successfully books a task.
type TaskPlaced struct {
	sharedDomain.BaseEvent
	TaskID uuid.UUID
	Start  int64
	End    int64
}

// NewTaskPlaced builds a TaskPlaced event for projectID/taskID.
func NewTaskPlaced(projectID, taskID uuid.UUID, start, end int64) TaskPlaced {
	return TaskPlaced{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, aggregateTypeProject, "scheduling.task.placed"),
		TaskID:    taskID,
		Start:     start,
		End:       end,
	}
}

// TaskPreempted is emitted when a higher-priority task evicts a lower one.
type TaskPreempted struct {
	sharedDomain.BaseEvent
	TaskID       uuid.UUID
	PreemptingID uuid.UUID
	ResourceID   uuid.UUID
}

// NewTaskPreempted builds a TaskPreempted event.
func NewTaskPreempted(projectID, taskID, preemptingID, resourceID uuid.UUID) TaskPreempted {
	return TaskPreempted{
		BaseEvent:    sharedDomain.NewBaseEvent(projectID, aggregateTypeProject, "scheduling.task.preempted"),
		TaskID:       taskID,
		PreemptingID: preemptingID,
		ResourceID:   resourceID,
	}
}

// TaskRebounded is emitted when propagation narrows a Placed task's window
// past its own committed booking, pushing it back to Ready for re-placement.
type TaskRebounded struct {
	sharedDomain.BaseEvent
	TaskID uuid.UUID
}

// NewTaskRebounded builds a TaskRebounded event.
func NewTaskRebounded(projectID, taskID uuid.UUID) TaskRebounded {
	return TaskRebounded{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, aggregateTypeProject, "scheduling.task.rebounded"),
		TaskID:    taskID,
	}
}

// TaskFrozen is emitted when the fixed-point driver closes a round with the
// task's placement unchanged, marking it immutable for the rest of the run.
type TaskFrozen struct {
	sharedDomain.BaseEvent
	TaskID uuid.UUID
}

// NewTaskFrozen builds a TaskFrozen event.
func NewTaskFrozen(projectID, taskID uuid.UUID) TaskFrozen {
	return TaskFrozen{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, aggregateTypeProject, "scheduling.task.frozen"),
		TaskID:    taskID,
	}
}

// ScheduleConverged is emitted once the fixed-point driver reaches a round
// with no transitions anywhere.
type ScheduleConverged struct {
	sharedDomain.BaseEvent
	Rounds int
}

// NewScheduleConverged builds a ScheduleConverged event.
func NewScheduleConverged(projectID uuid.UUID, rounds int) ScheduleConverged {
	return ScheduleConverged{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, aggregateTypeProject, "scheduling.schedule.converged"),
		Rounds:    rounds,
	}
}

// ScheduleFailed is emitted when the driver stops on a SchedulingError.
type ScheduleFailed struct {
	sharedDomain.BaseEvent
	Kind    ErrorKind
	TaskID  uuid.UUID
	Message string
}

// NewScheduleFailed builds a ScheduleFailed event.
func NewScheduleFailed(projectID uuid.UUID, schedErr *SchedulingError) ScheduleFailed {
	return ScheduleFailed{
		BaseEvent: sharedDomain.NewBaseEvent(projectID, aggregateTypeProject, "scheduling.schedule.failed"),
		Kind:      schedErr.Kind,
		TaskID:    schedErr.TaskID,
		Message:   schedErr.Message,
	}
}
