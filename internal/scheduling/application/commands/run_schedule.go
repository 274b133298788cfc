// Package commands wires the scheduling engine to persistence and the
// domain event outbox: the application-layer entry point a CLI or API
// handler calls to run a project to a fixed point and durably record the
// result.
package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/services"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	sharedApplication "github.com/felixgeelhaar/chronoforge/internal/shared/application"
	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
)

// RunScheduleCommand names the project to run. The project itself must
// already be fully built (resources, tasks, dependencies registered and
// Project.Build called) before this command runs.
type RunScheduleCommand struct {
	Project *domain.Project
	UserID  uuid.UUID
}

// RunScheduleResult is the outcome the caller renders or reports.
type RunScheduleResult struct {
	Schedule *domain.Schedule
}

// RunScheduleHandler runs a project to convergence, persists the aggregate
// and its read-model snapshot, and drains the run's domain events
// (TaskPlaced, TaskPreempted, TaskFrozen, ScheduleConverged/Failed) into the
// outbox within the same unit of work.
type RunScheduleHandler struct {
	engine       *services.Engine
	projectRepo  domain.ProjectRepository
	scheduleRepo domain.ScheduleRepository
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
	logger       *slog.Logger
}

// NewRunScheduleHandler wires a handler from its collaborators.
func NewRunScheduleHandler(
	engine *services.Engine,
	projectRepo domain.ProjectRepository,
	scheduleRepo domain.ScheduleRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *RunScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunScheduleHandler{
		engine:       engine,
		projectRepo:  projectRepo,
		scheduleRepo: scheduleRepo,
		outboxRepo:   outboxRepo,
		uow:          uow,
		logger:       logger,
	}
}

// Handle runs cmd.Project, persisting the result whether or not the run
// converged: the aggregate is always saved, a Schedule snapshot reflecting
// every task's current state is always saved (Converged=false and Rounds=0
// when the driver stopped on a SchedulingError), and every domain event the
// run recorded (TaskPlaced, TaskPreempted, TaskFrozen,
// ScheduleConverged/Failed) is outboxed in the same unit of work. The
// SchedulingError itself, if any, is still returned to the caller.
func (h *RunScheduleHandler) Handle(ctx context.Context, cmd RunScheduleCommand) (*RunScheduleResult, error) {
	var (
		result *RunScheduleResult
		runErr error
	)

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		var schedule *domain.Schedule
		schedule, runErr = h.engine.Schedule(txCtx, cmd.Project)
		if schedule == nil {
			schedule = domain.BuildSchedule(cmd.Project, 0, false)
		}

		if err := h.projectRepo.Save(txCtx, cmd.Project); err != nil {
			return err
		}
		if err := h.scheduleRepo.SaveSchedule(txCtx, schedule); err != nil {
			return err
		}

		events := cmd.Project.DomainEvents()
		sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(cmd.UserID))
		msgs := make([]*outbox.Message, 0, len(events))
		for _, event := range events {
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if len(msgs) > 0 {
			if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
				return err
			}
		}
		cmd.Project.ClearDomainEvents()

		result = &RunScheduleResult{Schedule: schedule}

		if runErr != nil {
			h.logger.Warn("schedule run failed",
				"project_id", cmd.Project.ID(),
				"error", runErr,
			)
		} else {
			h.logger.Info("schedule run complete",
				"project_id", cmd.Project.ID(),
				"converged", schedule.Converged,
				"rounds", schedule.Rounds,
			)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, runErr
}
