package domain

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/chronoforge/internal/shared/domain"
	"github.com/google/uuid"
)

// ProjectRepository persists and retrieves Project aggregates. Concrete
// implementations live under infrastructure/persistence.
type ProjectRepository interface {
	sharedDomain.Repository[*Project]
}

// Schedule is the read-facing snapshot of a converged (or failed) run: every
// task's final placement, independent of the live Project aggregate. It is
// what gets cached, published, and rendered into a report.
type Schedule struct {
	ProjectID uuid.UUID
	Rounds    int
	Converged bool
	Tasks     []TaskSchedule
}

// TaskSchedule is one task's row in a Schedule snapshot.
type TaskSchedule struct {
	TaskID    uuid.UUID
	Name      string
	State     TaskState
	Start     int64
	End       int64
	HasWindow bool
	Bookings  Bookings
}

// ScheduleRepository persists Schedule snapshots, keyed by the project that
// produced them. Separate from ProjectRepository because a Schedule is a
// read model, not the aggregate itself — an aggregate repository and a
// denormalized snapshot store split along that same line.
type ScheduleRepository interface {
	SaveSchedule(ctx context.Context, s *Schedule) error
	LatestSchedule(ctx context.Context, projectID uuid.UUID) (*Schedule, error)
}

// BuildSchedule derives a read-model Schedule from a Project's current task
// states, whether or not the run converged.
func BuildSchedule(p *Project, rounds int, converged bool) *Schedule {
	s := &Schedule{ProjectID: p.ID(), Rounds: rounds, Converged: converged}
	for _, t := range p.Tasks() {
		start, end, ok := t.Schedule()
		s.Tasks = append(s.Tasks, TaskSchedule{
			TaskID:    t.ID(),
			Name:      t.Name(),
			State:     t.State(),
			Start:     start,
			End:       end,
			HasWindow: ok,
			Bookings:  t.Bookings(),
		})
	}
	return s
}
