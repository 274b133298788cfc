package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	sharedPersistence "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// ErrScheduleNotFound is returned when a schedule snapshot does not exist.
var ErrScheduleNotFound = errors.New("schedule not found")

// PostgresScheduleRepository implements domain.ScheduleRepository using
// PostgreSQL. Schedules are read models: the latest snapshot per project is
// upserted and its task rows are deleted and re-inserted on every Save.
type PostgresScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresScheduleRepository creates a PostgreSQL schedule repository.
func NewPostgresScheduleRepository(pool *pgxpool.Pool) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{pool: pool}
}

var _ domain.ScheduleRepository = (*PostgresScheduleRepository)(nil)

type scheduleRow struct {
	ProjectID uuid.UUID
	Rounds    int
	Converged bool
}

type taskScheduleRow struct {
	TaskID      uuid.UUID
	Name        string
	State       string
	Start       int64
	End         int64
	HasWindow   bool
	BookingsRaw []byte
}

// SaveSchedule upserts the snapshot for schedule.ProjectID, replacing every
// task row.
func (r *PostgresScheduleRepository) SaveSchedule(ctx context.Context, schedule *domain.Schedule) error {
	if info, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return r.saveWithTx(ctx, info.Tx, schedule)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.saveWithTx(ctx, tx, schedule); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresScheduleRepository) saveWithTx(ctx context.Context, tx pgx.Tx, schedule *domain.Schedule) error {
	query := `
		INSERT INTO schedules (project_id, rounds, converged)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id) DO UPDATE SET
			rounds = EXCLUDED.rounds,
			converged = EXCLUDED.converged
	`
	if _, err := tx.Exec(ctx, query, schedule.ProjectID, schedule.Rounds, schedule.Converged); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM task_schedules WHERE project_id = $1", schedule.ProjectID); err != nil {
		return err
	}

	for _, t := range schedule.Tasks {
		taskQuery := `
			INSERT INTO task_schedules (
				project_id, task_id, name, state, slot_start, slot_end, has_window, resource_ids, bookings
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		resourceIDs := make([]string, 0, len(t.Bookings))
		for resourceID := range t.Bookings {
			resourceIDs = append(resourceIDs, resourceID.String())
		}
		bookingsJSON, err := json.Marshal(t.Bookings)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, taskQuery,
			schedule.ProjectID, t.TaskID, t.Name, string(t.State),
			t.Start, t.End, t.HasWindow, pq.Array(resourceIDs), bookingsJSON,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// LatestSchedule returns the current snapshot for projectID.
func (r *PostgresScheduleRepository) LatestSchedule(ctx context.Context, projectID uuid.UUID) (*domain.Schedule, error) {
	query := `SELECT project_id, rounds, converged FROM schedules WHERE project_id = $1`

	var row scheduleRow
	err := r.pool.QueryRow(ctx, query, projectID).Scan(&row.ProjectID, &row.Rounds, &row.Converged)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	tasks, err := r.loadTaskSchedules(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &domain.Schedule{ProjectID: row.ProjectID, Rounds: row.Rounds, Converged: row.Converged, Tasks: tasks}, nil
}

func (r *PostgresScheduleRepository) loadTaskSchedules(ctx context.Context, projectID uuid.UUID) ([]domain.TaskSchedule, error) {
	query := `
		SELECT task_id, name, state, slot_start, slot_end, has_window, bookings
		FROM task_schedules
		WHERE project_id = $1
		ORDER BY slot_start
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]domain.TaskSchedule, 0)
	for rows.Next() {
		var row taskScheduleRow
		if err := rows.Scan(&row.TaskID, &row.Name, &row.State, &row.Start, &row.End, &row.HasWindow, &row.BookingsRaw); err != nil {
			return nil, err
		}
		var bookings domain.Bookings
		if len(row.BookingsRaw) > 0 {
			if err := json.Unmarshal(row.BookingsRaw, &bookings); err != nil {
				return nil, err
			}
		}
		tasks = append(tasks, domain.TaskSchedule{
			TaskID:    row.TaskID,
			Name:      row.Name,
			State:     domain.TaskState(row.State),
			Start:     row.Start,
			End:       row.End,
			HasWindow: row.HasWindow,
			Bookings:  bookings,
		})
	}
	return tasks, rows.Err()
}
