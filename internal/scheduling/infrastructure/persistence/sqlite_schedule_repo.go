package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	sharedPersistence "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteScheduleRepository implements domain.ScheduleRepository using
// SQLite (modernc.org/sqlite, no cgo).
type SQLiteScheduleRepository struct {
	dbConn *sql.DB
}

// NewSQLiteScheduleRepository creates a SQLite schedule repository.
func NewSQLiteScheduleRepository(dbConn *sql.DB) *SQLiteScheduleRepository {
	return &SQLiteScheduleRepository{dbConn: dbConn}
}

var _ domain.ScheduleRepository = (*SQLiteScheduleRepository)(nil)

// querier abstracts *sql.DB and *sql.Tx for shared query execution.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteScheduleRepository) querier(ctx context.Context) querier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// SaveSchedule upserts the snapshot and replaces its task rows.
func (r *SQLiteScheduleRepository) SaveSchedule(ctx context.Context, schedule *domain.Schedule) error {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return r.saveWithQuerier(ctx, info.Tx, schedule)
	}

	tx, err := r.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.saveWithQuerier(ctx, tx, schedule); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteScheduleRepository) saveWithQuerier(ctx context.Context, q querier, schedule *domain.Schedule) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedules (project_id, rounds, converged)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET rounds = excluded.rounds, converged = excluded.converged
	`, schedule.ProjectID.String(), schedule.Rounds, boolToInt(schedule.Converged))
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM task_schedules WHERE project_id = ?", schedule.ProjectID.String()); err != nil {
		return err
	}

	for _, t := range schedule.Tasks {
		bookingsJSON, err := json.Marshal(t.Bookings)
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO task_schedules (
				project_id, task_id, name, state, slot_start, slot_end, has_window, bookings
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, schedule.ProjectID.String(), t.TaskID.String(), t.Name, string(t.State),
			t.Start, t.End, boolToInt(t.HasWindow), bookingsJSON)
		if err != nil {
			return err
		}
	}
	return nil
}

// LatestSchedule returns the current snapshot for projectID.
func (r *SQLiteScheduleRepository) LatestSchedule(ctx context.Context, projectID uuid.UUID) (*domain.Schedule, error) {
	q := r.querier(ctx)

	var (
		rounds    int
		converged int
	)
	err := q.QueryRowContext(ctx, "SELECT rounds, converged FROM schedules WHERE project_id = ?", projectID.String()).
		Scan(&rounds, &converged)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	tasks, err := r.loadTaskSchedules(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	return &domain.Schedule{ProjectID: projectID, Rounds: rounds, Converged: converged != 0, Tasks: tasks}, nil
}

func (r *SQLiteScheduleRepository) loadTaskSchedules(ctx context.Context, q querier, projectID uuid.UUID) ([]domain.TaskSchedule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT task_id, name, state, slot_start, slot_end, has_window, bookings
		FROM task_schedules WHERE project_id = ? ORDER BY slot_start
	`, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TaskSchedule
	for rows.Next() {
		var (
			taskIDRaw, name, state string
			start, end             int64
			hasWindow              int
			bookingsRaw            []byte
		)
		if err := rows.Scan(&taskIDRaw, &name, &state, &start, &end, &hasWindow, &bookingsRaw); err != nil {
			return nil, err
		}
		taskID, err := uuid.Parse(taskIDRaw)
		if err != nil {
			return nil, err
		}
		var bookings domain.Bookings
		if len(bookingsRaw) > 0 {
			if err := json.Unmarshal(bookingsRaw, &bookings); err != nil {
				return nil, err
			}
		}
		out = append(out, domain.TaskSchedule{
			TaskID: taskID, Name: name, State: domain.TaskState(state),
			Start: start, End: end, HasWindow: hasWindow != 0, Bookings: bookings,
		})
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
