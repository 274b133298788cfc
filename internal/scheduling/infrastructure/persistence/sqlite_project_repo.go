package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	sharedDomain "github.com/felixgeelhaar/chronoforge/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteProjectRepository implements domain.ProjectRepository using SQLite.
// Shares the JSON-column layout of PostgresProjectRepository.
type SQLiteProjectRepository struct {
	dbConn *sql.DB
}

// NewSQLiteProjectRepository creates a SQLite project repository.
func NewSQLiteProjectRepository(dbConn *sql.DB) *SQLiteProjectRepository {
	return &SQLiteProjectRepository{dbConn: dbConn}
}

var _ sharedDomain.Repository[*domain.Project] = (*SQLiteProjectRepository)(nil)

func (r *SQLiteProjectRepository) querier(ctx context.Context) querier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save upserts the project aggregate and its resource/task rows.
func (r *SQLiteProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return r.saveWithQuerier(ctx, info.Tx, project)
	}

	tx, err := r.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.saveWithQuerier(ctx, tx, project); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteProjectRepository) saveWithQuerier(ctx context.Context, q querier, project *domain.Project) error {
	grid := project.Grid()
	options := project.Options()

	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (id, name, start_at, end_at, resolution_seconds, timezone, default_direction, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, start_at = excluded.start_at, end_at = excluded.end_at,
			resolution_seconds = excluded.resolution_seconds, timezone = excluded.timezone,
			default_direction = excluded.default_direction, version = excluded.version
	`,
		project.ID().String(), project.Name(), grid.ProjectStart().Format(rfc3339), grid.ProjectEnd().Format(rfc3339),
		grid.ResolutionSeconds(), options.Timezone.String(), string(options.DefaultDirection), project.Version(),
	)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM resources WHERE project_id = ?", project.ID().String()); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = ?", project.ID().String()); err != nil {
		return err
	}

	for _, res := range project.Resources() {
		if err := r.saveResource(ctx, q, project.ID(), res); err != nil {
			return err
		}
	}
	for _, t := range project.Tasks() {
		if err := r.saveTask(ctx, q, project.ID(), t); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteProjectRepository) saveResource(ctx context.Context, q querier, projectID uuid.UUID, res *domain.Resource) error {
	var parentID sql.NullString
	if pid, ok := res.Parent(); ok {
		parentID = sql.NullString{String: pid.String(), Valid: true}
	}

	var calJSON []byte
	if res.Calendar() != nil {
		encoded, err := json.Marshal(toCalendarDTO(res.Calendar()))
		if err != nil {
			return err
		}
		calJSON = encoded
	}

	limits := res.Limits()
	timezone := "UTC"
	if res.Timezone() != nil {
		timezone = res.Timezone().String()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO resources (
			id, project_id, name, is_leaf, parent_id, timezone,
			efficiency_num, efficiency_den, daily_max, weekly_max, monthly_max, idx, calendar
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID().String(), projectID.String(), res.Name(), boolToInt(res.IsLeaf()), parentID, timezone,
		res.Efficiency().Num, res.Efficiency().Den,
		limits.DailyMax, limits.WeeklyMax, limits.MonthlyMax, res.Index(), calJSON,
	)
	return err
}

func (r *SQLiteProjectRepository) saveTask(ctx context.Context, q querier, projectID uuid.UUID, t *domain.Task) error {
	var parentID sql.NullString
	if pid, ok := t.Parent(); ok {
		parentID = sql.NullString{String: pid.String(), Valid: true}
	}

	anchorsJSON, err := json.Marshal(toAnchorsDTO(t.Anchors()))
	if err != nil {
		return err
	}
	allocationsJSON, err := json.Marshal(toAllocationGroupDTOs(t.AllocationGroups()))
	if err != nil {
		return err
	}
	dependenciesJSON, err := json.Marshal(toDependencyEdgeDTOs(t.Dependencies()))
	if err != nil {
		return err
	}
	carriedJSON, err := json.Marshal(t.CarriedAttributes())
	if err != nil {
		return err
	}

	start, end, hasSchedule := t.Schedule()

	_, err = q.ExecContext(ctx, `
		INSERT INTO tasks (
			id, project_id, name, declaration_order, parent_id, direction,
			demand_kind, demand_slots, contiguous, priority, state,
			anchors, allocations, dependencies, carried,
			scheduled_start, scheduled_end, has_schedule
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID().String(), projectID.String(), t.Name(), t.DeclarationOrder(), parentID, string(t.Direction()),
		string(t.Demand().Kind), t.Demand().Slots, boolToInt(t.Contiguous()), t.Priority(), string(t.State()),
		anchorsJSON, allocationsJSON, dependenciesJSON, carriedJSON,
		start, end, boolToInt(hasSchedule),
	)
	return err
}

const rfc3339 = "2006-01-02T15:04:05.999999999Z07:00"

// FindByID rehydrates a Project aggregate; callers must call Build() again
// before scheduling a rehydrated project.
func (r *SQLiteProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	q := r.querier(ctx)

	var (
		name, startRaw, endRaw, timezone, defaultDirection string
		resolutionSeconds                                  int64
		version                                             int
	)
	err := q.QueryRowContext(ctx, `
		SELECT name, start_at, end_at, resolution_seconds, timezone, default_direction, version
		FROM projects WHERE id = ?
	`, id.String()).Scan(&name, &startRaw, &endRaw, &resolutionSeconds, &timezone, &defaultDirection, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	startAt, err := time.Parse(rfc3339, startRaw)
	if err != nil {
		return nil, err
	}
	endAt, err := time.Parse(rfc3339, endRaw)
	if err != nil {
		return nil, err
	}

	options := domain.DefaultProjectOptions()
	options.Timezone = loadLocationOrUTC(timezone)
	options.ResolutionSeconds = resolutionSeconds
	options.DefaultDirection = domain.Direction(defaultDirection)

	project, err := domain.NewProject(name, startAt, endAt, options)
	if err != nil {
		return nil, err
	}
	entity := sharedDomain.RehydrateBaseEntity(id, startAt, startAt)
	project.BaseAggregateRoot = sharedDomain.RehydrateBaseAggregateRoot(entity, version)

	resources, err := r.loadResources(ctx, q, id, project.Grid())
	if err != nil {
		return nil, err
	}
	for _, res := range resources {
		project.AddResource(res)
	}

	tasks, err := r.loadTasks(ctx, q, id)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		project.AddTask(t)
	}

	return project, nil
}

func (r *SQLiteProjectRepository) loadResources(ctx context.Context, q querier, projectID uuid.UUID, grid *domain.TimeGrid) ([]*domain.Resource, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, is_leaf, parent_id, timezone, efficiency_num, efficiency_den,
		       daily_max, weekly_max, monthly_max, calendar
		FROM resources WHERE project_id = ? ORDER BY idx
	`, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Resource
	for rows.Next() {
		var (
			idRaw, name, timezone            string
			isLeaf                           int
			parentID                         sql.NullString
			effNum, effDen                   int64
			dailyMax, weeklyMax, monthlyMax  int64
			calJSON                          []byte
		)
		if err := rows.Scan(&idRaw, &name, &isLeaf, &parentID, &timezone, &effNum, &effDen,
			&dailyMax, &weeklyMax, &monthlyMax, &calJSON); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idRaw)
		if err != nil {
			return nil, err
		}

		limits := domain.Limits{DailyMax: dailyMax, WeeklyMax: weeklyMax, MonthlyMax: monthlyMax}
		var res *domain.Resource
		if isLeaf != 0 {
			efficiency, err := domain.NewRational(effNum, effDen)
			if err != nil {
				return nil, err
			}
			var cal *domain.Calendar
			if len(calJSON) > 0 {
				var dto calendarDTO
				if err := json.Unmarshal(calJSON, &dto); err != nil {
					return nil, err
				}
				cal, err = rebuildCalendar(dto, grid)
				if err != nil {
					return nil, err
				}
			} else {
				cal = domain.NewCalendar(grid, domain.DefaultWorkWeek(), loadLocationOrUTC(timezone))
			}
			res = domain.NewLeafResource(id, name, efficiency, limits, cal, grid)
			res.SetTimezone(loadLocationOrUTC(timezone))
		} else {
			res = domain.NewContainerResource(id, name, limits)
		}
		if parentID.Valid {
			pid, err := uuid.Parse(parentID.String)
			if err != nil {
				return nil, err
			}
			res.SetParent(pid)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *SQLiteProjectRepository) loadTasks(ctx context.Context, q querier, projectID uuid.UUID) ([]*domain.Task, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, declaration_order, parent_id, direction, demand_kind, demand_slots,
		       contiguous, priority, state, anchors, allocations, dependencies, carried,
		       scheduled_start, scheduled_end, has_schedule
		FROM tasks WHERE project_id = ? ORDER BY declaration_order
	`, projectID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out      []*domain.Task
		children = make(map[uuid.UUID][]uuid.UUID)
	)
	for rows.Next() {
		var (
			idRaw, demandKindRaw, direction, state                      string
			name                                                        string
			declarationOrder                                            int
			parentID                                                    sql.NullString
			demandSlots                                                 int64
			contiguous, priority, hasSchedule                           int
			anchorsJSON, allocationsJSON, dependenciesJSON, carriedJSON []byte
			start, end                                                  int64
		)
		if err := rows.Scan(&idRaw, &name, &declarationOrder, &parentID, &direction, &demandKindRaw, &demandSlots,
			&contiguous, &priority, &state, &anchorsJSON, &allocationsJSON, &dependenciesJSON, &carriedJSON,
			&start, &end, &hasSchedule); err != nil {
			return nil, err
		}
		taskID, err := uuid.Parse(idRaw)
		if err != nil {
			return nil, err
		}

		task := domain.NewTask(taskID, name, declarationOrder)
		task.SetDirection(domain.Direction(direction))
		if demandKindRaw != "" {
			task.SetDemand(domain.Demand{Kind: domain.DemandKind(demandKindRaw), Slots: demandSlots})
		}
		task.SetContiguous(contiguous != 0)
		task.SetPriority(priority)

		var anchorsDoc anchorsDTO
		if len(anchorsJSON) > 0 {
			if err := json.Unmarshal(anchorsJSON, &anchorsDoc); err != nil {
				return nil, err
			}
			task.SetAnchors(fromAnchorsDTO(anchorsDoc))
		}
		var allocationsDoc []allocationGroupDTO
		if len(allocationsJSON) > 0 {
			if err := json.Unmarshal(allocationsJSON, &allocationsDoc); err != nil {
				return nil, err
			}
			for _, g := range fromAllocationGroupDTOs(allocationsDoc) {
				task.AddAllocationGroup(g)
			}
		}
		var dependenciesDoc []dependencyEdgeDTO
		if len(dependenciesJSON) > 0 {
			if err := json.Unmarshal(dependenciesJSON, &dependenciesDoc); err != nil {
				return nil, err
			}
			for _, d := range fromDependencyEdgeDTOs(dependenciesDoc) {
				task.AddDependency(d)
			}
		}
		var carried map[string]float64
		if len(carriedJSON) > 0 {
			if err := json.Unmarshal(carriedJSON, &carried); err != nil {
				return nil, err
			}
			for k, v := range carried {
				task.SetCarried(k, v)
			}
		}
		if hasSchedule != 0 {
			task.SetSchedule(start, end)
		}
		task.RehydrateState(domain.TaskState(state))

		if parentID.Valid {
			pid, err := uuid.Parse(parentID.String)
			if err != nil {
				return nil, err
			}
			task.SetParent(pid)
			children[pid] = append(children[pid], taskID)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range out {
		for _, childID := range children[t.ID()] {
			t.AddChild(childID)
		}
	}
	return out, nil
}

// Delete removes a project and its resources/tasks (ON DELETE CASCADE).
func (r *SQLiteProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.dbConn.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProjectNotFound
	}
	return nil
}
