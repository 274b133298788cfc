package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	sharedDomain "github.com/felixgeelhaar/chronoforge/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProjectNotFound is returned when a project aggregate does not exist.
var ErrProjectNotFound = errors.New("project not found")

// PostgresProjectRepository implements domain.ProjectRepository using
// PostgreSQL. Resources and tasks are stored as one row each with their
// nested value objects (calendar layers, demand, allocations, dependencies)
// JSON-encoded, a simplification for aggregate sub-structures that are
// always read and written whole.
type PostgresProjectRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProjectRepository creates a PostgreSQL project repository.
func NewPostgresProjectRepository(pool *pgxpool.Pool) *PostgresProjectRepository {
	return &PostgresProjectRepository{pool: pool}
}

var _ sharedDomain.Repository[*domain.Project] = (*PostgresProjectRepository)(nil)

// Save upserts the project aggregate and replaces its resource and task
// rows wholesale.
func (r *PostgresProjectRepository) Save(ctx context.Context, project *domain.Project) error {
	if info, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return r.saveWithTx(ctx, info.Tx, project)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.saveWithTx(ctx, tx, project); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresProjectRepository) saveWithTx(ctx context.Context, tx pgx.Tx, project *domain.Project) error {
	grid := project.Grid()
	options := project.Options()

	projectQuery := `
		INSERT INTO projects (id, name, start_at, end_at, resolution_seconds, timezone, default_direction, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, start_at = EXCLUDED.start_at, end_at = EXCLUDED.end_at,
			resolution_seconds = EXCLUDED.resolution_seconds, timezone = EXCLUDED.timezone,
			default_direction = EXCLUDED.default_direction, version = EXCLUDED.version
	`
	_, err := tx.Exec(ctx, projectQuery,
		project.ID(), project.Name(), grid.ProjectStart(), grid.ProjectEnd(),
		grid.ResolutionSeconds(), options.Timezone.String(), string(options.DefaultDirection),
		project.Version(),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM resources WHERE project_id = $1", project.ID()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM tasks WHERE project_id = $1", project.ID()); err != nil {
		return err
	}

	for _, res := range project.Resources() {
		if err := r.saveResource(ctx, tx, project.ID(), res); err != nil {
			return err
		}
	}
	for _, t := range project.Tasks() {
		if err := r.saveTask(ctx, tx, project.ID(), t); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresProjectRepository) saveResource(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, res *domain.Resource) error {
	var parentID *uuid.UUID
	if pid, ok := res.Parent(); ok {
		parentID = &pid
	}

	var calJSON []byte
	if res.Calendar() != nil {
		dto := toCalendarDTO(res.Calendar())
		encoded, err := json.Marshal(dto)
		if err != nil {
			return err
		}
		calJSON = encoded
	}

	query := `
		INSERT INTO resources (
			id, project_id, name, is_leaf, parent_id, timezone,
			efficiency_num, efficiency_den, daily_max, weekly_max, monthly_max, idx, calendar
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	limits := res.Limits()
	timezone := "UTC"
	if res.Timezone() != nil {
		timezone = res.Timezone().String()
	}
	_, err := tx.Exec(ctx, query,
		res.ID(), projectID, res.Name(), res.IsLeaf(), parentID, timezone,
		res.Efficiency().Num, res.Efficiency().Den,
		limits.DailyMax, limits.WeeklyMax, limits.MonthlyMax, res.Index(), calJSON,
	)
	return err
}

func (r *PostgresProjectRepository) saveTask(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, t *domain.Task) error {
	var parentID *uuid.UUID
	if pid, ok := t.Parent(); ok {
		parentID = &pid
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

	query := `
		INSERT INTO tasks (
			id, project_id, name, declaration_order, parent_id, direction,
			demand_kind, demand_slots, contiguous, priority, state,
			anchors, allocations, dependencies, carried,
			scheduled_start, scheduled_end, has_schedule
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = tx.Exec(ctx, query,
		t.ID(), projectID, t.Name(), t.DeclarationOrder(), parentID, string(t.Direction()),
		string(t.Demand().Kind), t.Demand().Slots, t.Contiguous(), t.Priority(), string(t.State()),
		anchorsJSON, allocationsJSON, dependenciesJSON, carriedJSON,
		start, end, hasSchedule,
	)
	return err
}

// FindByID rehydrates a Project aggregate, including every resource and
// task, but not the dependency graph — callers must call Build() again
// before scheduling a rehydrated project.
func (r *PostgresProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `
		SELECT name, start_at, end_at, resolution_seconds, timezone, default_direction, version
		FROM projects WHERE id = $1
	`
	var (
		name                       string
		startAt, endAt             time.Time
		resolutionSeconds          int64
		timezone, defaultDirection string
		version                    int
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(&name, &startAt, &endAt, &resolutionSeconds, &timezone, &defaultDirection, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	loc := loadLocationOrUTC(timezone)

	options := domain.DefaultProjectOptions()
	options.Timezone = loc
	options.ResolutionSeconds = resolutionSeconds
	options.DefaultDirection = domain.Direction(defaultDirection)

	project, err := domain.NewProject(name, startAt, endAt, options)
	if err != nil {
		return nil, err
	}
	entity := sharedDomain.RehydrateBaseEntity(id, startAt, startAt)
	project.BaseAggregateRoot = sharedDomain.RehydrateBaseAggregateRoot(entity, version)

	resources, err := r.loadResources(ctx, id, project.Grid())
	if err != nil {
		return nil, err
	}
	for _, res := range resources {
		project.AddResource(res)
	}

	tasks, err := r.loadTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		project.AddTask(t)
	}

	return project, nil
}

func (r *PostgresProjectRepository) loadResources(ctx context.Context, projectID uuid.UUID, grid *domain.TimeGrid) ([]*domain.Resource, error) {
	query := `
		SELECT id, name, is_leaf, parent_id, timezone, efficiency_num, efficiency_den,
		       daily_max, weekly_max, monthly_max, calendar
		FROM resources WHERE project_id = $1 ORDER BY idx
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Resource
	for rows.Next() {
		var (
			id                                uuid.UUID
			name, timezone                    string
			isLeaf                            bool
			parentID                          *uuid.UUID
			effNum, effDen                    int64
			dailyMax, weeklyMax, monthlyMax   int64
			calJSON                           []byte
		)
		if err := rows.Scan(&id, &name, &isLeaf, &parentID, &timezone, &effNum, &effDen,
			&dailyMax, &weeklyMax, &monthlyMax, &calJSON); err != nil {
			return nil, err
		}

		limits := domain.Limits{DailyMax: dailyMax, WeeklyMax: weeklyMax, MonthlyMax: monthlyMax}
		var res *domain.Resource
		if isLeaf {
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
		if parentID != nil {
			res.SetParent(*parentID)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *PostgresProjectRepository) loadTasks(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT id, name, declaration_order, parent_id, direction, demand_kind, demand_slots,
		       contiguous, priority, state, anchors, allocations, dependencies, carried,
		       scheduled_start, scheduled_end, has_schedule
		FROM tasks WHERE project_id = $1 ORDER BY declaration_order
	`
	rows, err := r.pool.Query(ctx, query, projectID)
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
			demandKindRaw, direction, state                             string
			name                                                        string
			declarationOrder                                            int
			parentID                                                    *uuid.UUID
			demandSlots                                                 int64
			contiguous, hasSchedule                                     bool
			priority                                                    int
			anchorsJSON, allocationsJSON, dependenciesJSON, carriedJSON []byte
			start, end                                                  int64
			taskID                                                      uuid.UUID
		)
		if err := rows.Scan(&taskID, &name, &declarationOrder, &parentID, &direction, &demandKindRaw, &demandSlots,
			&contiguous, &priority, &state, &anchorsJSON, &allocationsJSON, &dependenciesJSON, &carriedJSON,
			&start, &end, &hasSchedule); err != nil {
			return nil, err
		}

		task := domain.NewTask(taskID, name, declarationOrder)
		task.SetDirection(domain.Direction(direction))
		if demandKindRaw != "" {
			task.SetDemand(domain.Demand{Kind: domain.DemandKind(demandKindRaw), Slots: demandSlots})
		}
		task.SetContiguous(contiguous)
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
		if hasSchedule {
			task.SetSchedule(start, end)
		}
		task.RehydrateState(domain.TaskState(state))

		if parentID != nil {
			task.SetParent(*parentID)
			children[*parentID] = append(children[*parentID], taskID)
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
func (r *PostgresProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProjectNotFound
	}
	return nil
}
