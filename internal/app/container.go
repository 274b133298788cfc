// Package app wires the scheduling engine, its plugin registry, and its
// persistence layer into a single dependency container, the way the CLI
// entrypoint builds it. NewLocalContainer is the only constructor and backs
// the container with SQLite; no PostgreSQL-backed container is provided.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	chronoengine "github.com/felixgeelhaar/chronoforge/internal/engine"
	"github.com/felixgeelhaar/chronoforge/internal/engine/builtin"
	"github.com/felixgeelhaar/chronoforge/internal/engine/registry"
	"github.com/felixgeelhaar/chronoforge/internal/engine/runtime"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/commands"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/services"
	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	schedulingMigrations "github.com/felixgeelhaar/chronoforge/internal/scheduling/infrastructure/migrations"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/chronoforge/internal/shared/application"
	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/database/sqlite"
	outboxMigrations "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/migrations"
	sharedPersistence "github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/chronoforge/pkg/config"
	"github.com/google/uuid"
)

// Container holds every collaborator the CLI needs to run and persist a
// schedule: the engine plugin registry and executor, the domain
// repositories, the outbox, and the RunScheduleHandler built from them.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	DB *sql.DB

	ProjectRepo  schedulingDomain.ProjectRepository
	ScheduleRepo schedulingDomain.ScheduleRepository
	OutboxRepo   outbox.Repository
	UnitOfWork   sharedApplication.UnitOfWork

	EngineRegistry *registry.Registry
	EngineExecutor *runtime.Executor

	RunScheduleHandler *commands.RunScheduleHandler

	closers []func() error
}

// Close releases every resource the container opened, in reverse order.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type sqliteConnection interface {
	database.Connection
	DB() *sql.DB
}

// NewLocalContainer wires a Container against SQLite, running
// auto-migrations for both the scheduling schema and the shared outbox
// schema. This is the zero-config path: no PostgreSQL or RabbitMQ required.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	conn, err := database.NewConnection(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("app: open sqlite: %w", err)
	}
	c.closers = append(c.closers, conn.Close)

	sqliteConn, ok := conn.(sqliteConnection)
	if !ok {
		return nil, fmt.Errorf("app: expected sqlite connection with DB(), got %T", conn)
	}
	c.DB = sqliteConn.DB()

	if err := schedulingMigrations.RunSQLiteMigrations(ctx, c.DB); err != nil {
		return nil, fmt.Errorf("app: run scheduling migrations: %w", err)
	}
	if err := outboxMigrations.RunSQLiteMigrations(ctx, c.DB); err != nil {
		return nil, fmt.Errorf("app: run outbox migrations: %w", err)
	}

	c.ProjectRepo = persistence.NewSQLiteProjectRepository(c.DB)
	c.ScheduleRepo = persistence.NewSQLiteScheduleRepository(c.DB)
	c.OutboxRepo = outbox.NewSQLiteRepository(c.DB)
	c.UnitOfWork = sharedPersistence.NewSQLiteUnitOfWork(c.DB)

	if err := c.wireEngines(); err != nil {
		return nil, err
	}

	userID := localUserID(cfg.UserID)
	strategy := chronoengine.NewExecutorStrategy(c.EngineExecutor, defaultAllocationEngineID, userID)
	engine := services.NewEngineWithStrategy(strategy)

	c.RunScheduleHandler = commands.NewRunScheduleHandler(
		engine, c.ProjectRepo, c.ScheduleRepo, c.OutboxRepo, c.UnitOfWork, logger,
	)

	return c, nil
}

// defaultAllocationEngineID is the built-in strategy a freshly wired
// container consults for alternative-resource tie-breaks. Swapping it (or
// registering and selecting a loaded plugin instead) only ever changes
// which candidate wins among already-tied alternatives; every other
// scheduling invariant is unaffected.
const defaultAllocationEngineID = builtin.DefaultAllocationEngineID

func (c *Container) wireEngines() error {
	c.EngineRegistry = registry.NewRegistry(c.Logger)

	if err := c.EngineRegistry.RegisterBuiltin(builtin.NewDefaultAllocationEngine()); err != nil {
		return fmt.Errorf("app: register default allocation engine: %w", err)
	}
	if err := c.EngineRegistry.RegisterBuiltin(builtin.NewProAllocationEngine()); err != nil {
		return fmt.Errorf("app: register pro allocation engine: %w", err)
	}

	executorConfig := runtime.DefaultExecutorConfig()
	c.EngineExecutor = runtime.NewExecutor(c.EngineRegistry, runtime.NewMetricsCollector(), c.Logger, executorConfig)

	c.Logger.Info("registered allocation engines", "count", c.EngineRegistry.Count())
	return nil
}

// localUserID parses raw as a UUID, falling back to a stable nil-derived
// value so a missing or malformed CHRONOFORGE_USER_ID never blocks local
// runs the way it would block a multi-tenant server.
func localUserID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
