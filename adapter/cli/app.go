package cli

import (
	"github.com/felixgeelhaar/chronoforge/internal/engine/registry"
	"github.com/felixgeelhaar/chronoforge/internal/engine/runtime"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/commands"
	"github.com/google/uuid"
)

// App holds the CLI's wired dependencies.
type App struct {
	RunScheduleHandler *commands.RunScheduleHandler
	EngineRegistry     *registry.Registry
	EngineExecutor     *runtime.Executor
	CurrentUserID      uuid.UUID
}

// NewApp builds an App from its collaborators.
func NewApp(runScheduleHandler *commands.RunScheduleHandler, engineRegistry *registry.Registry, engineExecutor *runtime.Executor) *App {
	return &App{
		RunScheduleHandler: runScheduleHandler,
		EngineRegistry:     engineRegistry,
		EngineExecutor:     engineExecutor,
	}
}

// SetCurrentUserID updates the current user ID commands run as.
func (a *App) SetCurrentUserID(id uuid.UUID) {
	a.CurrentUserID = id
}

var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
