package services

import (
	"context"

	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
)

// Engine is the scheduler's public entry point: build the project, run it to
// a fixed point, hand back the resulting Schedule.
type Engine struct {
	driver *Driver
}

// NewEngine wires a default Engine (the built-in constraint engine and
// allocator; see internal/engine for the pluggable AllocationStrategy path).
func NewEngine() *Engine {
	return &Engine{driver: NewDriver(NewConstraintEngine(), NewAllocator())}
}

// NewEngineWithStrategy wires an Engine whose allocator consults strategy to
// break ties among otherwise-equal alternative candidates. The task-state
// invariants and the window computation are unaffected — strategy only ever
// sees candidates that already tied under those rules.
func NewEngineWithStrategy(strategy AllocationStrategy) *Engine {
	return &Engine{driver: NewDriver(NewConstraintEngine(), NewAllocatorWithStrategy(strategy))}
}

// Schedule runs project to convergence, or returns the SchedulingError that
// stopped it. project must already have had Build called.
func (e *Engine) Schedule(ctx context.Context, project *schedulingDomain.Project) (*schedulingDomain.Schedule, error) {
	return e.driver.Run(ctx, project)
}
