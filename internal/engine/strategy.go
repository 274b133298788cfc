// Package engine bridges the scheduling allocator's AllocationStrategy
// extension point to the pluggable engine plugin system: built-in engines
// registered directly, third-party engines loaded over go-plugin, all
// reachable through the same Executor.
package engine

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/chronoforge/internal/engine/runtime"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/services"
	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// ExecutorStrategy adapts an Executor and a chosen engine ID to
// services.AllocationStrategy. It is the only allocator-facing type this
// package exposes: everything else (registry, manifests, gRPC transport) is
// plumbing the engine's ChooseAlternative call travels through before
// landing back here.
type ExecutorStrategy struct {
	executor *runtime.Executor
	engineID string
	userID   uuid.UUID
}

// NewExecutorStrategy builds a strategy that delegates tie-breaks to the
// named engine. engineID must already be registered with executor's
// registry (builtin or loaded plugin). ChooseAlternative returns -1 and the
// wrapped error for any failure the executor reports, including
// sdk.ErrNoCandidates and a tripped circuit breaker; the allocator then keeps
// its declaration-order default, so a failing engine degrades the schedule
// rather than aborting the run.
func NewExecutorStrategy(executor *runtime.Executor, engineID string, userID uuid.UUID) *ExecutorStrategy {
	return &ExecutorStrategy{executor: executor, engineID: engineID, userID: userID}
}

// ChooseAlternative implements services.AllocationStrategy.
func (s *ExecutorStrategy) ChooseAlternative(ctx context.Context, task *schedulingDomain.Task, candidates []services.AllocationCandidate) (int, error) {
	input := types.ChooseAlternativeInput{
		TaskID:     task.ID(),
		TaskName:   task.Name(),
		Priority:   task.Priority(),
		Direction:  string(task.Direction()),
		Candidates: make([]types.AllocationCandidate, len(candidates)),
	}
	for i, c := range candidates {
		input.Candidates[i] = types.AllocationCandidate{
			ResourceID:  c.ResourceID,
			Start:       c.Start,
			End:         c.End,
			Utilization: c.Utilization,
		}
	}

	output, err := s.executor.ExecuteChooseAlternative(ctx, s.engineID, s.userID, input)
	if err != nil {
		return -1, fmt.Errorf("engine: choose alternative via %s: %w", s.engineID, err)
	}
	return output.ChosenIndex, nil
}

var _ services.AllocationStrategy = (*ExecutorStrategy)(nil)
