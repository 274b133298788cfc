// Package builtin provides built-in AllocationStrategy engines that ship
// with chronoforge.
package builtin

import (
	"context"

	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
)

// DefaultAllocationEngineID identifies the built-in declaration-order
// allocation strategy in the engine registry.
const DefaultAllocationEngineID = "chronoforge.allocation.default"

// DefaultAllocationEngine implements the tie-break literally: declaration
// order. It never looks past the candidate list's own ordering, so wiring it
// in is equivalent to running the allocator with no strategy configured at
// all.
type DefaultAllocationEngine struct {
	config sdk.EngineConfig
}

// NewDefaultAllocationEngine creates the default allocation engine.
func NewDefaultAllocationEngine() *DefaultAllocationEngine {
	return &DefaultAllocationEngine{}
}

// Metadata returns engine metadata.
func (e *DefaultAllocationEngine) Metadata() sdk.EngineMetadata {
	return sdk.EngineMetadata{
		ID:            DefaultAllocationEngineID,
		Name:          "Default Allocation Strategy",
		Version:       "1.0.0",
		Author:        "chronoforge",
		Description:   "Breaks alternative-resource ties by declaration order",
		License:       "Proprietary",
		Tags:          []string{"allocation", "builtin", "default"},
		MinAPIVersion: "1.0.0",
		Capabilities:  []string{"choose_alternative"},
	}
}

// Type returns the engine type.
func (e *DefaultAllocationEngine) Type() sdk.EngineType {
	return sdk.EngineTypeAllocation
}

// ConfigSchema returns the configuration schema. The default strategy takes
// no configuration.
func (e *DefaultAllocationEngine) ConfigSchema() sdk.ConfigSchema {
	return sdk.ConfigSchema{
		Schema:     "https://json-schema.org/draft/2020-12/schema",
		Properties: map[string]sdk.PropertySchema{},
		Required:   []string{},
	}
}

// Initialize initializes the engine with configuration.
func (e *DefaultAllocationEngine) Initialize(ctx context.Context, config sdk.EngineConfig) error {
	e.config = config
	return nil
}

// HealthCheck returns the engine health status.
func (e *DefaultAllocationEngine) HealthCheck(ctx context.Context) sdk.HealthStatus {
	return sdk.HealthStatus{Healthy: true, Message: "default allocation strategy is healthy"}
}

// Shutdown gracefully shuts down the engine.
func (e *DefaultAllocationEngine) Shutdown(ctx context.Context) error {
	return nil
}

// ChooseAlternative always keeps the first candidate, i.e. declaration
// order — the primary resource, or the first alternative to tie with it.
func (e *DefaultAllocationEngine) ChooseAlternative(ctx *sdk.ExecutionContext, input types.ChooseAlternativeInput) (*types.ChooseAlternativeOutput, error) {
	if len(input.Candidates) == 0 {
		return nil, sdk.ErrNoCandidates
	}
	return &types.ChooseAlternativeOutput{ChosenIndex: 0, Reason: "declaration order"}, nil
}

// Ensure DefaultAllocationEngine implements types.AllocationEngine.
var _ types.AllocationEngine = (*DefaultAllocationEngine)(nil)
