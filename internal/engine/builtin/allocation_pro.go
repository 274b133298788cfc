package builtin

import (
	"context"

	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
)

// ProAllocationEngineID identifies the built-in load-balancing allocation
// strategy in the engine registry.
const ProAllocationEngineID = "chronoforge.allocation.pro"

// ProAllocationEngine adds a load-balancing tie-break on top of the
// declaration-order default: among candidates that already tie on the
// ASAP/ALAP direction rule, it prefers the least-utilized resource, so
// repeated ties spread bookings instead of always favoring the primary.
type ProAllocationEngine struct {
	config sdk.EngineConfig
}

// NewProAllocationEngine creates the load-balancing allocation engine.
func NewProAllocationEngine() *ProAllocationEngine {
	return &ProAllocationEngine{}
}

// Metadata returns engine metadata.
func (e *ProAllocationEngine) Metadata() sdk.EngineMetadata {
	return sdk.EngineMetadata{
		ID:            ProAllocationEngineID,
		Name:          "Load-Balancing Allocation Strategy",
		Version:       "1.0.0",
		Author:        "chronoforge",
		Description:   "Breaks alternative-resource ties in favor of the least-utilized resource",
		License:       "Proprietary",
		Tags:          []string{"allocation", "pro", "load-balancing"},
		MinAPIVersion: "1.0.0",
		Capabilities:  []string{"choose_alternative", "load_balancing"},
	}
}

// Type returns the engine type.
func (e *ProAllocationEngine) Type() sdk.EngineType {
	return sdk.EngineTypeAllocation
}

// ConfigSchema returns the configuration schema.
func (e *ProAllocationEngine) ConfigSchema() sdk.ConfigSchema {
	return sdk.ConfigSchema{
		Schema: "https://json-schema.org/draft/2020-12/schema",
		Properties: map[string]sdk.PropertySchema{
			"max_utilization_delta": {
				Type:        "number",
				Title:       "Max Utilization Delta",
				Description: "When the gap between the least- and most-utilized tied candidate is below this, declaration order wins instead",
				Default:     0.0,
				Minimum:     sdk.FloatPtr(0),
				Maximum:     sdk.FloatPtr(1),
				UIHints: sdk.UIHints{
					Widget:   "slider",
					Group:    "Load Balancing",
					Order:    1,
					HelpText: "Set above zero to avoid reshuffling ties that are nearly balanced already",
				},
			},
		},
		Required: []string{},
	}
}

// Initialize initializes the engine with configuration.
func (e *ProAllocationEngine) Initialize(ctx context.Context, config sdk.EngineConfig) error {
	e.config = config
	return nil
}

// HealthCheck returns the engine health status.
func (e *ProAllocationEngine) HealthCheck(ctx context.Context) sdk.HealthStatus {
	return sdk.HealthStatus{Healthy: true, Message: "load-balancing allocation strategy is healthy"}
}

// Shutdown gracefully shuts down the engine.
func (e *ProAllocationEngine) Shutdown(ctx context.Context) error {
	return nil
}

// ChooseAlternative picks the least-utilized candidate, with declaration
// order breaking any further tie (including when every candidate is within
// max_utilization_delta of the minimum).
func (e *ProAllocationEngine) ChooseAlternative(ctx *sdk.ExecutionContext, input types.ChooseAlternativeInput) (*types.ChooseAlternativeOutput, error) {
	if len(input.Candidates) == 0 {
		return nil, sdk.ErrNoCandidates
	}

	threshold := e.getFloatWithDefault("max_utilization_delta", 0.0)

	best := 0
	for i := 1; i < len(input.Candidates); i++ {
		if input.Candidates[i].Utilization < input.Candidates[best].Utilization-threshold {
			best = i
		}
	}

	reason := "least-utilized tied candidate"
	if best == 0 {
		reason = "declaration order within utilization delta"
	}
	return &types.ChooseAlternativeOutput{ChosenIndex: best, Reason: reason}, nil
}

func (e *ProAllocationEngine) getFloatWithDefault(key string, defaultVal float64) float64 {
	if e.config.Has(key) {
		return e.config.GetFloat(key)
	}
	return defaultVal
}

// Ensure ProAllocationEngine implements types.AllocationEngine.
var _ types.AllocationEngine = (*ProAllocationEngine)(nil)
