// Package testing provides testing utilities for chronoforge engine plugins.
//
// Example usage:
//
//	func TestMyEngine(t *testing.T) {
//		harness := testing.NewHarness(&MyEngine{})
//
//		// Test initialization
//		err := harness.Initialize(map[string]any{
//			"my_setting": "value",
//		})
//		require.NoError(t, err)
//
//		// Test the tie-break choice
//		result, err := harness.ExecuteChooseAlternative(testing.NewTestChooseAlternativeInput(
//			testing.NewTestCandidate(0.9),
//			testing.NewTestCandidate(0.1),
//		))
//		require.NoError(t, err)
//		assert.Equal(t, 1, result.ChosenIndex)
//	}
package testing

import (
	"context"
	"log/slog"
	"os"

	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
	"github.com/google/uuid"
)

// Harness provides a test harness for engine plugins.
type Harness struct {
	engine sdk.Engine
	config sdk.EngineConfig
	logger *slog.Logger
	userID uuid.UUID
}

// NewHarness creates a new test harness for an engine.
func NewHarness(engine sdk.Engine) *Harness {
	userID := uuid.New()
	return &Harness{
		engine: engine,
		config: sdk.NewEngineConfig(engine.Metadata().ID, userID, nil),
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})),
		userID: userID,
	}
}

// WithLogger sets a custom logger.
func (h *Harness) WithLogger(logger *slog.Logger) *Harness {
	h.logger = logger
	return h
}

// WithUserID sets a custom user ID for execution context.
func (h *Harness) WithUserID(userID uuid.UUID) *Harness {
	h.userID = userID
	return h
}

// Initialize initializes the engine with the given configuration.
func (h *Harness) Initialize(config map[string]any) error {
	h.config = sdk.NewEngineConfig(h.engine.Metadata().ID, h.userID, config)
	return h.engine.Initialize(context.Background(), h.config)
}

// Shutdown shuts down the engine.
func (h *Harness) Shutdown() error {
	return h.engine.Shutdown(context.Background())
}

// HealthCheck checks engine health.
func (h *Harness) HealthCheck() sdk.HealthStatus {
	return h.engine.HealthCheck(context.Background())
}

// Metadata returns engine metadata.
func (h *Harness) Metadata() sdk.EngineMetadata {
	return h.engine.Metadata()
}

// ConfigSchema returns the configuration schema.
func (h *Harness) ConfigSchema() sdk.ConfigSchema {
	return h.engine.ConfigSchema()
}

// createContext creates an execution context for testing.
func (h *Harness) createContext() *sdk.ExecutionContext {
	ctx := sdk.NewExecutionContext(context.Background(), h.userID, h.engine.Metadata().ID)
	ctx.WithLogger(h.logger)
	return ctx
}

// ExecuteChooseAlternative executes the ChooseAlternative operation.
func (h *Harness) ExecuteChooseAlternative(input types.ChooseAlternativeInput) (*types.ChooseAlternativeOutput, error) {
	allocation, ok := h.engine.(types.AllocationEngine)
	if !ok {
		return nil, ErrWrongEngineType
	}
	return allocation.ChooseAlternative(h.createContext(), input)
}

// Test Data Helpers

// NewTestCandidate creates a test allocation candidate at the given
// utilization, with a one-slot window [0, 1).
func NewTestCandidate(utilization float64) types.AllocationCandidate {
	return types.AllocationCandidate{
		ResourceID:  uuid.New(),
		Start:       0,
		End:         1,
		Utilization: utilization,
	}
}

// NewTestChooseAlternativeInput creates a test tie-break input from a set of
// already-tied candidates.
func NewTestChooseAlternativeInput(candidates ...types.AllocationCandidate) types.ChooseAlternativeInput {
	return types.ChooseAlternativeInput{
		TaskID:     uuid.New(),
		TaskName:   "test task",
		Direction:  "asap",
		Candidates: candidates,
	}
}

// Error types
var (
	// ErrWrongEngineType is returned when the engine doesn't implement the expected interface.
	ErrWrongEngineType = &EngineTypeError{Message: "engine does not implement the required interface"}
)

// EngineTypeError represents an engine type mismatch error.
type EngineTypeError struct {
	Message string
}

func (e *EngineTypeError) Error() string {
	return e.Message
}
