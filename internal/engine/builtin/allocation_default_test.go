package builtin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/chronoforge/internal/engine/builtin"
	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/felixgeelhaar/chronoforge/internal/engine/types"
	"github.com/google/uuid"
)

func TestDefaultAllocationEngine_Metadata(t *testing.T) {
	e := builtin.NewDefaultAllocationEngine()
	require.NoError(t, e.Metadata().Validate())
	assert.Equal(t, sdk.EngineTypeAllocation, e.Type())
}

func TestDefaultAllocationEngine_ChoosesFirstCandidate(t *testing.T) {
	e := builtin.NewDefaultAllocationEngine()
	require.NoError(t, e.Initialize(context.Background(), sdk.EngineConfig{}))

	input := types.ChooseAlternativeInput{
		TaskID:    uuid.New(),
		Direction: "asap",
		Candidates: []types.AllocationCandidate{
			{ResourceID: uuid.New(), Start: 0, End: 4, Utilization: 0.9},
			{ResourceID: uuid.New(), Start: 0, End: 4, Utilization: 0.1},
		},
	}

	out, err := e.ChooseAlternative(sdk.NewExecutionContext(context.Background(), uuid.Nil, "test"), input)
	require.NoError(t, err)
	assert.Equal(t, 0, out.ChosenIndex)
}

func TestDefaultAllocationEngine_NoCandidatesErrors(t *testing.T) {
	e := builtin.NewDefaultAllocationEngine()
	_, err := e.ChooseAlternative(sdk.NewExecutionContext(context.Background(), uuid.Nil, "test"), types.ChooseAlternativeInput{})
	require.ErrorIs(t, err, sdk.ErrNoCandidates)
}

func TestDefaultAllocationEngine_HealthCheck(t *testing.T) {
	e := builtin.NewDefaultAllocationEngine()
	status := e.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
}
