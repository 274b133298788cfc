package services_test

import (
	"testing"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/application/services"
	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintEngine_Propagate_PushesLowerBoundFromDependency(t *testing.T) {
	proj := newWeekProject(t)

	start := int64(5)
	a := domain.NewTask(uuid.New(), "a", 0)
	a.SetAnchors(domain.Anchors{Start: &start})
	proj.AddTask(a)

	b := domain.NewTask(uuid.New(), "b", 1)
	b.AddDependency(domain.DependencyEdge{Source: a.ID(), Kind: domain.KindEndToStart, Gap: 1})
	proj.AddTask(b)

	require.NoError(t, proj.Build())

	engine := services.NewConstraintEngine()
	windows, err := engine.Propagate(proj)
	require.NoError(t, err)

	// a is pinned to slot 5; with no Schedule yet, b's lower bound falls back
	// to a's own window lower bound (5) plus the edge's gap.
	assert.Equal(t, int64(6), windows[b.ID()].Lower)
}

func TestConstraintEngine_Propagate_MaxGapNarrowsUpperBound(t *testing.T) {
	proj := newWeekProject(t)

	start := int64(5)
	a := domain.NewTask(uuid.New(), "a", 0)
	a.SetAnchors(domain.Anchors{Start: &start})
	proj.AddTask(a)

	b := domain.NewTask(uuid.New(), "b", 1)
	b.AddDependency(domain.DependencyEdge{
		Source: a.ID(), Kind: domain.KindEndToStart, HasMaxGap: true, MaxGap: 2,
	})
	proj.AddTask(b)

	require.NoError(t, proj.Build())

	engine := services.NewConstraintEngine()
	windows, err := engine.Propagate(proj)
	require.NoError(t, err)

	bw := windows[b.ID()]
	assert.Equal(t, int64(5), bw.Lower)
	assert.Equal(t, int64(7), bw.Upper)
}

func TestConstraintEngine_Propagate_ContainerInheritsChildUnion(t *testing.T) {
	proj := newWeekProject(t)

	parent := domain.NewTask(uuid.New(), "phase", 0)
	proj.AddTask(parent)

	minStartA, endA := int64(5), int64(8)
	childA := domain.NewTask(uuid.New(), "phase.a", 1)
	childA.SetAnchors(domain.Anchors{MinStart: &minStartA, End: &endA})
	childA.SetParent(parent.ID())
	parent.AddChild(childA.ID())
	proj.AddTask(childA)

	minStartB, endB := int64(15), int64(20)
	childB := domain.NewTask(uuid.New(), "phase.b", 2)
	childB.SetAnchors(domain.Anchors{MinStart: &minStartB, End: &endB})
	childB.SetParent(parent.ID())
	parent.AddChild(childB.ID())
	proj.AddTask(childB)

	require.NoError(t, proj.Build())

	engine := services.NewConstraintEngine()
	windows, err := engine.Propagate(proj)
	require.NoError(t, err)

	pw := windows[parent.ID()]
	assert.Equal(t, int64(5), pw.Lower)
	assert.Equal(t, int64(20), pw.Upper)
}
