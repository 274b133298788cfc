package domain

import "github.com/google/uuid"

// DependencyKind distinguishes end-to-start from start-to-start edges.
// `precedes` is the same relationship expressed from the other end and is
// normalized to `depends` (end_to_start, reversed) when the project file is
// decoded.
type DependencyKind string

const (
	// KindEndToStart requires the target to start no earlier than the
	// source's end plus gap.
	KindEndToStart DependencyKind = "end_to_start"
	// KindStartToStart requires the target to start no earlier than the
	// source's start plus gap.
	KindStartToStart DependencyKind = "start_to_start"
)

// DependencyEdge is one incoming dependency on a task.
type DependencyEdge struct {
	Source    uuid.UUID
	Kind      DependencyKind
	Gap       int64 // non-negative slot count, default 0
	HasMaxGap bool
	MaxGap    int64 // upper bound on the gap, only meaningful if HasMaxGap
	// OnStart means the target's constraint binds to the target's *start*
	// rather than its natural anchor point, mirroring the corresponding
	// `depends` case for `precedes` edges.
	OnStart bool
}
