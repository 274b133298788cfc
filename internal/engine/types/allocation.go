// Package types defines the data shapes carried across the engine plugin
// boundary, shared by in-process builtins, the gRPC transport, and the
// public pkg/enginesdk re-exports.
package types

import (
	"github.com/felixgeelhaar/chronoforge/internal/engine/sdk"
	"github.com/google/uuid"
)

// AllocationEngine extends the base Engine with the single operation an
// AllocationStrategy plugin may perform: choosing among resource candidates
// that already tied under the allocator's ASAP/ALAP direction rule. It may
// not see or influence anything upstream of that tie — not the dependency
// graph, not window propagation, not the ASAP/ALAP rule itself.
type AllocationEngine interface {
	sdk.Engine

	// ChooseAlternative picks the winning candidate's index out of
	// input.Candidates, or declines by returning an index outside
	// [0, len(Candidates)) — the allocator then falls back to declaration
	// order.
	ChooseAlternative(ctx *sdk.ExecutionContext, input ChooseAlternativeInput) (*ChooseAlternativeOutput, error)
}

// AllocationCandidate is one resource's tied offer for a task's alternative
// allocation group.
type AllocationCandidate struct {
	// ResourceID identifies the candidate resource.
	ResourceID uuid.UUID `json:"resource_id"`

	// Start and End are the candidate's slot-grid interval, already equal
	// (under the active direction) to every other candidate in the list.
	Start int64 `json:"start"`
	End   int64 `json:"end"`

	// Utilization is the fraction of the resource's scoreboard already
	// Booked, in [0, 1]. Informational only — strategies use it to spread
	// load, but it is not itself part of any scheduling invariant.
	Utilization float64 `json:"utilization"`
}

// ChooseAlternativeInput is what the allocator hands a plugin once multiple
// resources have tied.
type ChooseAlternativeInput struct {
	// TaskID and TaskName identify the task being placed.
	TaskID   uuid.UUID `json:"task_id"`
	TaskName string    `json:"task_name"`

	// Priority is the task's scheduling priority.
	Priority int `json:"priority"`

	// Direction is "asap" or "alap".
	Direction string `json:"direction"`

	// Candidates are the tied offers to choose among; always len >= 2.
	Candidates []AllocationCandidate `json:"candidates"`
}

// ChooseAlternativeOutput carries the winning candidate's index, plus an
// optional human-readable reason surfaced in logs.
type ChooseAlternativeOutput struct {
	// ChosenIndex indexes into the input's Candidates slice. A value outside
	// [0, len(Candidates)) means the strategy declines to choose.
	ChosenIndex int `json:"chosen_index"`

	// Reason optionally explains the choice.
	Reason string `json:"reason,omitempty"`
}
