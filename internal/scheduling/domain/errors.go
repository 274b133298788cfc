package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorKind identifies one of the closed set of fatal error categories the
// engine can raise. All are fatal unless the caller elects to continue; no
// partial schedules are ever emitted.
type ErrorKind string

const (
	// ErrKindInvalidTime marks an out-of-range or non-aligned time input.
	ErrKindInvalidTime ErrorKind = "InvalidTime"
	// ErrKindCycleDetected marks a cycle in the dependency graph.
	ErrKindCycleDetected ErrorKind = "CycleDetected"
	// ErrKindUnsatisfiable marks a task whose lb > ub after propagation.
	ErrKindUnsatisfiable ErrorKind = "Unsatisfiable"
	// ErrKindNoResource marks a task with no resource able to supply demand.
	ErrKindNoResource ErrorKind = "NoResource"
	// ErrKindOverCapacity marks a contiguous task larger than any free run.
	ErrKindOverCapacity ErrorKind = "OverCapacity"
	// ErrKindLimitExceeded marks an anchor demanding more than a limit allows.
	ErrKindLimitExceeded ErrorKind = "LimitExceeded"
	// ErrKindNonconvergent marks a fixed-point run that hit its round cap.
	ErrKindNonconvergent ErrorKind = "Nonconvergent"
	// ErrKindInvalidModel marks a missing field, conflicting anchor, or bad option.
	ErrKindInvalidModel ErrorKind = "InvalidModel"
)

// Window describes the [lb, ub) slot range a task was being evaluated against
// when a SchedulingError was raised.
type Window struct {
	Lower int64
	Upper int64
}

// SchedulingError is the engine's single fatal-error type. It always carries
// enough context to locate the offending task and window, per spec's "errors
// surface with the offending task identity and a minimal context (window,
// lb/ub, resource)".
type SchedulingError struct {
	Kind       ErrorKind
	TaskID     uuid.UUID
	ResourceID uuid.UUID
	Window     Window
	Message    string
	Cause      error
	// RelatedTasks carries supplementary task identities for diagnosing the
	// error beyond the single offending TaskID — for ErrKindNonconvergent
	// this is every task still Ready when the fixed-point driver gave up.
	RelatedTasks []uuid.UUID
}

func (e *SchedulingError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *SchedulingError) Unwrap() error { return e.Cause }

// Is reports whether target names the same ErrorKind, so callers can write
// errors.Is(err, domain.ErrCycleDetected) against the sentinel values below.
func (e *SchedulingError) Is(target error) bool {
	var other *SchedulingError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Sentinel values for errors.Is comparisons against a bare Kind.
var (
	ErrCycleDetected = &SchedulingError{Kind: ErrKindCycleDetected}
	ErrUnsatisfiable = &SchedulingError{Kind: ErrKindUnsatisfiable}
	ErrNoResource    = &SchedulingError{Kind: ErrKindNoResource}
	ErrOverCapacity  = &SchedulingError{Kind: ErrKindOverCapacity}
	ErrLimitExceeded = &SchedulingError{Kind: ErrKindLimitExceeded}
	ErrNonconvergent = &SchedulingError{Kind: ErrKindNonconvergent}
	ErrInvalidModel  = &SchedulingError{Kind: ErrKindInvalidModel}
	ErrInvalidTime   = &SchedulingError{Kind: ErrKindInvalidTime}
)

// NewSchedulingError builds a SchedulingError for the given task/window.
func NewSchedulingError(kind ErrorKind, taskID uuid.UUID, window Window, msg string) *SchedulingError {
	return &SchedulingError{Kind: kind, TaskID: taskID, Window: window, Message: msg}
}
