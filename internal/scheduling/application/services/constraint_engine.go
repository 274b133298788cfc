package services

import (
	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// ConstraintEngine derives, for every task, the [lb, ub) slot window its
// anchors, dependency edges, and container relationships allow. It holds no
// state of its own between calls — each Propagate call recomputes
// windows from the project's current task graph from scratch, which is what
// lets the fixed-point driver re-run it every round without drift.
type ConstraintEngine struct{}

// NewConstraintEngine builds a stateless ConstraintEngine.
func NewConstraintEngine() *ConstraintEngine { return &ConstraintEngine{} }

// Propagate computes every task's window. Propagation runs lower bounds
// forward along the topological order (a task's lb is never earlier than
// what its dependencies and anchors allow). Upper bounds come only from a
// task's own anchors and from max-gap edges on its incoming dependencies; a
// task's ub is not narrowed by its dependents. Container tasks additionally
// take the union of their children's windows, intersected with their own,
// and re-propagate that back down so a child never escapes its parent's own
// bounds.
func (e *ConstraintEngine) Propagate(project *schedulingDomain.Project) (map[uuid.UUID]schedulingDomain.Window, error) {
	graph := project.Graph()
	gridSize := project.Grid().Size()

	windows := make(map[uuid.UUID]schedulingDomain.Window, len(project.Tasks()))
	for _, t := range project.Tasks() {
		windows[t.ID()] = schedulingDomain.Window{Lower: 0, Upper: gridSize}
	}

	if err := e.applyAnchors(project, windows); err != nil {
		return nil, err
	}

	// Pass 1 (forward, source-before-target): explicit dependency edges push
	// each task's lower bound (and, for max-gap edges, its upper bound) out
	// from its sources.
	for _, id := range graph.TopologicalOrder() {
		task, _ := project.Task(id)
		w := windows[id]
		for _, dep := range task.Dependencies() {
			source, ok := project.Task(dep.Source)
			if !ok {
				continue
			}
			sw := windows[dep.Source]
			wantEnd := dep.Kind == schedulingDomain.KindEndToStart
			w.Lower = maxInt64(w.Lower, sourceBound(source, sw, wantEnd)+dep.Gap)
			if dep.HasMaxGap {
				w.Upper = minInt64(w.Upper, sourceBound(source, sw, wantEnd)+dep.MaxGap)
			}
		}
		windows[id] = w
	}

	// Pass 2 (forward, child-before-parent per the implicit container edges):
	// a container's window is the union of its children's windows, intersected
	// with whatever its own anchors/dependencies already demanded.
	for _, id := range graph.TopologicalOrder() {
		task, _ := project.Task(id)
		if task.IsLeaf() {
			continue
		}
		w := windows[id]
		own := w
		first := true
		for _, childID := range task.Children() {
			cw := windows[childID]
			if first {
				w.Lower, w.Upper = cw.Lower, cw.Upper
				first = false
				continue
			}
			w.Lower = minInt64(w.Lower, cw.Lower)
			w.Upper = maxInt64(w.Upper, cw.Upper)
		}
		w.Lower = maxInt64(w.Lower, own.Lower)
		w.Upper = minInt64(w.Upper, own.Upper)
		windows[id] = w
	}

	// Pass 3 (reverse, parent-before-child): narrow every child's window to
	// fit inside its settled parent window.
	for _, id := range graph.ReverseTopologicalOrder() {
		task, _ := project.Task(id)
		if task.IsLeaf() {
			continue
		}
		w := windows[id]
		for _, childID := range task.Children() {
			windows[childID] = e.inheritParentWindow(windows[childID], w)
		}
	}

	for _, t := range project.Tasks() {
		w := windows[t.ID()]
		if w.Lower >= w.Upper {
			return nil, schedulingDomain.NewSchedulingError(
				schedulingDomain.ErrKindUnsatisfiable, t.ID(), w,
				"lower bound meets or exceeds upper bound after propagation",
			)
		}
	}

	return windows, nil
}

// applyAnchors seeds every task's window from its own Anchors.
func (e *ConstraintEngine) applyAnchors(project *schedulingDomain.Project, windows map[uuid.UUID]schedulingDomain.Window) error {
	for _, t := range project.Tasks() {
		w := windows[t.ID()]
		a := t.Anchors()
		if a.Start != nil {
			w.Lower = maxInt64(w.Lower, *a.Start)
			w.Upper = minInt64(w.Upper, *a.Start+1)
		}
		if a.MinStart != nil {
			w.Lower = maxInt64(w.Lower, *a.MinStart)
		}
		if a.End != nil {
			w.Upper = minInt64(w.Upper, *a.End)
		}
		if a.MaxEnd != nil {
			w.Upper = minInt64(w.Upper, *a.MaxEnd)
		}
		if w.Lower >= w.Upper {
			return schedulingDomain.NewSchedulingError(
				schedulingDomain.ErrKindUnsatisfiable, t.ID(), w,
				"anchors leave no admissible window",
			)
		}
		windows[t.ID()] = w
	}
	return nil
}

// sourceBound returns the dependency source's relevant edge instant: its end
// (for end_to_start) or its start (for start_to_start). Before the source has
// a committed schedule, its own earliest-admissible instant (w.Lower) stands
// in for the unknown end/start; refineFromPlacedDependencies tightens this
// again once the source is actually placed, possibly within the same round.
func sourceBound(source *schedulingDomain.Task, w schedulingDomain.Window, wantEnd bool) int64 {
	if start, end, ok := source.Schedule(); ok {
		if wantEnd {
			return end
		}
		return start
	}
	return w.Lower
}

// inheritParentWindow narrows a child's window to fit inside its parent's.
func (e *ConstraintEngine) inheritParentWindow(child, parent schedulingDomain.Window) schedulingDomain.Window {
	if child.Lower < parent.Lower {
		child.Lower = parent.Lower
	}
	if child.Upper > parent.Upper {
		child.Upper = parent.Upper
	}
	return child
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

