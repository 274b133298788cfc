package services

import (
	"context"

	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// Driver repeats constraint propagation and allocation to a fixed point:
// each round re-derives every task's window, places whatever is Ready, and
// freezes whatever a round left unchanged. It stops when a round
// makes no transitions anywhere, or raises ErrNonconvergent after 2×|tasks|
// rounds or once its context is done (the context error is the Cause).
type Driver struct {
	constraints *ConstraintEngine
	allocator   *Allocator
}

// NewDriver wires a Driver from its two collaborators.
func NewDriver(constraints *ConstraintEngine, allocator *Allocator) *Driver {
	return &Driver{constraints: constraints, allocator: allocator}
}

// Run executes the fixed-point loop against project, returning the
// converged Schedule or a SchedulingError.
func (d *Driver) Run(ctx context.Context, project *schedulingDomain.Project) (*schedulingDomain.Schedule, error) {
	tasks := project.Tasks()
	roundCap := 2 * len(tasks)
	if roundCap == 0 {
		roundCap = 1
	}
	topoPos := project.Graph().TopoPosition()

	round := 0
	for {
		select {
		case <-ctx.Done():
			err := schedulingDomain.NewSchedulingError(
				schedulingDomain.ErrKindNonconvergent, uuid.Nil, schedulingDomain.Window{},
				"fixed-point driver stopped by its context before converging",
			)
			err.Cause = ctx.Err()
			err.RelatedTasks = readyTaskIDs(tasks)
			project.RecordFailure(err)
			return nil, err
		default:
		}

		if round >= roundCap {
			err := schedulingDomain.NewSchedulingError(
				schedulingDomain.ErrKindNonconvergent, uuid.Nil, schedulingDomain.Window{},
				"fixed-point driver exceeded its round cap without converging",
			)
			err.RelatedTasks = readyTaskIDs(tasks)
			project.RecordFailure(err)
			return nil, err
		}
		round++

		windows, err := d.constraints.Propagate(project)
		if err != nil {
			if schedErr, ok := err.(*schedulingDomain.SchedulingError); ok {
				project.RecordFailure(schedErr)
			}
			return nil, err
		}

		changed := false
		ready := readyTasks(tasks)
		visitOrder(ready, topoPos)

		leafReady, containerReady := splitByLeaf(ready)

		for _, task := range leafReady {
			if task.ReplacementCount() > schedulingDomain.MaxReplacements {
				err := schedulingDomain.NewSchedulingError(
					schedulingDomain.ErrKindNonconvergent, task.ID(), windows[task.ID()],
					"task exceeded its bounded re-placement count",
				)
				err.RelatedTasks = readyTaskIDs(tasks)
				project.RecordFailure(err)
				return nil, err
			}

			window := refineFromPlacedDependencies(project, task, windows[task.ID()])
			placement, err := d.allocator.Place(ctx, project, task, window)
			if err != nil {
				if schedErr, ok := err.(*schedulingDomain.SchedulingError); ok {
					project.RecordFailure(schedErr)
				}
				return nil, err
			}
			project.RecordPlacement(task, placement.Start, placement.End)
			changed = true
		}

		// Containers never hold demand themselves (Invariant 6): once every
		// child has a schedule, a container's own start/end is just their
		// span. containerReady is already topo-sorted child-before-parent, so
		// a container whose children are themselves containers sees them
		// settled within this same pass.
		for _, task := range containerReady {
			start, end, ok := aggregateChildSchedule(project, task)
			if !ok {
				continue
			}
			project.RecordPlacement(task, start, end)
			changed = true
		}

		// Anything Placed whose committed booking still fits this round's
		// freshly propagated window freezes. A Placed task this round leaves
		// just-placed is skipped until next round. Everything else already
		// Placed had its window move out from under its committed interval —
		// propagation only tightens as more of the graph settles, so a
		// later, more-informed round can prove an earlier placement was too
		// early (or too late). Such a task is released back to Ready instead
		// of frozen, per its bounded re-placement allowance.
		for _, task := range tasks {
			if task.State() != schedulingDomain.StatePlaced || wasJustPlaced(ready, task) {
				continue
			}
			start, end, hasSchedule := task.Schedule()
			w := windows[task.ID()]
			if !hasSchedule || (start >= w.Lower && end <= w.Upper) {
				project.RecordFreeze(task)
				continue
			}
			releaseBookings(project, task)
			project.RecordRebound(task)
			changed = true
		}

		if !changed {
			project.RecordConvergence(round)
			return schedulingDomain.BuildSchedule(project, round, true), nil
		}
	}
}

func readyTasks(tasks []*schedulingDomain.Task) []*schedulingDomain.Task {
	out := make([]*schedulingDomain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.State() == schedulingDomain.StateReady {
			out = append(out, t)
		}
	}
	return out
}

// splitByLeaf partitions an already-ordered ready list into leaf tasks (which
// the allocator places against resources) and containers (which derive their
// schedule from their children instead), preserving relative order in each.
func splitByLeaf(ready []*schedulingDomain.Task) (leaf, container []*schedulingDomain.Task) {
	for _, t := range ready {
		if t.IsLeaf() {
			leaf = append(leaf, t)
		} else {
			container = append(container, t)
		}
	}
	return leaf, container
}

// aggregateChildSchedule reports a container's span as the min start and max
// end across its children, or ok=false if any child has no schedule yet.
func aggregateChildSchedule(project *schedulingDomain.Project, task *schedulingDomain.Task) (start, end int64, ok bool) {
	first := true
	for _, childID := range task.Children() {
		child, found := project.Task(childID)
		if !found {
			continue
		}
		cStart, cEnd, cOK := child.Schedule()
		if !cOK {
			return 0, 0, false
		}
		if first {
			start, end = cStart, cEnd
			first = false
			continue
		}
		if cStart < start {
			start = cStart
		}
		if cEnd > end {
			end = cEnd
		}
	}
	return start, end, !first
}

// refineFromPlacedDependencies tightens a task's lower bound using any
// dependency source already Placed earlier in the same round — propagation
// ran once at the round's start, before those placements existed.
func refineFromPlacedDependencies(project *schedulingDomain.Project, task *schedulingDomain.Task, window schedulingDomain.Window) schedulingDomain.Window {
	for _, dep := range task.Dependencies() {
		source, ok := project.Task(dep.Source)
		if !ok {
			continue
		}
		start, end, ok := source.Schedule()
		if !ok {
			continue
		}
		bound := start
		if dep.Kind == schedulingDomain.KindEndToStart {
			bound = end
		}
		if lb := bound + dep.Gap; lb > window.Lower {
			window.Lower = lb
		}
	}
	return window
}

func wasJustPlaced(ready []*schedulingDomain.Task, task *schedulingDomain.Task) bool {
	for _, t := range ready {
		if t.ID() == task.ID() {
			return true
		}
	}
	return false
}

// readyTaskIDs lists every still-Ready task at the point a SchedulingError is
// raised, populating a failure's RelatedTasks diagnostic.
func readyTaskIDs(tasks []*schedulingDomain.Task) []uuid.UUID {
	var out []uuid.UUID
	for _, t := range tasks {
		if t.State() == schedulingDomain.StateReady {
			out = append(out, t.ID())
		}
	}
	return out
}

// releaseBookings frees every scoreboard cell task currently holds, across
// every resource it was booked on, ahead of clearing its own schedule.
func releaseBookings(project *schedulingDomain.Project, task *schedulingDomain.Task) {
	for resourceID, ivs := range task.Bookings() {
		resource, ok := project.Resource(resourceID)
		if !ok {
			continue
		}
		for _, iv := range ivs {
			resource.Scoreboard().Free(iv.Start, iv.End)
		}
	}
}
