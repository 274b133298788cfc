package services

import (
	"context"
	"time"

	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/felixgeelhaar/chronoforge/internal/shared/infrastructure/convert"
	"github.com/google/uuid"
)

// AllocationCandidate is one resource's offer for a task's alternative
// allocation group, exposed to a pluggable AllocationStrategy only once it
// already ties with the best candidate under the ASAP/ALAP direction rule —
// the strategy never sees, and cannot override, that rule itself.
type AllocationCandidate struct {
	ResourceID  uuid.UUID
	Start       int64
	End         int64
	Utilization float64
}

// AllocationStrategy breaks ties among candidates that are otherwise
// equally good under the direction rule. Declaration order (the order
// AllocationCandidate entries are given in) is the default tie-break when no
// strategy is configured, or when a strategy declines by returning an
// out-of-range index.
type AllocationStrategy interface {
	ChooseAlternative(ctx context.Context, task *schedulingDomain.Task, candidates []AllocationCandidate) (int, error)
}

// Allocator places a single leaf task's demand onto one or more resources
// within an already-propagated [lb, ub) window. It is the engine's
// core placement algorithm: ASAP/ALAP interval choice, multi-resource
// intersection for "combine" allocation groups, ordered alternative trial,
// and priority-based preemption of already-booked lower-priority work.
type Allocator struct {
	Strategy AllocationStrategy
}

// NewAllocator builds a stateless Allocator using the built-in declaration
// order tie-break.
func NewAllocator() *Allocator { return &Allocator{} }

// NewAllocatorWithStrategy builds an Allocator that consults strategy to
// break ties among alternative-group candidates (see internal/engine for the
// pluggable AllocationStrategy plugin path).
func NewAllocatorWithStrategy(strategy AllocationStrategy) *Allocator {
	return &Allocator{Strategy: strategy}
}

// Placement is the result of successfully placing one task: the slots it
// occupies per resource, and any lower-priority tasks evicted to make room.
type Placement struct {
	Start    int64
	End      int64
	Bookings schedulingDomain.Bookings
	Evicted  []*schedulingDomain.Task
}

// Place finds and books a placement for task within window, or returns a
// SchedulingError (NoResource / OverCapacity) if none of its allocation
// groups can be satisfied.
func (a *Allocator) Place(ctx context.Context, project *schedulingDomain.Project, task *schedulingDomain.Task, window schedulingDomain.Window) (*Placement, error) {
	if task.IsMilestone() {
		return a.placeMilestone(task, window), nil
	}

	groups := task.AllocationGroups()
	if len(groups) == 0 {
		return nil, schedulingDomain.NewSchedulingError(
			schedulingDomain.ErrKindInvalidModel, task.ID(), window,
			"leaf task with demand has no allocation group",
		)
	}

	result := &Placement{Bookings: make(schedulingDomain.Bookings), Start: window.Upper, End: window.Lower}
	for _, group := range groups {
		var (
			placement *Placement
			err       error
		)
		if group.Combine {
			placement, err = a.placeCombined(project, task, group, window)
		} else {
			placement, err = a.placeAlternatives(ctx, project, task, group, window)
		}
		if err != nil {
			return nil, err
		}
		mergeInto(result, placement)
	}
	return result, nil
}

func (a *Allocator) placeMilestone(task *schedulingDomain.Task, window schedulingDomain.Window) *Placement {
	var at int64
	if task.Direction() == schedulingDomain.DirectionALAP {
		at = window.Upper - 1
	} else {
		at = window.Lower
	}
	return &Placement{Start: at, End: at + 1, Bookings: make(schedulingDomain.Bookings)}
}

// placeAlternatives tries every resource in the group's declared order
// (primary first). Candidates are compared under the direction rule:
// earliest start wins under ASAP, latest end wins under ALAP. Anything that
// ties with the current best is kept alongside it; once every resource has
// been tried, a configured AllocationStrategy picks among the tied
// candidates, falling back to declaration order when none is configured (or
// it declines).
func (a *Allocator) placeAlternatives(ctx context.Context, project *schedulingDomain.Project, task *schedulingDomain.Task, group schedulingDomain.AllocationGroup, window schedulingDomain.Window) (*Placement, error) {
	var tied []*candidate
	anyLimitBlocked := false
	for _, resourceID := range group.Resources() {
		resource, ok := project.Resource(resourceID)
		if !ok || !resource.IsLeaf() {
			continue
		}
		cand, limitBlocked := a.bestCandidateOnResource(project, task, resource, window)
		anyLimitBlocked = anyLimitBlocked || limitBlocked
		if cand == nil {
			continue
		}
		if len(tied) == 0 {
			tied = []*candidate{cand}
			continue
		}
		switch compareCandidates(cand, tied[0], task.Direction()) {
		case 1:
			tied = []*candidate{cand}
		case 0:
			tied = append(tied, cand)
		}
	}
	if len(tied) == 0 {
		if anyLimitBlocked && hasFixedWindow(task) {
			return nil, schedulingDomain.NewSchedulingError(
				schedulingDomain.ErrKindLimitExceeded, task.ID(), window,
				"a resource or container daily/weekly/monthly limit leaves no admissible slot in the task's anchor-fixed window",
			)
		}
		return nil, schedulingDomain.NewSchedulingError(
			schedulingDomain.ErrKindNoResource, task.ID(), window,
			"no candidate resource in allocation group could satisfy demand within window",
		)
	}

	best := tied[0]
	if len(tied) > 1 && a.Strategy != nil {
		if idx, err := a.Strategy.ChooseAlternative(ctx, task, toAllocationCandidates(project, tied)); err == nil && idx >= 0 && idx < len(tied) {
			best = tied[idx]
		}
	}
	return a.commit(project, task, best), nil
}

// toAllocationCandidates exposes each tied candidate's resource ID, interval,
// and current scoreboard utilization to an AllocationStrategy.
func toAllocationCandidates(project *schedulingDomain.Project, tied []*candidate) []AllocationCandidate {
	out := make([]AllocationCandidate, len(tied))
	for i, c := range tied {
		out[i] = AllocationCandidate{
			ResourceID:  c.resource.ID(),
			Start:       c.start,
			End:         c.end,
			Utilization: scoreboardUtilization(c.resource.Scoreboard()),
		}
	}
	return out
}

// scoreboardUtilization is the fraction of a resource's slots already
// Booked, used only to describe candidates to an AllocationStrategy — it has
// no bearing on placement itself.
func scoreboardUtilization(sb *schedulingDomain.Scoreboard) float64 {
	total := sb.Len()
	if total == 0 {
		return 0
	}
	var booked int64
	for i := int64(0); i < total; i++ {
		if sb.At(i).State == schedulingDomain.SlotBooked {
			booked++
		}
	}
	return float64(booked) / float64(total)
}

// placeCombined requires every resource in the group to supply the demand
// simultaneously: the candidate interval set must fit within the free/working
// intersection of all of them at once.
func (a *Allocator) placeCombined(project *schedulingDomain.Project, task *schedulingDomain.Task, group schedulingDomain.AllocationGroup, window schedulingDomain.Window) (*Placement, error) {
	resourceIDs := group.Resources()
	resources := make([]*schedulingDomain.Resource, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		r, ok := project.Resource(id)
		if !ok || !r.IsLeaf() {
			continue
		}
		resources = append(resources, r)
	}
	if len(resources) == 0 {
		return nil, schedulingDomain.NewSchedulingError(
			schedulingDomain.ErrKindNoResource, task.ID(), window,
			"combine allocation group has no usable leaf resources",
		)
	}

	need := requiredSlots(task, resources[0])
	runs := a.intersectFreeRuns(project, resources, window.Lower, window.Upper)
	iv, ok := pickRun(runs, need, task.Contiguous(), task.Direction())
	if !ok {
		return nil, schedulingDomain.NewSchedulingError(
			schedulingDomain.ErrKindOverCapacity, task.ID(), window,
			"no simultaneous free interval across every combined resource satisfies demand",
		)
	}

	bookings := make(schedulingDomain.Bookings)
	for _, r := range resources {
		r.Scoreboard().Book(iv.Start, iv.End, toInt32(task.Index()))
		bookings[r.ID()] = append(bookings[r.ID()], iv)
		task.AddBooking(r.ID(), iv)
	}
	return &Placement{Start: iv.Start, End: iv.End, Bookings: bookings}, nil
}

// candidate is one resource's best single-resource offer for a task.
type candidate struct {
	resource *schedulingDomain.Resource
	runs     []schedulingDomain.Interval
	start    int64
	end      int64
	evict    []*schedulingDomain.Task
}

// bestCandidateOnResource finds the best run (or, for non-contiguous
// demand, the best minimal set of runs) on resource within window. It first
// tries without preemption, then — for Booked (not Reserved) cells held by a
// lower-priority task — retries allowing eviction. The second return value
// reports whether a resource or container daily/weekly/monthly limit is what
// stood between a candidate and an otherwise-free run — duration demand
// ignores the calendar entirely and so never consults limits either.
func (a *Allocator) bestCandidateOnResource(project *schedulingDomain.Project, task *schedulingDomain.Task, resource *schedulingDomain.Resource, window schedulingDomain.Window) (*candidate, bool) {
	need := requiredSlots(task, resource)
	sb := resource.Scoreboard()

	if task.Demand().Kind == schedulingDomain.DemandDuration {
		runs := freeRunsIgnoringCalendar(sb, window.Lower, window.Upper)
		if iv, ok := pickRun(runs, need, task.Contiguous(), task.Direction()); ok {
			return &candidate{resource: resource, runs: []schedulingDomain.Interval{iv}, start: iv.Start, end: iv.End}, false
		}
		return nil, false
	}

	raw := sb.CollectIntervals(window.Lower, window.Upper-1, schedulingDomain.PredicateFreeAndWorking, -1, 1)
	free := a.filterByLimits(project, resource, raw)
	if iv, ok := pickRun(free, need, task.Contiguous(), task.Direction()); ok {
		return &candidate{resource: resource, runs: []schedulingDomain.Interval{iv}, start: iv.Start, end: iv.End}, false
	}
	_, rawFits := pickRun(raw, need, task.Contiguous(), task.Direction())

	// Preemption: widen the free set with cells booked by strictly
	// lower-priority tasks, then retry.
	widenedRaw, evicted := freeRunsWithPreemption(project, sb, window.Lower, window.Upper, task.Priority())
	widened := a.filterByLimits(project, resource, widenedRaw)
	if iv, ok := pickRun(widened, need, task.Contiguous(), task.Direction()); ok {
		return &candidate{resource: resource, runs: []schedulingDomain.Interval{iv}, start: iv.Start, end: iv.End, evict: evictedInRange(evicted, iv)}, false
	}
	if rawFits {
		return nil, true
	}
	_, widenedRawFits := pickRun(widenedRaw, need, task.Contiguous(), task.Direction())
	return nil, widenedRawFits
}

// hasFixedWindow reports whether task's own anchors pin it to a window with
// no room to retry elsewhere, the condition under which a limit-caused
// placement failure is reported as LimitExceeded rather than NoResource.
func hasFixedWindow(task *schedulingDomain.Task) bool {
	a := task.Anchors()
	return a.Start != nil || a.End != nil
}

func (a *Allocator) commit(project *schedulingDomain.Project, task *schedulingDomain.Task, cand *candidate) *Placement {
	for _, evicted := range cand.evict {
		project.RecordPreemption(evicted, task, cand.resource.ID())
		releaseTaskBookings(cand.resource, evicted)
	}
	bookings := make(schedulingDomain.Bookings)
	for _, iv := range cand.runs {
		cand.resource.Scoreboard().Book(iv.Start, iv.End, toInt32(task.Index()))
		bookings[cand.resource.ID()] = append(bookings[cand.resource.ID()], iv)
		task.AddBooking(cand.resource.ID(), iv)
	}
	return &Placement{Start: cand.start, End: cand.end, Bookings: bookings, Evicted: cand.evict}
}

func releaseTaskBookings(resource *schedulingDomain.Resource, task *schedulingDomain.Task) {
	for _, iv := range task.Bookings()[resource.ID()] {
		resource.Scoreboard().Free(iv.Start, iv.End)
	}
}

// evictedInRange flattens the preemption map into a slice of owning tasks.
func evictedInRange(evicted map[int32]*schedulingDomain.Task, iv schedulingDomain.Interval) []*schedulingDomain.Task {
	_ = iv
	out := make([]*schedulingDomain.Task, 0, len(evicted))
	for _, t := range evicted {
		out = append(out, t)
	}
	return out
}

// compareCandidates reports how next compares to current under the
// direction rule: earliest start wins under ASAP, latest end wins under
// ALAP. Returns 1 if next is strictly better, 0 if they tie, -1 otherwise.
func compareCandidates(next, current *candidate, direction schedulingDomain.Direction) int {
	var a, b int64
	if direction == schedulingDomain.DirectionALAP {
		a, b = next.end, current.end
		if a > b {
			return 1
		}
	} else {
		a, b = next.start, current.start
		if a < b {
			return 1
		}
	}
	if a == b {
		return 0
	}
	return -1
}

func mergeInto(result *Placement, part *Placement) {
	if part.Start < result.Start {
		result.Start = part.Start
	}
	if part.End > result.End {
		result.End = part.End
	}
	for resourceID, ivs := range part.Bookings {
		result.Bookings[resourceID] = append(result.Bookings[resourceID], ivs...)
	}
	result.Evicted = append(result.Evicted, part.Evicted...)
}

// requiredSlots converts a task's Demand into a slot count on resource,
// applying efficiency scaling only for effort demand.
func requiredSlots(task *schedulingDomain.Task, resource *schedulingDomain.Resource) int64 {
	d := task.Demand()
	switch d.Kind {
	case schedulingDomain.DemandEffort:
		return resource.Efficiency().CeilDiv(d.Slots)
	case schedulingDomain.DemandLength, schedulingDomain.DemandDuration:
		return d.Slots
	default:
		return d.Slots
	}
}

// pickRun selects the slots to occupy from a set of free runs. Contiguous
// demand requires one run at least as long as need; non-contiguous demand
// may be satisfied by greedily consuming runs (left to right for ASAP, right
// to left for ALAP) until need slots are collected, returning only the first
// (ASAP) or last (ALAP) run actually used — callers needing the full set use
// runs directly via the caller's own loop (combine-group placement).
func pickRun(runs []schedulingDomain.Interval, need int64, contiguous bool, direction schedulingDomain.Direction) (schedulingDomain.Interval, bool) {
	if need <= 0 {
		return schedulingDomain.Interval{}, false
	}
	if direction == schedulingDomain.DirectionALAP {
		for i := len(runs) - 1; i >= 0; i-- {
			r := runs[i]
			if r.Len() >= need {
				return schedulingDomain.Interval{Start: r.End - need, End: r.End}, true
			}
			if !contiguous && r.Len() > 0 {
				need -= r.Len()
				if need <= 0 {
					return schedulingDomain.Interval{Start: r.Start, End: r.End}, true
				}
			}
		}
		return schedulingDomain.Interval{}, false
	}
	for _, r := range runs {
		if r.Len() >= need {
			return schedulingDomain.Interval{Start: r.Start, End: r.Start + need}, true
		}
	}
	if !contiguous {
		var total int64
		for _, r := range runs {
			total += r.Len()
		}
		if total >= need && len(runs) > 0 {
			return schedulingDomain.Interval{Start: runs[0].Start, End: runs[len(runs)-1].End}, true
		}
	}
	return schedulingDomain.Interval{}, false
}

// freeRunsIgnoringCalendar collects runs of slots not already Booked or
// Reserved, counting off-duty time as usable — the duration demand kind
// ignores the calendar entirely.
func freeRunsIgnoringCalendar(sb *schedulingDomain.Scoreboard, lo, hi int64) []schedulingDomain.Interval {
	var out []schedulingDomain.Interval
	runStart := int64(-1)
	end := hi - 1
	if end >= sb.Len() {
		end = sb.Len() - 1
	}
	if lo < 0 {
		lo = 0
	}
	for i := lo; i <= end; i++ {
		c := sb.At(i)
		available := c.State == schedulingDomain.SlotFree || c.State == schedulingDomain.SlotOffDuty
		if available {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			out = append(out, schedulingDomain.Interval{Start: runStart, End: i})
			runStart = -1
		}
	}
	if runStart >= 0 {
		out = append(out, schedulingDomain.Interval{Start: runStart, End: end + 1})
	}
	return out
}

// freeRunsWithPreemption widens the free-run scan to also match cells Booked
// by a task whose priority is strictly lower than priority, returning both
// the widened runs and a slot->task map recording what would be evicted.
func freeRunsWithPreemption(project *schedulingDomain.Project, sb *schedulingDomain.Scoreboard, lo, hi int64, priority int) ([]schedulingDomain.Interval, map[int32]*schedulingDomain.Task) {
	evicted := make(map[int32]*schedulingDomain.Task)
	var out []schedulingDomain.Interval
	runStart := int64(-1)
	end := hi - 1
	if end >= sb.Len() {
		end = sb.Len() - 1
	}
	if lo < 0 {
		lo = 0
	}
	tasks := project.Tasks()
	for i := lo; i <= end; i++ {
		c := sb.At(i)
		available := c.State == schedulingDomain.SlotFree
		if !available && c.State == schedulingDomain.SlotBooked && int(c.TaskIndex) < len(tasks) && c.TaskIndex >= 0 {
			owner := tasks[c.TaskIndex]
			// Frozen bookings are immutable; only a still-Placed task (not yet
			// committed for the rest of the run) may be preempted.
			if owner.Priority() < priority && owner.State() == schedulingDomain.StatePlaced {
				available = true
				evicted[c.TaskIndex] = owner
			}
		}
		if available {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 {
			out = append(out, schedulingDomain.Interval{Start: runStart, End: i})
			runStart = -1
		}
	}
	if runStart >= 0 {
		out = append(out, schedulingDomain.Interval{Start: runStart, End: end + 1})
	}
	return out, evicted
}

// intersectFreeRuns computes the common free-and-working runs across every
// resource in a combine group, used by placeCombined. Each resource's own
// runs are limit-filtered before intersecting, so a combine group can never
// exceed any one member's cap either.
func (a *Allocator) intersectFreeRuns(project *schedulingDomain.Project, resources []*schedulingDomain.Resource, lo, hi int64) []schedulingDomain.Interval {
	if len(resources) == 0 {
		return nil
	}
	runs := a.filterByLimits(project, resources[0], resources[0].Scoreboard().CollectIntervals(lo, hi-1, schedulingDomain.PredicateFreeAndWorking, -1, 1))
	for _, r := range resources[1:] {
		other := a.filterByLimits(project, r, r.Scoreboard().CollectIntervals(lo, hi-1, schedulingDomain.PredicateFreeAndWorking, -1, 1))
		runs = intersectIntervals(runs, other)
	}
	return runs
}

// limitDim is one of the three rolling windows a Resource's Limits bounds.
type limitDim int

const (
	dimDaily limitDim = iota
	dimWeekly
	dimMonthly
)

// bucketKey identifies one resource's occurrence of one limit dimension's
// rolling window (e.g. "resource R's calendar week of 2026-07-27").
type bucketKey struct {
	resource uuid.UUID
	dim      limitDim
	bucketLo int64
}

// limitContext memoizes, across one candidate-run scan, each limited
// resource's already-booked slot count per bucket it touches, then tracks
// slots tentatively kept during the scan itself — so a cap is enforced
// before any slot is actually booked on the scoreboard, matching the "track
// the window count; skip to the next window" accumulation rule.
type limitContext struct {
	project *schedulingDomain.Project
	counts  map[bucketKey]int64
}

func newLimitContext(project *schedulingDomain.Project) *limitContext {
	return &limitContext{project: project, counts: make(map[bucketKey]int64)}
}

// fits reports whether slot can be tentatively added on resource without
// pushing it, or any limited container it aggregates into, past a cap.
func (lc *limitContext) fits(chain []*schedulingDomain.Resource, slot int64) bool {
	for _, r := range chain {
		for _, dim := range [...]limitDim{dimDaily, dimWeekly, dimMonthly} {
			max := limitFor(r.Limits(), dim)
			if max <= 0 {
				continue
			}
			if lc.count(r, dim, slot) >= max {
				return false
			}
		}
	}
	return true
}

// reserve tentatively books slot against every limited resource in chain,
// ahead of the scoreboard write the allocator performs once a run is chosen.
func (lc *limitContext) reserve(chain []*schedulingDomain.Resource, slot int64) {
	for _, r := range chain {
		for _, dim := range [...]limitDim{dimDaily, dimWeekly, dimMonthly} {
			if limitFor(r.Limits(), dim) <= 0 {
				continue
			}
			lc.counts[lc.key(r, dim, slot)]++
		}
	}
}

func (lc *limitContext) key(r *schedulingDomain.Resource, dim limitDim, slot int64) bucketKey {
	lo, _ := bucketRange(lc.project.Grid(), resourceLocation(r), slot, dim)
	return bucketKey{resource: r.ID(), dim: dim, bucketLo: lo}
}

// resourceLocation is r's timezone, defaulting to UTC for container
// resources (which carry no timezone of their own).
func resourceLocation(r *schedulingDomain.Resource) *time.Location {
	if loc := r.Timezone(); loc != nil {
		return loc
	}
	return time.UTC
}

// count returns r's already-booked slot count for the bucket slot falls
// into, seeding from the scoreboard on first touch and the tentative count
// accumulated so far in this scan afterward.
func (lc *limitContext) count(r *schedulingDomain.Resource, dim limitDim, slot int64) int64 {
	key := lc.key(r, dim, slot)
	if v, ok := lc.counts[key]; ok {
		return v
	}
	v := lc.baseline(r, dim, slot)
	lc.counts[key] = v
	return v
}

// baseline counts task-owned Booked/Reserved cells already on r within the
// bucket slot falls into — summed across every leaf descendant when r is a
// container, since a container holds no scoreboard of its own.
func (lc *limitContext) baseline(r *schedulingDomain.Resource, dim limitDim, slot int64) int64 {
	lo, hi := bucketRange(lc.project.Grid(), resourceLocation(r), slot, dim)
	if r.IsLeaf() {
		return bookedCount(r.Scoreboard(), lo, hi)
	}
	var total int64
	for _, leaf := range lc.project.Resources() {
		if !leaf.IsLeaf() || !isDescendantOf(lc.project, leaf, r.ID()) {
			continue
		}
		total += bookedCount(leaf.Scoreboard(), lo, hi)
	}
	return total
}

func limitFor(l schedulingDomain.Limits, dim limitDim) int64 {
	switch dim {
	case dimDaily:
		return l.DailyMax
	case dimWeekly:
		return l.WeeklyMax
	case dimMonthly:
		return l.MonthlyMax
	default:
		return 0
	}
}

// bucketRange converts slot into the [lo, hi) slot range of the calendar
// day/ISO week/month it falls into, in loc's local time.
func bucketRange(grid *schedulingDomain.TimeGrid, loc *time.Location, slot int64, dim limitDim) (int64, int64) {
	t := grid.Instant(slot, true).In(loc)
	var lo, hi time.Time
	switch dim {
	case dimWeekly:
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // ISO: Monday=1 .. Sunday=7
		}
		monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
		lo, hi = monday, monday.AddDate(0, 0, 7)
	case dimMonthly:
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
		lo, hi = first, first.AddDate(0, 1, 0)
	default: // dimDaily
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		lo, hi = day, day.AddDate(0, 0, 1)
	}
	return grid.Index(lo, true), grid.Index(hi, true)
}

// bookedCount counts cells in [lo, hi) that are Booked or task-owned
// Reserved — calendar `booking` entries reserve with no owning task index
// and are excluded, per the spec's choice to exclude them from limit counts.
func bookedCount(sb *schedulingDomain.Scoreboard, lo, hi int64) int64 {
	if sb == nil {
		return 0
	}
	if lo < 0 {
		lo = 0
	}
	if hi > sb.Len() {
		hi = sb.Len()
	}
	var n int64
	for i := lo; i < hi; i++ {
		c := sb.At(i)
		if c.State == schedulingDomain.SlotBooked || (c.State == schedulingDomain.SlotReserved && c.TaskIndex >= 0) {
			n++
		}
	}
	return n
}

// isDescendantOf reports whether r aggregates, directly or transitively,
// into the container identified by ancestorID.
func isDescendantOf(project *schedulingDomain.Project, r *schedulingDomain.Resource, ancestorID uuid.UUID) bool {
	cur := r
	for {
		parentID, ok := cur.Parent()
		if !ok {
			return false
		}
		if parentID == ancestorID {
			return true
		}
		parent, ok := project.Resource(parentID)
		if !ok {
			return false
		}
		cur = parent
	}
}

// limitChain collects resource and every container ancestor of it that has
// at least one configured limit dimension — the full set of caps a booking
// on resource must respect.
func limitChain(project *schedulingDomain.Project, resource *schedulingDomain.Resource) []*schedulingDomain.Resource {
	var chain []*schedulingDomain.Resource
	if resource.Limits().HasAny() {
		chain = append(chain, resource)
	}
	cur := resource
	for {
		parentID, ok := cur.Parent()
		if !ok {
			break
		}
		parent, ok := project.Resource(parentID)
		if !ok {
			break
		}
		if parent.Limits().HasAny() {
			chain = append(chain, parent)
		}
		cur = parent
	}
	return chain
}

// filterByLimits narrows runs to the slots that keep resource, and every
// limited container it aggregates into, under their configured daily/
// weekly/monthly caps — splitting a run where a cap is reached so the
// allocator's usual run-picking resumes past it, per the "skip to the next
// window" accumulation rule.
func (a *Allocator) filterByLimits(project *schedulingDomain.Project, resource *schedulingDomain.Resource, runs []schedulingDomain.Interval) []schedulingDomain.Interval {
	chain := limitChain(project, resource)
	if len(chain) == 0 {
		return runs
	}
	lc := newLimitContext(project)
	var out []schedulingDomain.Interval
	for _, r := range runs {
		localStart := int64(-1)
		for slot := r.Start; slot < r.End; slot++ {
			if lc.fits(chain, slot) {
				lc.reserve(chain, slot)
				if localStart < 0 {
					localStart = slot
				}
				continue
			}
			if localStart >= 0 {
				out = append(out, schedulingDomain.Interval{Start: localStart, End: slot})
				localStart = -1
			}
		}
		if localStart >= 0 {
			out = append(out, schedulingDomain.Interval{Start: localStart, End: r.End})
		}
	}
	return out
}

func intersectIntervals(a, b []schedulingDomain.Interval) []schedulingDomain.Interval {
	var out []schedulingDomain.Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := maxInt64(a[i].Start, b[j].Start)
		end := minInt64(a[i].End, b[j].End)
		if start < end {
			out = append(out, schedulingDomain.Interval{Start: start, End: end})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// toInt32 converts a task's slice index into the scoreboard cell's payload
// type. Task counts are bounded well under int32 range by construction, but
// the conversion still goes through the shared safe-cast helper rather than
// a bare int32() so an impossible overflow panics loudly instead of wrapping
// a cell to the wrong owner.
func toInt32(i int) int32 { return convert.IntToInt32Safe(i) }
