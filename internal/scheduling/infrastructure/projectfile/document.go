// Package projectfile decodes a project description into the in-memory
// model the scheduling engine operates on. The deterministic core treats the
// document format as an external collaborator's concern — parsing lives
// outside the scheduler; this package is that collaborator, reading the
// JSON shape of the recognised options table.
package projectfile

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// Document is the top-level project description, covering the full
// recognised-options table.
type Document struct {
	Name              string           `json:"name"`
	Timezone          string           `json:"timezone"`
	ProjectStart      time.Time        `json:"project_start"`
	ProjectEnd        time.Time        `json:"project_end"`
	TimingResolution  int64            `json:"timingresolution_seconds"`
	Scheduling        string           `json:"scheduling"`
	DailyWorkingHours *WeeklyTemplate  `json:"dailyworkinghours,omitempty"`
	Resources         []ResourceDoc    `json:"resources"`
	Tasks             []TaskDoc        `json:"tasks"`
}

// WeeklyTemplate is the JSON shape of a calendar's weekly template: seven
// weekday slots (0=Sunday..6=Saturday), each an ordered interval list.
type WeeklyTemplate [7][]IntervalDoc

// IntervalDoc is one working-hours interval, "HH:MM" wall-clock strings. An
// interval whose End is lexically <= Start crosses midnight.
type IntervalDoc struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DateRangeDoc is an inclusive calendar-day range for leaves/vacations.
type DateRangeDoc struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// BookingDoc is an explicit pre-placed reservation.
type BookingDoc struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LimitsDoc mirrors domain.Limits.
type LimitsDoc struct {
	DailyMax   int64 `json:"dailymax,omitempty"`
	WeeklyMax  int64 `json:"weeklymax,omitempty"`
	MonthlyMax int64 `json:"monthlymax,omitempty"`
}

// ResourceDoc describes one resource, leaf or container.
type ResourceDoc struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Container   bool            `json:"container,omitempty"`
	ParentID    string          `json:"parent_id,omitempty"`
	Timezone    string          `json:"timezone,omitempty"`
	Efficiency  *RationalDoc    `json:"efficiency,omitempty"`
	Limits      LimitsDoc       `json:"limits,omitempty"`
	Shift       *WeeklyTemplate `json:"shift,omitempty"`
	WorkingHours *WeeklyTemplate `json:"workinghours,omitempty"`
	Vacations   []DateRangeDoc  `json:"vacation,omitempty"`
	Leaves      []DateRangeDoc  `json:"leaves,omitempty"`
	Bookings    []BookingDoc    `json:"booking,omitempty"`
}

// RationalDoc is an exact-ratio value, defaulting to 1/1 when omitted.
type RationalDoc struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// AllocationGroupDoc mirrors domain.AllocationGroup.
type AllocationGroupDoc struct {
	Primary      string   `json:"allocate"`
	Alternatives []string `json:"alternative,omitempty"`
	Combine      bool     `json:"combine,omitempty"`
}

// DependencyEdgeDoc mirrors domain.DependencyEdge. Kind is "depends" (an
// end_to_start edge spelled forward) or "precedes" (the same relationship
// spelled from the other end, normalized to depends at decode time).
type DependencyEdgeDoc struct {
	Kind            string `json:"kind"`
	Source          string `json:"source,omitempty"`
	Target          string `json:"target,omitempty"`
	GapDuration     int64  `json:"gapduration,omitempty"`
	MaxGapDuration  *int64 `json:"maxgapduration,omitempty"`
	StartToStart    bool   `json:"start_to_start,omitempty"`
	OnStart         bool   `json:"onstart,omitempty"`
}

// AnchorsDoc mirrors domain.Anchors.
type AnchorsDoc struct {
	Start    *int64 `json:"start,omitempty"`
	End      *int64 `json:"end,omitempty"`
	MinStart *int64 `json:"min_start,omitempty"`
	MaxEnd   *int64 `json:"max_end,omitempty"`
}

// DemandDoc carries exactly one of effort/duration/length.
type DemandDoc struct {
	Effort   *int64 `json:"effort,omitempty"`
	Duration *int64 `json:"duration,omitempty"`
	Length   *int64 `json:"length,omitempty"`
}

// TaskDoc describes one task node; Children nests the tree directly so the
// document mirrors the in-memory parent/child hierarchy.
type TaskDoc struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Scheduling   string              `json:"scheduling,omitempty"`
	Demand       *DemandDoc          `json:"demand,omitempty"`
	Allocations  []AllocationGroupDoc `json:"allocations,omitempty"`
	Contiguous   bool                `json:"contiguous,omitempty"`
	Priority     int                 `json:"priority,omitempty"`
	Anchors      AnchorsDoc          `json:"anchors,omitempty"`
	Dependencies []DependencyEdgeDoc `json:"dependencies,omitempty"`
	Carried      map[string]float64  `json:"carried,omitempty"`
	Children     []TaskDoc           `json:"children,omitempty"`
}

// Decode reads a Document from r and builds a *domain.Project from it,
// running Build before returning so the result is ready for the engine.
func Decode(r io.Reader) (*domain.Project, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("projectfile: decode: %w", err)
	}
	return Build(&doc)
}

// Build converts an already-decoded Document into a *domain.Project.
func Build(doc *Document) (*domain.Project, error) {
	loc, err := resolveLocation(doc.Timezone)
	if err != nil {
		return nil, err
	}

	options := domain.DefaultProjectOptions()
	options.Timezone = loc
	if doc.TimingResolution > 0 {
		options.ResolutionSeconds = doc.TimingResolution
	}
	if doc.Scheduling == string(domain.DirectionALAP) {
		options.DefaultDirection = domain.DirectionALAP
	}
	if doc.DailyWorkingHours != nil {
		tpl, err := toDomainTemplate(*doc.DailyWorkingHours)
		if err != nil {
			return nil, err
		}
		options.DailyWorkingHours = tpl
	}

	proj, err := domain.NewProject(doc.Name, doc.ProjectStart, doc.ProjectEnd, options)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]uuid.UUID, len(doc.Resources))
	for _, rd := range doc.Resources {
		ids[rd.ID] = resourceID(rd.ID)
	}

	for _, rd := range doc.Resources {
		resource, err := buildResource(rd, ids, proj, loc)
		if err != nil {
			return nil, err
		}
		proj.AddResource(resource)
	}
	for _, rd := range doc.Resources {
		if rd.ParentID == "" {
			continue
		}
		r, ok := proj.Resource(ids[rd.ID])
		if !ok {
			continue
		}
		r.SetParent(ids[rd.ParentID])
	}

	taskIDs := make(map[string]uuid.UUID)
	order := 0
	var walk func(docs []TaskDoc, parent *uuid.UUID) error
	walk = func(docs []TaskDoc, parent *uuid.UUID) error {
		for _, td := range docs {
			id := taskID(td.ID)
			taskIDs[td.ID] = id
			task := domain.NewTask(id, td.Name, order)
			order++
			if err := applyTaskFields(task, td, ids); err != nil {
				return err
			}
			if parent != nil {
				task.SetParent(*parent)
			}
			proj.AddTask(task)
			if len(td.Children) > 0 {
				childParent := id
				if err := walk(td.Children, &childParent); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(doc.Tasks, nil); err != nil {
		return nil, err
	}

	// Wire parent->child and dependency edges now that every task id exists.
	registerChildren(proj, doc.Tasks, taskIDs)
	if err := registerDependencies(proj, doc.Tasks, taskIDs); err != nil {
		return nil, err
	}

	if err := proj.Build(); err != nil {
		return nil, err
	}
	return proj, nil
}

func resolveLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("projectfile: unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

func resourceID(raw string) uuid.UUID { return stableID("resource", raw) }
func taskID(raw string) uuid.UUID     { return stableID("task", raw) }

// stableID derives a deterministic UUID from a document-local string id, so
// the same document always yields the same identities across decodes.
func stableID(namespace, raw string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(namespace+":"+raw))
}

func buildResource(rd ResourceDoc, ids map[string]uuid.UUID, proj *domain.Project, projectLoc *time.Location) (*domain.Resource, error) {
	id := ids[rd.ID]
	if rd.Container {
		return domain.NewContainerResource(id, rd.Name, toDomainLimits(rd.Limits)), nil
	}

	efficiency := domain.One
	if rd.Efficiency != nil {
		eff, err := domain.NewRational(rd.Efficiency.Num, rd.Efficiency.Den)
		if err != nil {
			return nil, fmt.Errorf("projectfile: resource %q: %w", rd.ID, err)
		}
		efficiency = eff
	}

	loc := projectLoc
	if rd.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(rd.Timezone)
		if err != nil {
			return nil, fmt.Errorf("projectfile: resource %q: unknown timezone %q: %w", rd.ID, rd.Timezone, err)
		}
	}

	cal := domain.NewCalendar(proj.Grid(), proj.Options().DailyWorkingHours, loc)
	if rd.Shift != nil {
		tpl, err := toDomainTemplate(*rd.Shift)
		if err != nil {
			return nil, err
		}
		cal.SetShift(tpl)
	}
	if rd.WorkingHours != nil {
		tpl, err := toDomainTemplate(*rd.WorkingHours)
		if err != nil {
			return nil, err
		}
		cal.SetExplicit(tpl)
	}
	for _, v := range rd.Vacations {
		cal.AddGlobalVacation(domain.DateRange{Start: v.Start, End: v.End})
	}
	for _, v := range rd.Leaves {
		cal.AddLeave(domain.DateRange{Start: v.Start, End: v.End})
	}
	for _, b := range rd.Bookings {
		cal.AddBooking(domain.Booking{Start: b.Start, End: b.End})
	}

	resource := domain.NewLeafResource(id, rd.Name, efficiency, toDomainLimits(rd.Limits), cal, proj.Grid())
	resource.SetTimezone(loc)
	return resource, nil
}

func toDomainLimits(l LimitsDoc) domain.Limits {
	return domain.Limits{DailyMax: l.DailyMax, WeeklyMax: l.WeeklyMax, MonthlyMax: l.MonthlyMax}
}

func toDomainTemplate(doc WeeklyTemplate) (domain.WeeklyTemplate, error) {
	var tpl domain.WeeklyTemplate
	for day, intervals := range doc {
		for _, iv := range intervals {
			startMin, err := parseClock(iv.Start)
			if err != nil {
				return tpl, err
			}
			endMin, err := parseClock(iv.End)
			if err != nil {
				return tpl, err
			}
			tpl[day] = append(tpl[day], domain.MinuteInterval{StartMinute: startMin, EndMinute: endMin})
		}
	}
	return tpl, nil
}

func parseClock(hhmm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("projectfile: invalid clock value %q: %w", hhmm, err)
	}
	return h*60 + m, nil
}

func applyTaskFields(task *domain.Task, td TaskDoc, resourceIDs map[string]uuid.UUID) error {
	if td.Scheduling == string(domain.DirectionALAP) {
		task.SetDirection(domain.DirectionALAP)
	}
	if td.Demand != nil {
		demand, err := toDomainDemand(*td.Demand)
		if err != nil {
			return fmt.Errorf("projectfile: task %q: %w", td.ID, err)
		}
		task.SetDemand(demand)
	}
	for _, ad := range td.Allocations {
		group := domain.AllocationGroup{Combine: ad.Combine}
		if id, ok := resourceIDs[ad.Primary]; ok {
			group.Primary = id
		}
		for _, alt := range ad.Alternatives {
			if id, ok := resourceIDs[alt]; ok {
				group.Alternatives = append(group.Alternatives, id)
			}
		}
		task.AddAllocationGroup(group)
	}
	task.SetContiguous(td.Contiguous)
	task.SetPriority(td.Priority)
	task.SetAnchors(domain.Anchors{
		Start: td.Anchors.Start, End: td.Anchors.End,
		MinStart: td.Anchors.MinStart, MaxEnd: td.Anchors.MaxEnd,
	})
	for k, v := range td.Carried {
		task.SetCarried(k, v)
	}
	return nil
}

func toDomainDemand(d DemandDoc) (domain.Demand, error) {
	set := 0
	var demand domain.Demand
	if d.Effort != nil {
		demand = domain.Demand{Kind: domain.DemandEffort, Slots: *d.Effort}
		set++
	}
	if d.Duration != nil {
		demand = domain.Demand{Kind: domain.DemandDuration, Slots: *d.Duration}
		set++
	}
	if d.Length != nil {
		demand = domain.Demand{Kind: domain.DemandLength, Slots: *d.Length}
		set++
	}
	if set > 1 {
		return domain.Demand{}, fmt.Errorf("exactly one of effort/duration/length may be set, got %d", set)
	}
	return demand, nil
}

func registerChildren(proj *domain.Project, docs []TaskDoc, ids map[string]uuid.UUID) {
	var walk func(docs []TaskDoc)
	walk = func(docs []TaskDoc) {
		for _, td := range docs {
			if len(td.Children) == 0 {
				continue
			}
			parent, ok := proj.Task(ids[td.ID])
			if !ok {
				continue
			}
			for _, child := range td.Children {
				parent.AddChild(ids[child.ID])
			}
			walk(td.Children)
		}
	}
	walk(docs)
}

func registerDependencies(proj *domain.Project, docs []TaskDoc, ids map[string]uuid.UUID) error {
	var walk func(docs []TaskDoc) error
	walk = func(docs []TaskDoc) error {
		for _, td := range docs {
			task, ok := proj.Task(ids[td.ID])
			if !ok {
				continue
			}
			for _, dd := range td.Dependencies {
				edge, err := toDomainEdge(dd, ids)
				if err != nil {
					return fmt.Errorf("projectfile: task %q: %w", td.ID, err)
				}
				task.AddDependency(edge)
			}
			if err := walk(td.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(docs)
}

func toDomainEdge(dd DependencyEdgeDoc, ids map[string]uuid.UUID) (domain.DependencyEdge, error) {
	kind := domain.KindEndToStart
	if dd.StartToStart {
		kind = domain.KindStartToStart
	}

	// `precedes` is the same relationship as `depends` spelled from the
	// source's side; normalize it to depends (source becomes the task named
	// in Target) at decode time. The edge always attaches to the task whose
	// own Dependencies list it lives in.
	source := dd.Source
	if dd.Kind == "precedes" {
		source = dd.Target
	}

	edge := domain.DependencyEdge{
		Source:  ids[source],
		Kind:    kind,
		Gap:     dd.GapDuration,
		OnStart: dd.OnStart,
	}
	if dd.MaxGapDuration != nil {
		edge.HasMaxGap = true
		edge.MaxGap = *dd.MaxGapDuration
	}
	return edge, nil
}
