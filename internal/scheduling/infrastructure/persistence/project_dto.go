package persistence

import (
	"time"

	"github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// This file holds the JSON-serializable shapes persisted for the nested
// parts of a Project aggregate (calendar override layers, task demand/
// allocation/dependency data), marshaled to JSON columns rather than
// normalizing every nested value object into its own table — these values
// are always read and written whole, never queried by sub-field.

type intervalDTO struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type weeklyTemplateDTO [7][]intervalDTO

type dateRangeDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type bookingDTO struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// calendarDTO captures every override layer of a domain.Calendar.
type calendarDTO struct {
	ProjectDefault weeklyTemplateDTO  `json:"project_default"`
	Shift          *weeklyTemplateDTO `json:"shift,omitempty"`
	Explicit       *weeklyTemplateDTO `json:"explicit,omitempty"`
	GlobalVacation []dateRangeDTO     `json:"global_vacation,omitempty"`
	Leaves         []dateRangeDTO     `json:"leaves,omitempty"`
	Bookings       []bookingDTO       `json:"bookings,omitempty"`
	Location       string             `json:"location"`
}

func toWeeklyTemplateDTO(tpl domain.WeeklyTemplate) weeklyTemplateDTO {
	var dto weeklyTemplateDTO
	for day, intervals := range tpl {
		for _, iv := range intervals {
			dto[day] = append(dto[day], intervalDTO{StartMinute: iv.StartMinute, EndMinute: iv.EndMinute})
		}
	}
	return dto
}

func fromWeeklyTemplateDTO(dto weeklyTemplateDTO) domain.WeeklyTemplate {
	var tpl domain.WeeklyTemplate
	for day, intervals := range dto {
		for _, iv := range intervals {
			tpl[day] = append(tpl[day], domain.MinuteInterval{StartMinute: iv.StartMinute, EndMinute: iv.EndMinute})
		}
	}
	return tpl
}

// toCalendarDTO snapshots every layer of a built Calendar for storage.
func toCalendarDTO(cal *domain.Calendar) calendarDTO {
	dto := calendarDTO{
		ProjectDefault: toWeeklyTemplateDTO(cal.ProjectDefault()),
		Location:       cal.Location().String(),
	}
	if shift, ok := cal.Shift(); ok {
		tpl := toWeeklyTemplateDTO(shift)
		dto.Shift = &tpl
	}
	if explicit, ok := cal.Explicit(); ok {
		tpl := toWeeklyTemplateDTO(explicit)
		dto.Explicit = &tpl
	}
	for _, r := range cal.GlobalVacations() {
		dto.GlobalVacation = append(dto.GlobalVacation, dateRangeDTO{Start: r.Start, End: r.End})
	}
	for _, r := range cal.Leaves() {
		dto.Leaves = append(dto.Leaves, dateRangeDTO{Start: r.Start, End: r.End})
	}
	for _, b := range cal.Bookings() {
		dto.Bookings = append(dto.Bookings, bookingDTO{Start: b.Start, End: b.End})
	}
	return dto
}

// rebuildCalendar reconstructs a *domain.Calendar from its stored snapshot
// against grid, leaving Build() to the caller once every resource exists.
func rebuildCalendar(dto calendarDTO, grid *domain.TimeGrid) (*domain.Calendar, error) {
	loc, err := time.LoadLocation(dto.Location)
	if err != nil {
		loc = time.UTC
	}
	cal := domain.NewCalendar(grid, fromWeeklyTemplateDTO(dto.ProjectDefault), loc)
	if dto.Shift != nil {
		cal.SetShift(fromWeeklyTemplateDTO(*dto.Shift))
	}
	if dto.Explicit != nil {
		cal.SetExplicit(fromWeeklyTemplateDTO(*dto.Explicit))
	}
	for _, r := range dto.GlobalVacation {
		cal.AddGlobalVacation(domain.DateRange{Start: r.Start, End: r.End})
	}
	for _, r := range dto.Leaves {
		cal.AddLeave(domain.DateRange{Start: r.Start, End: r.End})
	}
	for _, b := range dto.Bookings {
		cal.AddBooking(domain.Booking{Start: b.Start, End: b.End})
	}
	return cal, nil
}

type anchorsDTO struct {
	Start    *int64 `json:"start,omitempty"`
	End      *int64 `json:"end,omitempty"`
	MinStart *int64 `json:"min_start,omitempty"`
	MaxEnd   *int64 `json:"max_end,omitempty"`
}

func toAnchorsDTO(a domain.Anchors) anchorsDTO {
	return anchorsDTO{Start: a.Start, End: a.End, MinStart: a.MinStart, MaxEnd: a.MaxEnd}
}

func fromAnchorsDTO(dto anchorsDTO) domain.Anchors {
	return domain.Anchors{Start: dto.Start, End: dto.End, MinStart: dto.MinStart, MaxEnd: dto.MaxEnd}
}

type allocationGroupDTO struct {
	Primary      uuid.UUID   `json:"primary"`
	Alternatives []uuid.UUID `json:"alternatives,omitempty"`
	Combine      bool        `json:"combine,omitempty"`
}

func toAllocationGroupDTOs(groups []domain.AllocationGroup) []allocationGroupDTO {
	out := make([]allocationGroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, allocationGroupDTO{Primary: g.Primary, Alternatives: g.Alternatives, Combine: g.Combine})
	}
	return out
}

func fromAllocationGroupDTOs(dtos []allocationGroupDTO) []domain.AllocationGroup {
	out := make([]domain.AllocationGroup, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.AllocationGroup{Primary: d.Primary, Alternatives: d.Alternatives, Combine: d.Combine})
	}
	return out
}

type dependencyEdgeDTO struct {
	Source    uuid.UUID `json:"source"`
	Kind      string    `json:"kind"`
	Gap       int64     `json:"gap,omitempty"`
	HasMaxGap bool      `json:"has_max_gap,omitempty"`
	MaxGap    int64     `json:"max_gap,omitempty"`
	OnStart   bool      `json:"on_start,omitempty"`
}

func toDependencyEdgeDTOs(deps []domain.DependencyEdge) []dependencyEdgeDTO {
	out := make([]dependencyEdgeDTO, 0, len(deps))
	for _, d := range deps {
		out = append(out, dependencyEdgeDTO{
			Source: d.Source, Kind: string(d.Kind), Gap: d.Gap,
			HasMaxGap: d.HasMaxGap, MaxGap: d.MaxGap, OnStart: d.OnStart,
		})
	}
	return out
}

func fromDependencyEdgeDTOs(dtos []dependencyEdgeDTO) []domain.DependencyEdge {
	out := make([]domain.DependencyEdge, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, domain.DependencyEdge{
			Source: d.Source, Kind: domain.DependencyKind(d.Kind), Gap: d.Gap,
			HasMaxGap: d.HasMaxGap, MaxGap: d.MaxGap, OnStart: d.OnStart,
		})
	}
	return out
}
