package domain

import "time"

// MinuteInterval is a single working-hours interval within one weekday,
// expressed in minutes from midnight, a typed fixed-shape value in place of
// a dynamic dict/list of tuples.
//
// An interval "crosses midnight" iff EndMinute <= StartMinute; callers must
// then also check the previous day for the wrap half.
type MinuteInterval struct {
	StartMinute int
	EndMinute   int
}

// CrossesMidnight reports whether the interval wraps past 24:00.
func (iv MinuteInterval) CrossesMidnight() bool {
	return iv.EndMinute <= iv.StartMinute
}

// WeeklyTemplate is an ordered set of non-overlapping intervals per weekday.
// time.Weekday (0=Sunday..6=Saturday) indexes the array directly.
type WeeklyTemplate [7][]MinuteInterval

// DefaultWorkWeek returns a Monday-Friday 09:00-17:00 template, the common
// "dailyworkinghours" default.
func DefaultWorkWeek() WeeklyTemplate {
	var tpl WeeklyTemplate
	workday := []MinuteInterval{{StartMinute: 9 * 60, EndMinute: 17 * 60}}
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		tpl[d] = workday
	}
	return tpl
}

// DateRange is an inclusive [Start, End] range of whole days, used for
// leaves, holidays, and vacations.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether day (any instant on that calendar day, compared
// in loc) falls within the range.
func (r DateRange) Contains(day time.Time) bool {
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return !dayStart.Before(truncateToDay(r.Start)) && !dayStart.After(truncateToDay(r.End))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Booking is an explicit pre-placed reservation. It is added to the
// scoreboard as Reserved, never counted as Working, and excluded from limit
// counting.
type Booking struct {
	Start time.Time
	End   time.Time
}

// Calendar derives a per-resource (or per-project-default) working bitmap
// from a layered stack of inputs, applied lowest to highest precedence:
//
//  1. project default working hours
//  2. shift template assigned to the resource
//  3. resource's explicit workinghours
//  4. global vacation declarations (subtract)
//  5. resource-level leaves/vacations (subtract)
//  6. explicit booking entries (add as Reserved, not Working)
type Calendar struct {
	grid *TimeGrid

	projectDefault WeeklyTemplate
	shift          *WeeklyTemplate
	explicit       *WeeklyTemplate
	globalVacation []DateRange
	leaves         []DateRange
	bookings       []Booking
	location       *time.Location

	workingBits []bool // derived, length grid.Size()
}

// NewCalendar builds a Calendar for grid using the project default template;
// call the Set*/Add* methods to layer in overrides, then Build to derive the
// bitmap.
func NewCalendar(grid *TimeGrid, projectDefault WeeklyTemplate, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{grid: grid, projectDefault: projectDefault, location: loc}
}

// SetShift assigns a named shift template (layer 2).
func (c *Calendar) SetShift(tpl WeeklyTemplate) { c.shift = &tpl }

// SetExplicit assigns the resource's own workinghours (layer 3, highest
// precedence template layer).
func (c *Calendar) SetExplicit(tpl WeeklyTemplate) { c.explicit = &tpl }

// AddGlobalVacation adds a project-wide vacation range (layer 4).
func (c *Calendar) AddGlobalVacation(r DateRange) { c.globalVacation = append(c.globalVacation, r) }

// AddLeave adds a resource-level leave/vacation range (layer 5).
func (c *Calendar) AddLeave(r DateRange) { c.leaves = append(c.leaves, r) }

// AddBooking adds an explicit pre-placed reservation (layer 6).
func (c *Calendar) AddBooking(b Booking) { c.bookings = append(c.bookings, b) }

// activeTemplate resolves which of the three template layers applies,
// highest precedence first.
func (c *Calendar) activeTemplate() WeeklyTemplate {
	if c.explicit != nil {
		return *c.explicit
	}
	if c.shift != nil {
		return *c.shift
	}
	return c.projectDefault
}

// Build derives the working bitmap from the layered inputs. Must be called
// (and re-called after any override changes) before IsWorking/Next/Prev are
// used against fresh data.
func (c *Calendar) Build() {
	tpl := c.activeTemplate()
	size := c.grid.Size()
	bits := make([]bool, size)

	for i := int64(0); i < size; i++ {
		instant := c.grid.Instant(i, false).In(c.location)
		bits[i] = minuteOfDayIsWorking(tpl, instant)
	}

	// Layer 4/5: subtract vacations and leaves.
	for i := int64(0); i < size; i++ {
		if !bits[i] {
			continue
		}
		instant := c.grid.Instant(i, false).In(c.location)
		for _, r := range c.globalVacation {
			if r.Contains(instant) {
				bits[i] = false
				break
			}
		}
		if !bits[i] {
			continue
		}
		for _, r := range c.leaves {
			if r.Contains(instant) {
				bits[i] = false
				break
			}
		}
	}

	c.workingBits = bits
}

// minuteOfDayIsWorking implements the weekly-template lookup including its
// cross-midnight fall-through: if the target weekday has no template, the
// slot is off-duty on that day, but a cross-midnight interval anchored on
// the previous day may still make it working.
func minuteOfDayIsWorking(tpl WeeklyTemplate, instant time.Time) bool {
	weekday := instant.Weekday()
	minute := instant.Hour()*60 + instant.Minute()

	for _, iv := range tpl[weekday] {
		if iv.CrossesMidnight() {
			if minute >= iv.StartMinute {
				return true
			}
			continue
		}
		if minute >= iv.StartMinute && minute < iv.EndMinute {
			return true
		}
	}

	// Cross-midnight fall-through: the previous day's wrap interval may
	// still cover the early-morning minutes of today, even if today's own
	// weekday has no template entries at all.
	prevWeekday := (weekday + 6) % 7
	for _, iv := range tpl[prevWeekday] {
		if iv.CrossesMidnight() && minute < iv.EndMinute {
			return true
		}
	}

	return false
}

// IsWorkingBit returns the derived bitmap value at slot (post Build()).
func (c *Calendar) IsWorkingBit(slot int64) bool {
	if slot < 0 || slot >= int64(len(c.workingBits)) {
		return false
	}
	return c.workingBits[slot]
}

// IsWorking returns whether slot is a working slot.
func (c *Calendar) IsWorking(slot int64) bool {
	return c.IsWorkingBit(slot)
}

// NextWorkingSlot returns the nearest working slot at or after from, or -1
// if none exists before the grid ends.
func (c *Calendar) NextWorkingSlot(from int64) int64 {
	for i := from; i < int64(len(c.workingBits)); i++ {
		if i >= 0 && c.workingBits[i] {
			return i
		}
	}
	return -1
}

// PrevWorkingSlot returns the nearest working slot at or before from, or -1
// if none exists at or before the grid start.
func (c *Calendar) PrevWorkingSlot(from int64) int64 {
	if from >= int64(len(c.workingBits)) {
		from = int64(len(c.workingBits)) - 1
	}
	for i := from; i >= 0; i-- {
		if c.workingBits[i] {
			return i
		}
	}
	return -1
}

// Bookings exposes the explicit reservation layer so callers can apply it to
// a resource's scoreboard as Reserved after Build().
func (c *Calendar) Bookings() []Booking { return c.bookings }

// Shift returns the assigned shift template (layer 2) and whether one was
// set; used by persistence to serialize the calendar's override layers.
func (c *Calendar) Shift() (WeeklyTemplate, bool) {
	if c.shift == nil {
		return WeeklyTemplate{}, false
	}
	return *c.shift, true
}

// Explicit returns the resource's own workinghours override (layer 3) and
// whether one was set.
func (c *Calendar) Explicit() (WeeklyTemplate, bool) {
	if c.explicit == nil {
		return WeeklyTemplate{}, false
	}
	return *c.explicit, true
}

// GlobalVacations returns the project-wide vacation layer (layer 4).
func (c *Calendar) GlobalVacations() []DateRange { return c.globalVacation }

// Leaves returns the resource-level leave/vacation layer (layer 5).
func (c *Calendar) Leaves() []DateRange { return c.leaves }

// ProjectDefault returns the calendar's base template (layer 1).
func (c *Calendar) ProjectDefault() WeeklyTemplate { return c.projectDefault }

// Location returns the calendar's configured timezone.
func (c *Calendar) Location() *time.Location { return c.location }

// Grid returns the TimeGrid this calendar was built against.
func (c *Calendar) Grid() *TimeGrid { return c.grid }
