package calendar

import (
	"sort"
	"time"
)

// FixedHoliday is a holiday that falls on the same month/day every year.
type FixedHoliday struct {
	Month time.Month
	Day   int
	Name  string
}

// MovableHoliday is defined as an offset in days from Easter Sunday.
type MovableHoliday struct {
	OffsetDays int
	Name       string
}

// Jurisdiction is the holiday table of one country or site.
type Jurisdiction struct {
	Name    string
	Fixed   []FixedHoliday
	Movable []MovableHoliday
}

// Slovenia returns the public holiday table used by the reference plant.
func Slovenia() Jurisdiction {
	return Jurisdiction{
		Name: "SI",
		Fixed: []FixedHoliday{
			{time.January, 1, "New Year's Day"},
			{time.January, 2, "New Year's Day"},
			{time.February, 8, "Prešeren Day"},
			{time.April, 27, "Day of Uprising Against Occupation"},
			{time.May, 1, "Labour Day"},
			{time.May, 2, "Labour Day"},
			{time.June, 25, "Statehood Day"},
			{time.August, 15, "Assumption of Mary"},
			{time.October, 31, "Reformation Day"},
			{time.November, 1, "All Saints' Day"},
			{time.December, 25, "Christmas Day"},
			{time.December, 26, "Independence and Unity Day"},
		},
		Movable: []MovableHoliday{{OffsetDays: 1, Name: "Easter Monday"}},
	}
}

type monthDay struct {
	month time.Month
	day   int
}

// Calendar classifies dates for a single jurisdiction. It is immutable and
// safe for concurrent use.
type Calendar struct {
	jurisdiction Jurisdiction
	fixed        map[monthDay]string
}

// New indexes the fixed holidays of j.
func New(j Jurisdiction) *Calendar {
	fixed := make(map[monthDay]string, len(j.Fixed))
	for _, h := range j.Fixed {
		fixed[monthDay{h.Month, h.Day}] = h.Name
	}
	return &Calendar{jurisdiction: j, fixed: fixed}
}

func (c *Calendar) Jurisdiction() Jurisdiction { return c.jurisdiction }

// IsHoliday reports whether the calendar date of d (in d's location) is a
// public holiday.
func (c *Calendar) IsHoliday(d time.Time) bool {
	_, ok := c.HolidayName(d)
	return ok
}

// HolidayName returns the name of the holiday falling on d, if any.
func (c *Calendar) HolidayName(d time.Time) (string, bool) {
	y, m, day := d.Date()
	if name, ok := c.fixed[monthDay{m, day}]; ok {
		return name, true
	}
	if len(c.jurisdiction.Movable) == 0 {
		return "", false
	}
	em, ed := Easter(y)
	for _, mh := range c.jurisdiction.Movable {
		hy, hm, hd := time.Date(y, em, ed+mh.OffsetDays, 12, 0, 0, 0, time.UTC).Date()
		if hy == y && hm == m && hd == day {
			return mh.Name, true
		}
	}
	return "", false
}

// IsHolidayOrSunday marks the days that get the strongest tint on the wallboard.
func (c *Calendar) IsHolidayOrSunday(d time.Time) bool {
	return IsSunday(d) || c.IsHoliday(d)
}

// DatedHoliday is one dated entry of a year's holiday list.
type DatedHoliday struct {
	Date time.Time `json:"date" format:"date-time"`
	Name string    `json:"name"`
}

// Holidays lists every holiday of the given year in chronological order.
// Movable holidays that fall outside the year are omitted.
func (c *Calendar) Holidays(year int, loc *time.Location) []DatedHoliday {
	if loc == nil {
		loc = time.UTC
	}
	var out []DatedHoliday
	for _, h := range c.jurisdiction.Fixed {
		out = append(out, DatedHoliday{Date: time.Date(year, h.Month, h.Day, 0, 0, 0, 0, loc), Name: h.Name})
	}
	em, ed := Easter(year)
	for _, mh := range c.jurisdiction.Movable {
		d := time.Date(year, em, ed+mh.OffsetDays, 0, 0, 0, 0, loc)
		if d.Year() != year {
			continue
		}
		out = append(out, DatedHoliday{Date: d, Name: mh.Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// DayType classifies a calendar date.
type DayType int

const (
	Workday DayType = iota
	Saturday
	Sunday
	Holiday
)

func (t DayType) String() string {
	switch t {
	case Saturday:
		return "saturday"
	case Sunday:
		return "sunday"
	case Holiday:
		return "holiday"
	default:
		return "workday"
	}
}

// Classify returns the day type, holidays taking precedence over weekends.
func (c *Calendar) Classify(d time.Time) DayType {
	switch {
	case c.IsHoliday(d):
		return Holiday
	case IsSunday(d):
		return Sunday
	case IsSaturday(d):
		return Saturday
	default:
		return Workday
	}
}

// IsWeekend reports whether d falls on a Saturday or Sunday in its own zone.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsSaturday reports whether d is a Saturday.
func IsSaturday(d time.Time) bool { return d.Weekday() == time.Saturday }

// IsSunday reports whether d is a Sunday.
func IsSunday(d time.Time) bool { return d.Weekday() == time.Sunday }
