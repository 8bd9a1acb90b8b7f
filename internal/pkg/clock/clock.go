package clock

import (
	"time"
)

const DateLayout = "2006-01-02"

// Clock returns the current instant. Services take a Clock instead of calling
// time.Now so that "today" can be pinned in tests and replays.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns a Clock backed by the wall clock.
func System() Clock {
	return systemClock{}
}

// Fixed is a Clock that always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// LoadLocation resolves an IANA zone name. Asia/Kolkata falls back to a fixed
// +05:30 offset when the host has no tz database; anything else falls back to UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	if name == "Asia/Kolkata" || name == "IST" {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return time.UTC
}

// Day is a calendar date in the reporting timezone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the business day that contains t.
func DayOf(t time.Time, loc *time.Location) Day {
	l := t.In(loc)
	return Day{Year: l.Year(), Month: l.Month(), Day: l.Day()}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Day{}, err
	}
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// Start is local midnight of the day.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// End is the first instant of the following day.
func (d Day) End(loc *time.Location) time.Time {
	return d.Start(loc).AddDate(0, 0, 1)
}

func (d Day) AddDays(n int) Day {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) After(o Day) bool {
	return o.Before(d)
}

func (d Day) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

func (d Day) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
