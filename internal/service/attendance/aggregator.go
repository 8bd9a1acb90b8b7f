package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

// BuildDailySummary summarizes one user's punches for one business day.
//
// events may contain punches outside the day and void markers; both are
// ignored. When now is non-nil the day is treated as open: a trailing IN
// without an OUT counts work up to now instead of being flagged missing_out.
func BuildDailySummary(userID string, day clock.Day, events []punch.PunchEvent, rules attendance.Rules, now *time.Time) attendance.DailySummary {
	loc := rules.Location
	if loc == nil {
		loc = time.UTC
	}
	start, end := day.Start(loc), day.End(loc)

	summary := attendance.DailySummary{
		UserID: userID,
		Date:   day.String(),
		IsOpen: now != nil,
	}

	var firstIn *punch.PunchEvent
	var earliestOut *punch.PunchEvent
	hasOut := false
	for _, e := range punch.Effective(events) {
		e := e
		if e.UserID != userID || e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		switch e.Direction {
		case punch.DirectionIn:
			if firstIn == nil {
				firstIn = &e
			}
		case punch.DirectionOut:
			if !hasOut {
				earliestOut = &e
				hasOut = true
			}
		}
	}

	if firstIn == nil {
		if hasOut {
			summary.AnomalyKind = attendance.AnomalyMissingIn
		}
		return summary
	}

	summary.IsPresent = true
	firstInAt := firstIn.Timestamp
	summary.FirstIn = &firstInAt

	lastOut := latestOutAfter(events, userID, firstInAt, end)
	if lastOut != nil {
		lastOutAt := lastOut.Timestamp
		summary.LastOut = &lastOutAt
		summary.WorkDurationMinutes = wholeMinutes(lastOutAt.Sub(firstInAt))
	} else if now != nil && now.After(firstInAt) {
		until := *now
		if until.After(end) {
			until = end
		}
		summary.WorkDurationMinutes = wholeMinutes(until.Sub(firstInAt))
	} else if now == nil {
		summary.AnomalyKind = attendance.AnomalyMissingOut
	}

	if summary.AnomalyKind == attendance.AnomalyNone && hasOut && earliestOut.Timestamp.Before(firstInAt) {
		summary.AnomalyKind = attendance.AnomalyMissingIn
	}

	summary.IsComplete = summary.WorkDurationMinutes >= rules.CompleteDayMinutes
	if over := summary.WorkDurationMinutes - rules.StandardDayMinutes; over > 0 {
		summary.OvertimeMinutes = over
	}

	return summary
}

// latestOutAfter returns the last effective OUT strictly after from and before end.
func latestOutAfter(events []punch.PunchEvent, userID string, from, end time.Time) *punch.PunchEvent {
	var last *punch.PunchEvent
	for _, e := range punch.Effective(events) {
		e := e
		if e.UserID != userID || e.Direction != punch.DirectionOut {
			continue
		}
		if !e.Timestamp.After(from) || !e.Timestamp.Before(end) {
			continue
		}
		last = &e
	}
	return last
}

func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// BuildMonthlySummary folds the daily summaries of every elapsed day of the
// month. asOf is the only notion of "now": days after its business date are
// not counted and its own business date is summarized as an open day.
func BuildMonthlySummary(userID string, year int, month time.Month, events []punch.PunchEvent, rules attendance.Rules, asOf time.Time) attendance.MonthlySummary {
	loc := rules.Location
	if loc == nil {
		loc = time.UTC
	}

	summary := attendance.MonthlySummary{
		UserID:         userID,
		Year:           year,
		Month:          int(month),
		DailySummaries: []attendance.DailySummary{},
	}

	today := clock.DayOf(asOf, loc)
	last := clock.DaysIn(year, month)
	if today.Year == year && today.Month == month {
		last = today.Day
	} else if (clock.Day{Year: year, Month: month, Day: 1}).After(today) {
		last = 0
	}

	byDay := make(map[clock.Day][]punch.PunchEvent)
	for _, e := range events {
		if e.UserID != userID {
			continue
		}
		d := clock.DayOf(e.Timestamp, loc)
		byDay[d] = append(byDay[d], e)
	}
	// void markers may be stamped on a different day than the event they void
	var markers []punch.PunchEvent
	for _, e := range events {
		if e.UserID == userID && e.IsVoidMarker() {
			markers = append(markers, e)
		}
	}

	for d := 1; d <= last; d++ {
		day := clock.Day{Year: year, Month: month, Day: d}
		dayEvents := append(append([]punch.PunchEvent{}, byDay[day]...), markers...)

		var open *time.Time
		if day == today {
			now := asOf
			open = &now
		}

		daily := BuildDailySummary(userID, day, dayEvents, rules, open)
		summary.DailySummaries = append(summary.DailySummaries, daily)

		summary.TotalDays++
		if daily.IsPresent {
			summary.PresentDays++
		}
		if daily.IsComplete {
			summary.CompleteDays++
		}
		summary.TotalWorkMinutes += daily.WorkDurationMinutes
	}

	summary.AbsentDays = summary.TotalDays - summary.PresentDays
	summary.AttendanceRatePercent = AttendanceRate(summary.PresentDays, summary.TotalDays)

	if last > 0 {
		from := clock.Day{Year: year, Month: month, Day: 1}.Start(loc)
		to := clock.Day{Year: year, Month: month, Day: last}.End(loc)
		summary.LastPunch = lastPunch(events, userID, from, to)
	}

	return summary
}

func lastPunch(events []punch.PunchEvent, userID string, from, to time.Time) *attendance.PunchInfo {
	var info *attendance.PunchInfo
	for _, e := range punch.Effective(events) {
		if e.UserID != userID || e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		info = &attendance.PunchInfo{
			EventID:   e.ID,
			Timestamp: e.Timestamp,
			Direction: string(e.Direction),
			DeviceID:  e.DeviceID,
			Location:  e.Location,
		}
	}
	return info
}

// AttendanceRate is round(present/total*100), 0 when total is 0.
func AttendanceRate(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}
