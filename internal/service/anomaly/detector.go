package anomaly

import (
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
)

const (
	DefaultWindow          = 24 * time.Hour
	DefaultDuplicateWindow = 2 * time.Minute

	autoCorrectorDeviceID = "auto-corrector"
)

// DetectorRules configures the scan window and what the corrector may fix.
type DetectorRules struct {
	// Window is how far back a scan looks, rounded down to a business day start.
	Window time.Duration
	// DuplicateWindow is the maximum gap between two same-direction punches
	// that are treated as a device double-tap.
	DuplicateWindow time.Duration
	// AutoCloseMissingOut appends a synthetic OUT for closed days with a
	// trailing IN.
	AutoCloseMissingOut bool
}

func DefaultDetectorRules() DetectorRules {
	return DetectorRules{
		Window:          DefaultWindow,
		DuplicateWindow: DefaultDuplicateWindow,
	}
}

type dayKey struct {
	userID string
	day    clock.Day
}

// Detect classifies every (user, business day) group of events. It is pure:
// fixes are proposed on the returned anomalies but never applied, and the
// proposed fixes carry no ID.
func Detect(events []punch.PunchEvent, rules attendance.Rules, det DetectorRules, now time.Time) []anomaly.Anomaly {
	loc := rules.Location
	if loc == nil {
		loc = time.UTC
	}
	if det.DuplicateWindow <= 0 {
		det.DuplicateWindow = DefaultDuplicateWindow
	}
	today := clock.DayOf(now, loc)

	groups := make(map[dayKey][]punch.PunchEvent)
	var keys []dayKey
	for _, e := range punch.Effective(events) {
		k := dayKey{userID: e.UserID, day: clock.DayOf(e.Timestamp, loc)}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].userID != keys[j].userID {
			return keys[i].userID < keys[j].userID
		}
		return keys[i].day.Before(keys[j].day)
	})

	var found []anomaly.Anomaly
	for _, k := range keys {
		dayEvents := groups[k]
		found = append(found, duplicates(k, dayEvents, det.DuplicateWindow)...)

		if k.day.After(today) {
			continue
		}
		var open *time.Time
		if k.day == today {
			open = &now
		}
		summary := attendanceService.BuildDailySummary(k.userID, k.day, dayEvents, rules, open)
		switch summary.AnomalyKind {
		case attendance.AnomalyMissingOut:
			found = append(found, missingOut(k, dayEvents, rules, det, loc))
		case attendance.AnomalyMissingIn:
			found = append(found, missingIn(k, dayEvents))
		}
	}
	return found
}

// duplicates flags a punch that repeats the direction of the previous kept
// punch within window. The later punch is the one proposed for voiding.
func duplicates(k dayKey, events []punch.PunchEvent, window time.Duration) []anomaly.Anomaly {
	var found []anomaly.Anomaly
	var prev *punch.PunchEvent
	for i := range events {
		e := events[i]
		if prev != nil && prev.Direction == e.Direction && e.Timestamp.Sub(prev.Timestamp) <= window {
			kind := anomaly.KindDuplicateIn
			if e.Direction == punch.DirectionOut {
				kind = anomaly.KindDuplicateOut
			}
			note := fmt.Sprintf("auto-void %s: repeats %s within %s", kind, prev.ID, window)
			voids := e.ID
			found = append(found, anomaly.Anomaly{
				UserID:  k.userID,
				Date:    k.day.String(),
				Kind:    kind,
				EventID: e.ID,
				At:      e.Timestamp,
				Message: fmt.Sprintf("Duplicate %s punch for %s on %s", e.Direction, k.userID, k.day),
				Fix: &punch.PunchEvent{
					UserID:       e.UserID,
					Timestamp:    e.Timestamp,
					Direction:    e.Direction,
					DeviceID:     autoCorrectorDeviceID,
					Corrected:    true,
					VoidsEventID: &voids,
					Note:         &note,
				},
			})
			continue
		}
		prev = &events[i]
	}
	return found
}

func missingOut(k dayKey, events []punch.PunchEvent, rules attendance.Rules, det DetectorRules, loc *time.Location) anomaly.Anomaly {
	var firstIn punch.PunchEvent
	for _, e := range events {
		if e.Direction == punch.DirectionIn {
			firstIn = e
			break
		}
	}

	a := anomaly.Anomaly{
		UserID:  k.userID,
		Date:    k.day.String(),
		Kind:    anomaly.KindMissingOut,
		EventID: firstIn.ID,
		At:      firstIn.Timestamp,
		Message: fmt.Sprintf("Missing OUT punch for %s on %s", k.userID, k.day),
	}
	if !det.AutoCloseMissingOut {
		return a
	}

	closeAt := firstIn.Timestamp.Add(time.Duration(rules.StandardDayMinutes) * time.Minute)
	if last := k.day.End(loc).Add(-time.Second); closeAt.After(last) {
		closeAt = last
	}
	if !closeAt.After(firstIn.Timestamp) {
		return a
	}
	note := fmt.Sprintf("auto-close missing_out after %s", firstIn.ID)
	a.Fix = &punch.PunchEvent{
		UserID:    k.userID,
		Timestamp: closeAt,
		Direction: punch.DirectionOut,
		DeviceID:  autoCorrectorDeviceID,
		Location:  firstIn.Location,
		Corrected: true,
		Note:      &note,
	}
	return a
}

func missingIn(k dayKey, events []punch.PunchEvent) anomaly.Anomaly {
	a := anomaly.Anomaly{
		UserID:  k.userID,
		Date:    k.day.String(),
		Kind:    anomaly.KindMissingIn,
		Message: fmt.Sprintf("Missing IN punch for %s on %s", k.userID, k.day),
	}
	for _, e := range events {
		if e.Direction == punch.DirectionOut {
			a.EventID = e.ID
			a.At = e.Timestamp
			break
		}
	}
	return a
}
