package punch

import (
	"sort"
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// PunchEvent is a single clock-in or clock-out recorded by a device or a
// manual clock action. Events are never updated; corrections are appended as
// new events with Corrected set.
type PunchEvent struct {
	ID        string
	UserID    string
	Timestamp time.Time
	Direction Direction
	DeviceID  string
	Location  *string

	// Corrected marks events written by an administrator or the auto-corrector.
	// When VoidsEventID is set the event is a void marker for that event and
	// is not a punch itself.
	Corrected    bool
	VoidsEventID *string
	Note         *string
	CreatedAt    time.Time
}

// IsVoidMarker reports whether the event only cancels another event.
func (e PunchEvent) IsVoidMarker() bool {
	return e.VoidsEventID != nil && *e.VoidsEventID != ""
}

// SortByTime orders events by timestamp, then ID, in place.
func SortByTime(events []PunchEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID < events[j].ID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
}

// Effective drops void markers and the events they void, and returns the
// remaining punches sorted by time. The input slice is not modified.
func Effective(events []PunchEvent) []PunchEvent {
	voided := make(map[string]struct{})
	for _, e := range events {
		if e.IsVoidMarker() {
			voided[*e.VoidsEventID] = struct{}{}
		}
	}

	out := make([]PunchEvent, 0, len(events))
	for _, e := range events {
		if e.IsVoidMarker() {
			continue
		}
		if _, ok := voided[e.ID]; ok {
			continue
		}
		out = append(out, e)
	}
	SortByTime(out)
	return out
}

// GroupByUser splits events by user, preserving input order inside each group.
func GroupByUser(events []PunchEvent) map[string][]PunchEvent {
	groups := make(map[string][]PunchEvent)
	for _, e := range events {
		groups[e.UserID] = append(groups[e.UserID], e)
	}
	return groups
}

// Fingerprint identifies the stored event set of a query range. Stores are
// insert-only, so an unchanged fingerprint means an unchanged event set.
type Fingerprint struct {
	Count    int    `json:"count"`
	LatestID string `json:"latest_id"`
}

// FingerprintOf describes events the way a Fingerprinter describes the range
// they were fetched from. Void markers are counted like any other row.
func FingerprintOf(events []PunchEvent) Fingerprint {
	fp := Fingerprint{Count: len(events)}
	for _, e := range events {
		if e.ID > fp.LatestID {
			fp.LatestID = e.ID
		}
	}
	return fp
}
