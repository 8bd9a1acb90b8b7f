package punch

import (
	"time"
)

// EventQuery selects events in the half-open range [Start, End).
// A nil UserID selects every user.
type EventQuery struct {
	UserID *string
	Start  time.Time
	End    time.Time
}

func (q EventQuery) Validate() error {
	if q.Start.IsZero() || q.End.IsZero() {
		return ErrInvalidQuery
	}
	if q.End.Before(q.Start) {
		return ErrInvalidQuery
	}
	return nil
}

// EventRecord is the wire form of a punch used by the upstream REST API.
type EventRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Direction    string    `json:"status"`
	DeviceID     string    `json:"device_id"`
	Location     *string   `json:"location,omitempty"`
	Corrected    bool      `json:"corrected"`
	VoidsEventID *string   `json:"voids_event_id,omitempty"`
	Note         *string   `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventEnvelope is the single paginated response shape accepted from the
// upstream API.
type EventEnvelope struct {
	Count   int           `json:"count"`
	Next    *string       `json:"next"`
	Results []EventRecord `json:"results"`
}

func (r EventRecord) ToEvent() PunchEvent {
	return PunchEvent{
		ID:           r.ID,
		UserID:       r.UserID,
		Timestamp:    r.Timestamp.UTC(),
		Direction:    Direction(r.Direction),
		DeviceID:     r.DeviceID,
		Location:     r.Location,
		Corrected:    r.Corrected,
		VoidsEventID: r.VoidsEventID,
		Note:         r.Note,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func FromEvent(e PunchEvent) EventRecord {
	return EventRecord{
		ID:           e.ID,
		UserID:       e.UserID,
		Timestamp:    e.Timestamp.UTC(),
		Direction:    string(e.Direction),
		DeviceID:     e.DeviceID,
		Location:     e.Location,
		Corrected:    e.Corrected,
		VoidsEventID: e.VoidsEventID,
		Note:         e.Note,
		CreatedAt:    e.CreatedAt.UTC(),
	}
}
