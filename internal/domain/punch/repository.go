package punch

import "context"

// EventStore is the read contract over persisted punch events.
type EventStore interface {
	// FetchEvents returns events with Start <= Timestamp < End, ordered by
	// timestamp. Void markers are included so callers can apply them.
	FetchEvents(ctx context.Context, q EventQuery) ([]PunchEvent, error)
}

// EventWriter appends correction events. Existing events are never modified.
type EventWriter interface {
	Append(ctx context.Context, event PunchEvent) (PunchEvent, error)
}

// Fingerprinter is implemented by stores that can describe a range without
// returning its events. LatestID is the byte-wise greatest ID in the range.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, q EventQuery) (Fingerprint, error)
}

// Store is implemented by adapters that can both read and append.
type Store interface {
	EventStore
	EventWriter
}
