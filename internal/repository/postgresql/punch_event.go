package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type punchEventRepositoryImpl struct {
	db *database.DB
}

func NewPunchEventRepository(db *database.DB) punch.Store {
	return &punchEventRepositoryImpl{db: db}
}

const punchEventColumns = `
	id, user_id, timestamp, direction, device_id, location,
	corrected, voids_event_id, note, created_at
`

// FetchEvents implements punch.EventStore.
func (r *punchEventRepositoryImpl) FetchEvents(ctx context.Context, q punch.EventQuery) ([]punch.PunchEvent, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	querier := GetQuerier(ctx, r.db)

	query := `SELECT ` + punchEventColumns + `
		FROM punch_events
		WHERE timestamp >= $1 AND timestamp < $2
		  AND ($3::text IS NULL OR user_id = $3)
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := querier.Query(ctx, query, q.Start.UTC(), q.End.UTC(), q.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query punch events: %w", punch.ErrDataUnavailable, err)
	}
	defer rows.Close()

	var events []punch.PunchEvent
	for rows.Next() {
		var e punch.PunchEvent
		var direction string
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Timestamp, &direction, &e.DeviceID, &e.Location,
			&e.Corrected, &e.VoidsEventID, &e.Note, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan punch event: %w", punch.ErrDataUnavailable, err)
		}
		e.Direction = punch.Direction(direction)
		e.Timestamp = e.Timestamp.UTC()
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating punch events: %w", punch.ErrDataUnavailable, err)
	}

	return events, nil
}

// Fingerprint implements punch.Fingerprinter. The C collation makes MAX(id)
// agree with Go's byte-wise string order.
func (r *punchEventRepositoryImpl) Fingerprint(ctx context.Context, q punch.EventQuery) (punch.Fingerprint, error) {
	if err := q.Validate(); err != nil {
		return punch.Fingerprint{}, err
	}

	querier := GetQuerier(ctx, r.db)

	query := `
		SELECT COUNT(*), COALESCE(MAX(id COLLATE "C"), '')
		FROM punch_events
		WHERE timestamp >= $1 AND timestamp < $2
		  AND ($3::text IS NULL OR user_id = $3)
	`

	var fp punch.Fingerprint
	if err := querier.QueryRow(ctx, query, q.Start.UTC(), q.End.UTC(), q.UserID).Scan(&fp.Count, &fp.LatestID); err != nil {
		return punch.Fingerprint{}, fmt.Errorf("%w: failed to fingerprint punch events: %w", punch.ErrDataUnavailable, err)
	}
	return fp, nil
}

// Append implements punch.EventWriter. Rows are insert-only.
func (r *punchEventRepositoryImpl) Append(ctx context.Context, e punch.PunchEvent) (punch.PunchEvent, error) {
	if e.UserID == "" || !e.Direction.Valid() || e.Timestamp.IsZero() {
		return punch.PunchEvent{}, punch.ErrInvalidEvent
	}

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return punch.PunchEvent{}, fmt.Errorf("failed to generate punch event id: %w", err)
		}
		e.ID = id.String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	querier := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO punch_events (` + punchEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := querier.QueryRow(ctx, query,
		e.ID,
		e.UserID,
		e.Timestamp.UTC(),
		string(e.Direction),
		e.DeviceID,
		e.Location,
		e.Corrected,
		e.VoidsEventID,
		e.Note,
		e.CreatedAt.UTC(),
	).Scan(&e.CreatedAt)
	if err != nil {
		return punch.PunchEvent{}, fmt.Errorf("failed to append punch event: %w", err)
	}

	e.Timestamp = e.Timestamp.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}
