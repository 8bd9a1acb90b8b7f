package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
)

// CachedDay is a closed-day summary together with the fingerprint of the
// events it was built from.
type CachedDay struct {
	Summary     DailySummary      `json:"summary"`
	Fingerprint punch.Fingerprint `json:"fingerprint"`
}

// SummaryCache stores closed-day summaries. Implementations must treat a miss
// and a backend failure the same way from the caller's point of view.
type SummaryCache interface {
	// GetDaily returns the cached entry, or ok=false on a miss.
	GetDaily(ctx context.Context, userID string, date string) (cached CachedDay, ok bool, err error)

	SetDaily(ctx context.Context, cached CachedDay) error

	// InvalidateDaily drops the cached summary for a user and date.
	InvalidateDaily(ctx context.Context, userID string, date string) error
}
