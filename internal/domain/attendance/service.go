package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
)

// AttendanceService is the read path that serves daily and monthly facts.
type AttendanceService interface {
	// ComputeDailySummary summarizes one user's business day. Today is
	// returned as the open variant.
	ComputeDailySummary(ctx context.Context, req DailySummaryRequest) (DailySummary, error)

	// ComputeTodayStatus is ComputeDailySummary for the current business day.
	ComputeTodayStatus(ctx context.Context, userID string) (DailySummary, error)

	// ComputeMonthlySummary folds every elapsed day of the month.
	ComputeMonthlySummary(ctx context.Context, req MonthlySummaryRequest) (MonthlySummary, error)

	// ComputeMultiUserSummary builds monthly summaries for several users from one event fetch.
	ComputeMultiUserSummary(ctx context.Context, req MultiUserSummaryRequest) ([]MonthlySummary, error)

	// RecordCorrection appends an administrative correction event.
	RecordCorrection(ctx context.Context, req CorrectionRequest) (punch.PunchEvent, error)
}
