package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// ========================================
// SUMMARY REQUESTS
// ========================================

type DailySummaryRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"` // YYYY-MM-DD, reporting timezone
}

func (r *DailySummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return rangeError(errs)
	}
	return nil
}

type MonthlySummaryRequest struct {
	UserID string `json:"user_id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
}

func (r *MonthlySummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}
	errs = append(errs, validatePeriod(r.Year, r.Month)...)

	if len(errs) > 0 {
		return rangeError(errs)
	}
	return nil
}

type MultiUserSummaryRequest struct {
	UserIDs      []string `json:"user_ids"`
	DepartmentID *string  `json:"department_id,omitempty"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
}

func (r *MultiUserSummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	for _, id := range r.UserIDs {
		if validator.IsEmpty(id) {
			errs = append(errs, validator.ValidationError{
				Field:   "user_ids",
				Message: "user_ids must not contain empty values",
			})
			break
		}
	}
	errs = append(errs, validatePeriod(r.Year, r.Month)...)

	if len(errs) > 0 {
		return rangeError(errs)
	}
	return nil
}

func validatePeriod(year, month int) validator.ValidationErrors {
	var errs validator.ValidationErrors
	if month < 1 || month > 12 {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be between 1 and 12",
		})
	}
	if year < 2000 || year > 9999 {
		errs = append(errs, validator.ValidationError{
			Field:   "year",
			Message: "year must be between 2000 and 9999",
		})
	}
	return errs
}

// rangeError keeps the field details while letting callers match ErrInvalidRange.
func rangeError(errs validator.ValidationErrors) error {
	return fmt.Errorf("%w: %w", ErrInvalidRange, errs)
}

// ========================================
// ADMINISTRATIVE CORRECTION
// ========================================

// CorrectionRequest appends either a synthetic punch or, when VoidEventID is
// set, a void marker for an existing event.
type CorrectionRequest struct {
	UserID      string  `json:"user_id"`
	Timestamp   string  `json:"timestamp"` // RFC3339
	Direction   string  `json:"direction"` // IN, OUT
	DeviceID    string  `json:"device_id"`
	VoidEventID *string `json:"void_event_id,omitempty"`
	Reason      string  `json:"reason"`
	RequestedBy string  `json:"-"`
}

func (r *CorrectionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if _, valid := validator.IsValidDateTime(r.Timestamp); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp must be an RFC3339 datetime",
		})
	}

	if !punch.Direction(strings.ToUpper(r.Direction)).Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "direction",
			Message: "direction must be one of: IN, OUT",
		})
	}

	if r.VoidEventID != nil && validator.IsEmpty(*r.VoidEventID) {
		errs = append(errs, validator.ValidationError{
			Field:   "void_event_id",
			Message: "void_event_id must not be empty when provided",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "correction reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ParsedTimestamp returns the validated timestamp in UTC.
func (r *CorrectionRequest) ParsedTimestamp() time.Time {
	t, _ := validator.IsValidDateTime(r.Timestamp)
	return t.UTC()
}
