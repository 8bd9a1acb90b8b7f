package report

import (
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// File is a rendered report ready to be streamed to the client.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// ========================================
// MONTHLY (SINGLE EMPLOYEE)
// ========================================

type MonthlyReportRequest struct {
	UserID string `json:"user_id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
}

func (r *MonthlyReportRequest) Validate() error {
	req := attendance.MonthlySummaryRequest{UserID: r.UserID, Year: r.Year, Month: r.Month}
	return req.Validate()
}

// ========================================
// MULTI EMPLOYEE
// ========================================

type MultiUserReportRequest struct {
	UserIDs      []string `json:"user_ids"`
	DepartmentID *string  `json:"department_id,omitempty"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
}

func (r *MultiUserReportRequest) Validate() error {
	req := r.SummaryRequest()
	return req.Validate()
}

func (r *MultiUserReportRequest) SummaryRequest() attendance.MultiUserSummaryRequest {
	return attendance.MultiUserSummaryRequest{
		UserIDs:      r.UserIDs,
		DepartmentID: r.DepartmentID,
		Year:         r.Year,
		Month:        r.Month,
	}
}

// ========================================
// PUNCH LOG
// ========================================

type PunchLogRequest struct {
	UserID    *string `json:"user_id,omitempty"`
	StartDate string  `json:"start_date"` // YYYY-MM-DD
	EndDate   string  `json:"end_date"`   // YYYY-MM-DD, inclusive
}

func (r *PunchLogRequest) Validate() error {
	var errs validator.ValidationErrors

	start, startOK := validator.IsValidDate(r.StartDate)
	if !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, endOK := validator.IsValidDate(r.EndDate)
	if !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if startOK && endOK && end.Sub(start).Hours() > 24*92 {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "punch log range must not exceed 92 days",
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", attendance.ErrInvalidRange, errs)
	}
	return nil
}
