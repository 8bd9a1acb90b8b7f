package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/report"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors

	switch {
	// Range errors carry field details but are a bad request, not a bad body
	case errors.Is(err, attendance.ErrInvalidRange):
		var details map[string]string
		if errors.As(err, &validationErrs) {
			details = validationErrs.ToMap()
		}
		BadRequest(w, "Invalid date range", details)
	case errors.As(err, &validationErrs):
		ValidationError(w, validationErrs.ToMap())

	// Auth
	case errors.Is(err, user.ErrInvalidToken), errors.Is(err, user.ErrUserIdentityMissing):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrManagerAccessRequired):
		Forbidden(w, "Manager access required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, "Insufficient permissions")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrUserRequired):
		BadRequest(w, "user_id is required", nil)
	case errors.Is(err, attendance.ErrCorrectionsDisabled):
		Conflict(w, "Corrections are not supported by the configured event source")

	// Event source
	case errors.Is(err, punch.ErrEventNotFound):
		NotFound(w, "Punch event not found")
	case errors.Is(err, punch.ErrInvalidQuery), errors.Is(err, punch.ErrInvalidEvent):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, punch.ErrDataUnavailable):
		slog.Warn("attendance data unavailable", "error", err)
		ServiceUnavailable(w, "Attendance data temporarily unavailable")

	// Employee directory
	case errors.Is(err, employee.ErrDirectoryFailure):
		slog.Warn("employee directory unavailable", "error", err)
		ServiceUnavailable(w, "Employee directory temporarily unavailable")

	// Reports
	case errors.Is(err, report.ErrUnsupportedFormat):
		BadRequest(w, "Unsupported export format, use csv or xlsx", nil)
	case errors.Is(err, report.ErrExportFailed):
		slog.Error("report export failed", "error", err)
		ServiceUnavailable(w, "Report export failed, please retry")

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
