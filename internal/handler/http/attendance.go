package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	TodayStatus(w http.ResponseWriter, r *http.Request)
	DailySummary(w http.ResponseWriter, r *http.Request)
	MonthlySummary(w http.ResponseWriter, r *http.Request)
	UserMonthlySummary(w http.ResponseWriter, r *http.Request)
	MultiUserSummary(w http.ResponseWriter, r *http.Request)
	RecordCorrection(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	clock             clock.Clock
	loc               *time.Location
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, clk clock.Clock, loc *time.Location) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		clock:             clk,
		loc:               loc,
	}
}

// TodayStatus handles GET /attendance/today-status
func (h *attendanceHandlerImpl) TodayStatus(w http.ResponseWriter, r *http.Request) {
	claims, err := identity(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.ComputeTodayStatus(r.Context(), claims.UserID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// DailySummary handles GET /attendance/daily-summary
func (h *attendanceHandlerImpl) DailySummary(w http.ResponseWriter, r *http.Request) {
	claims, err := identity(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	// Defaults to today
	date := r.URL.Query().Get("date")
	if date == "" {
		date = clock.DayOf(h.clock.Now(), h.loc).String()
	}

	req := attendance.DailySummaryRequest{
		UserID: claims.UserID,
		Date:   date,
	}

	result, err := h.attendanceService.ComputeDailySummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// MonthlySummary handles GET /attendance/monthly-summary
func (h *attendanceHandlerImpl) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	claims, err := identity(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	h.monthlySummary(w, r, claims.UserID)
}

// UserMonthlySummary handles GET /attendance/admin/users/{userID}/monthly-summary
func (h *attendanceHandlerImpl) UserMonthlySummary(w http.ResponseWriter, r *http.Request) {
	h.monthlySummary(w, r, chi.URLParam(r, "userID"))
}

func (h *attendanceHandlerImpl) monthlySummary(w http.ResponseWriter, r *http.Request, userID string) {
	year, month, bad := parsePeriod(r, h.clock.Now(), h.loc)
	if bad != "" {
		response.BadRequest(w, "invalid "+bad+" parameter", nil)
		return
	}

	req := attendance.MonthlySummaryRequest{
		UserID: userID,
		Year:   year,
		Month:  month,
	}

	result, err := h.attendanceService.ComputeMonthlySummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// MultiUserSummary handles GET /attendance/admin/summary
func (h *attendanceHandlerImpl) MultiUserSummary(w http.ResponseWriter, r *http.Request) {
	year, month, bad := parsePeriod(r, h.clock.Now(), h.loc)
	if bad != "" {
		response.BadRequest(w, "invalid "+bad+" parameter", nil)
		return
	}

	req := attendance.MultiUserSummaryRequest{
		UserIDs:      queryList(r, "user_id"),
		DepartmentID: optionalQuery(r, "department_id"),
		Year:         year,
		Month:        month,
	}

	results, err := h.attendanceService.ComputeMultiUserSummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, results)
}

// RecordCorrection handles POST /attendance/admin/corrections
func (h *attendanceHandlerImpl) RecordCorrection(w http.ResponseWriter, r *http.Request) {
	claims, err := identity(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req attendance.CorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode correction request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}
	req.RequestedBy = claims.UserID

	// Validate request
	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.RecordCorrection(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Correction recorded", punch.FromEvent(result))
}
