package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/report"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

type ReportHandler interface {
	// Monthly report of the caller, CSV or XLSX
	ExportMonthlyReport(w http.ResponseWriter, r *http.Request)

	// One row per employee with a summary footer
	ExportMultiUserReport(w http.ResponseWriter, r *http.Request)

	// Raw effective punches
	ExportPunchLog(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
	clock         clock.Clock
	loc           *time.Location
}

func NewReportHandler(reportService report.ReportService, clk clock.Clock, loc *time.Location) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
		clock:         clk,
		loc:           loc,
	}
}

// ExportMonthlyReport handles GET /attendance/monthly-summary/export
func (h *reportHandlerImpl) ExportMonthlyReport(w http.ResponseWriter, r *http.Request) {
	claims, err := identity(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	year, month, bad := parsePeriod(r, h.clock.Now(), h.loc)
	if bad != "" {
		response.BadRequest(w, "invalid "+bad+" parameter", nil)
		return
	}

	req := report.MonthlyReportRequest{
		UserID: claims.UserID,
		Year:   year,
		Month:  month,
	}

	var file report.File
	switch format := strings.ToLower(r.URL.Query().Get("format")); format {
	case "", "csv":
		file, err = h.reportService.ExportMonthlyReportCSV(r.Context(), req)
	case "xlsx":
		file, err = h.reportService.ExportMonthlyReportXLSX(r.Context(), req)
	default:
		err = report.ErrUnsupportedFormat
	}
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Attachment(w, file.Name, file.ContentType, file.Content)
}

// ExportMultiUserReport handles GET /attendance/admin/export
func (h *reportHandlerImpl) ExportMultiUserReport(w http.ResponseWriter, r *http.Request) {
	year, month, bad := parsePeriod(r, h.clock.Now(), h.loc)
	if bad != "" {
		response.BadRequest(w, "invalid "+bad+" parameter", nil)
		return
	}

	if format := strings.ToLower(r.URL.Query().Get("format")); format != "" && format != "csv" {
		response.HandleError(w, report.ErrUnsupportedFormat)
		return
	}

	req := report.MultiUserReportRequest{
		UserIDs:      queryList(r, "user_id"),
		DepartmentID: optionalQuery(r, "department_id"),
		Year:         year,
		Month:        month,
	}

	file, err := h.reportService.ExportMultiUserReportCSV(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Attachment(w, file.Name, file.ContentType, file.Content)
}

// ExportPunchLog handles GET /attendance/admin/punch-log/export
func (h *reportHandlerImpl) ExportPunchLog(w http.ResponseWriter, r *http.Request) {
	req := report.PunchLogRequest{
		UserID:    optionalQuery(r, "user_id"),
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}

	file, err := h.reportService.ExportPunchLogCSV(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Attachment(w, file.Name, file.ContentType, file.Content)
}
