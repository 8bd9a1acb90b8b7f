package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/report"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

type ReportServiceImpl struct {
	attendance attendance.AttendanceService
	events     punch.EventStore
	directory  employee.Directory
	loc        *time.Location
}

func NewReportService(attendanceService attendance.AttendanceService, events punch.EventStore, directory employee.Directory, loc *time.Location) report.ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportServiceImpl{
		attendance: attendanceService,
		events:     events,
		directory:  directory,
		loc:        loc,
	}
}

// ExportMonthlyReportCSV implements report.ReportService.
func (s *ReportServiceImpl) ExportMonthlyReportCSV(ctx context.Context, req report.MonthlyReportRequest) (report.File, error) {
	emp, summary, err := s.monthly(ctx, req)
	if err != nil {
		return report.File{}, err
	}

	content, err := EncodeMonthlyCSV(emp, summary, s.loc)
	if err != nil {
		return report.File{}, exportFailed(err)
	}

	return report.File{
		Name:        monthlyFileName(emp, summary, "csv"),
		ContentType: report.ContentTypeCSV,
		Content:     content,
	}, nil
}

// ExportMonthlyReportXLSX implements report.ReportService.
func (s *ReportServiceImpl) ExportMonthlyReportXLSX(ctx context.Context, req report.MonthlyReportRequest) (report.File, error) {
	emp, summary, err := s.monthly(ctx, req)
	if err != nil {
		return report.File{}, err
	}

	content, err := EncodeMonthlyXLSX(emp, summary, s.loc)
	if err != nil {
		return report.File{}, exportFailed(err)
	}

	return report.File{
		Name:        monthlyFileName(emp, summary, "xlsx"),
		ContentType: report.ContentTypeXLSX,
		Content:     content,
	}, nil
}

func (s *ReportServiceImpl) monthly(ctx context.Context, req report.MonthlyReportRequest) (employee.Employee, attendance.MonthlySummary, error) {
	if err := req.Validate(); err != nil {
		return employee.Employee{}, attendance.MonthlySummary{}, err
	}

	summary, err := s.attendance.ComputeMonthlySummary(ctx, attendance.MonthlySummaryRequest{
		UserID: req.UserID,
		Year:   req.Year,
		Month:  req.Month,
	})
	if err != nil {
		return employee.Employee{}, attendance.MonthlySummary{}, err
	}

	emp := employee.Unknown(req.UserID)
	if summary.Employee != nil {
		emp = *summary.Employee
	}
	return emp, summary, nil
}

// ExportMultiUserReportCSV implements report.ReportService.
func (s *ReportServiceImpl) ExportMultiUserReportCSV(ctx context.Context, req report.MultiUserReportRequest) (report.File, error) {
	if err := req.Validate(); err != nil {
		return report.File{}, err
	}

	summaries, err := s.attendance.ComputeMultiUserSummary(ctx, req.SummaryRequest())
	if err != nil {
		return report.File{}, err
	}

	content, err := EncodeMultiUserCSV(summaries, s.loc)
	if err != nil {
		return report.File{}, exportFailed(err)
	}

	return report.File{
		Name:        fmt.Sprintf("attendance_summary_%s_%d.csv", time.Month(req.Month), req.Year),
		ContentType: report.ContentTypeCSV,
		Content:     content,
	}, nil
}

// ExportPunchLogCSV implements report.ReportService.
func (s *ReportServiceImpl) ExportPunchLogCSV(ctx context.Context, req report.PunchLogRequest) (report.File, error) {
	if err := req.Validate(); err != nil {
		return report.File{}, err
	}

	startDay, _ := clock.ParseDay(req.StartDate)
	endDay, _ := clock.ParseDay(req.EndDate)
	start := startDay.Start(s.loc)

	events, err := s.events.FetchEvents(ctx, punch.EventQuery{
		UserID: req.UserID,
		Start:  start,
		End:    endDay.End(s.loc),
	})
	if err != nil {
		if errors.Is(err, punch.ErrDataUnavailable) {
			return report.File{}, err
		}
		return report.File{}, fmt.Errorf("%w: %w", punch.ErrDataUnavailable, err)
	}
	events = punch.Effective(events)

	content, err := EncodePunchLogCSV(events, s.profiles(ctx, events), s.loc, start)
	if err != nil {
		return report.File{}, exportFailed(err)
	}

	return report.File{
		Name:        fmt.Sprintf("punch_log_%s_%s.csv", req.StartDate, req.EndDate),
		ContentType: report.ContentTypeCSV,
		Content:     content,
	}, nil
}

// profiles resolves report identity for every user in events. A failing
// directory only degrades the identity columns to N/A.
func (s *ReportServiceImpl) profiles(ctx context.Context, events []punch.PunchEvent) map[string]employee.Employee {
	if s.directory == nil || len(events) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		if _, ok := seen[e.UserID]; !ok {
			seen[e.UserID] = struct{}{}
			ids = append(ids, e.UserID)
		}
	}
	sort.Strings(ids)

	found, err := s.directory.GetByIDs(ctx, ids)
	if err != nil {
		slog.Warn("Employee directory lookup failed for punch log", "count", len(ids), "error", err)
		return nil
	}
	return found
}

func monthlyFileName(emp employee.Employee, s attendance.MonthlySummary, ext string) string {
	name := emp.Username
	if name == "" {
		name = s.UserID
	}
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("attendance_report_%s_%s_%d.%s", name, time.Month(s.Month), s.Year, ext)
}

func exportFailed(err error) error {
	return fmt.Errorf("%w: %w", report.ErrExportFailed, err)
}
