package report

import "context"

// ReportService renders attendance reports into downloadable files.
type ReportService interface {
	// ExportMonthlyReportCSV renders one employee's month as CSV.
	ExportMonthlyReportCSV(ctx context.Context, req MonthlyReportRequest) (File, error)

	// ExportMonthlyReportXLSX renders the same report as an Excel workbook.
	ExportMonthlyReportXLSX(ctx context.Context, req MonthlyReportRequest) (File, error)

	// ExportMultiUserReportCSV renders one row per employee plus a summary footer.
	ExportMultiUserReportCSV(ctx context.Context, req MultiUserReportRequest) (File, error)

	// ExportPunchLogCSV renders raw effective punches, one row per punch.
	ExportPunchLogCSV(ctx context.Context, req PunchLogRequest) (File, error)
}
