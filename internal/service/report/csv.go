package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
)

const (
	StatusPresent = "PRESENT"
	StatusPartial = "PARTIAL"
	StatusAbsent  = "ABSENT"

	notAvailable = "N/A"
	timeLayout   = "15:04:05"
)

var (
	monthlyTableHeader = []string{"Date", "Day", "Status", "Check In", "Check Out", "Work Hours"}

	multiUserHeader = []string{
		"Employee Name", "Employee ID", "Department",
		"Date", "Time", "Status", "Device ID", "Location",
		"Present Days", "Absent Days", "Attendance Rate", "Total Work Hours",
	}
)

func punchLogHeader(loc *time.Location, at time.Time) []string {
	zone, _ := at.In(loc).Zone()
	return []string{"Employee Name", "Employee ID", "Department", "Date", "Time (" + zone + ")", "Status", "Device ID", "Location"}
}

// DayStatus renders a daily summary as PRESENT, PARTIAL (present without a
// closing OUT) or ABSENT.
func DayStatus(d attendance.DailySummary) string {
	switch {
	case !d.IsPresent:
		return StatusAbsent
	case d.LastOut == nil:
		return StatusPartial
	default:
		return StatusPresent
	}
}

func hours(minutes int) string {
	return strconv.FormatFloat(float64(minutes)/60, 'f', 2, 64) + "h"
}

func clockTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return notAvailable
	}
	return t.In(loc).Format(timeLayout)
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return notAvailable
	}
	return *s
}

// monthlyRows is the single-employee layout shared by the CSV and XLSX exports.
func monthlyRows(emp employee.Employee, s attendance.MonthlySummary, loc *time.Location) [][]string {
	month := time.Month(s.Month)
	rows := [][]string{
		{"Employee Monthly Attendance Report"},
		{""},
		{"Employee Name", emp.DisplayName()},
		{"Employee ID", emp.Code()},
		{"Department", emp.Department()},
		{"Month", fmt.Sprintf("%s %d", month, s.Year)},
		{""},
		monthlyTableHeader,
	}

	for _, d := range s.DailySummaries {
		day, err := clock.ParseDay(d.Date)
		weekday := notAvailable
		if err == nil {
			weekday = day.Weekday().String()[:3]
		}
		work := notAvailable
		if d.WorkDurationMinutes > 0 {
			work = hours(d.WorkDurationMinutes)
		}
		rows = append(rows, []string{
			d.Date,
			weekday,
			DayStatus(d),
			clockTime(d.FirstIn, loc),
			clockTime(d.LastOut, loc),
			work,
		})
	}

	average := 0
	if s.PresentDays > 0 {
		average = s.TotalWorkMinutes / s.PresentDays
	}

	rows = append(rows,
		[]string{""},
		[]string{"Summary"},
		[]string{"Total Days", strconv.Itoa(s.TotalDays)},
		[]string{"Present Days", strconv.Itoa(s.PresentDays)},
		[]string{"Absent Days", strconv.Itoa(s.AbsentDays)},
		[]string{"Attendance Rate", strconv.Itoa(s.AttendanceRatePercent) + "%"},
		[]string{"Total Work Hours", hours(s.TotalWorkMinutes)},
		[]string{"Average Work Hours", hours(average)},
	)
	return rows
}

// multiUserRows renders one row per employee followed by the summary footer.
// Date, Time, Status, Device ID and Location describe the employee's latest
// effective punch in the month.
func multiUserRows(summaries []attendance.MonthlySummary, loc *time.Location) [][]string {
	rows := [][]string{multiUserHeader}

	var totalDays, present, absent, rateSum, workMinutes int
	for _, s := range summaries {
		emp := employee.Unknown(s.UserID)
		if s.Employee != nil {
			emp = *s.Employee
		}

		date, at, status, device, location := notAvailable, notAvailable, notAvailable, notAvailable, notAvailable
		if p := s.LastPunch; p != nil {
			date = clock.DayOf(p.Timestamp, loc).String()
			at = p.Timestamp.In(loc).Format(timeLayout)
			status = p.Direction
			if p.DeviceID != "" {
				device = p.DeviceID
			}
			location = orNA(p.Location)
		}

		rows = append(rows, []string{
			emp.DisplayName(), emp.Code(), emp.Department(),
			date, at, status, device, location,
			strconv.Itoa(s.PresentDays),
			strconv.Itoa(s.AbsentDays),
			strconv.Itoa(s.AttendanceRatePercent) + "%",
			hours(s.TotalWorkMinutes),
		})

		totalDays = max(totalDays, s.TotalDays)
		present += s.PresentDays
		absent += s.AbsentDays
		rateSum += s.AttendanceRatePercent
		workMinutes += s.TotalWorkMinutes
	}

	averageRate := 0
	if len(summaries) > 0 {
		averageRate = int(math.Round(float64(rateSum) / float64(len(summaries))))
	}

	rows = append(rows,
		[]string{""},
		[]string{"Summary"},
		[]string{"Total Employees", strconv.Itoa(len(summaries))},
		[]string{"Total Days", strconv.Itoa(totalDays)},
		[]string{"Total Present Days", strconv.Itoa(present)},
		[]string{"Total Absent Days", strconv.Itoa(absent)},
		[]string{"Average Attendance Rate", strconv.Itoa(averageRate) + "%"},
		[]string{"Total Work Hours", hours(workMinutes)},
	)
	return rows
}

func punchLogRows(events []punch.PunchEvent, profiles map[string]employee.Employee, loc *time.Location, zoneAt time.Time) [][]string {
	rows := [][]string{punchLogHeader(loc, zoneAt)}
	for _, e := range events {
		emp, ok := profiles[e.UserID]
		if !ok {
			emp = employee.Unknown(e.UserID)
		}
		device := e.DeviceID
		if device == "" {
			device = notAvailable
		}
		rows = append(rows, []string{
			emp.DisplayName(), emp.Code(), emp.Department(),
			clock.DayOf(e.Timestamp, loc).String(),
			e.Timestamp.In(loc).Format(timeLayout),
			string(e.Direction),
			device,
			orNA(e.Location),
		})
	}
	return rows
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeMonthlyCSV renders the single-employee monthly report.
func EncodeMonthlyCSV(emp employee.Employee, s attendance.MonthlySummary, loc *time.Location) ([]byte, error) {
	return writeCSV(monthlyRows(emp, s, loc))
}

// EncodeMultiUserCSV renders the per-employee summary report.
func EncodeMultiUserCSV(summaries []attendance.MonthlySummary, loc *time.Location) ([]byte, error) {
	return writeCSV(multiUserRows(summaries, loc))
}

// EncodePunchLogCSV renders effective punches one per row. zoneAt picks the
// zone abbreviation printed in the time column header.
func EncodePunchLogCSV(events []punch.PunchEvent, profiles map[string]employee.Employee, loc *time.Location, zoneAt time.Time) ([]byte, error) {
	return writeCSV(punchLogRows(events, profiles, loc, zoneAt))
}
