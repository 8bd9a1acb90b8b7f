package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
)

type AnomalyKind string

const (
	AnomalyNone       AnomalyKind = ""
	AnomalyMissingOut AnomalyKind = "missing_out"
	AnomalyMissingIn  AnomalyKind = "missing_in"
)

const (
	DefaultCompleteDayMinutes = 450 // 7.5h
	DefaultStandardDayMinutes = 540 // standard 9-hour day
)

// Rules are the business thresholds used by the aggregators.
type Rules struct {
	CompleteDayMinutes int
	StandardDayMinutes int
	Location           *time.Location
}

func DefaultRules(loc *time.Location) Rules {
	return Rules{
		CompleteDayMinutes: DefaultCompleteDayMinutes,
		StandardDayMinutes: DefaultStandardDayMinutes,
		Location:           loc,
	}
}

// DailySummary is derived from one user's punches on one business day.
type DailySummary struct {
	UserID              string      `json:"user_id"`
	Date                string      `json:"date"`
	FirstIn             *time.Time  `json:"first_in,omitempty"`
	LastOut             *time.Time  `json:"last_out,omitempty"`
	WorkDurationMinutes int         `json:"work_duration_minutes"`
	OvertimeMinutes     int         `json:"overtime_minutes"`
	IsPresent           bool        `json:"is_present"`
	IsComplete          bool        `json:"is_complete"`
	IsOpen              bool        `json:"is_open"`
	AnomalyKind         AnomalyKind `json:"anomaly_kind,omitempty"`
}

// MonthlySummary folds the daily summaries of one user and month.
type MonthlySummary struct {
	UserID                string             `json:"user_id"`
	Year                  int                `json:"year"`
	Month                 int                `json:"month"`
	TotalDays             int                `json:"total_days"`
	PresentDays           int                `json:"present_days"`
	AbsentDays            int                `json:"absent_days"`
	CompleteDays          int                `json:"complete_days"`
	AttendanceRatePercent int                `json:"attendance_rate_percent"`
	TotalWorkMinutes      int                `json:"total_work_minutes"`
	DailySummaries        []DailySummary     `json:"daily_summaries"`
	LastPunch             *PunchInfo         `json:"last_punch,omitempty"`
	Employee              *employee.Employee `json:"employee,omitempty"`
}

// PunchInfo describes the latest effective punch of a period.
type PunchInfo struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"`
	DeviceID  string    `json:"device_id"`
	Location  *string   `json:"location,omitempty"`
}
