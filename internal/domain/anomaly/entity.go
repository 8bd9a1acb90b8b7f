package anomaly

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
)

type Kind string

const (
	KindMissingOut   Kind = "missing_out"
	KindMissingIn    Kind = "missing_in"
	KindDuplicateIn  Kind = "duplicate_in"
	KindDuplicateOut Kind = "duplicate_out"
)

// Anomaly is a structurally invalid pattern in one user's business day.
// Fix is set when the anomaly can be resolved mechanically by appending it.
type Anomaly struct {
	UserID   string            `json:"user_id"`
	Date     string            `json:"date"`
	Kind     Kind              `json:"kind"`
	EventID  string            `json:"event_id,omitempty"`
	At       time.Time         `json:"at"`
	Message  string            `json:"message"`
	Resolved bool              `json:"resolved"`
	Fix      *punch.PunchEvent `json:"-"`
}

func (a Anomaly) Resolvable() bool {
	return a.Fix != nil
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// StatusFor maps an anomaly count to the dashboard health level.
func StatusFor(anomalies int) HealthStatus {
	switch {
	case anomalies == 0:
		return HealthHealthy
	case anomalies <= 5:
		return HealthWarning
	default:
		return HealthCritical
	}
}

type Activity struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	UserID  string    `json:"user_id"`
	Kind    string    `json:"kind"`
}

// HealthSnapshot is computed fresh from a bounded window on every call.
// AnomaliesCount covers every anomaly the pass detected, fixed or not;
// Anomalies lists only the ones still open.
type HealthSnapshot struct {
	TodayRecordCount   int          `json:"today_records"`
	ActiveUserCount    int          `json:"active_users"`
	AnomaliesCount     int          `json:"anomalies_count"`
	OpenAnomaliesCount int          `json:"open_anomalies_count"`
	CorrectionsMade    int          `json:"corrections_made"`
	Status             HealthStatus `json:"status"`
	RecentActivity     []Activity   `json:"recent_activity"`
	Anomalies          []Anomaly    `json:"anomalies"`
	WindowStart        time.Time    `json:"window_start"`
	WindowEnd          time.Time    `json:"window_end"`
	GeneratedAt        time.Time    `json:"generated_at"`
}

// ScanResult reports one detection and correction pass.
type ScanResult struct {
	Events      []punch.PunchEvent
	Anomalies   []Anomaly
	Corrections []punch.PunchEvent
	Failures    int
	WindowStart time.Time
	WindowEnd   time.Time
}

// ScanNotice is the streamed summary of a completed scan.
type ScanNotice struct {
	EventsScanned   int       `json:"events_scanned"`
	Anomalies       []Anomaly `json:"anomalies"`
	CorrectionsMade int       `json:"corrections_made"`
	Failures        int       `json:"failures"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
}

func (r ScanResult) Notice() ScanNotice {
	anomalies := r.Anomalies
	if anomalies == nil {
		anomalies = []Anomaly{}
	}
	return ScanNotice{
		EventsScanned:   len(r.Events),
		Anomalies:       anomalies,
		CorrectionsMade: len(r.Corrections),
		Failures:        r.Failures,
		WindowStart:     r.WindowStart,
		WindowEnd:       r.WindowEnd,
	}
}
