package anomaly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/google/uuid"
)

const maxRecentActivity = 10

type AnomalyServiceImpl struct {
	events  punch.EventStore
	writer  punch.EventWriter
	cache   attendance.SummaryCache
	notices anomaly.NoticePublisher
	clock   clock.Clock
	rules   attendance.Rules
	det     DetectorRules

	// writeMu serializes scans so two passes never append the same fix.
	writeMu sync.Mutex
}

// NewAnomalyService builds the detector service. With a nil writer anomalies
// are reported but never corrected. cache and notices may be nil.
func NewAnomalyService(
	events punch.EventStore,
	writer punch.EventWriter,
	cache attendance.SummaryCache,
	notices anomaly.NoticePublisher,
	clk clock.Clock,
	rules attendance.Rules,
	det DetectorRules,
) anomaly.Service {
	if clk == nil {
		clk = clock.System()
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	if det.Window <= 0 {
		det.Window = DefaultWindow
	}
	if det.DuplicateWindow <= 0 {
		det.DuplicateWindow = DefaultDuplicateWindow
	}
	return &AnomalyServiceImpl{
		events:  events,
		writer:  writer,
		cache:   cache,
		notices: notices,
		clock:   clk,
		rules:   rules,
		det:     det,
	}
}

// Scan implements anomaly.Service.
func (s *AnomalyServiceImpl) Scan(ctx context.Context) (anomaly.ScanResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.clock.Now()
	loc := s.rules.Location
	start := clock.DayOf(now.Add(-s.det.Window), loc).Start(loc)
	end := clock.DayOf(now, loc).End(loc)

	events, err := s.events.FetchEvents(ctx, punch.EventQuery{Start: start, End: end})
	if err != nil {
		if errors.Is(err, punch.ErrDataUnavailable) {
			return anomaly.ScanResult{}, err
		}
		return anomaly.ScanResult{}, fmt.Errorf("%w: %w", punch.ErrDataUnavailable, err)
	}

	result := anomaly.ScanResult{
		Events:      events,
		Anomalies:   Detect(events, s.rules, s.det, now),
		WindowStart: start,
		WindowEnd:   now,
	}

	for i := range result.Anomalies {
		a := &result.Anomalies[i]
		if !a.Resolvable() || s.writer == nil {
			continue
		}
		saved, err := s.apply(ctx, *a.Fix)
		if err != nil {
			result.Failures++
			slog.Error("Failed to apply attendance auto-correction",
				"user_id", a.UserID,
				"date", a.Date,
				"kind", a.Kind,
				"event_id", a.EventID,
				"error", err)
			continue
		}
		a.Resolved = true
		result.Corrections = append(result.Corrections, saved)
	}

	if len(result.Anomalies) > 0 {
		slog.Info("Attendance anomaly scan finished",
			"events", len(events),
			"anomalies", len(result.Anomalies),
			"corrections", len(result.Corrections),
			"failures", result.Failures)
	}

	if s.notices != nil {
		s.notices.PublishScanNotice(result.Notice())
	}

	return result, nil
}

func (s *AnomalyServiceImpl) apply(ctx context.Context, fix punch.PunchEvent) (punch.PunchEvent, error) {
	if fix.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return punch.PunchEvent{}, fmt.Errorf("failed to generate correction id: %w", err)
		}
		fix.ID = id.String()
	}
	if fix.CreatedAt.IsZero() {
		fix.CreatedAt = s.clock.Now()
	}
	saved, err := s.writer.Append(ctx, fix)
	if err != nil {
		return punch.PunchEvent{}, err
	}

	if s.cache != nil {
		date := clock.DayOf(saved.Timestamp, s.rules.Location).String()
		if err := s.cache.InvalidateDaily(ctx, saved.UserID, date); err != nil {
			slog.Warn("Summary cache invalidation failed", "user_id", saved.UserID, "date", date, "error", err)
		}
	}
	return saved, nil
}

// ComputeHealthSnapshot implements anomaly.Service.
func (s *AnomalyServiceImpl) ComputeHealthSnapshot(ctx context.Context) (anomaly.HealthSnapshot, error) {
	result, err := s.Scan(ctx)
	if err != nil {
		return anomaly.HealthSnapshot{}, err
	}
	return BuildHealthSnapshot(result, s.rules.Location, s.clock.Now()), nil
}

// BuildHealthSnapshot summarizes one scan. Every figure is derived from the
// scanned window, so repeated calls never accumulate.
func BuildHealthSnapshot(result anomaly.ScanResult, loc *time.Location, now time.Time) anomaly.HealthSnapshot {
	if loc == nil {
		loc = time.UTC
	}
	today := clock.DayOf(now, loc)

	all := make([]punch.PunchEvent, 0, len(result.Events)+len(result.Corrections))
	all = append(all, result.Events...)
	all = append(all, result.Corrections...)

	snapshot := anomaly.HealthSnapshot{
		Anomalies:      []anomaly.Anomaly{},
		RecentActivity: []anomaly.Activity{},
		WindowStart:    result.WindowStart,
		WindowEnd:      result.WindowEnd,
		GeneratedAt:    now,
	}

	var activity []anomaly.Activity
	users := make(map[string]struct{})
	for _, e := range punch.Effective(all) {
		if clock.DayOf(e.Timestamp, loc) != today {
			continue
		}
		snapshot.TodayRecordCount++
		users[e.UserID] = struct{}{}
		if !e.Corrected {
			activity = append(activity, anomaly.Activity{
				Message: fmt.Sprintf("%s punched %s on %s", e.UserID, e.Direction, e.DeviceID),
				Time:    e.Timestamp,
				UserID:  e.UserID,
				Kind:    "punch",
			})
		}
	}
	snapshot.ActiveUserCount = len(users)

	for _, e := range all {
		if !e.Corrected {
			continue
		}
		snapshot.CorrectionsMade++
		msg := fmt.Sprintf("Correction: added %s punch for %s", e.Direction, e.UserID)
		if e.IsVoidMarker() {
			msg = fmt.Sprintf("Correction: voided %s punch for %s", e.Direction, e.UserID)
		}
		at := e.CreatedAt
		if at.IsZero() {
			at = e.Timestamp
		}
		activity = append(activity, anomaly.Activity{Message: msg, Time: at, UserID: e.UserID, Kind: "correction"})
	}

	for _, a := range result.Anomalies {
		if a.Resolved {
			continue
		}
		snapshot.Anomalies = append(snapshot.Anomalies, a)
		activity = append(activity, anomaly.Activity{Message: a.Message, Time: a.At, UserID: a.UserID, Kind: string(a.Kind)})
	}
	snapshot.AnomaliesCount = len(result.Anomalies)
	snapshot.OpenAnomaliesCount = len(snapshot.Anomalies)
	snapshot.Status = anomaly.StatusFor(snapshot.AnomaliesCount)

	sort.SliceStable(activity, func(i, j int) bool {
		return activity[i].Time.After(activity[j].Time)
	})
	if len(activity) > maxRecentActivity {
		activity = activity[:maxRecentActivity]
	}
	snapshot.RecentActivity = append(snapshot.RecentActivity, activity...)

	return snapshot
}
