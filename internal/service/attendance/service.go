package attendance

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
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultWorkers      = 8
	manualDeviceID      = "manual-correction"
)

type Options struct {
	FetchTimeout time.Duration
	Workers      int
}

type AttendanceServiceImpl struct {
	events       punch.EventStore
	fingerprints punch.Fingerprinter
	writer       punch.EventWriter
	directory    employee.Directory
	cache        attendance.SummaryCache
	clock        clock.Clock
	rules        attendance.Rules
	opts         Options
}

// NewAttendanceService wires the read path. writer, directory and cache may be
// nil. The cache is only used when events also implements punch.Fingerprinter,
// since a cached day must be checked against the store before it is served.
func NewAttendanceService(
	events punch.EventStore,
	writer punch.EventWriter,
	directory employee.Directory,
	cache attendance.SummaryCache,
	clk clock.Clock,
	rules attendance.Rules,
	opts Options,
) attendance.AttendanceService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	if clk == nil {
		clk = clock.System()
	}
	fingerprints, _ := events.(punch.Fingerprinter)
	if cache != nil && fingerprints == nil {
		slog.Warn("Event store cannot fingerprint days, summary cache disabled")
		cache = nil
	}
	return &AttendanceServiceImpl{
		events:       events,
		fingerprints: fingerprints,
		writer:       writer,
		directory:    directory,
		cache:        cache,
		clock:        clk,
		rules:        rules,
		opts:         opts,
	}
}

// ComputeDailySummary implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ComputeDailySummary(ctx context.Context, req attendance.DailySummaryRequest) (attendance.DailySummary, error) {
	if err := req.Validate(); err != nil {
		return attendance.DailySummary{}, err
	}

	day, _ := clock.ParseDay(req.Date)
	now := s.clock.Now()
	today := clock.DayOf(now, s.rules.Location)
	if day.After(today) {
		return attendance.DailySummary{}, fmt.Errorf("%w: date %s is in the future", attendance.ErrInvalidRange, req.Date)
	}

	return s.dailySummary(ctx, req.UserID, day, today, now)
}

// ComputeTodayStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ComputeTodayStatus(ctx context.Context, userID string) (attendance.DailySummary, error) {
	if strings.TrimSpace(userID) == "" {
		return attendance.DailySummary{}, fmt.Errorf("%w: %w", attendance.ErrInvalidRange, attendance.ErrUserRequired)
	}

	now := s.clock.Now()
	today := clock.DayOf(now, s.rules.Location)
	return s.dailySummary(ctx, userID, today, today, now)
}

func (s *AttendanceServiceImpl) dailySummary(ctx context.Context, userID string, day, today clock.Day, now time.Time) (attendance.DailySummary, error) {
	closed := day.Before(today)

	if closed && s.cache != nil {
		if cached, ok := s.cachedDaily(ctx, userID, day); ok {
			return cached, nil
		}
	}

	events, err := s.fetch(ctx, &userID, day.Start(s.rules.Location), day.End(s.rules.Location))
	if err != nil {
		return attendance.DailySummary{}, err
	}

	var open *time.Time
	if !closed {
		open = &now
	}
	summary := BuildDailySummary(userID, day, events, s.rules, open)

	if closed && s.cache != nil {
		entry := attendance.CachedDay{Summary: summary, Fingerprint: punch.FingerprintOf(events)}
		if err := s.cache.SetDaily(ctx, entry); err != nil {
			slog.Warn("Summary cache write failed", "user_id", userID, "date", summary.Date, "error", err)
		}
	}

	return summary, nil
}

// cachedDaily serves a cached day only while the store still holds the event
// set it was built from. Late-synced punches change the fingerprint.
func (s *AttendanceServiceImpl) cachedDaily(ctx context.Context, userID string, day clock.Day) (attendance.DailySummary, bool) {
	cached, ok, err := s.cache.GetDaily(ctx, userID, day.String())
	if err != nil {
		slog.Warn("Summary cache read failed", "user_id", userID, "date", day.String(), "error", err)
		return attendance.DailySummary{}, false
	}
	if !ok {
		return attendance.DailySummary{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	current, err := s.fingerprints.Fingerprint(ctx, punch.EventQuery{
		UserID: &userID,
		Start:  day.Start(s.rules.Location),
		End:    day.End(s.rules.Location),
	})
	if err != nil {
		slog.Warn("Event fingerprint failed, recomputing day", "user_id", userID, "date", day.String(), "error", err)
		return attendance.DailySummary{}, false
	}
	if current != cached.Fingerprint {
		return attendance.DailySummary{}, false
	}
	return cached.Summary, true
}

// ComputeMonthlySummary implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ComputeMonthlySummary(ctx context.Context, req attendance.MonthlySummaryRequest) (attendance.MonthlySummary, error) {
	if err := req.Validate(); err != nil {
		return attendance.MonthlySummary{}, err
	}

	now := s.clock.Now()
	month := time.Month(req.Month)

	var events []punch.PunchEvent
	if start, end, ok := s.monthWindow(req.Year, month, now); ok {
		var err error
		events, err = s.fetch(ctx, &req.UserID, start, end)
		if err != nil {
			return attendance.MonthlySummary{}, err
		}
	}

	summary := BuildMonthlySummary(req.UserID, req.Year, month, events, s.rules, now)

	if s.directory != nil {
		profiles, err := s.directory.GetByIDs(ctx, []string{req.UserID})
		if err != nil {
			slog.Warn("Employee directory lookup failed", "user_id", req.UserID, "error", err)
		} else if p, ok := profiles[req.UserID]; ok {
			summary.Employee = &p
		}
	}

	return summary, nil
}

// ComputeMultiUserSummary implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ComputeMultiUserSummary(ctx context.Context, req attendance.MultiUserSummaryRequest) ([]attendance.MonthlySummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	month := time.Month(req.Month)

	var events []punch.PunchEvent
	if start, end, ok := s.monthWindow(req.Year, month, now); ok {
		var err error
		events, err = s.fetch(ctx, nil, start, end)
		if err != nil {
			return nil, err
		}
	}

	scope := s.resolveScope(ctx, req, events)
	if len(scope) == 0 {
		return []attendance.MonthlySummary{}, nil
	}

	byUser := punch.GroupByUser(events)
	results := make([]attendance.MonthlySummary, len(scope))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, emp := range scope {
		i, emp := i, emp
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summary := BuildMonthlySummary(emp.UserID, req.Year, month, byUser[emp.UserID], s.rules, now)
			profile := emp
			summary.Employee = &profile
			results[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate monthly summaries: %w", err)
	}

	return results, nil
}

// resolveScope picks the employees of a multi-user request. Directory
// failures degrade to placeholder profiles rather than failing the request.
func (s *AttendanceServiceImpl) resolveScope(ctx context.Context, req attendance.MultiUserSummaryRequest, events []punch.PunchEvent) []employee.Employee {
	if len(req.UserIDs) > 0 {
		ids := dedupe(req.UserIDs)
		profiles := map[string]employee.Employee{}
		if s.directory != nil {
			found, err := s.directory.GetByIDs(ctx, ids)
			if err != nil {
				slog.Warn("Employee directory lookup failed", "count", len(ids), "error", err)
			} else {
				profiles = found
			}
		}
		scope := make([]employee.Employee, 0, len(ids))
		for _, id := range ids {
			if p, ok := profiles[id]; ok {
				scope = append(scope, p)
			} else {
				scope = append(scope, employee.Unknown(id))
			}
		}
		return scope
	}

	if s.directory != nil {
		var listed []employee.Employee
		var err error
		if req.DepartmentID != nil && *req.DepartmentID != "" {
			listed, err = s.directory.ListByDepartment(ctx, *req.DepartmentID)
		} else {
			listed, err = s.directory.ListActive(ctx)
		}
		if err == nil {
			return listed
		}
		slog.Warn("Employee directory listing failed, falling back to punch activity", "error", err)
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	sort.Strings(ids)

	scope := make([]employee.Employee, 0, len(ids))
	for _, id := range ids {
		scope = append(scope, employee.Unknown(id))
	}
	return scope
}

// RecordCorrection implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordCorrection(ctx context.Context, req attendance.CorrectionRequest) (punch.PunchEvent, error) {
	if err := req.Validate(); err != nil {
		return punch.PunchEvent{}, err
	}
	if s.writer == nil {
		return punch.PunchEvent{}, attendance.ErrCorrectionsDisabled
	}

	ts := req.ParsedTimestamp()
	note := req.Reason
	if req.RequestedBy != "" {
		note = fmt.Sprintf("%s (by %s)", req.Reason, req.RequestedBy)
	}

	correction := punch.PunchEvent{
		UserID:    req.UserID,
		Timestamp: ts,
		Direction: punch.Direction(strings.ToUpper(req.Direction)),
		DeviceID:  req.DeviceID,
		Corrected: true,
		Note:      &note,
	}
	if correction.DeviceID == "" {
		correction.DeviceID = manualDeviceID
	}

	if req.VoidEventID != nil {
		target, err := s.findEvent(ctx, req.UserID, *req.VoidEventID, ts)
		if err != nil {
			return punch.PunchEvent{}, err
		}
		// markers share the voided punch's instant so any day query sees both
		correction.Timestamp = target.Timestamp
		correction.Direction = target.Direction
		correction.VoidsEventID = &target.ID
	}

	saved, err := s.writer.Append(ctx, correction)
	if err != nil {
		return punch.PunchEvent{}, fmt.Errorf("failed to append correction: %w", err)
	}

	if s.cache != nil {
		date := clock.DayOf(saved.Timestamp, s.rules.Location).String()
		if err := s.cache.InvalidateDaily(ctx, saved.UserID, date); err != nil {
			slog.Warn("Summary cache invalidation failed", "user_id", saved.UserID, "date", date, "error", err)
		}
	}

	slog.Info("Attendance correction recorded",
		"event_id", saved.ID,
		"user_id", saved.UserID,
		"direction", saved.Direction,
		"voids_event_id", req.VoidEventID,
		"requested_by", req.RequestedBy)

	return saved, nil
}

// findEvent looks the target up on the business day of hint.
func (s *AttendanceServiceImpl) findEvent(ctx context.Context, userID, eventID string, hint time.Time) (punch.PunchEvent, error) {
	day := clock.DayOf(hint, s.rules.Location)
	events, err := s.fetch(ctx, &userID, day.Start(s.rules.Location), day.End(s.rules.Location))
	if err != nil {
		return punch.PunchEvent{}, err
	}
	for _, e := range events {
		if e.ID == eventID && !e.IsVoidMarker() {
			return e, nil
		}
	}
	return punch.PunchEvent{}, punch.ErrEventNotFound
}

// monthWindow returns the fetch range of a month, cut at the end of today.
func (s *AttendanceServiceImpl) monthWindow(year int, month time.Month, now time.Time) (time.Time, time.Time, bool) {
	loc := s.rules.Location
	start := clock.Day{Year: year, Month: month, Day: 1}.Start(loc)
	end := start.AddDate(0, 1, 0)
	todayEnd := clock.DayOf(now, loc).End(loc)
	if todayEnd.Before(end) {
		end = todayEnd
	}
	return start, end, start.Before(end)
}

// fetch queries the event store under the configured timeout and maps every
// failure to punch.ErrDataUnavailable.
func (s *AttendanceServiceImpl) fetch(ctx context.Context, userID *string, start, end time.Time) ([]punch.PunchEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	events, err := s.events.FetchEvents(ctx, punch.EventQuery{UserID: userID, Start: start, End: end})
	if err != nil {
		if errors.Is(err, punch.ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", punch.ErrDataUnavailable, err)
	}
	return events, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
