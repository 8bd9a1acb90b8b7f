package anomaly

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu        sync.Mutex
	events    []punch.PunchEvent
	fetchErr  error
	appendErr error
}

func (m *memStore) FetchEvents(ctx context.Context, q punch.EventQuery) ([]punch.PunchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var res []punch.PunchEvent
	for _, e := range m.events {
		if q.UserID != nil && e.UserID != *q.UserID {
			continue
		}
		if e.Timestamp.Before(q.Start) || !e.Timestamp.Before(q.End) {
			continue
		}
		res = append(res, e)
	}
	punch.SortByTime(res)
	return res, nil
}

func (m *memStore) Append(ctx context.Context, e punch.PunchEvent) (punch.PunchEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return punch.PunchEvent{}, m.appendErr
	}
	m.events = append(m.events, e)
	return e, nil
}

type invalidations struct {
	mu   sync.Mutex
	keys []string
}

func (c *invalidations) GetDaily(ctx context.Context, userID, date string) (attendance.CachedDay, bool, error) {
	return attendance.CachedDay{}, false, nil
}

func (c *invalidations) SetDaily(ctx context.Context, cached attendance.CachedDay) error {
	return nil
}

func (c *invalidations) InvalidateDaily(ctx context.Context, userID, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, userID+"/"+date)
	return nil
}

type noticeRecorder struct {
	notices []anomaly.ScanNotice
}

func (r *noticeRecorder) PublishScanNotice(notice anomaly.ScanNotice) {
	r.notices = append(r.notices, notice)
}

func seededStore() *memStore {
	return &memStore{events: []punch.PunchEvent{
		// outside the window
		in("old", "u9", at(2026, 3, 1, 9, 0)),
		in("a1", "u1", at(2026, 3, 4, 9, 0)),
		in("a2", "u1", at(2026, 3, 4, 9, 1)),
		out("a3", "u1", at(2026, 3, 4, 18, 0)),
		in("b1", "u2", at(2026, 3, 4, 9, 0)),
		in("c1", "u3", at(2026, 3, 5, 10, 0)),
		in("d1", "u1", at(2026, 3, 5, 9, 30)),
	}}
}

func newTestService(store *memStore, autoClose bool) anomaly.Service {
	det := DefaultDetectorRules()
	det.AutoCloseMissingOut = autoClose
	return NewAnomalyService(store, store, nil, nil, clock.Fixed(fixedNow), rules(), det)
}

func TestScan_AppliesResolvableCorrections(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, true)

	result, err := svc.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, at(2026, 3, 4, 0, 0), result.WindowStart)
	assert.Equal(t, fixedNow, result.WindowEnd)
	assert.Len(t, result.Events, 6)
	require.Len(t, result.Anomalies, 2)
	assert.Equal(t, anomaly.KindDuplicateIn, result.Anomalies[0].Kind)
	assert.Equal(t, anomaly.KindMissingOut, result.Anomalies[1].Kind)
	for _, a := range result.Anomalies {
		assert.True(t, a.Resolved)
	}
	require.Len(t, result.Corrections, 2)
	for _, c := range result.Corrections {
		assert.NotEmpty(t, c.ID)
		assert.True(t, c.Corrected)
		assert.Equal(t, fixedNow, c.CreatedAt)
	}
	assert.Zero(t, result.Failures)
	assert.Len(t, store.events, 9)
}

func TestScan_InvalidatesCorrectedDays(t *testing.T) {
	store := seededStore()
	cache := &invalidations{}
	det := DefaultDetectorRules()
	det.AutoCloseMissingOut = true
	svc := NewAnomalyService(store, store, cache, nil, clock.Fixed(fixedNow), rules(), det)

	_, err := svc.Scan(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1/2026-03-04", "u2/2026-03-04"}, cache.keys)
}

func TestScan_PublishesNoticeForEveryPass(t *testing.T) {
	store := seededStore()
	notices := &noticeRecorder{}
	det := DefaultDetectorRules()
	det.AutoCloseMissingOut = true
	svc := NewAnomalyService(store, store, nil, notices, clock.Fixed(fixedNow), rules(), det)

	_, err := svc.Scan(context.Background())
	require.NoError(t, err)
	_, err = svc.ComputeHealthSnapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, notices.notices, 2)
	assert.Equal(t, 6, notices.notices[0].EventsScanned)
	assert.Equal(t, 2, notices.notices[0].CorrectionsMade)
	assert.Len(t, notices.notices[0].Anomalies, 2)
	assert.Empty(t, notices.notices[1].Anomalies)
}

func TestScan_FailedReadPublishesNothing(t *testing.T) {
	notices := &noticeRecorder{}
	svc := NewAnomalyService(&memStore{fetchErr: errors.New("timeout")}, nil, nil, notices, clock.Fixed(fixedNow), rules(), DefaultDetectorRules())

	_, err := svc.Scan(context.Background())

	assert.Error(t, err)
	assert.Empty(t, notices.notices)
}

func TestScan_SecondPassFindsNothing(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, true)

	_, err := svc.Scan(context.Background())
	require.NoError(t, err)
	second, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Empty(t, second.Anomalies)
	assert.Empty(t, second.Corrections)
	assert.Len(t, store.events, 9)
}

func TestScan_WriteFailuresAreSwallowed(t *testing.T) {
	store := seededStore()
	store.appendErr = errors.New("read-only replica")
	svc := newTestService(store, true)

	result, err := svc.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Failures)
	assert.Empty(t, result.Corrections)
	for _, a := range result.Anomalies {
		assert.False(t, a.Resolved)
	}
}

func TestScan_WithoutWriterOnlyReports(t *testing.T) {
	store := seededStore()
	svc := NewAnomalyService(store, nil, nil, nil, clock.Fixed(fixedNow), rules(), DetectorRules{AutoCloseMissingOut: true})

	result, err := svc.Scan(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Anomalies, 2)
	assert.Empty(t, result.Corrections)
	assert.Len(t, store.events, 7)
}

func TestScan_FetchFailureIsDataUnavailable(t *testing.T) {
	store := &memStore{fetchErr: errors.New("timeout")}
	svc := newTestService(store, true)

	_, err := svc.Scan(context.Background())

	assert.ErrorIs(t, err, punch.ErrDataUnavailable)
}

func TestComputeHealthSnapshot_AfterCorrections(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, true)

	snap, err := svc.ComputeHealthSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, snap.TodayRecordCount)
	assert.Equal(t, 2, snap.ActiveUserCount)
	assert.Equal(t, 2, snap.AnomaliesCount)
	assert.Equal(t, 0, snap.OpenAnomaliesCount)
	assert.Empty(t, snap.Anomalies)
	assert.Equal(t, 2, snap.CorrectionsMade)
	assert.Equal(t, anomaly.HealthWarning, snap.Status)
	require.Len(t, snap.RecentActivity, 4)
	assert.Equal(t, "correction", snap.RecentActivity[0].Kind)
	assert.Equal(t, "punch", snap.RecentActivity[3].Kind)
	assert.Equal(t, fixedNow, snap.GeneratedAt)
}

func TestComputeHealthSnapshot_DoesNotAccumulate(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, true)

	first, err := svc.ComputeHealthSnapshot(context.Background())
	require.NoError(t, err)
	second, err := svc.ComputeHealthSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.CorrectionsMade, second.CorrectionsMade)
	assert.Equal(t, first.TodayRecordCount, second.TodayRecordCount)
	// the first pass fixed everything it found
	assert.Equal(t, 2, first.AnomaliesCount)
	assert.Equal(t, 0, second.AnomaliesCount)
	assert.Equal(t, anomaly.HealthHealthy, second.Status)
}

func TestComputeHealthSnapshot_CountsDetectedAndOpen(t *testing.T) {
	store := seededStore()
	svc := newTestService(store, false)

	snap, err := svc.ComputeHealthSnapshot(context.Background())

	require.NoError(t, err)
	// the duplicate is still fixed; only the missing OUT stays open
	assert.Equal(t, 2, snap.AnomaliesCount)
	assert.Equal(t, 1, snap.OpenAnomaliesCount)
	assert.Equal(t, anomaly.HealthWarning, snap.Status)
	require.Len(t, snap.Anomalies, 1)
	assert.Equal(t, anomaly.KindMissingOut, snap.Anomalies[0].Kind)
}

func TestBuildHealthSnapshot_CapsRecentActivity(t *testing.T) {
	var events []punch.PunchEvent
	for i := 0; i < 15; i++ {
		events = append(events, in(string(rune('a'+i)), string(rune('a'+i)), at(2026, 3, 5, 8, i)))
	}

	snap := BuildHealthSnapshot(anomaly.ScanResult{Events: events}, ist, fixedNow)

	assert.Equal(t, 15, snap.TodayRecordCount)
	assert.Equal(t, 15, snap.ActiveUserCount)
	require.Len(t, snap.RecentActivity, 10)
	assert.Equal(t, at(2026, 3, 5, 8, 14), snap.RecentActivity[0].Time)
	assert.Equal(t, anomaly.HealthHealthy, snap.Status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, anomaly.HealthHealthy, anomaly.StatusFor(0))
	assert.Equal(t, anomaly.HealthWarning, anomaly.StatusFor(1))
	assert.Equal(t, anomaly.HealthWarning, anomaly.StatusFor(5))
	assert.Equal(t, anomaly.HealthCritical, anomaly.StatusFor(6))
}
