package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddJobValidation(t *testing.T) {
	s := NewScheduler()

	assert.Error(t, s.AddJob(Job{Name: "", Interval: time.Second, Fn: func(context.Context) error { return nil }}))
	assert.Error(t, s.AddJob(Job{Name: "no-fn", Interval: time.Second}))
	assert.Error(t, s.AddJob(Job{Name: "zero", Fn: func(context.Context) error { return nil }}))
	assert.NoError(t, s.AddJob(Job{Name: "ok", Interval: time.Second, Fn: func(context.Context) error { return nil }}))
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.AddJob(Job{Name: "tick", Interval: time.Hour, Fn: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}}))

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_RunOnceJoinsErrors(t *testing.T) {
	s := NewScheduler()
	boom := errors.New("boom")
	require.NoError(t, s.AddJob(Job{Name: "fails", Interval: time.Minute, Fn: func(context.Context) error { return boom }}))
	require.NoError(t, s.AddJob(Job{Name: "works", Interval: time.Minute, Fn: func(context.Context) error { return nil }}))

	err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fails")
}

func TestScheduler_TimeoutBoundsRun(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.AddJob(Job{Name: "slow", Interval: time.Minute, Timeout: 10 * time.Millisecond, Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type stubAnomalyService struct {
	result anomaly.ScanResult
	err    error
	scans  atomic.Int32
}

func (s *stubAnomalyService) Scan(context.Context) (anomaly.ScanResult, error) {
	s.scans.Add(1)
	return s.result, s.err
}

func (s *stubAnomalyService) ComputeHealthSnapshot(context.Context) (anomaly.HealthSnapshot, error) {
	return anomaly.HealthSnapshot{}, nil
}

func TestAnomalyJobs_ScanAnomalies(t *testing.T) {
	svc := &stubAnomalyService{result: anomaly.ScanResult{
		Events:    []punch.PunchEvent{{ID: "e1"}},
		Anomalies: []anomaly.Anomaly{{UserID: "u1", Kind: anomaly.KindMissingOut}},
	}}
	s := NewScheduler()
	require.NoError(t, NewAnomalyJobs(svc, 15*time.Minute).RegisterJobs(s))

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), svc.scans.Load())
}

func TestAnomalyJobs_ReportsReadFailure(t *testing.T) {
	svc := &stubAnomalyService{err: punch.ErrDataUnavailable}
	jobs := NewAnomalyJobs(svc, time.Minute)

	err := jobs.ScanAnomalies(context.Background())

	assert.ErrorIs(t, err, punch.ErrDataUnavailable)
}
