package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"
)

const anomalyScanJob = "attendance_anomaly_scan"

// AnomalyJobs runs the anomaly detector in the background. The service
// publishes each pass to its notice publisher.
type AnomalyJobs struct {
	anomalyService anomaly.Service
	interval       time.Duration
}

func NewAnomalyJobs(anomalyService anomaly.Service, interval time.Duration) *AnomalyJobs {
	return &AnomalyJobs{
		anomalyService: anomalyService,
		interval:       interval,
	}
}

func (j *AnomalyJobs) RegisterJobs(scheduler *Scheduler) error {
	return scheduler.AddJob(Job{
		Name:     anomalyScanJob,
		Interval: j.interval,
		Fn:       j.ScanAnomalies,
	})
}

// ScanAnomalies runs one detection pass. Per-correction failures are already
// swallowed by the detector; only a failed read is reported here.
func (j *AnomalyJobs) ScanAnomalies(ctx context.Context) error {
	result, err := j.anomalyService.Scan(ctx)
	if err != nil {
		return fmt.Errorf("anomaly scan failed: %w", err)
	}

	if len(result.Anomalies) == 0 {
		slog.Debug("Cron: No attendance anomalies found", "events", len(result.Events))
		return nil
	}

	slog.Info("Cron: Attendance anomaly scan completed",
		"events", len(result.Events),
		"anomalies", len(result.Anomalies),
		"corrections", len(result.Corrections),
		"failures", result.Failures,
	)
	return nil
}
