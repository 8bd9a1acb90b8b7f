package anomaly

import "context"

// Service runs the best-effort detection pass. Nothing on the summary read
// path depends on it.
type Service interface {
	// Scan detects anomalies in the recent window and appends corrections for
	// the resolvable ones. Correction failures are logged, not returned.
	Scan(ctx context.Context) (ScanResult, error)

	// ComputeHealthSnapshot runs a scan and summarizes the window.
	ComputeHealthSnapshot(ctx context.Context) (HealthSnapshot, error)
}

// NoticePublisher is told about every completed scan, scheduled or manual.
type NoticePublisher interface {
	PublishScanNotice(notice ScanNotice)
}
