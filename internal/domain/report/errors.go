package report

import "errors"

var (
	// ErrExportFailed is the generic, retryable export failure shown to users.
	ErrExportFailed      = errors.New("report export failed, please retry")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
