package telemetry

import (
	"context"

	"github.com/oshokin/receipt-scan/internal/logger"
)

// LogReporter writes events to the context logger.
type LogReporter struct{}

// ScanDecoded implements Reporter.
func (LogReporter) ScanDecoded(ctx context.Context, url string) {
	logger.InfoKV(ctx, "Fiscal QR code decoded", "url", url)
}

// AttemptSucceeded implements Reporter.
func (LogReporter) AttemptSucceeded(ctx context.Context, attempt Attempt) {
	logger.InfoKV(ctx, "Receipt created",
		"attempt", attempt.Number,
		"elapsed", attempt.Elapsed,
	)
}

// AttemptFailed implements Reporter. Transient failures log at warn level,
// terminal ones at error level.
func (LogReporter) AttemptFailed(ctx context.Context, attempt Attempt) {
	kvs := []any{
		"attempt", attempt.Number,
		"status", attempt.Status,
		"transient", attempt.Transient,
		"elapsed", attempt.Elapsed,
		"error", attempt.Err,
	}

	if attempt.Transient {
		logger.WarnKV(ctx, "Receipt creation attempt failed", kvs...)

		return
	}

	logger.ErrorKV(ctx, "Receipt creation failed", kvs...)
}

// RecoverableError implements Reporter.
func (LogReporter) RecoverableError(ctx context.Context, code string) {
	logger.InfoKV(ctx, "Recoverable scan error", "code", code)
}
