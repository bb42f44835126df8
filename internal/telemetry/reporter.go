package telemetry

import (
	"context"
	"time"

	"github.com/oshokin/receipt-scan/internal/logger"
)

// Attempt describes the outcome of one receipt-creation attempt.
type Attempt struct {
	// Number is the 1-based attempt index.
	Number int
	// Status is the HTTP status of the failure, 0 when there was none.
	Status int
	// Transient reports whether the failure is retried.
	Transient bool
	// Elapsed is how long the attempt took.
	Elapsed time.Duration
	// Err is the failure, nil on success.
	Err error
}

// Reporter receives scan pipeline events.
type Reporter interface {
	// ScanDecoded is called when an image or frame yielded a fiscal URL.
	ScanDecoded(ctx context.Context, url string)
	// AttemptSucceeded is called when an attempt created the receipt.
	AttemptSucceeded(ctx context.Context, attempt Attempt)
	// AttemptFailed is called for every failed attempt, transient or not.
	AttemptFailed(ctx context.Context, attempt Attempt)
	// RecoverableError is called when the user sees a recoverable error code.
	RecoverableError(ctx context.Context, code string)
}

// Nop discards every event.
type Nop struct{}

// ScanDecoded implements Reporter.
func (Nop) ScanDecoded(context.Context, string) {}

// AttemptSucceeded implements Reporter.
func (Nop) AttemptSucceeded(context.Context, Attempt) {}

// AttemptFailed implements Reporter.
func (Nop) AttemptFailed(context.Context, Attempt) {}

// RecoverableError implements Reporter.
func (Nop) RecoverableError(context.Context, string) {}

// Multi fans events out to several reporters in order.
type Multi []Reporter

// ScanDecoded implements Reporter.
func (m Multi) ScanDecoded(ctx context.Context, url string) {
	for _, r := range m {
		r.ScanDecoded(ctx, url)
	}
}

// AttemptSucceeded implements Reporter.
func (m Multi) AttemptSucceeded(ctx context.Context, attempt Attempt) {
	for _, r := range m {
		r.AttemptSucceeded(ctx, attempt)
	}
}

// AttemptFailed implements Reporter.
func (m Multi) AttemptFailed(ctx context.Context, attempt Attempt) {
	for _, r := range m {
		r.AttemptFailed(ctx, attempt)
	}
}

// RecoverableError implements Reporter.
func (m Multi) RecoverableError(ctx context.Context, code string) {
	for _, r := range m {
		r.RecoverableError(ctx, code)
	}
}

// guarded recovers panics raised by the wrapped reporter.
type guarded struct {
	next Reporter
}

// Guard wraps r so that a panicking reporter is logged and otherwise ignored.
// A nil r yields Nop.
func Guard(r Reporter) Reporter {
	if r == nil {
		return Nop{}
	}

	if g, ok := r.(guarded); ok {
		return g
	}

	return guarded{next: r}
}

// ScanDecoded implements Reporter.
func (g guarded) ScanDecoded(ctx context.Context, url string) {
	defer recoverReport(ctx, "scan_decoded")

	g.next.ScanDecoded(ctx, url)
}

// AttemptSucceeded implements Reporter.
func (g guarded) AttemptSucceeded(ctx context.Context, attempt Attempt) {
	defer recoverReport(ctx, "attempt_succeeded")

	g.next.AttemptSucceeded(ctx, attempt)
}

// AttemptFailed implements Reporter.
func (g guarded) AttemptFailed(ctx context.Context, attempt Attempt) {
	defer recoverReport(ctx, "attempt_failed")

	g.next.AttemptFailed(ctx, attempt)
}

// RecoverableError implements Reporter.
func (g guarded) RecoverableError(ctx context.Context, code string) {
	defer recoverReport(ctx, "recoverable_error")

	g.next.RecoverableError(ctx, code)
}

func recoverReport(ctx context.Context, event string) {
	if r := recover(); r != nil {
		logger.WarnKV(ctx, "Telemetry reporter panicked", "event", event, "panic", r)
	}
}
