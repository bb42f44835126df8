package retry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/receipt-scan/internal/domain/receipt"
	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/telemetry"
)

// DefaultSchedule is the delay before each attempt; attempt 1 fires at once.
//
//nolint:gochecknoglobals // Fixed retry schedule.
var DefaultSchedule = []time.Duration{
	0,
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	20 * time.Second,
	30 * time.Second,
	40 * time.Second,
}

// Creator performs one receipt-creation call.
type Creator interface {
	CreateReceipt(ctx context.Context, req receipt.CreateRequest) (*receipt.Receipt, error)
}

// Flow is the part of the scan flow machine driven by the orchestrator.
type Flow interface {
	Attempt(n int) error
	Retrying(meta scanflow.RetryMeta) error
	Succeed(r *receipt.Receipt) error
	Fail(reason string, err error) error
	Reset(err error)
}

// Signal resolves a pending retry wait.
type Signal int

const (
	// SignalElapsed means the scheduled delay ran out.
	SignalElapsed Signal = iota
	// SignalRetryNow means the user asked to retry immediately.
	SignalRetryNow
	// SignalCancel means the user cancelled the submission.
	SignalCancel
)

// Orchestrator runs one submission at a time against a Creator.
type Orchestrator struct {
	// creator is the backend creation call.
	creator Creator
	// flow receives every state change.
	flow Flow
	// schedule holds the delay before each attempt.
	schedule []time.Duration
	// reporter receives attempt outcomes.
	reporter telemetry.Reporter

	// running guards against re-entrant submissions.
	running atomic.Bool
	// cancelled is set before a cancel signal is delivered.
	cancelled atomic.Bool

	// pending is the single wait resolver slot, nil when nothing waits.
	pending chan Signal
	// mu protects pending.
	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSchedule replaces the delay schedule. Its length is the attempt budget.
func WithSchedule(delays ...time.Duration) Option {
	return func(o *Orchestrator) {
		if len(delays) > 0 {
			o.schedule = append([]time.Duration(nil), delays...)
		}
	}
}

// WithReporter sets the telemetry reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(o *Orchestrator) {
		o.reporter = telemetry.Guard(r)
	}
}

// New creates an orchestrator driving flow with calls to creator.
func New(creator Creator, flow Flow, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		creator:  creator,
		flow:     flow,
		schedule: DefaultSchedule,
		reporter: telemetry.Nop{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// MaxAttempts returns the attempt budget of a submission.
func (o *Orchestrator) MaxAttempts() int {
	return len(o.schedule)
}

// Submit creates the receipt, retrying transient failures on the schedule.
// The flow must be in Submitting. Submit fails with a *TerminalError, an error
// wrapping ErrRetriesExhausted, or a RETRY_CANCELLED recoverable error.
func (o *Orchestrator) Submit(ctx context.Context, req receipt.CreateRequest) (*receipt.Receipt, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	defer o.running.Store(false)

	o.cancelled.Store(false)

	ctx = logger.WithKV(logger.WithName(ctx, "retry"), "idempotency_key", req.IdempotencyKey.String())

	var lastErr error

	for attempt := 1; attempt <= len(o.schedule); attempt++ {
		if o.cancelled.Load() {
			return nil, o.abort(ctx, attempt)
		}

		if attempt > 1 {
			meta := scanflow.RetryMeta{
				Attempt:     attempt,
				MaxAttempts: len(o.schedule),
				NextDelay:   o.schedule[attempt-1],
				StartedAt:   time.Now(),
			}

			if err := o.flow.Retrying(meta); err != nil {
				return nil, o.interrupted(ctx, attempt, err)
			}

			if o.wait(ctx, meta.NextDelay) == SignalCancel {
				return nil, o.abort(ctx, attempt)
			}
		}

		if err := o.flow.Attempt(attempt); err != nil {
			return nil, o.interrupted(ctx, attempt, err)
		}

		started := time.Now()
		created, err := o.creator.CreateReceipt(ctx, req)
		outcome := telemetry.Attempt{
			Number:  attempt,
			Elapsed: time.Since(started),
			Err:     err,
		}

		if err == nil {
			o.reporter.AttemptSucceeded(ctx, outcome)

			if flowErr := o.flow.Succeed(created); flowErr != nil {
				logger.WarnKV(ctx, "Receipt created after the scan flow moved on",
					"attempt", attempt,
					"error", flowErr,
				)
			}

			return created, nil
		}

		if ctx.Err() != nil {
			return nil, o.abort(ctx, attempt)
		}

		outcome.Status, _ = StatusOf(err)
		outcome.Transient = IsTransient(err)
		o.reporter.AttemptFailed(ctx, outcome)

		if !outcome.Transient {
			terminal := &TerminalError{
				Attempt: attempt,
				Status:  outcome.Status,
				Err:     err,
			}

			o.fail(ctx, ReasonRejected, terminal)

			return nil, terminal
		}

		lastErr = err
	}

	exhausted := fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, len(o.schedule), lastErr)
	o.fail(ctx, ReasonPortalUnavailable, exhausted)

	return nil, exhausted
}

// RetryNow ends the pending wait early. It reports whether a wait was
// pending; extra calls are no-ops.
func (o *Orchestrator) RetryNow() bool {
	return o.resolve(SignalRetryNow)
}

// Cancel aborts the current submission. A pending wait ends at once; an
// in-flight attempt finishes and no further attempt starts. It reports
// whether a wait was pending.
func (o *Orchestrator) Cancel() bool {
	o.cancelled.Store(true)

	return o.resolve(SignalCancel)
}

// Busy reports whether a submission is in progress.
func (o *Orchestrator) Busy() bool {
	return o.running.Load()
}

// wait blocks until the delay elapses or a signal arrives. A done context
// counts as cancel.
func (o *Orchestrator) wait(ctx context.Context, delay time.Duration) Signal {
	signals := o.arm()
	defer o.disarm(signals)

	// Cancel may have landed between the loop check and arming the slot.
	if o.cancelled.Load() {
		return SignalCancel
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return SignalElapsed
	case sig := <-signals:
		return sig
	case <-ctx.Done():
		o.cancelled.Store(true)

		return SignalCancel
	}
}

func (o *Orchestrator) arm() chan Signal {
	signals := make(chan Signal, 1)

	o.mu.Lock()
	o.pending = signals
	o.mu.Unlock()

	return signals
}

func (o *Orchestrator) disarm(signals chan Signal) {
	o.mu.Lock()
	if o.pending == signals {
		o.pending = nil
	}
	o.mu.Unlock()
}

// resolve delivers sig to the pending wait and clears the slot.
func (o *Orchestrator) resolve(sig Signal) bool {
	o.mu.Lock()
	signals := o.pending
	o.pending = nil
	o.mu.Unlock()

	if signals == nil {
		return false
	}

	signals <- sig

	return true
}

// abort resets the flow with RETRY_CANCELLED and returns that error.
func (o *Orchestrator) abort(ctx context.Context, attempt int) error {
	cancelled := scanflow.NewRecoverable(scanflow.CodeRetryCancelled, "Receipt submission was cancelled.")

	logger.InfoKV(ctx, "Receipt submission cancelled", "attempt", attempt)
	o.reporter.RecoverableError(ctx, string(cancelled.Code))
	o.flow.Reset(cancelled)

	return cancelled
}

// interrupted handles a rejected transition, which means the session was
// closed or reset underneath the submission.
func (o *Orchestrator) interrupted(ctx context.Context, attempt int, err error) error {
	if o.cancelled.Load() {
		return o.abort(ctx, attempt)
	}

	logger.WarnKV(ctx, "Submission interrupted by scan flow", "attempt", attempt, "error", err)

	return fmt.Errorf("attempt %d: %w", attempt, err)
}

func (o *Orchestrator) fail(ctx context.Context, reason string, err error) {
	if flowErr := o.flow.Fail(reason, err); flowErr != nil {
		logger.WarnKV(ctx, "Failed to record terminal failure", "error", flowErr)
	}
}
