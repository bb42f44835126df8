package scan

import (
	"context"
	"errors"
	"image"

	"github.com/oshokin/receipt-scan/internal/domain/receipt"
	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/qr"
	"github.com/oshokin/receipt-scan/internal/service/retry"
	"github.com/oshokin/receipt-scan/internal/telemetry"
)

// Session is one scan-to-receipt interaction. Its machine is the only
// source of truth for the UI; the session and its orchestrator are the only
// writers.
type Session struct {
	// machine holds the observable flow state.
	machine *scanflow.Machine
	// pipeline decodes and validates codes.
	pipeline *Pipeline
	// orchestrator submits validated URLs.
	orchestrator *retry.Orchestrator
	// reporter receives scan events.
	reporter telemetry.Reporter

	// groupID and paidByID are attached to every created receipt.
	groupID  string
	paidByID string
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

// sessionConfig collects options before the session is assembled.
type sessionConfig struct {
	pipeline     *Pipeline
	reporter     telemetry.Reporter
	retryOptions []retry.Option
	groupID      string
	paidByID     string
}

// WithPipeline replaces the decode pipeline.
func WithPipeline(p *Pipeline) SessionOption {
	return func(c *sessionConfig) {
		if p != nil {
			c.pipeline = p
		}
	}
}

// WithReporter sets the telemetry reporter shared with the orchestrator.
func WithReporter(r telemetry.Reporter) SessionOption {
	return func(c *sessionConfig) {
		c.reporter = r
	}
}

// WithRetryOptions passes options to the orchestrator.
func WithRetryOptions(opts ...retry.Option) SessionOption {
	return func(c *sessionConfig) {
		c.retryOptions = append(c.retryOptions, opts...)
	}
}

// WithGroup assigns created receipts to a group and its paying member.
func WithGroup(groupID, paidByID string) SessionOption {
	return func(c *sessionConfig) {
		c.groupID = groupID
		c.paidByID = paidByID
	}
}

// NewSession creates an idle session submitting through creator.
func NewSession(creator retry.Creator, opts ...SessionOption) *Session {
	cfg := &sessionConfig{
		reporter: telemetry.Nop{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.pipeline == nil {
		cfg.pipeline = NewPipeline()
	}

	reporter := telemetry.Guard(cfg.reporter)
	machine := scanflow.NewMachine()
	retryOptions := append([]retry.Option{retry.WithReporter(reporter)}, cfg.retryOptions...)

	return &Session{
		machine:      machine,
		pipeline:     cfg.pipeline,
		orchestrator: retry.New(creator, machine, retryOptions...),
		reporter:     reporter,
		groupID:      cfg.groupID,
		paidByID:     cfg.paidByID,
	}
}

// Open starts the camera. It is also how a finished session is restarted.
func (s *Session) Open() error {
	return s.machine.Open()
}

// CameraReady starts scanning.
func (s *Session) CameraReady() error {
	return s.machine.Ready()
}

// ScanImage decodes a gallery image and submits its code. Decode failures
// leave the session scanning.
func (s *Session) ScanImage(ctx context.Context, data []byte, contentType string) (*receipt.Receipt, error) {
	raw, err := s.pipeline.Decode(ctx, data, contentType)
	if err != nil {
		return nil, s.decodeFailed(ctx, err)
	}

	return s.SubmitCode(ctx, raw)
}

// ScanFrame decodes a camera frame and submits its code.
func (s *Session) ScanFrame(ctx context.Context, frame image.Image) (*receipt.Receipt, error) {
	raw, err := s.pipeline.DecodeFrame(ctx, frame)
	if err != nil {
		return nil, s.decodeFailed(ctx, err)
	}

	return s.SubmitCode(ctx, raw)
}

// SubmitCode validates a decoded string and, when it is a fiscal URL,
// submits it. A non-fiscal code returns the session to scanning with a
// NON_FISCAL_QR notice and no network call.
func (s *Session) SubmitCode(ctx context.Context, raw string) (*receipt.Receipt, error) {
	ctx = logger.WithName(ctx, "scan")

	// A code scanned while a submission runs must not disturb its state.
	if s.orchestrator.Busy() {
		return nil, retry.ErrBusy
	}

	if err := s.machine.CodeFound(); err != nil {
		return nil, err
	}

	valid, err := s.pipeline.Validate(raw)
	if err != nil {
		s.reporter.RecoverableError(ctx, string(scanflow.CodeNonFiscalQR))
		logger.InfoKV(ctx, "Rejected non-fiscal QR code", "code", raw)

		if rejectErr := s.machine.Reject(err); rejectErr != nil {
			return nil, errors.Join(err, rejectErr)
		}

		return nil, err
	}

	s.reporter.ScanDecoded(ctx, valid)

	return s.orchestrator.Submit(ctx, receipt.NewCreateRequest(valid, s.groupID, s.paidByID))
}

// RetryNow skips the remaining retry delay. Extra calls are no-ops.
func (s *Session) RetryNow() bool {
	return s.orchestrator.RetryNow()
}

// Cancel aborts a running submission or stops scanning. A submission being
// retried ends in Idle with RETRY_CANCELLED; terminal states are left alone.
func (s *Session) Cancel() {
	if s.orchestrator.Busy() {
		s.orchestrator.Cancel()

		return
	}

	if s.machine.Current().Kind().Terminal() {
		return
	}

	s.machine.Reset(nil)
}

// Close tears the session down, resolving any pending wait with cancel.
func (s *Session) Close() {
	s.orchestrator.Cancel()
	s.machine.Reset(nil)
}

// State returns the current flow state.
func (s *Session) State() scanflow.State {
	return s.machine.Current()
}

// Subscribe registers fn for state changes and returns its remover.
func (s *Session) Subscribe(fn func(scanflow.State)) func() {
	return s.machine.Subscribe(fn)
}

// decodeFailed reports input errors; they never change the flow state.
func (s *Session) decodeFailed(ctx context.Context, err error) error {
	if code := qr.Code(err); code != "" {
		s.reporter.RecoverableError(ctx, code)
		logger.InfoKV(ctx, "Image rejected", "code", code)
	}

	return err
}
