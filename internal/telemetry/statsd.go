package telemetry

import (
	"context"
	"strconv"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/oshokin/receipt-scan/internal/logger"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "receipt_scan."

	metricScanDecoded      = "scan.decoded"
	metricAttemptSucceeded = "attempt.succeeded"
	metricAttemptFailed    = "attempt.failed"
	metricAttemptDuration  = "attempt.duration"
	metricRecoverableError = "recoverable_error"

	sampleRate = 1.0
)

// StatsdReporter sends events to a DogStatsD agent. The client buffers and
// sends over UDP, so reporting never waits for the agent.
type StatsdReporter struct {
	// client is the DogStatsD client or a no-op stand-in.
	client statsd.ClientInterface
}

// NewStatsdReporter connects to the agent at address. An empty address, or
// one the client cannot use, yields a reporter that drops every metric.
func NewStatsdReporter(ctx context.Context, address string, tags ...string) *StatsdReporter {
	if address == "" {
		return &StatsdReporter{client: &statsd.NoOpClient{}}
	}

	c, err := statsd.New(address)
	if err != nil {
		logger.WarnKV(ctx, "Failed connecting to statsd agent, metrics will noop",
			"address", address,
			"error", err,
		)

		return &StatsdReporter{client: &statsd.NoOpClient{}}
	}

	c.Namespace = Namespace
	c.Tags = tags

	logger.DebugKV(ctx, "Connected to statsd agent", "address", address)

	return &StatsdReporter{client: c}
}

// NewStatsdReporterWithClient uses an existing client as is.
func NewStatsdReporterWithClient(client statsd.ClientInterface) *StatsdReporter {
	if client == nil {
		client = &statsd.NoOpClient{}
	}

	return &StatsdReporter{client: client}
}

// Close flushes and closes the client.
func (s *StatsdReporter) Close() error {
	return s.client.Close()
}

// ScanDecoded implements Reporter.
func (s *StatsdReporter) ScanDecoded(ctx context.Context, _ string) {
	s.observe(ctx, metricScanDecoded, s.client.Incr(metricScanDecoded, nil, sampleRate))
}

// AttemptSucceeded implements Reporter.
func (s *StatsdReporter) AttemptSucceeded(ctx context.Context, attempt Attempt) {
	tags := []string{attemptTag(attempt.Number)}

	s.observe(ctx, metricAttemptSucceeded, s.client.Incr(metricAttemptSucceeded, tags, sampleRate))
	s.observe(ctx, metricAttemptDuration, s.client.Timing(metricAttemptDuration, attempt.Elapsed, tags, sampleRate))
}

// AttemptFailed implements Reporter.
func (s *StatsdReporter) AttemptFailed(ctx context.Context, attempt Attempt) {
	tags := []string{
		attemptTag(attempt.Number),
		"transient:" + strconv.FormatBool(attempt.Transient),
		"status:" + strconv.Itoa(attempt.Status),
	}

	s.observe(ctx, metricAttemptFailed, s.client.Incr(metricAttemptFailed, tags, sampleRate))
	s.observe(ctx, metricAttemptDuration, s.client.Timing(metricAttemptDuration, attempt.Elapsed, tags, sampleRate))
}

// RecoverableError implements Reporter.
func (s *StatsdReporter) RecoverableError(ctx context.Context, code string) {
	s.observe(ctx, metricRecoverableError, s.client.Incr(metricRecoverableError, []string{"code:" + code}, sampleRate))
}

func (s *StatsdReporter) observe(ctx context.Context, metric string, err error) {
	if err != nil {
		logger.DebugKV(ctx, "Failed to send metric", "metric", metric, "error", err)
	}
}

func attemptTag(n int) string {
	return "attempt:" + strconv.Itoa(n)
}
