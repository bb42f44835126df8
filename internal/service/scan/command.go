package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/receipt-scan/internal/config"
	"github.com/oshokin/receipt-scan/internal/domain/receipt"
	"github.com/oshokin/receipt-scan/internal/domain/scanflow"
	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/service/common"
	"github.com/oshokin/receipt-scan/internal/service/retry"
	"github.com/oshokin/receipt-scan/internal/telemetry"
)

// Options configures a command line scan.
type Options struct {
	// ConfigPath to YAML settings file.
	ConfigPath string
	// ImagePath is the photo or screenshot to scan.
	ImagePath string
	// GroupID optionally assigns the receipt to a shared group.
	GroupID string
	// PaidByID optionally names the member who paid.
	PaidByID string
	// Input delivers control keys while retrying: "r" retries now, "c" cancels.
	Input io.Reader
	// Output receives progress lines and the created receipt.
	Output io.Writer

	// retryOptions are passed to the orchestrator.
	retryOptions []retry.Option
}

// errImagePathRequired is returned when no image was given.
var errImagePathRequired = errors.New("image path must be provided")

// Run scans one image and submits its fiscal URL to the backend, printing
// progress while transient portal failures are retried.
//
//nolint:funlen // Wiring of config, client, telemetry and session reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "scan")

	if opts.ImagePath == "" {
		return errImagePathRequired
	}

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Read the image before touching the backend.
	data, err := os.ReadFile(opts.ImagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	// Build the backend client with timeout, token and rate limit from config.
	client, err := common.NewClient(cfg.BackendURL,
		common.WithCallTimeout(cfg.Timeout),
		common.WithToken(cfg.APIToken),
		common.WithRateLimit(cfg.RateLimit),
	)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	// Metrics are dropped when no statsd agent is configured.
	metrics := telemetry.NewStatsdReporter(ctx, cfg.StatsdAddress)

	defer func() {
		_ = metrics.Close()
	}()

	session := NewSession(client,
		WithPipeline(NewPipeline(WithValidator(fiscalurl.NewValidator(cfg.FiscalHosts...)))),
		WithReporter(telemetry.Multi{telemetry.LogReporter{}, metrics}),
		WithGroup(opts.GroupID, opts.PaidByID),
		WithRetryOptions(opts.retryOptions...),
	)
	defer session.Close()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	unsubscribe := session.Subscribe(func(s scanflow.State) {
		printState(out, s)
	})
	defer unsubscribe()

	// Control keys only matter while retrying; the reader stops with the input.
	if opts.Input != nil {
		go readControls(ctx, opts.Input, session)
	}

	if err = session.Open(); err != nil {
		return err
	}

	if err = session.CameraReady(); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Scanning image", "path", opts.ImagePath, "backend_url", cfg.BackendURL)

	created, err := session.ScanImage(ctx, data, mime.TypeByExtension(strings.ToLower(filepath.Ext(opts.ImagePath))))
	if err != nil {
		return err
	}

	return printReceipt(out, created)
}

// readControls maps input lines to RetryNow and Cancel until the input ends.
func readControls(ctx context.Context, in io.Reader, session *Session) {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "r", "retry":
			if session.RetryNow() {
				logger.Info(ctx, "Retrying now")
			}
		case "c", "cancel":
			session.Cancel()
		}
	}
}

// printState writes a progress line for states worth showing.
func printState(w io.Writer, s scanflow.State) {
	switch st := s.(type) {
	case scanflow.Submitting:
		if st.Attempt > 0 {
			_, _ = fmt.Fprintf(w, "Submitting receipt (attempt %d)...\n", st.Attempt)
		}
	case scanflow.RetryingPortal:
		_, _ = fmt.Fprintf(w,
			"Fiscal portal unavailable, attempt %d of %d in %s. Type r to retry now or c to cancel.\n",
			st.Meta.Attempt, st.Meta.MaxAttempts, st.Meta.NextDelay)
	case scanflow.FailedTerminal:
		_, _ = fmt.Fprintln(w, st.Reason)
	case scanflow.Idle:
		if st.Err != nil {
			_, _ = fmt.Fprintln(w, "Submission cancelled.")
		}
	}
}

func printReceipt(w io.Writer, r *receipt.Receipt) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("print receipt: %w", err)
	}

	return nil
}
