package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"

	api "github.com/oshokin/receipt-scan/internal/api/http/scan"
	"github.com/oshokin/receipt-scan/internal/config"
	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/service/scan"
	"github.com/oshokin/receipt-scan/internal/telemetry"
)

// Options controls the scan server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the HTTP server.
	ListenAddress string

	// ready, when set, receives the bound address once the server listens.
	ready chan<- string
}

const (
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 10 * time.Second
)

// Run starts the HTTP server and blocks until context is canceled or server stops.
// Loads configuration first, then determines listen address from config or override.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "scan-server")

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Determine listen address: CLI argument overrides config.
	listenAddress := resolveListenAddress(settings.ListenAddress, opts.ListenAddress)

	// Metrics are dropped when no statsd agent is configured.
	metrics := telemetry.NewStatsdReporter(ctx, settings.StatsdAddress, "component:server")

	defer func() {
		_ = metrics.Close()
	}()

	pipeline := scan.NewPipeline(scan.WithValidator(fiscalurl.NewValidator(settings.FiscalHosts...)))
	svc := newService(pipeline, telemetry.Multi{telemetry.LogReporter{}, metrics})

	// Setup TCP listener for the HTTP server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Gin's debug output only helps while debugging.
	if logger.Level() > zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	httpServer := &http.Server{
		Handler:           api.NewServer(svc).Router(ctx),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.InfoKV(ctx, "Scan server listening",
		"listen_address", lis.Addr().String(),
		"fiscal_hosts", settings.FiscalHosts,
	)

	if opts.ready != nil {
		opts.ready <- lis.Addr().String()
	}

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// resolveListenAddress picks the override, then the configured address,
// then the default.
func resolveListenAddress(configAddr, override string) string {
	if override != "" {
		return override
	}

	if configAddr != "" {
		return configAddr
	}

	return config.DefaultListenAddress
}
