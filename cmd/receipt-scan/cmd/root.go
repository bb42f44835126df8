package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/receipt-scan/internal/config"
	"github.com/oshokin/receipt-scan/internal/logger"
	"github.com/oshokin/receipt-scan/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "receipt-scan",
		Short: "Scan fiscal receipt QR codes and create receipts in the expense tracker.",
		Long: `Turns photos and screenshots of fiscal receipts into receipts stored by the expense tracker backend.

The QR code is located with several rotations and image enhancement passes, checked
against the fiscal portal allow-list and submitted to the backend. When the fiscal
portal is temporarily unavailable the submission is retried on a fixed schedule.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
	}
)

// Execute runs the receipt-scan CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&logLevel, "log-level", "l", config.DefaultLogLevel, "log level: debug, info, warn, error")

	rootCmd.AddCommand(scanCmd, decodeCmd, validateCmd, renderCmd, serveCmd)
}
