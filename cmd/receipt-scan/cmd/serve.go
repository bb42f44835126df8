package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/receipt-scan/internal/service/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [listen-address]",
	Short: "Run the HTTP decode and validate endpoint.",
	Long: `Starts an HTTP server exposing the QR decode pipeline.

  GET  /healthz
  POST /v1/scan/decode    multipart field "image", returns {"url": ...}
  POST /v1/scan/validate  {"raw": "..."}, returns {"url": ...}

Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		// Setup graceful shutdown handling.
		ctx, stop := signalContext()
		defer stop()

		// Use listen address argument if provided, otherwise rely on config.
		var listenAddress string
		if len(args) > 0 {
			listenAddress = args[0]
		}

		options := &server.Options{
			ConfigPath:    configPath,
			ListenAddress: listenAddress,
		}

		return server.Run(ctx, options)
	},
}
