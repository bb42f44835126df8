package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/service/scan"
)

var (
	// fiscalHosts overrides the fiscal host allow-list of offline commands.
	fiscalHosts []string

	decodeCmd = &cobra.Command{
		Use:   "decode <image>",
		Short: "Print the fiscal URL found in an image without contacting the backend.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return scan.RunDecode(ctx, &scan.DecodeOptions{
				ImagePath:   args[0],
				FiscalHosts: fiscalHosts,
				Output:      cmd.OutOrStdout(),
			})
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate <url>",
		Short: "Check that a scanned string is an allowed fiscal portal URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scan.RunValidate(cmd.Context(), &scan.DecodeOptions{
				Raw:         args[0],
				FiscalHosts: fiscalHosts,
				Output:      cmd.OutOrStdout(),
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{decodeCmd, validateCmd} {
		c.Flags().StringSliceVar(&fiscalHosts, "fiscal-host", nil, "allowed fiscal portal host (default "+fiscalurl.DefaultHost+")")
	}
}
