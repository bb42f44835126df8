package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/receipt-scan/internal/fiscalurl"
	"github.com/oshokin/receipt-scan/internal/service/scan"
)

var (
	// renderSize is the edge of the rendered PNG in pixels.
	renderSize int

	renderCmd = &cobra.Command{
		Use:   "render <url> <out.png>",
		Short: "Write a QR code PNG for a fiscal URL.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return scan.RunRender(cmd.Context(), &scan.RenderOptions{
				Content:     args[0],
				OutputPath:  args[1],
				Size:        renderSize,
				FiscalHosts: fiscalHosts,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	renderCmd.Flags().IntVarP(&renderSize, "size", "s", scan.DefaultRenderSize, "image edge in pixels")
	renderCmd.Flags().StringSliceVar(&fiscalHosts, "fiscal-host", nil, "allowed fiscal portal host (default "+fiscalurl.DefaultHost+")")
}
