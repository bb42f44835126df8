package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/receipt-scan/internal/service/scan"
)

var (
	// groupID assigns scanned receipts to a shared group.
	groupID string
	// paidByID names the group member who paid.
	paidByID string

	scanCmd = &cobra.Command{
		Use:   "scan <image>",
		Short: "Scan a receipt image and create the receipt.",
		Long: `Decodes the fiscal QR code in the image and creates the receipt through the backend.

While the fiscal portal is unavailable the command waits between attempts.
Type r and Enter to retry at once, or c and Enter to cancel.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			options := &scan.Options{
				ConfigPath: configPath,
				ImagePath:  args[0],
				GroupID:    groupID,
				PaidByID:   paidByID,
				Input:      os.Stdin,
				Output:     cmd.OutOrStdout(),
			}

			return scan.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	scanCmd.Flags().StringVarP(&groupID, "group", "g", "", "shared expense group id")
	scanCmd.Flags().StringVarP(&paidByID, "paid-by", "p", "", "id of the group member who paid")
}
