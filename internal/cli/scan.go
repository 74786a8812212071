package cli

import (
	"github.com/spf13/cobra"

	"github.com/yourdesigncoza/get-insider-db/internal/app"
)

var (
	scanTicker string
	scanDetail bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Detect and rank insider cluster-buy campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), app.ScanOptions{
			Ticker: scanTicker,
			Detail: scanDetail,
		})
	},
}

func init() {
	addClusterFlags(scanCmd)
	scanCmd.Flags().StringVar(&scanTicker, "ticker", "", "Restrict the scan to one ticker")
	scanCmd.Flags().BoolVar(&scanDetail, "detail", false, "List the people and funds of each campaign")
}
