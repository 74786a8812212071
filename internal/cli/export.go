package cli

import (
	"github.com/spf13/cobra"

	"github.com/yourdesigncoza/get-insider-db/internal/app"
)

var (
	exportTicker  string
	exportPNGPath string
	exportCSVPath string
	exportMaxRows int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ranked campaigns as CSV and/or a PNG score chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), app.ExportOptions{
			Ticker:  exportTicker,
			PNGPath: exportPNGPath,
			CSVPath: exportCSVPath,
			MaxRows: exportMaxRows,
		})
	},
}

func init() {
	addClusterFlags(exportCmd)
	exportCmd.Flags().StringVar(&exportTicker, "ticker", "", "Restrict the export to one ticker")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxRows, "max-rows", 0, "Maximum campaigns to export (defaults to config)")
}
