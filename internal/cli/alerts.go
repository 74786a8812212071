package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	alertsLimit     int
	alertsOlderThan time.Duration
	alertsTicker    string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and maintain the alert history",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Display recently sent alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().ListAlerts(cmd.Context(), alertsLimit)
	},
}

var alertsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete alert records older than the retention period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PruneAlerts(cmd.Context(), alertsOlderThan)
	},
}

var alertsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a synthetic campaign through the configured alert channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), alertsTicker)
	},
}

func init() {
	alertsListCmd.Flags().IntVar(&alertsLimit, "limit", 20, "Number of alerts to display")
	alertsPruneCmd.Flags().DurationVar(&alertsOlderThan, "older-than", 0, "Age cutoff (defaults to alerting.retention)")
	alertsTestCmd.Flags().StringVar(&alertsTicker, "ticker", "TEST", "Ticker shown in the synthetic alert")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsPruneCmd)
	alertsCmd.AddCommand(alertsTestCmd)
}
