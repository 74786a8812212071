package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourdesigncoza/get-insider-db/internal/app"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

var (
	backfillFrom    string
	backfillTo      string
	backfillStep    time.Duration
	backfillDryRun  bool
	backfillWorkers int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay past scans and seed the alert history",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := time.Parse(insider.DateLayout, backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := time.Parse(insider.DateLayout, backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if to.Before(from) {
			return fmt.Errorf("--from must not be after --to")
		}

		opts := app.BackfillOptions{
			From:    from,
			To:      to,
			Step:    backfillStep,
			DryRun:  backfillDryRun,
			Workers: backfillWorkers,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	addClusterFlags(backfillCmd)
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "First as-of date (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Last as-of date (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().DurationVar(&backfillStep, "step", 7*24*time.Hour, "Distance between as-of dates")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Count qualifying campaigns without writing alerts")
	backfillCmd.Flags().IntVar(&backfillWorkers, "workers", 2, "Number of concurrent scans")
}
