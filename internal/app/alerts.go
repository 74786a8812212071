package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/storage"
)

// ListAlerts prints the most recent alert records.
func (a *App) ListAlerts(ctx context.Context, limit int) error {
	if limit <= 0 {
		return errors.New("limit must be greater than zero")
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	renderAlerts(a.Out, records)
	return nil
}

// PruneAlerts removes alert records older than the given age, or the
// configured retention when olderThan is zero.
func (a *App) PruneAlerts(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		olderThan = a.Config.Alerting.Retention
	}
	if olderThan <= 0 {
		return errors.New("retention must be positive")
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cutoff := time.Now().UTC().Add(-olderThan)
	removed, err := store.DeleteAlertsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	a.Logger.Info().Time("cutoff", cutoff).Int64("removed", removed).Msg("alert records pruned")
	fmt.Fprintf(a.Out, "removed %d alert records created before %s\n", removed, cutoff.Format(time.RFC3339))
	return nil
}

func renderAlerts(out io.Writer, records []storage.AlertRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "no alerts recorded")
		return
	}
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Sent\tTicker\tWindow\tScore\tPeople\tValue")
	for _, r := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s..%s\t%.2f\t%d\t%s\n",
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			r.Ticker,
			r.WindowStart.Format(insider.DateLayout),
			r.WindowEnd.Format(insider.DateLayout),
			r.ClusterScore,
			r.NumPeople,
			insider.FormatUSD(r.TotalValue),
		)
	}
	writer.Flush()
}
