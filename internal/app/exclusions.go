package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jackc/pgx/v5"

	"github.com/yourdesigncoza/get-insider-db/internal/exclusion"
)

// ListExclusions prints exclusion rules; inactive ones only when all is set.
func (a *App) ListExclusions(ctx context.Context, all bool) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rules, err := store.ListExclusions(ctx, !all)
	if err != nil {
		return err
	}
	renderExclusions(a.Out, rules)
	return nil
}

// AddExclusion stores a new active rule and prints it.
func (a *App) AddExclusion(ctx context.Context, pattern, reason string) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rule, err := store.AddExclusion(ctx, pattern, reason)
	if err != nil {
		return err
	}
	a.Logger.Info().Int64("id", rule.ID).Str("pattern", rule.Pattern).Msg("exclusion added")
	renderExclusions(a.Out, []exclusion.Rule{rule})
	return nil
}

// SetExclusionActive activates or deactivates the rule with the given id.
func (a *App) SetExclusionActive(ctx context.Context, id int64, active bool) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.SetExclusionActive(ctx, id, active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("exclusion %d not found", id)
		}
		return err
	}
	a.Logger.Info().Int64("id", id).Bool("active", active).Msg("exclusion updated")
	return nil
}

func renderExclusions(out io.Writer, rules []exclusion.Rule) {
	if len(rules) == 0 {
		fmt.Fprintln(out, "no exclusion rules")
		return
	}
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tActive\tPattern\tReason\tCreated")
	for _, r := range rules {
		fmt.Fprintf(writer, "%d\t%t\t%s\t%s\t%s\n",
			r.ID, r.Active, sanitizeInline(r.Pattern), sanitizeInline(r.Reason),
			r.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	writer.Flush()
}
