package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/yourdesigncoza/get-insider-db/internal/classify"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
)

// ShowEntity prints the cached classification for a party name.
func (a *App) ShowEntity(ctx context.Context, name string) error {
	key := insider.NormalizeName(name)
	if key == "" {
		return classify.ErrEmptyName
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	c, found, err := store.GetClassification(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(a.Out, "no classification cached for %q\n", key)
		return nil
	}
	renderClassification(a.Out, c)
	return nil
}

// SetEntity records a manual classification that replaces any cached one.
func (a *App) SetEntity(ctx context.Context, opts EntityOptions) error {
	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	in := classify.Input{Name: opts.Name, CIK: strings.TrimSpace(opts.CIK)}
	c, err := a.newClassifier(store).Override(ctx, in, classify.EntityType(opts.EntityType), opts.FundLike, opts.Rationale)
	if err != nil {
		return err
	}
	a.Logger.Info().Str("party", c.PartyKey).Str("entity_type", string(c.EntityType)).Msg("classification overridden")
	renderClassification(a.Out, c)
	return nil
}

// InvalidateEntity drops the cached classification so the next scan recomputes it.
func (a *App) InvalidateEntity(ctx context.Context, name string) error {
	key := insider.NormalizeName(name)
	if key == "" {
		return classify.ErrEmptyName
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	removed, err := a.newClassifier(store).Invalidate(ctx, key)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(a.Out, "no classification cached for %q\n", key)
		return nil
	}
	fmt.Fprintf(a.Out, "classification for %q removed\n", key)
	return nil
}

func renderClassification(out io.Writer, c classify.Classification) {
	fmt.Fprintf(out, "party:       %s\n", c.PartyKey)
	if c.PartyCIK != "" {
		fmt.Fprintf(out, "cik:         %s\n", c.PartyCIK)
	}
	fmt.Fprintf(out, "entity type: %s\n", c.EntityType)
	fmt.Fprintf(out, "fund-like:   %t\n", c.IsFundLike)
	fmt.Fprintf(out, "source:      %s (confidence %.2f)\n", c.Source, c.Confidence)
	if c.Rationale != "" {
		fmt.Fprintf(out, "rationale:   %s\n", sanitizeInline(c.Rationale))
	}
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "updated:     %s\n", c.UpdatedAt.UTC().Format("2006-01-02 15:04"))
	}
}
