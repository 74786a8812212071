package app

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/pipeline"
	"github.com/yourdesigncoza/get-insider-db/internal/storage"
)

const defaultBackfillStep = 7 * 24 * time.Hour

// Backfill replays scans at past as-of dates and seeds the alert history so
// that watch does not re-announce campaigns that were already visible.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	step := opts.Step
	if step <= 0 {
		step = defaultBackfillStep
	}
	if step < 24*time.Hour {
		return errors.New("backfill step must be at least one day")
	}

	dates := backfillDates(opts.From, opts.To, step)
	if len(dates) == 0 {
		return errors.New("backfill range is empty; check --from/--to")
	}

	base, err := a.pipelineOptions("")
	if err != nil {
		return err
	}
	if err := base.Validate(); err != nil {
		return err
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: alert history will not be written")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}

	runner := a.newRunner(store)
	minScore := a.Config.Alerting.MinClusterScore

	var qualifying, recorded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, asOf := range dates {
		asOf := asOf
		g.Go(func() error {
			runOpts := base
			runOpts.Params.AsOf = asOf

			res, err := runner.Run(gctx, runOpts)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				a.Logger.Error().Err(err).Time("as_of", asOf).Msg("backfill scan failed")
				return nil
			}

			var alertStore storage.AlertStore
			if !opts.DryRun {
				alertStore = store
			}
			q, r, err := seedAlerts(gctx, alertStore, res, minScore)
			qualifying.Add(int64(q))
			recorded.Add(int64(r))
			if err != nil {
				failed.Add(1)
				a.Logger.Error().Err(err).Time("as_of", asOf).Msg("backfill alert seed failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.Logger.Info().
		Int("dates", len(dates)).
		Int64("qualifying", qualifying.Load()).
		Int64("recorded", recorded.Load()).
		Int64("failed", failed.Load()).
		Msg("backfill completed")
	if failed.Load() > 0 {
		return errors.New("some backfill dates failed; check the logs")
	}
	return nil
}

// backfillDates returns the as-of dates from..to inclusive, one per step.
func backfillDates(from, to time.Time, step time.Duration) []time.Time {
	start := insider.DateOnly(from)
	end := insider.DateOnly(to)
	var dates []time.Time
	for d := start; !d.After(end); d = d.Add(step) {
		dates = append(dates, d)
	}
	return dates
}

// seedAlerts records every campaign scoring at least minScore. With a nil
// store it only counts them.
func seedAlerts(ctx context.Context, store storage.AlertStore, res pipeline.Result, minScore float64) (qualifying, recorded int, err error) {
	for _, c := range res.Campaigns {
		if c.ClusterScore < minScore {
			continue
		}
		qualifying++
		if store == nil {
			continue
		}
		_, inserted, recErr := store.RecordAlert(ctx, storage.AlertRecord{
			Ticker:       c.Ticker,
			WindowStart:  c.WindowStart,
			WindowEnd:    c.WindowEnd,
			ClusterScore: c.ClusterScore,
			NumPeople:    c.NumPeople,
			TotalValue:   c.TotalValue,
		})
		if recErr != nil {
			return qualifying, recorded, recErr
		}
		if inserted {
			recorded++
		}
	}
	return qualifying, recorded, nil
}
