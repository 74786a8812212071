package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/yourdesigncoza/get-insider-db/internal/scheduler"
	"github.com/yourdesigncoza/get-insider-db/internal/service"
)

// Watch reruns the scan on the configured schedule and alerts on new campaigns.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOpts, err := a.pipelineOptions("")
	if err != nil {
		return err
	}
	if err := runOpts.Validate(); err != nil {
		return err
	}

	store, closeStore, err := a.requireStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
	}, a.Logger)

	notifier := a.newNotifier()
	if a.Config.Alerting.Enabled && notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured; scans will only be logged")
	}

	svc := service.New(a.Config, sched, a.newRunner(store), runOpts, store, notifier, a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting cluster watch")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch terminated with error")
		return err
	}

	a.Logger.Info().Msg("cluster watch stopped")
	return nil
}
