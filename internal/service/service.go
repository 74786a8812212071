package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourdesigncoza/get-insider-db/internal/alerting"
	"github.com/yourdesigncoza/get-insider-db/internal/config"
	"github.com/yourdesigncoza/get-insider-db/internal/pipeline"
	"github.com/yourdesigncoza/get-insider-db/internal/scheduler"
	"github.com/yourdesigncoza/get-insider-db/internal/storage"
)

// Scanner runs one cluster batch.
type Scanner interface {
	Run(ctx context.Context, opts pipeline.Options) (pipeline.Result, error)
}

// Service reruns the scan on a schedule and alerts on new campaigns.
type Service struct {
	scheduler  *scheduler.Scheduler
	scanner    Scanner
	opts       pipeline.Options
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	minScore  float64
	alertsOn  bool
	retention time.Duration
	locker    storage.AdvisoryLocker
	lockKey   int64
	now       func() time.Time
}

// New constructs the watch service.
func New(cfg *config.Config, sched *scheduler.Scheduler, scanner Scanner, opts pipeline.Options, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := alertStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		scanner:    scanner,
		opts:       opts,
		alertStore: alertStore,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		minScore:   cfg.Alerting.MinClusterScore,
		alertsOn:   cfg.Alerting.Enabled,
		retention:  cfg.Alerting.Retention,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run begins the aligned scan loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket runs one scan unless another instance holds the advisory lock.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("bucket", bucket).Msg("skip bucket because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeBucket(ctx, bucket)
}

func (s *Service) executeBucket(ctx context.Context, bucket time.Time) error {
	res, err := s.scanner.Run(ctx, s.opts)
	if err != nil {
		return fmt.Errorf("cluster scan: %w", err)
	}

	s.logger.Info().Time("bucket", bucket).
		Str("run_id", res.RunID).
		Time("as_of", res.AsOf).
		Int("campaigns", len(res.Campaigns)).
		Msg("scan recorded")

	if s.alertsOn && s.notifier != nil {
		s.dispatch(ctx, res)
	}
	s.prune(ctx)
	return nil
}

// dispatch alerts each qualifying campaign at most once. Without an alert
// store there is no de-duplication and every qualifying campaign is sent.
func (s *Service) dispatch(ctx context.Context, res pipeline.Result) {
	for _, c := range res.Campaigns {
		if c.ClusterScore < s.minScore {
			continue
		}
		if s.alertStore != nil {
			_, inserted, err := s.alertStore.RecordAlert(ctx, storage.AlertRecord{
				Ticker:       c.Ticker,
				WindowStart:  c.WindowStart,
				WindowEnd:    c.WindowEnd,
				ClusterScore: c.ClusterScore,
				NumPeople:    c.NumPeople,
				TotalValue:   c.TotalValue,
			})
			if err != nil {
				s.logger.Error().Err(err).Str("ticker", c.Ticker).Msg("failed to persist alert record")
				continue
			}
			if !inserted {
				continue
			}
		}
		note := alerting.Notification{Campaign: c, AsOf: res.AsOf, RunID: res.RunID}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("ticker", c.Ticker).Msg("failed to dispatch alert")
		}
	}
}

func (s *Service) prune(ctx context.Context) {
	if s.alertStore == nil || s.retention <= 0 {
		return
	}
	removed, err := s.alertStore.DeleteAlertsBefore(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to prune alert records")
		return
	}
	if removed > 0 {
		s.logger.Debug().Int64("removed", removed).Msg("pruned alert records")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
