package app

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourdesigncoza/get-insider-db/internal/alerting"
	"github.com/yourdesigncoza/get-insider-db/internal/classify"
	"github.com/yourdesigncoza/get-insider-db/internal/classify/external"
	"github.com/yourdesigncoza/get-insider-db/internal/config"
	"github.com/yourdesigncoza/get-insider-db/internal/pipeline"
	"github.com/yourdesigncoza/get-insider-db/internal/storage"
)

var errNoDatabase = errors.New("database not configured; set database.dsn or DATABASE_URL")

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives tables and CSV written to stdout.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// requireStore opens the store or fails when no DSN is configured.
func (a *App) requireStore(ctx context.Context) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errNoDatabase
	}
	return store, closeStore, nil
}

func (a *App) newClassifier(store classify.Store) *classify.Service {
	rules := classify.NewRuleClassifier(a.Config.Classifier.ExtraFundTokens...)
	opts := classify.Options{FallbackTimeout: a.Config.Classifier.FallbackTimeout}
	if a.Config.External.Enabled {
		ext := a.Config.External
		opts.Fallback = external.New(external.Options{
			APIKey:            ext.APIKey,
			Model:             ext.Model,
			BaseURL:           ext.BaseURL,
			MaxTokens:         ext.MaxTokens,
			MaxRetries:        ext.MaxRetries,
			RequestsPerSecond: ext.RequestsPerSecond,
		}, a.Logger)
	}
	return classify.NewService(store, rules, opts, a.Logger)
}

func (a *App) newRunner(store *storage.Store) *pipeline.Runner {
	return pipeline.NewRunner(store, store, a.newClassifier(store), a.Logger)
}

// pipelineOptions builds run options from the (flag-adjusted) configuration.
func (a *App) pipelineOptions(ticker string) (pipeline.Options, error) {
	params, err := a.Config.Clusters.Params()
	if err != nil {
		return pipeline.Options{}, err
	}
	c := a.Config.Clusters
	return pipeline.Options{
		Params:        params,
		Weights:       a.Config.Ranking.Weights(),
		Thresholds:    a.Config.Ranking.Thresholds(),
		UseExclusions: c.UseExclusions,
		Ticker:        ticker,
		Limit:         c.Limit,
		Codes:         c.PurchaseCodes,
		Workers:       c.ClassifyWorkers,
	}, nil
}

// ScanOptions configure the scan command.
type ScanOptions struct {
	Ticker string
	// Detail prints the people and funds of each campaign.
	Detail bool
}

// ExportOptions hold parameters for exporting ranked campaigns.
type ExportOptions struct {
	Ticker  string
	PNGPath string
	CSVPath string
	MaxRows int
}

// BackfillOptions configure the alert-history backfill.
type BackfillOptions struct {
	From    time.Time
	To      time.Time
	Step    time.Duration
	DryRun  bool
	Workers int
}

// EntityOptions carry a manual classification.
type EntityOptions struct {
	Name       string
	CIK        string
	EntityType string
	FundLike   bool
	Rationale  string
}
