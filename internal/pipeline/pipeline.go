// Package pipeline runs one batch: read purchases, classify parties, build
// campaigns, score, filter and rank them.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/yourdesigncoza/get-insider-db/internal/classify"
	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
	"github.com/yourdesigncoza/get-insider-db/internal/exclusion"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/ranking"
	"github.com/yourdesigncoza/get-insider-db/internal/storage"
)

const defaultWorkers = 4

// Options are the full configuration surface of one run.
type Options struct {
	Params        cluster.Params
	Weights       ranking.Weights
	Thresholds    ranking.Thresholds
	UseExclusions bool
	// Ticker restricts the run to one issuer when non-empty.
	Ticker string
	// Limit caps the ranked output; zero means unlimited.
	Limit int
	// Codes are the purchase transaction codes; empty means "P".
	Codes []string
	// Workers bounds concurrent classification of distinct parties.
	Workers int
}

// Validate checks every parameter before any query is issued.
func (o Options) Validate() error {
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if err := o.Weights.Validate(); err != nil {
		return err
	}
	if err := o.Thresholds.Validate(); err != nil {
		return err
	}
	if o.Limit < 0 {
		return &cluster.ParamError{Param: "limit", Value: o.Limit, Reason: "must be at least 0"}
	}
	if o.Workers < 0 {
		return &cluster.ParamError{Param: "classify_workers", Value: o.Workers, Reason: "must be at least 0"}
	}
	return nil
}

// Result is the outcome of a run. Campaigns are ranked.
type Result struct {
	RunID        string
	AsOf         time.Time
	From         time.Time
	Campaigns    []cluster.Campaign
	Transactions int
	Malformed    int
	Parties      int
	Excluded     int
	FundLike     int
}

// Runner wires the stores and the classifier.
type Runner struct {
	purchases  storage.PurchaseStore
	exclusions storage.ExclusionStore
	classifier classify.Classifier
	logger     zerolog.Logger
}

// NewRunner constructs a Runner. exclusions may be nil, in which case
// UseExclusions has no effect.
func NewRunner(purchases storage.PurchaseStore, exclusions storage.ExclusionStore, classifier classify.Classifier, logger zerolog.Logger) *Runner {
	return &Runner{
		purchases:  purchases,
		exclusions: exclusions,
		classifier: classifier,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one batch. An empty campaign list is not an error.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if r.purchases == nil {
		return Result{}, storage.ErrNotConfigured
	}

	res := Result{RunID: uuid.NewString()}
	logger := r.logger.With().Str("run_id", res.RunID).Logger()
	started := time.Now()

	asOf := opts.Params.AsOf
	if asOf.IsZero() {
		latest, err := r.purchases.LatestFilingDate(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("resolve as-of date: %w", err)
		}
		if latest.IsZero() {
			logger.Warn().Msg("purchases view is empty")
			return res, nil
		}
		asOf = latest
	}
	res.AsOf = insider.DateOnly(asOf)
	res.From = res.AsOf.AddDate(0, 0, -opts.Params.LookbackDays)

	txs, err := r.purchases.ListPurchases(ctx, storage.PurchaseQuery{
		From:          res.From,
		To:            res.AsOf,
		Ticker:        opts.Ticker,
		MinTradeValue: decimal.NewFromFloat(opts.Params.MinTradeValue),
		Codes:         opts.Codes,
	})
	if err != nil {
		return Result{}, err
	}
	res.Transactions = len(txs)
	for _, tx := range txs {
		if tx.Malformed {
			res.Malformed++
		}
	}
	if res.Malformed > 0 {
		logger.Warn().Int("rows", res.Malformed).Msg("purchases with missing or unparseable shares/price counted as zero value")
	}

	filter, err := r.loadExclusions(ctx, opts.UseExclusions)
	if err != nil {
		return Result{}, err
	}

	dispositions, err := r.classifyParties(ctx, txs, filter, opts.Workers)
	if err != nil {
		return Result{}, err
	}
	res.Parties = len(dispositions)
	for _, d := range dispositions {
		switch {
		case d.excluded:
			res.Excluded++
		case d.fundLike:
			res.FundLike++
		}
	}

	purchases := make([]cluster.Purchase, 0, len(txs))
	for _, tx := range txs {
		d := dispositions[tx.PartyKey]
		purchases = append(purchases, cluster.Purchase{
			Transaction: tx,
			FundLike:    d.fundLike,
			Excluded:    d.excluded,
			EntityType:  string(d.entityType),
		})
	}

	params := opts.Params
	params.AsOf = res.AsOf
	campaigns, err := cluster.Build(purchases, params)
	if err != nil {
		return Result{}, err
	}
	built := len(campaigns)

	ranking.ScoreAll(opts.Weights, campaigns)
	ranked := ranking.Rank(ranking.Filter(campaigns, opts.Thresholds))
	if opts.Limit > 0 && len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	res.Campaigns = ranked

	logger.Info().
		Time("as_of", res.AsOf).
		Int("transactions", res.Transactions).
		Int("parties", res.Parties).
		Int("excluded", res.Excluded).
		Int("fund_like", res.FundLike).
		Int("campaigns_built", built).
		Int("campaigns_ranked", len(ranked)).
		Dur("duration", time.Since(started)).
		Msg("cluster run complete")
	return res, nil
}

func (r *Runner) loadExclusions(ctx context.Context, enabled bool) (*exclusion.Filter, error) {
	if !enabled || r.exclusions == nil {
		return nil, nil
	}
	rules, err := r.exclusions.ListExclusions(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	return exclusion.Compile(rules), nil
}

type disposition struct {
	excluded   bool
	fundLike   bool
	entityType classify.EntityType
}

// classifyParties resolves each distinct party once. Excluded parties are not
// classified at all.
func (r *Runner) classifyParties(ctx context.Context, txs []insider.Transaction, filter *exclusion.Filter, workers int) (map[string]disposition, error) {
	inputs := make(map[string]classify.Input)
	var order []string
	for _, tx := range txs {
		in, ok := inputs[tx.PartyKey]
		if !ok {
			in = classify.Input{Key: tx.PartyKey, CIK: tx.PartyCIK, Name: tx.PartyName}
			order = append(order, tx.PartyKey)
		}
		if tx.OfficerTitle != "" {
			in.Title = tx.OfficerTitle
		}
		in.Flags = in.Flags.Merge(tx.Flags)
		inputs[tx.PartyKey] = in
	}

	out := make(map[string]disposition, len(inputs))
	var pending []classify.Input
	for _, key := range order {
		in := inputs[key]
		if key == "" {
			out[key] = disposition{entityType: classify.EntityUnknown}
			continue
		}
		if rule := filter.Match(in.Name); rule != nil {
			out[key] = disposition{excluded: true}
			r.logger.Debug().Str("party", key).Str("pattern", rule.Pattern).Msg("party excluded")
			continue
		}
		pending = append(pending, in)
	}
	if len(pending) == 0 {
		return out, nil
	}
	if r.classifier == nil {
		return nil, fmt.Errorf("classifier not configured")
	}

	if workers <= 0 {
		workers = defaultWorkers
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, in := range pending {
		in := in
		g.Go(func() error {
			c, err := r.classifier.Classify(gctx, in)
			if err != nil {
				return fmt.Errorf("classify %q: %w", in.Key, err)
			}
			mu.Lock()
			out[in.Key] = disposition{fundLike: c.IsFundLike, entityType: c.EntityType}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
