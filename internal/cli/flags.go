package cli

import (
	"github.com/spf13/cobra"

	"github.com/yourdesigncoza/get-insider-db/internal/config"
)

// clusterFlags mirror the clusters and ranking config sections. Only flags
// the user actually set override the loaded configuration.
type clusterFlags struct {
	windowDays    int
	lookbackDays  int
	minInsiders   int
	minTotalValue float64
	minTradeValue float64
	asOf          string
	limit         int
	noExclusions  bool

	minClusterScore float64
	minRoleScore    int
	minPeople       int
	maxFundRatio    float64
}

var clusterOpts clusterFlags

func addClusterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&clusterOpts.windowDays, "window-days", 0, "Max gap in days between consecutive purchases of one campaign")
	f.IntVar(&clusterOpts.lookbackDays, "lookback-days", 0, "Days before as-of to consider")
	f.IntVar(&clusterOpts.minInsiders, "min-insiders", 0, "Minimum distinct natural persons per campaign")
	f.Float64Var(&clusterOpts.minTotalValue, "min-total-value", 0, "Minimum campaign value in USD")
	f.Float64Var(&clusterOpts.minTradeValue, "min-trade-value", 0, "Ignore purchases below this value in USD")
	f.StringVar(&clusterOpts.asOf, "as-of", "", "Reference date (YYYY-MM-DD); defaults to the latest filing date")
	f.IntVar(&clusterOpts.limit, "limit", 0, "Maximum campaigns to return (0 = all)")
	f.BoolVar(&clusterOpts.noExclusions, "no-exclusions", false, "Ignore the exclusion list")
	f.Float64Var(&clusterOpts.minClusterScore, "min-cluster-score", 0, "Drop campaigns scoring below this")
	f.IntVar(&clusterOpts.minRoleScore, "min-role-score", 0, "Drop campaigns with a lower role score")
	f.IntVar(&clusterOpts.minPeople, "min-people", 0, "Drop campaigns with fewer people")
	f.Float64Var(&clusterOpts.maxFundRatio, "max-fund-ratio", 0, "Drop campaigns whose fund ratio exceeds this (0..1)")
}

func applyClusterFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("window-days") == nil {
		return nil
	}
	changed := func(name string) bool { return flags.Changed(name) }

	c := &cfg.Clusters
	if changed("window-days") {
		c.WindowDays = clusterOpts.windowDays
	}
	if changed("lookback-days") {
		c.LookbackDays = clusterOpts.lookbackDays
	}
	if changed("min-insiders") {
		c.MinInsiders = clusterOpts.minInsiders
	}
	if changed("min-total-value") {
		c.MinTotalValue = clusterOpts.minTotalValue
	}
	if changed("min-trade-value") {
		c.MinTradeValue = clusterOpts.minTradeValue
	}
	if changed("as-of") {
		c.AsOf = clusterOpts.asOf
	}
	if changed("limit") {
		c.Limit = clusterOpts.limit
	}
	if changed("no-exclusions") {
		c.UseExclusions = !clusterOpts.noExclusions
	}

	r := &cfg.Ranking
	if changed("min-cluster-score") {
		v := clusterOpts.minClusterScore
		r.MinClusterScore = &v
	}
	if changed("min-role-score") {
		v := clusterOpts.minRoleScore
		r.MinRoleScore = &v
	}
	if changed("min-people") {
		v := clusterOpts.minPeople
		r.MinPeople = &v
	}
	if changed("max-fund-ratio") {
		v := clusterOpts.maxFundRatio
		r.MaxFundRatio = &v
	}

	return cfg.Validate()
}

