package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "database:\n  dsn: postgres://localhost/insider\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/insider", cfg.Database.DSN)
	assert.Equal(t, 10, cfg.Clusters.WindowDays)
	assert.Equal(t, 90, cfg.Clusters.LookbackDays)
	assert.Equal(t, 2, cfg.Clusters.MinInsiders)
	assert.True(t, cfg.Clusters.UseExclusions)
	assert.Equal(t, []string{"P"}, cfg.Clusters.PurchaseCodes)
	assert.Equal(t, 2.0, cfg.Ranking.WRole)
	assert.Nil(t, cfg.Ranking.MaxFundRatio)
	assert.Equal(t, 10*time.Second, cfg.Classifier.FallbackTimeout)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "stderr", cfg.Logging.Output)

	params, err := cfg.Clusters.Params()
	require.NoError(t, err)
	assert.True(t, params.AsOf.IsZero())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
clusters:
  window_days: 14
  as_of: "2025-03-31"
  purchase_codes: "P,M"
ranking:
  min_people: 3
classifier:
  extra_fund_tokens: ["SICAV", "GMBH"]
`)
	t.Setenv("INSIDERCLUSTERS_CLUSTERS_LOOKBACK_DAYS", "45")
	t.Setenv("INSIDERCLUSTERS_RANKING_MAX_FUND_RATIO", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Clusters.WindowDays)
	assert.Equal(t, 45, cfg.Clusters.LookbackDays)
	assert.Equal(t, []string{"P", "M"}, cfg.Clusters.PurchaseCodes)
	assert.Equal(t, []string{"SICAV", "GMBH"}, cfg.Classifier.ExtraFundTokens)

	th := cfg.Ranking.Thresholds()
	require.NotNil(t, th.MinPeople)
	assert.Equal(t, 3, *th.MinPeople)
	require.NotNil(t, th.MaxFundRatio)
	assert.Equal(t, 0.25, *th.MaxFundRatio)
	assert.Nil(t, th.MinClusterScore)

	params, err := cfg.Clusters.Params()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), params.AsOf)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "window days", body: "clusters:\n  window_days: 0\n", want: "window_days"},
		{name: "as of", body: "clusters:\n  as_of: 31/03/2025\n", want: "as_of"},
		{name: "fund ratio", body: "ranking:\n  max_fund_ratio: 1.5\n", want: "max_fund_ratio"},
		{name: "negative weight", body: "ranking:\n  w_value: -1\n", want: "w_value"},
		{name: "infinite total value", body: "clusters:\n  min_total_value: .inf\n", want: "min_total_value"},
		{name: "telegram token", body: "alerting:\n  telegram:\n    enabled: true\n    chat_id: \"1\"\n", want: "bot_token"},
		{name: "external key", body: "external:\n  enabled: true\n", want: "api_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ANTHROPIC_API_KEY", "")
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsInfiniteEnvValue(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("INSIDERCLUSTERS_CLUSTERS_MIN_TOTAL_VALUE", "inf")

	_, err := Load(writeConfig(t, "clusters:\n  window_days: 30\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cluster.ErrInvalidParams))
	assert.Contains(t, err.Error(), "min_total_value")
}

func TestParamErrorsSurviveWrapping(t *testing.T) {
	cfg := &Config{}
	cfg.Clusters.WindowDays = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cluster.ErrInvalidParams))
}

func TestResolveMaxRows(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxRows: 50}}
	assert.Equal(t, 50, cfg.ResolveMaxRows(0))
	assert.Equal(t, 7, cfg.ResolveMaxRows(7))
}
