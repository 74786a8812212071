package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yourdesigncoza/get-insider-db/internal/cluster"
	"github.com/yourdesigncoza/get-insider-db/internal/insider"
	"github.com/yourdesigncoza/get-insider-db/internal/logging"
	"github.com/yourdesigncoza/get-insider-db/internal/ranking"
)

// EnvPrefix prefixes every environment override, e.g. INSIDERCLUSTERS_DATABASE_DSN.
const EnvPrefix = "INSIDERCLUSTERS"

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Clusters   ClustersConfig   `mapstructure:"clusters"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	External   ExternalConfig   `mapstructure:"external"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ClustersConfig holds windowing parameters and campaign minimums.
type ClustersConfig struct {
	WindowDays      int      `mapstructure:"window_days"`
	LookbackDays    int      `mapstructure:"lookback_days"`
	MinInsiders     int      `mapstructure:"min_insiders"`
	MinTotalValue   float64  `mapstructure:"min_total_value"`
	MinTradeValue   float64  `mapstructure:"min_trade_value"`
	UseExclusions   bool     `mapstructure:"use_exclusions"`
	Limit           int      `mapstructure:"limit"`
	ClassifyWorkers int      `mapstructure:"classify_workers"`
	AsOf            string   `mapstructure:"as_of"`
	PurchaseCodes   []string `mapstructure:"purchase_codes"`
}

// RankingConfig holds score weights and optional thresholds.
type RankingConfig struct {
	WRole           float64  `mapstructure:"w_role"`
	WPeople         float64  `mapstructure:"w_people"`
	WValue          float64  `mapstructure:"w_value"`
	WFund           float64  `mapstructure:"w_fund"`
	MinClusterScore *float64 `mapstructure:"min_cluster_score"`
	MinRoleScore    *int     `mapstructure:"min_role_score"`
	MinPeople       *int     `mapstructure:"min_people"`
	MaxFundRatio    *float64 `mapstructure:"max_fund_ratio"`
}

// ClassifierConfig tunes the rule classifier and fallback budget.
type ClassifierConfig struct {
	ExtraFundTokens []string      `mapstructure:"extra_fund_tokens"`
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout"`
}

// ExternalConfig configures the Anthropic fallback classifier.
type ExternalConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	BaseURL           string  `mapstructure:"base_url"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	MaxRetries        int     `mapstructure:"max_retries"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// SchedulerConfig governs the watch cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines which campaigns are alerted and where.
type AlertingConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	MinClusterScore float64        `mapstructure:"min_cluster_score"`
	Retention       time.Duration  `mapstructure:"retention"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot destination.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxRows     int `mapstructure:"max_rows"`
	ChartTopN   int `mapstructure:"chart_top_n"`
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`
}

// nullable keys have no default, so AutomaticEnv would not see them.
var nullableKeys = []string{
	"ranking.min_cluster_score",
	"ranking.min_role_score",
	"ranking.min_people",
	"ranking.max_fund_ratio",
	"clusters.as_of",
	"external.api_key",
	"alerting.telegram.bot_token",
	"alerting.telegram.chat_id",
	"database.dsn",
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range nullableKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = os.Getenv("DATABASE_URL")
	}
	if cfg.External.APIKey == "" {
		cfg.External.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "insiderclusters")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("clusters.window_days", 10)
	v.SetDefault("clusters.lookback_days", 90)
	v.SetDefault("clusters.min_insiders", 2)
	v.SetDefault("clusters.min_total_value", 0.0)
	v.SetDefault("clusters.min_trade_value", 0.0)
	v.SetDefault("clusters.use_exclusions", true)
	v.SetDefault("clusters.limit", 20)
	v.SetDefault("clusters.classify_workers", 4)
	v.SetDefault("clusters.purchase_codes", []string{"P"})

	weights := ranking.DefaultWeights()
	v.SetDefault("ranking.w_role", weights.Role)
	v.SetDefault("ranking.w_people", weights.People)
	v.SetDefault("ranking.w_value", weights.Value)
	v.SetDefault("ranking.w_fund", weights.Fund)

	v.SetDefault("classifier.extra_fund_tokens", []string{})
	v.SetDefault("classifier.fallback_timeout", "10s")

	v.SetDefault("external.enabled", false)
	v.SetDefault("external.model", "claude-sonnet-4-20250514")
	v.SetDefault("external.max_tokens", 256)
	v.SetDefault("external.max_retries", 2)
	v.SetDefault("external.requests_per_second", 2.0)

	v.SetDefault("scheduler.interval", "6h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x494e5344))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.min_cluster_score", 20.0)
	v.SetDefault("alerting.retention", "2160h")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_rows", 10000)
	v.SetDefault("export.chart_top_n", 15)
	v.SetDefault("export.chart_width", 1200)
	v.SetDefault("export.chart_height", 600)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs sanity checks on the configuration values. Cluster and
// ranking parameters are reported by their config key.
func (c *Config) Validate() error {
	params, err := c.Clusters.Params()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("clusters: %w", err)
	}
	if c.Clusters.Limit < 0 {
		return fmt.Errorf("clusters.limit cannot be negative")
	}
	if c.Clusters.ClassifyWorkers <= 0 {
		return fmt.Errorf("clusters.classify_workers must be greater than zero")
	}
	if err := c.Ranking.Weights().Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if err := c.Ranking.Thresholds().Validate(); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if c.Classifier.FallbackTimeout <= 0 {
		return fmt.Errorf("classifier.fallback_timeout must be greater than zero")
	}
	if c.External.Enabled && c.External.APIKey == "" {
		return fmt.Errorf("external.api_key is required when external.enabled is true")
	}
	if c.External.RequestsPerSecond < 0 {
		return fmt.Errorf("external.requests_per_second cannot be negative")
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.max_rows must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerting.Retention < 0 {
		return fmt.Errorf("alerting.retention cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// Params converts the clusters section into engine parameters.
func (c ClustersConfig) Params() (cluster.Params, error) {
	p := cluster.Params{
		WindowDays:    c.WindowDays,
		LookbackDays:  c.LookbackDays,
		MinInsiders:   c.MinInsiders,
		MinTotalValue: c.MinTotalValue,
		MinTradeValue: c.MinTradeValue,
	}
	if strings.TrimSpace(c.AsOf) != "" {
		asOf, err := time.Parse(insider.DateLayout, strings.TrimSpace(c.AsOf))
		if err != nil {
			return cluster.Params{}, &cluster.ParamError{Param: "as_of", Value: c.AsOf, Reason: "must be YYYY-MM-DD"}
		}
		p.AsOf = asOf
	}
	return p, nil
}

// Weights converts the ranking section into score coefficients.
func (r RankingConfig) Weights() ranking.Weights {
	return ranking.Weights{Role: r.WRole, People: r.WPeople, Value: r.WValue, Fund: r.WFund}
}

// Thresholds converts the ranking section into optional filters.
func (r RankingConfig) Thresholds() ranking.Thresholds {
	return ranking.Thresholds{
		MinClusterScore: r.MinClusterScore,
		MinRoleScore:    r.MinRoleScore,
		MinPeople:       r.MinPeople,
		MaxFundRatio:    r.MaxFundRatio,
	}
}

// ResolveMaxRows returns either the CLI override or config default.
func (c *Config) ResolveMaxRows(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxRows
}
