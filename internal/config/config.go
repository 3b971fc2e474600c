// Package config defines all configuration for the market-making bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via POLY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun     bool             `mapstructure:"dry_run"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	API        APIConfig        `mapstructure:"api"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Pool       PoolConfig       `mapstructure:"pool"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	TradeLog   TradeLogConfig  `mapstructure:"trade_log"`
}

// WalletConfig holds the Ethereum wallet used for signing orders.
// PrivateKey signs L1 (EIP-712) auth and derives L2 API keys.
// FunderAddress is the on-chain address that funds orders (may differ from signer if using a proxy).
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	SignatureType int    `mapstructure:"signature_type"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// APIConfig holds Polymarket API endpoints and optional pre-derived L2 credentials.
// If ApiKey/Secret/Passphrase are empty, the bot derives them via L1 auth on startup.
type APIConfig struct {
	CLOBBaseURL  string `mapstructure:"clob_base_url"`
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	WSMarketURL  string `mapstructure:"ws_market_url"`
	WSUserURL    string `mapstructure:"ws_user_url"`
	ApiKey       string `mapstructure:"api_key"`
	Secret       string `mapstructure:"secret"`
	Passphrase   string `mapstructure:"passphrase"`
}

// StrategyConfig tunes the quoter's deterministic pipeline and the alpha
// signals that feed it (volatility, book, flow, arbitrage, event).
type StrategyConfig struct {
	Gamma            float64       `mapstructure:"gamma"`
	Sigma            float64       `mapstructure:"sigma"`
	K                float64       `mapstructure:"k"`
	T                float64       `mapstructure:"t"`
	BaseSpreadBps    int           `mapstructure:"base_spread_bps"`
	MinSpreadBps     int           `mapstructure:"min_spread_bps"`
	MaxSpreadBps     int           `mapstructure:"max_spread_bps"`
	OrderSizeUSD     float64       `mapstructure:"order_size_usd"`
	MinOrderSize     float64       `mapstructure:"min_order_size"`
	RequoteThreshold float64       `mapstructure:"requote_threshold"`
	MaxSkewPerSide   float64       `mapstructure:"max_skew_per_side"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	StaleBookTimeout time.Duration `mapstructure:"stale_book_timeout"`
	FeeRateBps       int           `mapstructure:"fee_rate_bps"`

	Volatility  VolatilityConfig  `mapstructure:"volatility"`
	Book        BookAnalyzerConfig `mapstructure:"book"`
	Inventory   InventoryConfig   `mapstructure:"inventory"`
	Flow        FlowConfig        `mapstructure:"flow"`
	Arbitrage   ArbitrageConfig   `mapstructure:"arbitrage"`
	Event       EventConfig       `mapstructure:"event"`
	Timer       TimerConfig       `mapstructure:"timer"`
	Reconcile   ReconcileConfig   `mapstructure:"reconcile"`
}

// VolatilityConfig tunes the rolling realized-volatility tracker (§4.7).
type VolatilityConfig struct {
	SampleInterval  time.Duration `mapstructure:"sample_interval"`
	WindowSeconds   int           `mapstructure:"window_seconds"`
	MinSamples      int           `mapstructure:"min_samples"`
	MultMin         float64       `mapstructure:"mult_min"`
	MultMax         float64       `mapstructure:"mult_max"`
	SecondsPerYear  float64       `mapstructure:"seconds_per_year"`
}

// BookAnalyzerConfig tunes depth/imbalance/wall analysis (§4.8).
type BookAnalyzerConfig struct {
	DepthCents        float64 `mapstructure:"depth_cents"`
	ImbalanceT        float64 `mapstructure:"imbalance_t"`
	AdjustmentCap     float64 `mapstructure:"adjustment_cap"`
	WallThresholdPct  float64 `mapstructure:"wall_threshold_pct"`
	MinTradeableUSD   float64 `mapstructure:"min_tradeable_usd"`
	ThinThresholdUSD  float64 `mapstructure:"thin_threshold_usd"`
	ThickThresholdUSD float64 `mapstructure:"thick_threshold_usd"`
}

// InventoryConfig tunes per-asset position skews and size multipliers (§4.9).
type InventoryConfig struct {
	PositionLimit     float64 `mapstructure:"position_limit"`
	SkewMax           float64 `mapstructure:"skew_max"`
	SizeReductionStart float64 `mapstructure:"size_reduction_start"`
	MinSizeMult       float64 `mapstructure:"min_size_mult"`
}

// FlowConfig tunes the decayed-weight trade-flow imbalance tracker (§4.10).
type FlowConfig struct {
	WindowSeconds     int     `mapstructure:"window_seconds"`
	HalfLifeSeconds   float64 `mapstructure:"half_life_seconds"`
	AggressiveWeight  float64 `mapstructure:"aggressive_weight"`
	MinEvents         int     `mapstructure:"min_events"`
	StrongThreshold   float64 `mapstructure:"strong_threshold"`
	WeakThreshold     float64 `mapstructure:"weak_threshold"`
	SkewScale         float64 `mapstructure:"skew_scale"`
	SkewCap           float64 `mapstructure:"skew_cap"`
	WidenAggroRatio   float64 `mapstructure:"widen_aggro_ratio"`
	WidenMinEvents    int     `mapstructure:"widen_min_events"`
}

// ArbitrageConfig tunes the YES/NO parity detector (§4.11).
type ArbitrageConfig struct {
	MinProfitBps    float64 `mapstructure:"min_profit_bps"`
	SkewThresholdBps float64 `mapstructure:"skew_threshold_bps"`
}

// EventConfig tunes the resolution-proximity/news-impact tracker (§4.12).
type EventConfig struct {
	ImpactThreshold   float64 `mapstructure:"impact_threshold"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// TimerConfig tunes the adaptive FAST/NORMAL/SLEEP scheduler (§4.22).
type TimerConfig struct {
	FastInterval     time.Duration `mapstructure:"fast_interval"`
	NormalInterval   time.Duration `mapstructure:"normal_interval"`
	SleepInterval    time.Duration `mapstructure:"sleep_interval"`
	FastModeDuration time.Duration `mapstructure:"fast_mode_duration"`
	PriceChangePct   float64       `mapstructure:"price_change_pct"`
	VolumeRatio      float64       `mapstructure:"volume_ratio"`
	IdleSeconds      float64       `mapstructure:"idle_seconds"`
}

// ReconcileConfig tunes startup/periodic stale-order cleanup (§4.25).
type ReconcileConfig struct {
	StaleOrderAge  time.Duration `mapstructure:"stale_order_age"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

// RiskConfig sets hard limits enforced by internal/risk.Manager (§4.18) and
// its sub-detectors (§4.14–§4.17).
type RiskConfig struct {
	MaxPositionPerMarket float64       `mapstructure:"max_position_per_market"`
	MaxGlobalExposure    float64       `mapstructure:"max_global_exposure"`
	MaxMarketsActive     int           `mapstructure:"max_markets_active"`
	KillSwitchDropPct    float64       `mapstructure:"kill_switch_drop_pct"`
	KillSwitchWindowSec  int           `mapstructure:"kill_switch_window_sec"`
	MaxDailyLoss         float64       `mapstructure:"max_daily_loss"`
	CooldownAfterKill    time.Duration `mapstructure:"cooldown_after_kill"`
	MaxErrorsPerMinute   int           `mapstructure:"max_errors_per_minute"`
	ErrorCooldown        time.Duration `mapstructure:"error_cooldown"`
	BalanceDropPct       float64       `mapstructure:"balance_drop_pct"`

	AdverseSelection AdverseSelectionConfig `mapstructure:"adverse_selection"`
	DynamicLimits    DynamicLimitsConfig    `mapstructure:"dynamic_limits"`
	Kelly            KellyConfig            `mapstructure:"kelly"`
	Correlation      CorrelationConfig      `mapstructure:"correlation"`
}

// AdverseSelectionConfig tunes the post-fill toxicity detector (§4.14).
type AdverseSelectionConfig struct {
	AdverseThreshold float64       `mapstructure:"adverse_threshold"`
	ToxicThreshold   float64       `mapstructure:"toxic_threshold"`
	HighlyToxic      float64       `mapstructure:"highly_toxic"`
	LookbackWindow   time.Duration `mapstructure:"lookback_window"`
	PriceAfterDelay  time.Duration `mapstructure:"price_after_delay"`
}

// DynamicLimitsConfig tunes the confidence/drawdown position-limit manager (§4.15).
type DynamicLimitsConfig struct {
	MinLimitPct float64 `mapstructure:"min_limit_pct"`
	MaxLimitPct float64 `mapstructure:"max_limit_pct"`
	EMAFactor   float64 `mapstructure:"ema_factor"`
	HistorySize int     `mapstructure:"history_size"`
}

// KellyConfig tunes the fractional-Kelly position sizer (§4.16).
type KellyConfig struct {
	Fraction       float64 `mapstructure:"fraction"`
	MaxPositionPct float64 `mapstructure:"max_position_pct"`
	MinTrades      int     `mapstructure:"min_trades"`
}

// CorrelationConfig tunes the pairwise price-correlation portfolio cap (§4.17).
type CorrelationConfig struct {
	WindowSize            int     `mapstructure:"window_size"`
	MinSamples            int     `mapstructure:"min_samples"`
	CorrelationThreshold  float64 `mapstructure:"correlation_threshold"`
	MaxCorrelatedExposure float64 `mapstructure:"max_correlated_exposure"`
}

// ScannerConfig controls how the bot discovers and filters tradeable markets,
// feeding internal/scorer's multi-factor ranking (§4.13).
type ScannerConfig struct {
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	MinLiquidity         float64       `mapstructure:"min_liquidity"`
	MinVolume24h         float64       `mapstructure:"min_volume_24h"`
	MinSpreadTicks       float64       `mapstructure:"min_spread_ticks"`
	MaxSpreadTicks       float64       `mapstructure:"max_spread_ticks"`
	MinHoursToResolution float64       `mapstructure:"min_hours_to_resolution"`
	MaxEndDateDays       int           `mapstructure:"max_end_date_days"`
	ExcludeSlugs         []string      `mapstructure:"exclude_slugs"`
	IncludeSlugs         []string      `mapstructure:"include_slugs"`
	IncludeConditionIDs  []string      `mapstructure:"include_condition_ids"`
	IncludeKeywords      []string      `mapstructure:"include_keywords"`
	ExcludeKeywords      []string      `mapstructure:"exclude_keywords"`

	VolumeFloor   float64 `mapstructure:"volume_floor"`
	DepthFloorUSD float64 `mapstructure:"depth_floor_usd"`
	DepthCapUSD   float64 `mapstructure:"depth_cap_usd"`

	WeightVolume float64 `mapstructure:"weight_volume"`
	WeightSpread float64 `mapstructure:"weight_spread"`
	WeightDepth  float64 `mapstructure:"weight_depth"`
	WeightTiming float64 `mapstructure:"weight_timing"`
	WeightPrice  float64 `mapstructure:"weight_price"`
}

// StoreConfig sets where position data is persisted (JSON files).
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the web dashboard server and its Prometheus endpoint.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MetricsPath    string   `mapstructure:"metrics_path"`
}

// FeedConfig tunes the market-data store, WS connection, REST poller, and
// facade (§4.1–§4.4), plus the live trades poller (§4.24).
type FeedConfig struct {
	StaleThreshold      time.Duration `mapstructure:"stale_threshold"`
	HeartbeatTimeout    time.Duration `mapstructure:"heartbeat_timeout"`
	ReconnectBaseDelay  time.Duration `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay   time.Duration `mapstructure:"reconnect_max_delay"`
	ReconnectMaxAttempts int          `mapstructure:"reconnect_max_attempts"`
	RESTPollInterval    time.Duration `mapstructure:"rest_poll_interval"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	RecoveryDelay       time.Duration `mapstructure:"recovery_delay"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	TradesPollInterval  time.Duration `mapstructure:"trades_poll_interval"`
}

// PoolConfig tunes the multi-market pool supervisor (§4.20).
type PoolConfig struct {
	MaxMarkets   int     `mapstructure:"max_markets"`
	TotalCapital float64 `mapstructure:"total_capital"`
}

// RateLimitConfig tunes the order-class / market-data-class token buckets (§4.21).
type RateLimitConfig struct {
	OrderRatePerSec int `mapstructure:"order_rate_per_sec"`
	OrderBurst      int `mapstructure:"order_burst"`
	MarketRatePerSec int `mapstructure:"market_rate_per_sec"`
	MarketBurst     int `mapstructure:"market_burst"`
}

// TradeLogConfig tunes the append-only JSON-lines + SQLite sink (§4.23).
type TradeLogConfig struct {
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: POLY_PRIVATE_KEY, POLY_API_KEY, POLY_API_SECRET, POLY_PASSPHRASE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override sensitive fields from env
	if key := os.Getenv("POLY_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("POLY_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("POLY_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("POLY_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}
	if os.Getenv("POLY_DRY_RUN") == "true" || os.Getenv("POLY_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// setDefaults fills every numeric threshold in §4 with its stated default,
// so a minimal YAML file (or none at all for optional sections) still
// produces a runnable config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("strategy.base_spread_bps", 200)
	v.SetDefault("strategy.min_spread_bps", 50)
	v.SetDefault("strategy.max_spread_bps", 800)
	v.SetDefault("strategy.requote_threshold", 0.03)
	v.SetDefault("strategy.max_skew_per_side", 0.05)
	v.SetDefault("strategy.fee_rate_bps", 10)
	v.SetDefault("strategy.min_order_size", 5.0)

	v.SetDefault("strategy.volatility.sample_interval", "5s")
	v.SetDefault("strategy.volatility.window_seconds", 1800)
	v.SetDefault("strategy.volatility.min_samples", 10)
	v.SetDefault("strategy.volatility.mult_min", 0.5)
	v.SetDefault("strategy.volatility.mult_max", 3.0)
	v.SetDefault("strategy.volatility.seconds_per_year", 31536000.0)

	v.SetDefault("strategy.book.depth_cents", 0.02)
	v.SetDefault("strategy.book.imbalance_t", 0.10)
	v.SetDefault("strategy.book.adjustment_cap", 0.02)
	v.SetDefault("strategy.book.wall_threshold_pct", 0.30)
	v.SetDefault("strategy.book.min_tradeable_usd", 50.0)
	v.SetDefault("strategy.book.thin_threshold_usd", 100.0)
	v.SetDefault("strategy.book.thick_threshold_usd", 1000.0)

	v.SetDefault("strategy.inventory.position_limit", 100.0)
	v.SetDefault("strategy.inventory.skew_max", 0.02)
	v.SetDefault("strategy.inventory.size_reduction_start", 0.5)
	v.SetDefault("strategy.inventory.min_size_mult", 0.2)

	v.SetDefault("strategy.flow.window_seconds", 60)
	v.SetDefault("strategy.flow.half_life_seconds", 30.0)
	v.SetDefault("strategy.flow.aggressive_weight", 2.0)
	v.SetDefault("strategy.flow.min_events", 5)
	v.SetDefault("strategy.flow.strong_threshold", 0.30)
	v.SetDefault("strategy.flow.weak_threshold", 0.15)
	v.SetDefault("strategy.flow.skew_scale", 0.01)
	v.SetDefault("strategy.flow.skew_cap", 0.01)
	v.SetDefault("strategy.flow.widen_aggro_ratio", 0.5)
	v.SetDefault("strategy.flow.widen_min_events", 10)

	v.SetDefault("strategy.arbitrage.min_profit_bps", 20.0)
	v.SetDefault("strategy.arbitrage.skew_threshold_bps", 10.0)

	v.SetDefault("strategy.event.impact_threshold", 0.2)
	v.SetDefault("strategy.event.confidence_threshold", 0.7)

	v.SetDefault("strategy.timer.fast_interval", "100ms")
	v.SetDefault("strategy.timer.normal_interval", "2s")
	v.SetDefault("strategy.timer.sleep_interval", "5s")
	v.SetDefault("strategy.timer.fast_mode_duration", "10s")
	v.SetDefault("strategy.timer.price_change_pct", 0.01)
	v.SetDefault("strategy.timer.volume_ratio", 2.0)
	v.SetDefault("strategy.timer.idle_seconds", 60.0)

	v.SetDefault("strategy.reconcile.stale_order_age", "600s")
	v.SetDefault("strategy.reconcile.sweep_interval", "60s")

	v.SetDefault("risk.max_errors_per_minute", 10)
	v.SetDefault("risk.error_cooldown", "60s")
	v.SetDefault("risk.balance_drop_pct", 0.20)

	v.SetDefault("risk.adverse_selection.adverse_threshold", 0.005)
	v.SetDefault("risk.adverse_selection.toxic_threshold", 0.4)
	v.SetDefault("risk.adverse_selection.highly_toxic", 0.6)
	v.SetDefault("risk.adverse_selection.lookback_window", "300s")
	v.SetDefault("risk.adverse_selection.price_after_delay", "10s")

	v.SetDefault("risk.dynamic_limits.min_limit_pct", 0.2)
	v.SetDefault("risk.dynamic_limits.max_limit_pct", 2.0)
	v.SetDefault("risk.dynamic_limits.ema_factor", 0.3)
	v.SetDefault("risk.dynamic_limits.history_size", 100)

	v.SetDefault("risk.kelly.fraction", 0.25)
	v.SetDefault("risk.kelly.max_position_pct", 0.10)
	v.SetDefault("risk.kelly.min_trades", 20)

	v.SetDefault("risk.correlation.window_size", 100)
	v.SetDefault("risk.correlation.min_samples", 20)
	v.SetDefault("risk.correlation.correlation_threshold", 0.5)
	v.SetDefault("risk.correlation.max_correlated_exposure", 500.0)

	v.SetDefault("scanner.poll_interval", "60s")
	v.SetDefault("scanner.min_liquidity", 5000.0)
	v.SetDefault("scanner.min_volume_24h", 1000.0)
	v.SetDefault("scanner.min_hours_to_resolution", 12.0)
	v.SetDefault("scanner.min_spread_ticks", 3.0)
	v.SetDefault("scanner.max_spread_ticks", 6.0)
	v.SetDefault("scanner.max_end_date_days", 90)
	v.SetDefault("scanner.exclude_slugs", []string{})
	v.SetDefault("scanner.include_slugs", []string{})
	v.SetDefault("scanner.include_condition_ids", []string{})
	v.SetDefault("scanner.include_keywords", []string{})
	v.SetDefault("scanner.exclude_keywords", []string{})
	v.SetDefault("scanner.volume_floor", 1.0)
	v.SetDefault("scanner.depth_floor_usd", 100.0)
	v.SetDefault("scanner.depth_cap_usd", 5000.0)
	v.SetDefault("scanner.weight_volume", 0.25)
	v.SetDefault("scanner.weight_spread", 0.25)
	v.SetDefault("scanner.weight_depth", 0.2)
	v.SetDefault("scanner.weight_timing", 0.15)
	v.SetDefault("scanner.weight_price", 0.15)

	v.SetDefault("feed.stale_threshold", "15s")
	v.SetDefault("feed.heartbeat_timeout", "45s")
	v.SetDefault("feed.reconnect_base_delay", "1s")
	v.SetDefault("feed.reconnect_max_delay", "30s")
	v.SetDefault("feed.reconnect_max_attempts", 10)
	v.SetDefault("feed.rest_poll_interval", "5s")
	v.SetDefault("feed.health_check_interval", "5s")
	v.SetDefault("feed.recovery_delay", "30s")
	v.SetDefault("feed.queue_capacity", 10000)
	v.SetDefault("feed.trades_poll_interval", "5s")

	v.SetDefault("pool.max_markets", 10)
	v.SetDefault("pool.total_capital", 1000.0)

	v.SetDefault("rate_limit.order_rate_per_sec", 5)
	v.SetDefault("rate_limit.order_burst", 5)
	v.SetDefault("rate_limit.market_rate_per_sec", 10)
	v.SetDefault("rate_limit.market_burst", 10)

	v.SetDefault("trade_log.dir", "data/trades")
	v.SetDefault("trade_log.sqlite_path", "data/trades.db")

	v.SetDefault("dashboard.metrics_path", "/metrics")
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set POLY_PRIVATE_KEY)")
	}
	if c.Wallet.ChainID == 0 {
		return fmt.Errorf("wallet.chain_id is required (137 for mainnet)")
	}
	switch c.Wallet.SignatureType {
	case 0, 1, 2:
	default:
		return fmt.Errorf("wallet.signature_type must be one of: 0 (EOA), 1 (POLY_PROXY), 2 (GNOSIS_SAFE)")
	}
	if c.Wallet.SignatureType != 0 && c.Wallet.FunderAddress == "" {
		return fmt.Errorf("wallet.funder_address is required when wallet.signature_type is 1 or 2")
	}
	if c.API.CLOBBaseURL == "" {
		return fmt.Errorf("api.clob_base_url is required")
	}
	if c.Strategy.Gamma <= 0 {
		return fmt.Errorf("strategy.gamma must be > 0")
	}
	if c.Strategy.OrderSizeUSD <= 0 {
		return fmt.Errorf("strategy.order_size_usd must be > 0")
	}
	if c.Risk.MaxPositionPerMarket <= 0 {
		return fmt.Errorf("risk.max_position_per_market must be > 0")
	}
	if c.Risk.MaxGlobalExposure <= 0 {
		return fmt.Errorf("risk.max_global_exposure must be > 0")
	}
	if c.Risk.MaxMarketsActive <= 0 {
		return fmt.Errorf("risk.max_markets_active must be > 0")
	}
	return nil
}
