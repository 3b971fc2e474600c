package api

import (
	"time"

	"predictmm/internal/config"
)

// DashboardSnapshot represents the complete dashboard state
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	// Active markets (one entry per quoted asset/leg)
	Markets []MarketStatus `json:"markets"`

	// Aggregate P&L
	TotalRealized   float64 `json:"total_realized"`
	TotalUnrealized float64 `json:"total_unrealized"`
	TotalPnL        float64 `json:"total_pnl"`

	// Risk status
	Risk RiskSnapshot `json:"risk"`

	// Configuration
	Config ConfigSummary `json:"config"`

	// Pool info
	Pool PoolInfo `json:"pool"`
}

// MarketStatus represents state for one quoted asset (a YES or NO leg).
type MarketStatus struct {
	ConditionID string `json:"condition_id"`
	AssetID     string `json:"asset_id"`
	Slug        string `json:"slug"`
	Question    string `json:"question"`

	// Book state
	MidPrice    float64   `json:"mid_price"`
	BestBid     float64   `json:"best_bid"`
	BestAsk     float64   `json:"best_ask"`
	Spread      float64   `json:"spread"`
	SpreadBps   float64   `json:"spread_bps"`
	LastUpdated time.Time `json:"last_updated"`
	IsStale     bool      `json:"is_stale"`

	// Position
	Position PositionSnapshot `json:"position"`

	// Current quotes (if active)
	ActiveBid  *QuoteInfo `json:"active_bid,omitempty"`
	ActiveAsk  *QuoteInfo `json:"active_ask,omitempty"`
	Allocation float64    `json:"allocation"`
	Active     bool       `json:"active"`

	// Market metadata
	TickSize  float64   `json:"tick_size"`
	EndDate   time.Time `json:"end_date"`
	Liquidity float64   `json:"liquidity"`
	Volume24h float64   `json:"volume_24h"`
}

// PositionSnapshot represents position and P&L for one asset.
type PositionSnapshot struct {
	Position      float64   `json:"position"`
	VWAP          float64   `json:"vwap"`
	RealizedPnL   float64   `json:"realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	ExposureUSD   float64   `json:"exposure_usd"`
	LastUpdated   time.Time `json:"last_updated"`
}

// QuoteInfo represents a single quote (bid or ask)
type QuoteInfo struct {
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	OrderID   string    `json:"order_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RiskSnapshot represents aggregate risk metrics.
type RiskSnapshot struct {
	KillSwitchActive bool    `json:"kill_switch_active"`
	KillSwitchReason string  `json:"kill_switch_reason,omitempty"`
	DailyPnL         float64 `json:"daily_pnl"`
	TotalUnrealized  float64 `json:"total_unrealized_pnl"`
	RecentEvents     int     `json:"recent_risk_events"`

	MaxPositionPerMarket float64 `json:"max_position_per_market"`
	MaxGlobalExposure    float64 `json:"max_global_exposure"`
	MaxDailyLoss         float64 `json:"max_daily_loss"`
	MaxMarketsActive     int     `json:"max_markets_active"`
	CurrentMarketsActive int     `json:"current_markets_active"`

	// Sub-detector outputs
	Toxicity      float64 `json:"toxicity"`
	DynamicLimit  float64 `json:"dynamic_limit"`
	KellyFraction float64 `json:"kelly_fraction"`
	PortfolioBeta float64 `json:"portfolio_beta"`
}

// PoolInfo reports the quoter pool's capital allocation state.
type PoolInfo struct {
	MarketCount   int     `json:"market_count"`
	MaxMarkets    int     `json:"max_markets"`
	TotalCapital  float64 `json:"total_capital"`
	TotalExposure float64 `json:"total_exposure"`
}

// ConfigSummary represents strategy and risk configuration
type ConfigSummary struct {
	BaseSpreadBps    int     `json:"base_spread_bps"`
	MinSpreadBps     int     `json:"min_spread_bps"`
	MaxSpreadBps     int     `json:"max_spread_bps"`
	OrderSizeUSD     float64 `json:"order_size_usd"`
	RefreshInterval  string  `json:"refresh_interval"`
	RequoteThreshold float64 `json:"requote_threshold"`

	MaxPositionPerMarket float64 `json:"max_position_per_market"`
	MaxGlobalExposure    float64 `json:"max_global_exposure"`
	MaxMarketsActive     int     `json:"max_markets_active"`
	KillSwitchDropPct    float64 `json:"kill_switch_drop_pct"`
	KillSwitchWindowSec  int     `json:"kill_switch_window_sec"`
	MaxDailyLoss         float64 `json:"max_daily_loss"`
	CooldownAfterKill    string  `json:"cooldown_after_kill"`

	ScannerPollInterval string  `json:"scanner_poll_interval"`
	MinLiquidity        float64 `json:"min_liquidity"`
	MinVolume24h        float64 `json:"min_volume_24h"`
	MaxEndDateDays      int     `json:"max_end_date_days"`

	DryRun bool `json:"dry_run"`
}

// NewConfigSummary creates config summary from config
func NewConfigSummary(cfg config.Config) ConfigSummary {
	return ConfigSummary{
		BaseSpreadBps:    cfg.Strategy.BaseSpreadBps,
		MinSpreadBps:     cfg.Strategy.MinSpreadBps,
		MaxSpreadBps:     cfg.Strategy.MaxSpreadBps,
		OrderSizeUSD:     cfg.Strategy.OrderSizeUSD,
		RefreshInterval:  cfg.Strategy.RefreshInterval.String(),
		RequoteThreshold: cfg.Strategy.RequoteThreshold,

		MaxPositionPerMarket: cfg.Risk.MaxPositionPerMarket,
		MaxGlobalExposure:    cfg.Risk.MaxGlobalExposure,
		MaxMarketsActive:     cfg.Risk.MaxMarketsActive,
		KillSwitchDropPct:    cfg.Risk.KillSwitchDropPct,
		KillSwitchWindowSec:  cfg.Risk.KillSwitchWindowSec,
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		CooldownAfterKill:    cfg.Risk.CooldownAfterKill.String(),

		ScannerPollInterval: cfg.Scanner.PollInterval.String(),
		MinLiquidity:        cfg.Scanner.MinLiquidity,
		MinVolume24h:        cfg.Scanner.MinVolume24h,
		MaxEndDateDays:      cfg.Scanner.MaxEndDateDays,

		DryRun: cfg.DryRun,
	}
}
