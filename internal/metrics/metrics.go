// Package metrics exposes Prometheus counters and gauges for the
// dashboard's /metrics endpoint:
//   - predictmm_fills_total{market,side}     — fills recorded, by side
//   - predictmm_quotes_total{market}         — quote updates placed
//   - predictmm_risk_events_total{status}    — non-OK risk checks, by status
//   - predictmm_kill_switch_active           — 1 when the kill switch is engaged
//   - predictmm_feed_healthy{market}         — 1 when the feed is healthy for a market
//   - predictmm_position{market}             — current signed position
//   - predictmm_unrealized_pnl_usd           — total unrealized P&L across markets
//   - predictmm_daily_pnl_usd                — realized P&L for the trading day
//   - predictmm_arbitrage_signals_total{type} — arbitrage signals observed, by type
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictmm_fills_total",
			Help: "Fills recorded, by market and side.",
		},
		[]string{"market", "side"},
	)

	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictmm_quotes_total",
			Help: "Quote updates placed, by market.",
		},
		[]string{"market"},
	)

	RiskEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictmm_risk_events_total",
			Help: "Non-OK risk checks, by status (WARN/STOP).",
		},
		[]string{"status"},
	)

	KillSwitchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictmm_kill_switch_active",
			Help: "1 when the kill switch is currently engaged.",
		},
	)

	FeedHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "predictmm_feed_healthy",
			Help: "1 when the feed is healthy for a market, 0 otherwise.",
		},
		[]string{"market"},
	)

	Position = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "predictmm_position",
			Help: "Current signed position, by market.",
		},
		[]string{"market"},
	)

	UnrealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictmm_unrealized_pnl_usd",
			Help: "Total unrealized P&L across all tracked markets.",
		},
	)

	DailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "predictmm_daily_pnl_usd",
			Help: "Realized P&L for the current trading day, net of fees.",
		},
	)

	ArbitrageSignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictmm_arbitrage_signals_total",
			Help: "Arbitrage signals observed, by type (SELL_BOTH/BUY_BOTH/SKEW).",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		FillsTotal, QuotesTotal, RiskEventsTotal, KillSwitchActive,
		FeedHealthy, Position, UnrealizedPnL, DailyPnL, ArbitrageSignalsTotal,
	)
}

// RecordFill increments the fill counter.
func RecordFill(market, side string) {
	FillsTotal.WithLabelValues(market, side).Inc()
}

// RecordRiskEvent increments the risk-event counter for status and keeps
// the kill-switch gauge in sync.
func RecordRiskEvent(status string, killed bool) {
	RiskEventsTotal.WithLabelValues(status).Inc()
	if killed {
		KillSwitchActive.Set(1)
	} else {
		KillSwitchActive.Set(0)
	}
}

// SetFeedHealthy sets the per-market feed health gauge.
func SetFeedHealthy(market string, healthy bool) {
	if healthy {
		FeedHealthy.WithLabelValues(market).Set(1)
	} else {
		FeedHealthy.WithLabelValues(market).Set(0)
	}
}

// SetPosition sets the current signed position gauge for a market.
func SetPosition(market string, position float64) {
	Position.WithLabelValues(market).Set(position)
}
