package api

import (
	"time"

	"predictmm/internal/config"
	"predictmm/internal/risk"
)

// PoolProvider gives the dashboard read access to the quoter pool's
// allocation state without importing internal/quoter directly (avoids an
// api -> quoter -> api import cycle, since quoter emits api.DashboardEvent).
type PoolProvider interface {
	MarketCount() int
	GetTotalExposure() float64
}

// MarketSnapshotProvider provides snapshot access to market state
type MarketSnapshotProvider interface {
	GetMarketsSnapshot() []MarketStatus
	GetPool() PoolProvider
	GetRiskManager() *risk.Manager
}

// BuildSnapshot aggregates state from all components into a dashboard snapshot
func BuildSnapshot(
	provider MarketSnapshotProvider,
	cfg config.Config,
) DashboardSnapshot {
	markets := provider.GetMarketsSnapshot()
	riskMgr := provider.GetRiskManager()
	pool := provider.GetPool()

	var totalRealized, totalUnrealized float64
	for _, m := range markets {
		totalRealized += m.Position.RealizedPnL
		totalUnrealized += m.Position.UnrealizedPnL
	}

	var dynamicLimit float64
	if history := riskMgr.DynamicLimits().History(); len(history) > 0 {
		dynamicLimit = history[len(history)-1].AdjustedLimit
	}

	riskSnap := RiskSnapshot{
		KillSwitchActive:     riskMgr.IsKilled(),
		KillSwitchReason:     riskMgr.KillReason(),
		DailyPnL:             riskMgr.DailyPnL(),
		TotalUnrealized:      riskMgr.TotalUnrealizedPnL(),
		RecentEvents:         len(riskMgr.RiskEvents()),
		MaxPositionPerMarket: cfg.Risk.MaxPositionPerMarket,
		MaxGlobalExposure:    cfg.Risk.MaxGlobalExposure,
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxMarketsActive:     cfg.Risk.MaxMarketsActive,
		CurrentMarketsActive: pool.MarketCount(),
		Toxicity:             riskMgr.AdverseSelection().Toxicity(nil),
		DynamicLimit:         dynamicLimit,
		KellyFraction:        riskMgr.Kelly().CalculateFromTrades(),
		PortfolioBeta:        riskMgr.Correlation().PortfolioBeta(riskMgr.Positions()),
	}

	poolInfo := PoolInfo{
		MarketCount:   pool.MarketCount(),
		MaxMarkets:    cfg.Pool.MaxMarkets,
		TotalCapital:  cfg.Pool.TotalCapital,
		TotalExposure: pool.GetTotalExposure(),
	}

	return DashboardSnapshot{
		Timestamp:       time.Now(),
		Markets:         markets,
		TotalRealized:   totalRealized,
		TotalUnrealized: totalUnrealized,
		TotalPnL:        totalRealized + totalUnrealized,
		Risk:            riskSnap,
		Config:          NewConfigSummary(cfg),
		Pool:            poolInfo,
	}
}
