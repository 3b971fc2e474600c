package risk

import (
	"testing"

	"predictmm/internal/config"
)

func testDynamicLimitsConfig() config.DynamicLimitsConfig {
	return config.DynamicLimitsConfig{
		MinLimitPct: 0.2,
		MaxLimitPct: 2.0,
		EMAFactor:   0.3,
		HistorySize: 100,
	}
}

func TestGetLimitEqualsBaseUnderNeutralConditions(t *testing.T) {
	t.Parallel()
	m := NewDynamicLimitManager(100, 50, testDynamicLimitsConfig())

	limit := m.GetLimit()
	if limit != 100 {
		t.Errorf("limit = %v, want 100 under default neutral conditions", limit)
	}
}

func TestGetLimitRisesWithLowVolAndHighConfidence(t *testing.T) {
	t.Parallel()
	m := NewDynamicLimitManager(100, 50, testDynamicLimitsConfig())
	m.SetConditions(MarketConditions{Confidence: 1.0, VolatilityLevel: "LOW", FillRate: 0.8})

	limit := m.GetLimit()
	if limit <= 100 {
		t.Errorf("limit = %v, want > 100 under favorable conditions", limit)
	}
}

func TestGetLimitFallsWithExtremeVol(t *testing.T) {
	t.Parallel()
	m := NewDynamicLimitManager(100, 50, testDynamicLimitsConfig())
	m.SetConditions(MarketConditions{Confidence: 0.5, VolatilityLevel: "EXTREME", FillRate: 0.5})

	limit := m.GetLimit()
	if limit >= 100 {
		t.Errorf("limit = %v, want < 100 under extreme volatility", limit)
	}
}

func TestDrawdownPenaltyScalesWithLossUpToHalf(t *testing.T) {
	t.Parallel()
	m := NewDynamicLimitManager(100, 50, testDynamicLimitsConfig())

	m.RecordPnL(-25) // half the daily loss limit
	if p := m.DrawdownPenalty(); p < 0.24 || p > 0.26 {
		t.Errorf("penalty = %v, want ~0.25", p)
	}

	m.RecordPnL(-25) // at the daily loss limit, penalty caps at 0.5
	if p := m.DrawdownPenalty(); p != 0.5 {
		t.Errorf("penalty = %v, want 0.5 at the cap", p)
	}
}

func TestGetLimitSmoothsTowardTargetNotJumping(t *testing.T) {
	t.Parallel()
	m := NewDynamicLimitManager(100, 50, testDynamicLimitsConfig())
	m.GetLimit() // seeds lastLimit at 100

	m.SetConditions(MarketConditions{Confidence: 1.0, VolatilityLevel: "LOW", FillRate: 0.8})
	limit := m.GetLimit()

	// raw target is 100*1.2*1.1*1.5 = 198, inside the 200 cap; smoothing
	// with factor 0.3 lands at 129.4, well short of the target.
	if limit >= 190 {
		t.Errorf("limit = %v, expected smoothing to damp the jump toward the cap", limit)
	}
}

func TestHistoryRetainsOnlyConfiguredSize(t *testing.T) {
	t.Parallel()
	cfg := testDynamicLimitsConfig()
	cfg.HistorySize = 3
	m := NewDynamicLimitManager(100, 50, cfg)

	for i := 0; i < 5; i++ {
		m.GetLimit()
	}

	if len(m.History()) != 3 {
		t.Errorf("history length = %d, want 3", len(m.History()))
	}
}
