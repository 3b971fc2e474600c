package risk

import (
	"math"
	"sync"

	"predictmm/internal/config"
)

// MarketConditions summarizes the inputs the dynamic-limit manager needs to
// judge how much size to allow right now.
type MarketConditions struct {
	Confidence      float64 // overall confidence, [0,1]
	VolatilityLevel string  // LOW, NORMAL, HIGH, EXTREME
	FillRate        float64 // recent fill rate
}

// LimitSnapshot is a point-in-time record of an emitted limit.
type LimitSnapshot struct {
	AdjustedLimit   float64
	ConfidenceMult  float64
	DrawdownPenalty float64
	Reason          string
}

// DynamicLimitManager adapts a base position limit to current confidence,
// volatility, fill rate, and drawdown (§4.15).
type DynamicLimitManager struct {
	mu  sync.Mutex
	cfg config.DynamicLimitsConfig

	baseLimit    float64
	maxDailyLoss float64
	minLimit     float64
	maxLimit     float64

	conditions MarketConditions
	dailyPnL   float64
	lastLimit  float64
	history    []LimitSnapshot
}

// NewDynamicLimitManager builds a manager for baseLimit, bounded to
// [min_limit_pct, max_limit_pct] of it unless overridden by cfg.
func NewDynamicLimitManager(baseLimit, maxDailyLoss float64, cfg config.DynamicLimitsConfig) *DynamicLimitManager {
	return &DynamicLimitManager{
		cfg:          cfg,
		baseLimit:    baseLimit,
		maxDailyLoss: maxDailyLoss,
		minLimit:     baseLimit * cfg.MinLimitPct,
		maxLimit:     baseLimit * cfg.MaxLimitPct,
		lastLimit:    baseLimit,
		conditions:   MarketConditions{Confidence: 0.5, VolatilityLevel: "NORMAL", FillRate: 0.5},
	}
}

// SetConditions updates the market conditions the next GetLimit call uses.
func (m *DynamicLimitManager) SetConditions(c MarketConditions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditions = c
}

// RecordPnL accumulates today's realized P&L.
func (m *DynamicLimitManager) RecordPnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL += pnl
}

// ResetDailyPnL clears accumulated P&L at the start of a new trading day.
func (m *DynamicLimitManager) ResetDailyPnL() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
}

// GetLimit computes, bounds, smooths, and records the current position limit.
func (m *DynamicLimitManager) GetLimit() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	confidenceMult := m.confidenceMultLocked()
	drawdownPenalty := m.drawdownPenaltyLocked()

	raw := m.baseLimit * confidenceMult * (1 - drawdownPenalty)
	bounded := clampf(raw, m.minLimit, m.maxLimit)
	smoothed := m.smoothLocked(bounded)

	m.history = append(m.history, LimitSnapshot{
		AdjustedLimit:   smoothed,
		ConfidenceMult:  confidenceMult,
		DrawdownPenalty: drawdownPenalty,
		Reason:          reasonFor(confidenceMult, drawdownPenalty),
	})
	if n := m.cfg.HistorySize; n > 0 && len(m.history) > n {
		m.history = m.history[len(m.history)-n:]
	}

	m.lastLimit = smoothed
	return smoothed
}

// DrawdownPenalty returns today's drawdown penalty in isolation: 0 with no
// loss, scaling linearly to 0.5 as daily P&L approaches -max_daily_loss.
func (m *DynamicLimitManager) DrawdownPenalty() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawdownPenaltyLocked()
}

func (m *DynamicLimitManager) drawdownPenaltyLocked() float64 {
	if m.dailyPnL >= 0 || m.maxDailyLoss <= 0 {
		return 0
	}
	lossRatio := math.Abs(m.dailyPnL) / m.maxDailyLoss
	return math.Min(0.5, lossRatio*0.5)
}

func (m *DynamicLimitManager) confidenceMultLocked() float64 {
	c := m.conditions
	mult := 1.0

	switch c.VolatilityLevel {
	case "LOW":
		mult *= 1.2
	case "HIGH":
		mult *= 0.7
	case "EXTREME":
		mult *= 0.5
	}

	if c.FillRate > 0.7 {
		mult *= 1.1
	} else if c.FillRate < 0.3 {
		mult *= 0.8
	}

	mult *= 0.5 + c.Confidence

	return clampf(mult, 0.5, 2.0)
}

func (m *DynamicLimitManager) smoothLocked(target float64) float64 {
	if m.lastLimit == 0 {
		return round2(target)
	}
	smoothed := m.lastLimit + m.cfg.EMAFactor*(target-m.lastLimit)
	return round2(smoothed)
}

// History returns the retained limit snapshots, most recent last.
func (m *DynamicLimitManager) History() []LimitSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LimitSnapshot, len(m.history))
	copy(out, m.history)
	return out
}

func reasonFor(confidenceMult, drawdownPenalty float64) string {
	switch {
	case drawdownPenalty > 0 && confidenceMult < 1.0:
		return "drawdown and low confidence"
	case drawdownPenalty > 0:
		return "drawdown penalty"
	case confidenceMult > 1.0:
		return "favorable conditions"
	case confidenceMult < 1.0:
		return "unfavorable conditions"
	default:
		return "baseline"
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
