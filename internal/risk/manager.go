// Package risk aggregates portfolio-level risk controls across all active
// markets: a hard kill switch, an error-rate circuit breaker, daily-loss and
// exposure limits, and the supporting sub-detectors (adverse selection,
// dynamic limits, Kelly sizing, correlation/portfolio beta).
//
// The manager runs in one of two modes:
//
//   - Enforce (LIVE):      check() results propagate to callers as-is.
//   - Data-gather (DRY_RUN): any non-OK check is logged as a RiskEvent with
//     enforced=false and OK is returned instead, so the bot trades through
//     the condition while the operator observes what would have fired live.
//     The kill switch itself is always enforced regardless of mode.
package risk

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// Status is the outcome of a risk check.
type Status string

const (
	OK   Status = "OK"
	WARN Status = "WARN"
	STOP Status = "STOP"
)

// CheckResult is the outcome of Manager.Check.
type CheckResult struct {
	Status Status
	Reason string
}

// RiskEvent records a non-OK check, whether or not it was enforced.
type RiskEvent struct {
	Timestamp time.Time
	Status    Status
	Reason    string
	Enforced  bool
}

// TradeRecord is a completed trade fed into daily P&L and the sub-detectors.
type TradeRecord struct {
	AssetID     string
	Side        types.Side
	Price       float64
	Size        float64
	RealizedPnL *float64 // nil when the trade didn't close a position
	Fee         float64
	Timestamp   time.Time
}

// Manager aggregates all risk controls for the bot (§4.18).
type Manager struct {
	cfg    config.RiskConfig
	logger *slog.Logger
	mode   Mode

	mu               sync.Mutex
	startTime        time.Time
	killed           bool
	killReason       string
	cooldownUntil    time.Time
	errorTimestamps  []time.Time
	dailyPnL         float64
	trades           []TradeRecord
	events           []RiskEvent
	volMultiplier    float64
	volAdjustedLimit float64
	positions        map[string]float64
	entryPrices      map[string]float64
	unrealizedPnL    map[string]float64

	dynamicLimits *DynamicLimitManager
	adverse       *AdverseSelectionDetector
	kelly         *KellySizer
	correlation   *PortfolioRisk
	corrTracker   *CorrelationTracker
}

// Mode selects enforce vs. data-gather behavior.
type Mode int

const (
	// ModeEnforce propagates check results to callers (default for LIVE).
	ModeEnforce Mode = iota
	// ModeDataGather logs non-OK checks as RiskEvents but always returns OK
	// to the caller (default for DRY_RUN). The kill switch still fires.
	ModeDataGather
)

// NewManager builds an aggregator wired with its sub-detectors.
func NewManager(cfg config.RiskConfig, logger *slog.Logger, mode Mode) *Manager {
	return &Manager{
		cfg:           cfg,
		logger:        logger.With("component", "risk"),
		mode:          mode,
		startTime:     time.Now(),
		volMultiplier: 1.0,
		positions:     make(map[string]float64),
		entryPrices:   make(map[string]float64),
		unrealizedPnL: make(map[string]float64),

		dynamicLimits: NewDynamicLimitManager(cfg.MaxPositionPerMarket, cfg.MaxDailyLoss, cfg.DynamicLimits),
		adverse:       NewAdverseSelectionDetector(cfg.AdverseSelection),
		kelly:         NewKellySizer(cfg.Kelly),
		correlation:   NewPortfolioRisk(cfg.Correlation),
		corrTracker:   NewCorrelationTracker(cfg.Correlation),
	}
}

// DynamicLimits returns the embedded dynamic-limit manager.
func (m *Manager) DynamicLimits() *DynamicLimitManager { return m.dynamicLimits }

// AdverseSelection returns the embedded adverse-selection detector.
func (m *Manager) AdverseSelection() *AdverseSelectionDetector { return m.adverse }

// Kelly returns the embedded Kelly sizer.
func (m *Manager) Kelly() *KellySizer { return m.kelly }

// Correlation returns the embedded portfolio-risk/correlation tracker.
func (m *Manager) Correlation() *PortfolioRisk { return m.correlation }

// CorrelationTracker returns the embedded rolling price tracker that feeds
// Correlation's pairwise correlations.
func (m *Manager) CorrelationTracker() *CorrelationTracker { return m.corrTracker }

// RecordPrice feeds a price sample into the correlation tracker and syncs
// every freshly computed pairwise correlation into the portfolio-risk
// tracker that CanAddPosition and PortfolioBeta read from (§4.17).
func (m *Manager) RecordPrice(market string, price float64) {
	m.corrTracker.RecordPrice(market, price)
	for _, e := range m.corrTracker.GetAllCorrelations() {
		m.correlation.SetCorrelation(e.MarketA, e.MarketB, e.Correlation)
	}
}

// RecordError notes a failed operation for the error-rate circuit breaker.
func (m *Manager) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorTimestamps = append(m.errorTimestamps, time.Now())
	if len(m.errorTimestamps) > 100 {
		m.errorTimestamps = m.errorTimestamps[len(m.errorTimestamps)-100:]
	}
}

// errorRateLocked returns the count of recorded errors within the last
// 60 seconds. Caller holds m.mu.
func (m *Manager) errorRateLocked() int {
	cutoff := time.Now().Add(-60 * time.Second)
	n := 0
	for _, ts := range m.errorTimestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

// Check runs the seven-step ladder and returns the aggregate status for the
// given assets (nil or empty checks only the portfolio-wide steps).
func (m *Manager) Check(assetIDs []string) CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := m.checkLocked(assetIDs)
	if result.Status == OK {
		return result
	}

	// The kill switch is always enforced regardless of mode.
	enforced := m.mode == ModeEnforce || m.killed
	m.events = append(m.events, RiskEvent{
		Timestamp: time.Now(),
		Status:    result.Status,
		Reason:    result.Reason,
		Enforced:  enforced,
	})
	if len(m.events) > 1000 {
		m.events = m.events[len(m.events)-1000:]
	}
	if !enforced {
		return CheckResult{Status: OK}
	}
	return result
}

func (m *Manager) checkLocked(assetIDs []string) CheckResult {
	// 1. Kill switch.
	if m.killed {
		return CheckResult{Status: STOP, Reason: m.killReason}
	}

	// 2. Cooldown.
	if time.Now().Before(m.cooldownUntil) {
		return CheckResult{Status: STOP, Reason: "in cooldown"}
	}

	// 3. Error-rate circuit breaker.
	if m.cfg.MaxErrorsPerMinute > 0 && m.errorRateLocked() >= m.cfg.MaxErrorsPerMinute {
		m.cooldownUntil = time.Now().Add(m.cfg.ErrorCooldown)
		return CheckResult{Status: STOP, Reason: "error rate exceeded max_errors_per_minute"}
	}

	// 4. Daily loss breach.
	if m.dailyPnL <= -m.cfg.MaxDailyLoss {
		if m.mode == ModeEnforce {
			m.killLocked("max daily loss breached")
		}
		return CheckResult{Status: STOP, Reason: "max daily loss breached"}
	}

	// 5. Approaching daily loss.
	if m.dailyPnL < -0.8*m.cfg.MaxDailyLoss {
		return CheckResult{Status: WARN, Reason: "approaching max daily loss"}
	}

	// 6. Per-asset position limit.
	for _, id := range assetIDs {
		if pos, ok := m.positions[id]; ok {
			if abs(pos) > m.volAdjustedLimitOrDefault() {
				return CheckResult{Status: WARN, Reason: fmt.Sprintf("asset %s exceeds vol-adjusted position limit", id)}
			}
		}
	}

	// 7. Total exposure.
	var total float64
	for _, pos := range m.positions {
		total += abs(pos)
	}
	if total > m.cfg.MaxGlobalExposure {
		return CheckResult{Status: WARN, Reason: "total exposure exceeds max_total_exposure"}
	}

	return CheckResult{Status: OK}
}

func (m *Manager) volAdjustedLimitOrDefault() float64 {
	if m.volAdjustedLimit > 0 {
		return m.volAdjustedLimit
	}
	return m.cfg.MaxPositionPerMarket
}

// SetVolatilityMultiplier sets the current volatility multiplier and
// derives the vol-adjusted position limit: max_position * limit_mult(m),
// where limit_mult(1.0)=1.0 decreasing linearly to 0.5 as m approaches 2.0,
// never exceeding 1.0.
func (m *Manager) SetVolatilityMultiplier(mult float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.volMultiplier = mult
	m.volAdjustedLimit = m.cfg.MaxPositionPerMarket * limitMult(mult)
}

func limitMult(m float64) float64 {
	if m <= 1.0 {
		return 1.0
	}
	if m >= 2.0 {
		return 0.5
	}
	return 1.0 - 0.5*(m-1.0)
}

// RecordTrade appends a trade, feeds the adverse-selection and dynamic-limit
// sub-detectors, and applies net realized P&L (pnl - fee) to the daily
// total. It returns the adverse-selection fill ID so the caller can later
// attach the post-fill outcome price via AdverseSelection().RecordOutcome.
func (m *Manager) RecordTrade(t TradeRecord) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades = append(m.trades, t)

	fillID := m.adverse.RecordFill(t.Side, money.PriceFromFloat(t.Price), money.SizeFromFloat(t.Size))

	if t.RealizedPnL != nil {
		net := *t.RealizedPnL - t.Fee
		m.dailyPnL += net
		m.dynamicLimits.RecordPnL(net)
		m.kelly.RecordTrade(net)
	}
	return fillID
}

// UpdateUnrealizedPnL stores the entry price for asset on first call and
// computes position * (mid - entry) on every call.
func (m *Manager) UpdateUnrealizedPnL(asset string, position, mid float64, entry *float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entryPrices[asset]; !ok {
		if entry != nil {
			m.entryPrices[asset] = *entry
		} else {
			m.entryPrices[asset] = mid
		}
	}
	m.positions[asset] = position

	pnl, _ := decimal.NewFromFloat(position).
		Mul(decimal.NewFromFloat(mid).Sub(decimal.NewFromFloat(m.entryPrices[asset]))).
		Float64()
	m.unrealizedPnL[asset] = pnl
	return pnl
}

// Positions returns a copy of the currently tracked signed position per
// asset, for dashboard display and portfolio-beta calculations.
func (m *Manager) Positions() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.positions))
	for k, v := range m.positions {
		out[k] = v
	}
	return out
}

// TotalUnrealizedPnL sums unrealized P&L across all tracked assets.
func (m *Manager) TotalUnrealizedPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	for _, pnl := range m.unrealizedPnL {
		total += pnl
	}
	return total
}

// Kill activates the kill switch with reason. Always enforced.
func (m *Manager) Kill(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killLocked(reason)
}

func (m *Manager) killLocked(reason string) {
	m.killed = true
	m.killReason = reason
	m.logger.Error("KILL SWITCH", "reason", reason)
}

// ResetKillSwitch clears the kill switch for operator recovery.
func (m *Manager) ResetKillSwitch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killed = false
	m.killReason = ""
	m.logger.Info("kill switch reset by operator")
}

// IsKilled reports whether the kill switch is currently active.
func (m *Manager) IsKilled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killed
}

// KillReason returns the reason the kill switch was last engaged, empty if
// it isn't currently active.
func (m *Manager) KillReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.killed {
		return ""
	}
	return m.killReason
}

// DailyPnL returns today's accumulated realized P&L net of fees.
func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dailyPnL
}

// ResetDailyPnL clears today's P&L (call at the start of a new trading day).
func (m *Manager) ResetDailyPnL() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyPnL = 0
	m.dynamicLimits.ResetDailyPnL()
}

// RiskEvents returns the retained log of non-OK checks, most recent last.
func (m *Manager) RiskEvents() []RiskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RiskEvent, len(m.events))
	copy(out, m.events)
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
