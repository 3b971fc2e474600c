package risk

import (
	"math"
	"sync"

	"predictmm/internal/config"
)

// TradeOutcome is the minimal record KellySizer needs from a closed trade.
type TradeOutcome struct {
	PnL float64
}

// KellyResult is the detailed breakdown of a Kelly sizing calculation.
type KellyResult struct {
	FullKelly       float64
	AppliedKelly    float64
	WinRate         float64
	WinLossRatio    float64
	RecommendedSize int64
}

// KellySizer sizes positions with fractional Kelly criterion, sourcing win
// rate and win/loss ratio from recent trade history (§4.16).
type KellySizer struct {
	mu  sync.Mutex
	cfg config.KellyConfig

	bankroll float64
	trades   []TradeOutcome
}

// NewKellySizer builds a sizer tuned by cfg.
func NewKellySizer(cfg config.KellyConfig) *KellySizer {
	return &KellySizer{cfg: cfg}
}

// SetBankroll sets the current bankroll used to convert a Kelly fraction
// into a contract count.
func (k *KellySizer) SetBankroll(bankroll float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.bankroll = bankroll
}

// RecordTrade appends a closed trade to the rolling history used by
// CalculateFromTrades.
func (k *KellySizer) RecordTrade(pnl float64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.trades = append(k.trades, TradeOutcome{PnL: pnl})
}

// Calculate returns the applied Kelly fraction: fractional Kelly of the
// full-Kelly edge, clamped at 0 below and max_position_pct above.
func (k *KellySizer) Calculate(winRate, winLossRatio float64) float64 {
	k.mu.Lock()
	cfg := k.cfg
	k.mu.Unlock()
	return calculateKelly(winRate, winLossRatio, cfg)
}

func calculateKelly(winRate, winLossRatio float64, cfg config.KellyConfig) float64 {
	if winRate <= 0 || winRate >= 1 || winLossRatio <= 0 {
		return 0
	}

	p := winRate
	q := 1 - winRate
	b := winLossRatio

	fullKelly := (p*b - q) / b
	if fullKelly <= 0 {
		return 0
	}

	applied := fullKelly * cfg.Fraction
	return math.Min(applied, cfg.MaxPositionPct)
}

// CalculateFromTrades derives win rate and win/loss ratio from recorded
// trade history and delegates to Calculate. Returns 0 below min_trades or
// when either side of the ledger (wins or losses) is empty.
func (k *KellySizer) CalculateFromTrades() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(k.trades) < k.cfg.MinTrades {
		return 0
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, t := range k.trades {
		switch {
		case t.PnL > 0:
			wins++
			winSum += t.PnL
		case t.PnL < 0:
			losses++
			lossSum += t.PnL
		}
	}
	if wins == 0 || losses == 0 {
		return 0
	}

	winRate := float64(wins) / float64(len(k.trades))
	avgWin := winSum / float64(wins)
	avgLoss := math.Abs(lossSum / float64(losses))
	if avgLoss == 0 {
		return 0
	}

	return calculateKelly(winRate, avgWin/avgLoss, k.cfg)
}

// GetPositionSize converts a win-rate/ratio pair and a price into an
// integral contract count against the current bankroll. Contracts are
// rounded down since they are integral.
func (k *KellySizer) GetPositionSize(winRate, winLossRatio, price float64) int64 {
	k.mu.Lock()
	bankroll := k.bankroll
	cfg := k.cfg
	k.mu.Unlock()

	if bankroll <= 0 || price <= 0 {
		return 0
	}

	kellyPct := calculateKelly(winRate, winLossRatio, cfg)
	if kellyPct <= 0 {
		return 0
	}

	shares := bankroll * kellyPct / price
	return int64(math.Floor(shares))
}

// GetResult returns the full breakdown for a win-rate/ratio pair, including
// the position size if a price is supplied (price <= 0 skips sizing).
func (k *KellySizer) GetResult(winRate, winLossRatio, price float64) KellyResult {
	k.mu.Lock()
	bankroll := k.bankroll
	cfg := k.cfg
	k.mu.Unlock()

	p, q, b := winRate, 1-winRate, winLossRatio
	var fullKelly float64
	if b > 0 {
		fullKelly = math.Max(0, (p*b-q)/b)
	}
	applied := math.Min(fullKelly*cfg.Fraction, cfg.MaxPositionPct)

	var size int64
	if bankroll > 0 && price > 0 && applied > 0 {
		size = int64(math.Floor(bankroll * applied / price))
	}

	return KellyResult{
		FullKelly:       fullKelly,
		AppliedKelly:    applied,
		WinRate:         winRate,
		WinLossRatio:    winLossRatio,
		RecommendedSize: size,
	}
}
