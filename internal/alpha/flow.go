package alpha

import (
	"math"
	"sync"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// Flow signal thresholds (§4.10).
const (
	flowImbalanceThreshold = 0.15
	flowStrongThreshold    = 0.30
	flowMinEvents          = 5
	flowAggressiveWeight   = 2.0
	flowWideningMinEvents  = 10
)

// TradeEvent is a single trade recorded for flow analysis.
type TradeEvent struct {
	At           time.Time
	Price        money.Price
	Size         money.Size
	Side         types.Side
	IsAggressive bool
}

// FlowState is the computed signal snapshot.
type FlowState struct {
	Signal          string // NEUTRAL, BULLISH, BEARISH, STRONGLY_BULLISH, STRONGLY_BEARISH
	BuyVolume       float64
	SellVolume      float64
	Imbalance       float64 // (buy-sell)/(buy+sell), -1..1
	EventCount      int
	AggressiveRatio float64
	RecommendedSkew money.Price
}

// FlowAnalyzer tracks recent trades in a ring buffer and derives a
// half-life-weighted directional signal (§4.10). One instance per asset.
type FlowAnalyzer struct {
	mu sync.Mutex

	window   time.Duration
	halfLife time.Duration
	events   []TradeEvent
}

// NewFlowAnalyzer builds an analyzer with the spec's defaults: 60s window,
// 30s half-life.
func NewFlowAnalyzer() *FlowAnalyzer {
	return &FlowAnalyzer{
		window:   60 * time.Second,
		halfLife: 30 * time.Second,
	}
}

// RecordTrade appends a trade event, capping retained history at 1000
// entries (old entries also age out of the window on read).
func (f *FlowAnalyzer) RecordTrade(price money.Price, size money.Size, side types.Side, isAggressive bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, TradeEvent{
		At: time.Now(), Price: price, Size: size, Side: side, IsAggressive: isAggressive,
	})
	if len(f.events) > 1000 {
		f.events = f.events[len(f.events)-1000:]
	}
}

// State computes the current flow signal from events inside window_seconds,
// weighting each by 0.5^(age/half_life) and doubling aggressive trades.
func (f *FlowAnalyzer) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-f.window)

	var buyVol, sellVol float64
	var aggressiveCount, count int
	var kept []TradeEvent

	for _, e := range f.events {
		if e.At.Before(cutoff) {
			continue
		}
		kept = append(kept, e)

		age := now.Sub(e.At).Seconds()
		weight := math.Pow(0.5, age/f.halfLife.Seconds())
		if e.IsAggressive {
			weight *= flowAggressiveWeight
			aggressiveCount++
		}
		weighted := e.Size.Float64() * weight

		if e.Side == types.BUY {
			buyVol += weighted
		} else {
			sellVol += weighted
		}
		count++
	}
	f.events = kept

	state := FlowState{
		BuyVolume:  buyVol,
		SellVolume: sellVol,
		EventCount: count,
	}
	if count > 0 {
		state.AggressiveRatio = float64(aggressiveCount) / float64(count)
	}

	total := buyVol + sellVol
	if count < flowMinEvents || total == 0 {
		state.Signal = "NEUTRAL"
		return state
	}

	imbalance := (buyVol - sellVol) / total
	state.Imbalance = imbalance
	state.Signal = classifyFlow(imbalance)
	state.RecommendedSkew = recommendedSkew(imbalance)
	return state
}

func classifyFlow(imbalance float64) string {
	switch {
	case imbalance > flowStrongThreshold:
		return "STRONGLY_BULLISH"
	case imbalance > flowImbalanceThreshold:
		return "BULLISH"
	case imbalance < -flowStrongThreshold:
		return "STRONGLY_BEARISH"
	case imbalance < -flowImbalanceThreshold:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

// recommendedSkew scales imbalance to a price adjustment, clamped to
// ±0.01.
func recommendedSkew(imbalance float64) money.Price {
	v := imbalance * 0.01
	if v > 0.01 {
		v = 0.01
	}
	if v < -0.01 {
		v = -0.01
	}
	return money.PriceFromFloat(v)
}

// ShouldWidenSpread is true when more than half of recent trades were
// aggressive and there's enough volume to trust the signal.
func (f *FlowAnalyzer) ShouldWidenSpread() bool {
	state := f.State()
	return state.EventCount > flowWideningMinEvents && state.AggressiveRatio > 0.5
}
