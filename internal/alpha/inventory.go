package alpha

import (
	"math"
	"sync"

	"predictmm/pkg/money"
)

// Inventory classification bands (§4.9).
const (
	inventoryNeutralBand = 0.30
	inventoryMaxBand     = 0.90
)

// InventoryState is a snapshot for logging/dashboard display.
type InventoryState struct {
	Position       money.Size
	Ratio          float64 // clamp(position/limit, -1, 1)
	Classification string  // NEUTRAL, LONG, SHORT, MAX_LONG, MAX_SHORT
	BidSkew        money.Price
	AskSkew        money.Price
	BidSizeMult    float64
	AskSizeMult    float64
	VWAP           money.Price
	HasVWAP        bool
	UnrealizedPnL  money.Price
}

// InventoryManager derives bid/ask skew and size multipliers from the
// current position relative to its limit (§4.9). One instance per asset.
type InventoryManager struct {
	mu sync.Mutex

	limit              money.Size
	skewMax            money.Price
	sizeReductionStart float64
	minSizeMult        float64

	buyNotional  float64
	buySize      float64
	sellNotional float64
	sellSize     float64
}

// NewInventoryManager builds a manager with the spec's defaults: skew_max
// 2 cents, size-reduction starting at |ρ|=0.5, floor multiplier 0.2.
func NewInventoryManager(limit money.Size) *InventoryManager {
	return &InventoryManager{
		limit:              limit,
		skewMax:            money.PriceFromFloat(0.02),
		sizeReductionStart: 0.5,
		minSizeMult:        0.2,
	}
}

// RecordFill updates cumulative buy/sell notional used for VWAP.
func (m *InventoryManager) RecordFill(isBuy bool, price money.Price, size money.Size) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notional := price.Float64() * size.Float64()
	if isBuy {
		m.buyNotional += notional
		m.buySize += size.Float64()
	} else {
		m.sellNotional += notional
		m.sellSize += size.Float64()
	}
}

// ratio computes clamp(position/limit, -1, 1). It takes no lock itself;
// State calls it while holding m.mu.
func (m *InventoryManager) ratio(position money.Size) float64 {
	limit := m.limit.Float64()
	if limit <= 0 {
		return 0
	}
	r := position.Float64() / limit
	return math.Max(-1, math.Min(1, r))
}

// State computes the full inventory signal set for the given position and
// mid price.
func (m *InventoryManager) State(position money.Size, mid money.Price) InventoryState {
	m.mu.Lock()
	defer m.mu.Unlock()

	rho := m.ratio(position)
	classification := classifyInventory(rho)

	var bidSkew, askSkew money.Price
	switch {
	case rho > 0:
		bidSkew = money.PriceFromFloat(-m.skewMax.Float64() * rho)
	case rho < 0:
		askSkew = money.PriceFromFloat(-m.skewMax.Float64() * rho)
	}

	bidMult, askMult := m.sizeMultipliers(rho)

	vwap, hasVWAP := m.vwapLocked(position)

	var unrealized money.Price
	if hasVWAP {
		unrealized = money.PriceFromFloat(position.Float64() * (mid.Float64() - vwap.Float64()))
	}

	return InventoryState{
		Position:       position,
		Ratio:          rho,
		Classification: classification,
		BidSkew:        bidSkew,
		AskSkew:        askSkew,
		BidSizeMult:    bidMult,
		AskSizeMult:    askMult,
		VWAP:           vwap,
		HasVWAP:        hasVWAP,
		UnrealizedPnL:  unrealized,
	}
}

// sizeMultipliers reduces the "building" side (the side that would push
// |position| further from zero) once |ρ| crosses size_reduction_start,
// linearly down to min_size_mult at |ρ|=1. The other side stays at 1.0.
func (m *InventoryManager) sizeMultipliers(rho float64) (bidMult, askMult float64) {
	absRho := math.Abs(rho)
	if absRho < m.sizeReductionStart {
		return 1.0, 1.0
	}

	span := 1.0 - m.sizeReductionStart
	ratio := 1.0
	if span > 0 {
		ratio = (absRho - m.sizeReductionStart) / span
	}
	reduced := 1.0 - ratio*(1.0-m.minSizeMult)

	if rho > 0 {
		// long: buying builds the position further, so the bid is reduced.
		return reduced, 1.0
	}
	return 1.0, reduced
}

func classifyInventory(rho float64) string {
	absRho := math.Abs(rho)
	switch {
	case absRho >= inventoryMaxBand:
		if rho > 0 {
			return "MAX_LONG"
		}
		return "MAX_SHORT"
	case absRho >= inventoryNeutralBand:
		if rho > 0 {
			return "LONG"
		}
		return "SHORT"
	default:
		return "NEUTRAL"
	}
}

// vwapLocked returns the average entry price: average buy price while
// long, average sell price while short, undefined (ok=false) when flat or
// the relevant side has no history. Caller holds m.mu.
func (m *InventoryManager) vwapLocked(position money.Size) (money.Price, bool) {
	pos := position.Float64()
	switch {
	case pos > 0 && m.buySize > 0:
		return money.PriceFromFloat(m.buyNotional / m.buySize), true
	case pos < 0 && m.sellSize > 0:
		return money.PriceFromFloat(m.sellNotional / m.sellSize), true
	default:
		return money.ZeroPrice(), false
	}
}

// Reset clears accumulated fill history (used on position flattening).
func (m *InventoryManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buyNotional, m.buySize, m.sellNotional, m.sellSize = 0, 0, 0, 0
}
