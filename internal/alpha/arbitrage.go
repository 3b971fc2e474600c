package alpha

import (
	"math"
	"sort"
	"sync"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// Pair registers the two legs of a binary market's YES/NO parity.
type Pair struct {
	ConditionID string
	YesTokenID  string
	NoTokenID   string
}

// PriceGetter resolves an asset's current mid (or best-available) price.
// ok is false when no price is known yet.
type PriceGetter func(assetID string) (money.Price, bool)

// ArbitrageDetector scans registered YES/NO pairs for parity deviations
// from 1.00 and classifies the opportunity (§4.11).
type ArbitrageDetector struct {
	mu sync.Mutex

	feeRate       float64 // per-leg fee rate, e.g. 0.02 for 2%
	minProfitBps  float64
	skewThreshold float64

	pairs  []Pair
	cached map[string]types.ArbitrageSignal // by ConditionID
}

// NewArbitrageDetector builds a detector with the spec's defaults:
// min_profit_bps 20, skew_threshold_bps 10.
func NewArbitrageDetector(feeRate float64) *ArbitrageDetector {
	return &ArbitrageDetector{
		feeRate:       feeRate,
		minProfitBps:  20,
		skewThreshold: 10,
		cached:        make(map[string]types.ArbitrageSignal),
	}
}

// RegisterPair adds a YES/NO pair to scan.
func (d *ArbitrageDetector) RegisterPair(p Pair) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pairs = append(d.pairs, p)
}

// evaluate computes the signal for one pair given current prices.
func (d *ArbitrageDetector) evaluate(p Pair, yes, no money.Price) types.ArbitrageSignal {
	sum := yes.Float64() + no.Float64()
	deviation := sum - 1.00
	deviationBps := deviation * 10000
	feeCostBps := 2 * d.feeRate * 10000
	netBps := math.Abs(deviationBps) - feeCostBps

	signal := types.ArbitrageSignal{
		ConditionID: p.ConditionID,
		YesPrice:    yes,
		NoPrice:     no,
		Sum:         money.PriceFromFloat(sum),
	}

	switch {
	case deviation > 0 && netBps >= d.minProfitBps:
		signal.Type = types.ArbSellBoth
		signal.ProfitBps = netBps
		signal.Confidence = math.Min(1, netBps/100)
		signal.ActionDescription = "sell both legs: combined price above parity"
	case deviation < 0 && netBps >= d.minProfitBps:
		signal.Type = types.ArbBuyBoth
		signal.ProfitBps = netBps
		signal.Confidence = math.Min(1, netBps/100)
		signal.ActionDescription = "buy both legs: combined price below parity"
	case math.Abs(deviationBps) >= d.skewThreshold:
		signal.Type = types.ArbSkew
		signal.ProfitBps = math.Abs(deviationBps)
		signal.Confidence = 0.5
		signal.ActionDescription = "skew quotes toward fair value"
	default:
		signal.Type = types.ArbNone
	}

	return signal
}

// ScanAll evaluates every registered pair, caches the latest signal per
// ConditionID, and returns actionable signals (non-NONE, profit_bps > 10)
// sorted by profit descending.
func (d *ArbitrageDetector) ScanAll(price PriceGetter) []types.ArbitrageSignal {
	d.mu.Lock()
	pairs := make([]Pair, len(d.pairs))
	copy(pairs, d.pairs)
	d.mu.Unlock()

	var actionable []types.ArbitrageSignal
	for _, p := range pairs {
		yes, okY := price(p.YesTokenID)
		no, okN := price(p.NoTokenID)
		if !okY || !okN {
			continue
		}

		signal := d.evaluate(p, yes, no)

		d.mu.Lock()
		d.cached[p.ConditionID] = signal
		d.mu.Unlock()

		if signal.Type != types.ArbNone && signal.ProfitBps > 10 {
			actionable = append(actionable, signal)
		}
	}

	sort.Slice(actionable, func(i, j int) bool {
		return actionable[i].ProfitBps > actionable[j].ProfitBps
	})
	return actionable
}

// CachedSignal returns the most recent ScanAll result for conditionID, if
// any pair with that ID has been scanned at least once.
func (d *ArbitrageDetector) CachedSignal(conditionID string) (types.ArbitrageSignal, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	signal, ok := d.cached[conditionID]
	return signal, ok
}

// GetQuoteAdjustment shifts a pair's base quotes toward fair value when a
// cached SKEW signal covers assetID; otherwise returns the base quotes
// unchanged. The 0.005 leg rounds to the 0.01 price scale, so both quotes
// move by one cent: the shift is not asymmetric.
func (d *ArbitrageDetector) GetQuoteAdjustment(assetID string, baseBid, baseAsk money.Price) (money.Price, money.Price) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var pair *Pair
	for i := range d.pairs {
		if d.pairs[i].YesTokenID == assetID || d.pairs[i].NoTokenID == assetID {
			pair = &d.pairs[i]
			break
		}
	}
	if pair == nil {
		return baseBid, baseAsk
	}

	signal, ok := d.cached[pair.ConditionID]
	if !ok || signal.Type != types.ArbSkew {
		return baseBid, baseAsk
	}

	// Sum above parity: this leg is relatively rich, lean to sell more
	// (shift ask down more than bid). Sum below parity: the opposite.
	sum := signal.Sum.Float64()
	if sum > 1.00 {
		return baseBid.Sub(money.PriceFromFloat(0.005)), baseAsk.Sub(money.PriceFromFloat(0.010))
	}
	return baseBid.Add(money.PriceFromFloat(0.010)), baseAsk.Add(money.PriceFromFloat(0.005))
}
