package alpha

import (
	"math"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// Wall/depth classification thresholds (§4.8).
const (
	wallThreshold     = 0.30 // one order > 30% of nearby depth counts as a wall
	minTradeableDepth = 50.0 // $50 each side
	thickDepthUSD     = 200.0
)

// BookAnalysis is the full set of signals extracted from a snapshot.
type BookAnalysis struct {
	ImbalanceRatio  float64 // 0=all ask, 0.5=balanced, 1=all bid
	ImbalanceSignal string  // "BID_HEAVY", "ASK_HEAVY", "BALANCED"
	PriceAdjustment money.Price

	BidDepth   float64
	AskDepth   float64
	TotalDepth float64

	BidWallPrice money.Price
	HasBidWall   bool
	AskWallPrice money.Price
	HasAskWall   bool

	SuggestedBid money.Price
	SuggestedAsk money.Price
	HasSuggested bool

	DepthQuality string // "THIN", "NORMAL", "THICK"
}

// BookAnalyzer extracts imbalance, depth, and competitive-positioning
// signals from an order book snapshot (§4.8).
type BookAnalyzer struct {
	imbalanceThreshold float64
	depthBand          float64 // absolute distance from the best price, e.g. 0.05 = 5 cents
	tickImprove        money.Price
}

// NewBookAnalyzer builds an analyzer with the spec's defaults: 10%
// imbalance threshold, 5-cent depth band, 1-cent tick improvement.
func NewBookAnalyzer() *BookAnalyzer {
	return &BookAnalyzer{
		imbalanceThreshold: 0.10,
		depthBand:          0.05,
		tickImprove:        money.PriceFromFloat(0.01),
	}
}

// Analyze computes the full signal set. A nil or one-sided book returns a
// neutral empty analysis.
func (a *BookAnalyzer) Analyze(book *types.OrderBookSnapshot) BookAnalysis {
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return BookAnalysis{ImbalanceRatio: 0.5, ImbalanceSignal: "BALANCED", DepthQuality: "THIN"}
	}

	bestBid := book.Bids[0].Price.Float64()
	bestAsk := book.Asks[0].Price.Float64()

	bidDepth, bidLevels := depthWithin(book.Bids, bestBid, a.depthBand)
	askDepth, askLevels := depthWithin(book.Asks, bestAsk, a.depthBand)
	total := bidDepth + askDepth

	ratio := 0.5
	if total > 0 {
		ratio = bidDepth / total
	}

	analysis := BookAnalysis{
		ImbalanceRatio:  ratio,
		ImbalanceSignal: classifyImbalance(ratio, a.imbalanceThreshold),
		PriceAdjustment: imbalanceAdjustment(ratio),
		BidDepth:        bidDepth,
		AskDepth:        askDepth,
		TotalDepth:      total,
		DepthQuality:    classifyDepth(bidDepth, askDepth),
	}

	if wall, ok := findWall(bidLevels, bidDepth); ok {
		analysis.HasBidWall, analysis.BidWallPrice = true, wall
	}
	if wall, ok := findWall(askLevels, askDepth); ok {
		analysis.HasAskWall, analysis.AskWallPrice = true, wall
	}

	sugBid, sugAsk, ok := a.competitivePrices(book, analysis)
	analysis.HasSuggested = ok
	analysis.SuggestedBid = sugBid
	analysis.SuggestedAsk = sugAsk

	return analysis
}

// ImbalanceAdjustment returns just the clamped price adjustment, the
// common case a quoter wants without the rest of the analysis.
func (a *BookAnalyzer) ImbalanceAdjustment(book *types.OrderBookSnapshot, maxAdj money.Price) money.Price {
	analysis := a.Analyze(book)
	adj := analysis.PriceAdjustment
	max := maxAdj.Float64()
	v := adj.Float64()
	if v > max {
		return maxAdj
	}
	if v < -max {
		return money.PriceFromFloat(-max)
	}
	return adj
}

func depthWithin(levels []types.PriceLevel, best, band float64) (float64, []types.PriceLevel) {
	var depth float64
	var included []types.PriceLevel
	for _, lvl := range levels {
		p := lvl.Price.Float64()
		if math.Abs(p-best) <= band {
			depth += p * lvl.Size.Float64()
			included = append(included, lvl)
		}
	}
	return depth, included
}

func classifyImbalance(ratio, threshold float64) string {
	switch {
	case ratio > 0.5+threshold:
		return "BID_HEAVY"
	case ratio < 0.5-threshold:
		return "ASK_HEAVY"
	default:
		return "BALANCED"
	}
}

// imbalanceAdjustment maps a deviation from balanced (0.5) to a price
// adjustment: a 0.2 deviation maps to a 0.01 adjustment.
func imbalanceAdjustment(ratio float64) money.Price {
	deviation := ratio - 0.5
	return money.PriceFromFloat(deviation * 0.05)
}

func findWall(levels []types.PriceLevel, totalDepth float64) (money.Price, bool) {
	if totalDepth < minTradeableDepth {
		return money.ZeroPrice(), false
	}
	for _, lvl := range levels {
		value := lvl.Price.Float64() * lvl.Size.Float64()
		if value/totalDepth > wallThreshold {
			return lvl.Price, true
		}
	}
	return money.ZeroPrice(), false
}

func classifyDepth(bidDepth, askDepth float64) string {
	min := math.Min(bidDepth, askDepth)
	switch {
	case min < minTradeableDepth:
		return "THIN"
	case min < thickDepthUSD:
		return "NORMAL"
	default:
		return "THICK"
	}
}

// competitivePrices suggests a one-tick improvement over best bid/ask,
// stepping behind a wall at the top of book instead of competing with it.
func (a *BookAnalyzer) competitivePrices(book *types.OrderBookSnapshot, analysis BookAnalysis) (money.Price, money.Price, bool) {
	bestBid := book.Bids[0].Price
	bestAsk := book.Asks[0].Price

	suggestedBid := bestBid.Add(a.tickImprove)
	if analysis.HasBidWall && analysis.BidWallPrice.Cmp(bestBid) == 0 {
		suggestedBid = bestBid.Sub(a.tickImprove)
	}

	suggestedAsk := bestAsk.Sub(a.tickImprove)
	if analysis.HasAskWall && analysis.AskWallPrice.Cmp(bestAsk) == 0 {
		suggestedAsk = bestAsk.Add(a.tickImprove)
	}

	if suggestedBid.Cmp(suggestedAsk) >= 0 {
		return bestBid, bestAsk, true
	}
	return suggestedBid, suggestedAsk, true
}
