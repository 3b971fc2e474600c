package alpha

import (
	"testing"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func level(price, size float64) types.PriceLevel {
	return types.PriceLevel{Price: money.PriceFromFloat(price), Size: money.SizeFromFloat(size)}
}

func TestAnalyzeEmptyBookIsNeutral(t *testing.T) {
	t.Parallel()
	a := NewBookAnalyzer()
	analysis := a.Analyze(nil)
	if analysis.ImbalanceSignal != "BALANCED" || analysis.DepthQuality != "THIN" {
		t.Fatalf("unexpected neutral analysis: %+v", analysis)
	}
}

func TestAnalyzeDetectsBidHeavyImbalance(t *testing.T) {
	t.Parallel()
	a := NewBookAnalyzer()
	book := &types.OrderBookSnapshot{
		Bids: []types.PriceLevel{level(0.50, 1000)},
		Asks: []types.PriceLevel{level(0.51, 100)},
	}
	analysis := a.Analyze(book)
	if analysis.ImbalanceSignal != "BID_HEAVY" {
		t.Errorf("signal = %s, want BID_HEAVY", analysis.ImbalanceSignal)
	}
	if analysis.PriceAdjustment.Float64() <= 0 {
		t.Errorf("expected positive price adjustment, got %v", analysis.PriceAdjustment)
	}
}

func TestAnalyzeFindsWallWhenOrderDominatesDepth(t *testing.T) {
	t.Parallel()
	a := NewBookAnalyzer()
	book := &types.OrderBookSnapshot{
		Bids: []types.PriceLevel{level(0.50, 1000), level(0.495, 10)},
		Asks: []types.PriceLevel{level(0.51, 50)},
	}
	analysis := a.Analyze(book)
	if !analysis.HasBidWall {
		t.Fatal("expected a detected bid wall")
	}
	if analysis.BidWallPrice.Cmp(money.PriceFromFloat(0.50)) != 0 {
		t.Errorf("wall price = %s, want 0.50", analysis.BidWallPrice)
	}
}

func TestCompetitivePricesNeverCross(t *testing.T) {
	t.Parallel()
	a := NewBookAnalyzer()
	book := &types.OrderBookSnapshot{
		Bids: []types.PriceLevel{level(0.50, 10)},
		Asks: []types.PriceLevel{level(0.51, 10)},
	}
	analysis := a.Analyze(book)
	if !analysis.HasSuggested {
		t.Fatal("expected suggested prices")
	}
	if analysis.SuggestedBid.Cmp(analysis.SuggestedAsk) >= 0 {
		t.Errorf("suggested prices cross: bid=%s ask=%s", analysis.SuggestedBid, analysis.SuggestedAsk)
	}
}

func TestClassifyDepthLevels(t *testing.T) {
	t.Parallel()
	if got := classifyDepth(10, 10); got != "THIN" {
		t.Errorf("got %s, want THIN", got)
	}
	if got := classifyDepth(150, 150); got != "NORMAL" {
		t.Errorf("got %s, want NORMAL", got)
	}
	if got := classifyDepth(300, 300); got != "THICK" {
		t.Errorf("got %s, want THICK", got)
	}
}
