package alpha

import (
	"testing"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func TestFlowStateNeutralBelowMinEvents(t *testing.T) {
	t.Parallel()
	f := NewFlowAnalyzer()
	f.RecordTrade(money.PriceFromFloat(0.5), money.SizeFromFloat(10), types.BUY, false)

	state := f.State()
	if state.Signal != "NEUTRAL" {
		t.Errorf("signal = %s, want NEUTRAL with too few events", state.Signal)
	}
}

func TestFlowStateBullishOnBuyImbalance(t *testing.T) {
	t.Parallel()
	f := NewFlowAnalyzer()
	for i := 0; i < 6; i++ {
		f.RecordTrade(money.PriceFromFloat(0.5), money.SizeFromFloat(100), types.BUY, false)
	}
	f.RecordTrade(money.PriceFromFloat(0.5), money.SizeFromFloat(10), types.SELL, false)

	state := f.State()
	if state.Signal != "STRONGLY_BULLISH" {
		t.Errorf("signal = %s, want STRONGLY_BULLISH", state.Signal)
	}
	if state.RecommendedSkew.Float64() <= 0 {
		t.Errorf("expected positive recommended skew, got %v", state.RecommendedSkew)
	}
}

func TestFlowStateDropsStaleEvents(t *testing.T) {
	t.Parallel()
	f := NewFlowAnalyzer()
	f.window = 10 * time.Millisecond
	for i := 0; i < 6; i++ {
		f.RecordTrade(money.PriceFromFloat(0.5), money.SizeFromFloat(100), types.BUY, false)
	}
	time.Sleep(20 * time.Millisecond)

	state := f.State()
	if state.EventCount != 0 {
		t.Errorf("expected stale events dropped, got count %d", state.EventCount)
	}
	if state.Signal != "NEUTRAL" {
		t.Errorf("signal = %s, want NEUTRAL once all events expire", state.Signal)
	}
}

func TestShouldWidenSpreadOnHeavyAggression(t *testing.T) {
	t.Parallel()
	f := NewFlowAnalyzer()
	for i := 0; i < 11; i++ {
		f.RecordTrade(money.PriceFromFloat(0.5), money.SizeFromFloat(10), types.BUY, true)
	}

	if !f.ShouldWidenSpread() {
		t.Error("expected ShouldWidenSpread true with heavy aggressive flow")
	}
}

func TestShouldWidenSpreadFalseWithFewEvents(t *testing.T) {
	t.Parallel()
	f := NewFlowAnalyzer()
	f.RecordTrade(money.PriceFromFloat(0.5), money.SizeFromFloat(10), types.BUY, true)

	if f.ShouldWidenSpread() {
		t.Error("expected ShouldWidenSpread false with too few events")
	}
}
