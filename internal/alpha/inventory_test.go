package alpha

import (
	"testing"

	"predictmm/pkg/money"
)

func TestInventoryNeutralAtFlatPosition(t *testing.T) {
	t.Parallel()
	m := NewInventoryManager(money.SizeFromFloat(100))
	state := m.State(money.ZeroSize(), money.PriceFromFloat(0.5))

	if state.Classification != "NEUTRAL" {
		t.Errorf("classification = %s, want NEUTRAL", state.Classification)
	}
	if !state.BidSkew.IsZero() || !state.AskSkew.IsZero() {
		t.Errorf("expected zero skew at flat position, got bid=%s ask=%s", state.BidSkew, state.AskSkew)
	}
}

func TestInventoryLongSkewsBidDown(t *testing.T) {
	t.Parallel()
	m := NewInventoryManager(money.SizeFromFloat(100))
	state := m.State(money.SizeFromFloat(80), money.PriceFromFloat(0.5))

	if state.Ratio <= 0 {
		t.Fatalf("expected positive ratio, got %v", state.Ratio)
	}
	if state.BidSkew.Float64() >= 0 {
		t.Errorf("expected negative bid skew while long, got %v", state.BidSkew)
	}
	if !state.AskSkew.IsZero() {
		t.Errorf("expected zero ask skew while long, got %v", state.AskSkew)
	}
	if state.Classification != "LONG" {
		t.Errorf("classification = %s, want LONG", state.Classification)
	}
}

func TestInventoryMaxLongClassification(t *testing.T) {
	t.Parallel()
	m := NewInventoryManager(money.SizeFromFloat(100))
	state := m.State(money.SizeFromFloat(95), money.PriceFromFloat(0.5))

	if state.Classification != "MAX_LONG" {
		t.Errorf("classification = %s, want MAX_LONG", state.Classification)
	}
}

func TestInventorySizeMultipliersReduceBuildingSideOnly(t *testing.T) {
	t.Parallel()
	m := NewInventoryManager(money.SizeFromFloat(100))
	state := m.State(money.SizeFromFloat(80), money.PriceFromFloat(0.5))

	if state.BidSizeMult >= 1.0 {
		t.Errorf("expected reduced bid size mult while long and building, got %v", state.BidSizeMult)
	}
	if state.AskSizeMult != 1.0 {
		t.Errorf("expected unreduced ask size mult while long, got %v", state.AskSizeMult)
	}
}

func TestInventoryVWAPUndefinedAtFlat(t *testing.T) {
	t.Parallel()
	m := NewInventoryManager(money.SizeFromFloat(100))
	state := m.State(money.ZeroSize(), money.PriceFromFloat(0.5))
	if state.HasVWAP {
		t.Errorf("expected no VWAP at flat position, got %s", state.VWAP)
	}
}

func TestInventoryVWAPTracksAverageBuyPriceWhileLong(t *testing.T) {
	t.Parallel()
	m := NewInventoryManager(money.SizeFromFloat(100))
	m.RecordFill(true, money.PriceFromFloat(0.40), money.SizeFromFloat(10))
	m.RecordFill(true, money.PriceFromFloat(0.60), money.SizeFromFloat(10))

	state := m.State(money.SizeFromFloat(20), money.PriceFromFloat(0.55))
	if !state.HasVWAP {
		t.Fatal("expected VWAP while long with buy history")
	}
	if state.VWAP.Float64() != 0.50 {
		t.Errorf("vwap = %v, want 0.50", state.VWAP.Float64())
	}
	if state.UnrealizedPnL.Float64() <= 0 {
		t.Errorf("expected positive unrealized pnl (mid above vwap), got %v", state.UnrealizedPnL)
	}
}
