package risk

import (
	"testing"
	"time"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func testAdverseConfig() config.AdverseSelectionConfig {
	return config.AdverseSelectionConfig{
		AdverseThreshold: 0.005,
		ToxicThreshold:   0.4,
		HighlyToxic:      0.6,
		LookbackWindow:   300 * time.Second,
		PriceAfterDelay:  10 * time.Second,
	}
}

func TestRecordFillAssignsSequentialIDs(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())

	id1 := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))
	id2 := d.RecordFill(types.SELL, money.PriceFromFloat(0.51), money.SizeFromFloat(5))

	if id1 != 1 || id2 != 2 {
		t.Fatalf("expected sequential ids 1,2, got %d,%d", id1, id2)
	}
}

func TestToxicityZeroWithoutOutcomes(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())
	d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))

	if tox := d.Toxicity(nil); tox != 0 {
		t.Errorf("toxicity = %v, want 0 with no scored outcomes", tox)
	}
}

func TestToxicityCountsAdverseBuyMove(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())
	id := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))

	// price dropped 1 cent after a BUY: adverse.
	d.RecordOutcome(id, money.PriceFromFloat(0.49))

	if tox := d.Toxicity(nil); tox != 1.0 {
		t.Errorf("toxicity = %v, want 1.0", tox)
	}
}

func TestToxicityIgnoresMoveBelowThreshold(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())
	id := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))

	// unchanged price: no move at all, well under adverse_threshold.
	d.RecordOutcome(id, money.PriceFromFloat(0.50))

	if tox := d.Toxicity(nil); tox != 0 {
		t.Errorf("toxicity = %v, want 0 for a benign move", tox)
	}
}

func TestToxicityFiltersBySide(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())

	buyID := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))
	sellID := d.RecordFill(types.SELL, money.PriceFromFloat(0.50), money.SizeFromFloat(10))
	d.RecordOutcome(buyID, money.PriceFromFloat(0.49))  // adverse for the buy
	d.RecordOutcome(sellID, money.PriceFromFloat(0.49)) // favorable for the sell

	buy, sell := types.BUY, types.SELL
	if tox := d.Toxicity(&buy); tox != 1.0 {
		t.Errorf("buy toxicity = %v, want 1.0", tox)
	}
	if tox := d.Toxicity(&sell); tox != 0 {
		t.Errorf("sell toxicity = %v, want 0", tox)
	}
}

func TestResponseWidensAndShrinksOnceToxic(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())
	for i := 0; i < 10; i++ {
		id := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))
		d.RecordOutcome(id, money.PriceFromFloat(0.49))
	}

	resp := d.Response()
	if resp.WidenMult <= 1.0 {
		t.Errorf("expected widened spread once toxic, got %v", resp.WidenMult)
	}
	if resp.SizeMult >= 1.0 {
		t.Errorf("expected reduced size once toxic, got %v", resp.SizeMult)
	}
}

func TestResponseSkipsHighlyToxicSideOnly(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())
	for i := 0; i < 10; i++ {
		id := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))
		d.RecordOutcome(id, money.PriceFromFloat(0.49))
	}
	for i := 0; i < 10; i++ {
		id := d.RecordFill(types.SELL, money.PriceFromFloat(0.50), money.SizeFromFloat(10))
		d.RecordOutcome(id, money.PriceFromFloat(0.50)) // no adverse move, stays clean
	}

	resp := d.Response()
	if !resp.SkipBuySide {
		t.Error("expected buy side to be skipped once highly toxic")
	}
	if resp.SkipSell {
		t.Error("sell side is clean, should not be skipped")
	}
}

func TestOldFillsAreEvicted(t *testing.T) {
	t.Parallel()
	d := NewAdverseSelectionDetector(testAdverseConfig())
	id := d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(10))

	d.mu.Lock()
	d.fills[id].Timestamp = time.Now().Add(-testAdverseConfig().LookbackWindow - time.Second)
	d.mu.Unlock()

	d.RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(5))

	d.mu.Lock()
	_, stillPresent := d.fills[id]
	d.mu.Unlock()
	if stillPresent {
		t.Error("expected stale fill to be pruned")
	}
}
