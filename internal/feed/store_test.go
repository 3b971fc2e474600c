package feed

import (
	"testing"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func level(price, size string) types.PriceLevel {
	return types.PriceLevel{Price: ParsePrice(price), Size: ParseSize(size)}
}

func TestApplyBookSortsLevels(t *testing.T) {
	s := NewStore(time.Minute)
	bids := []types.PriceLevel{level("0.50", "10"), level("0.55", "5")}
	asks := []types.PriceLevel{level("0.65", "3"), level("0.60", "8")}
	s.ApplyBook("asset-1", bids, asks, time.Now())

	book, ok := s.OrderBook("asset-1")
	if !ok {
		t.Fatal("expected book to be present")
	}
	if book.Bids[0].Price.Cmp(money.PriceFromFloat(0.55)) != 0 {
		t.Errorf("expected best bid 0.55, got %s", book.Bids[0].Price)
	}
	if book.Asks[0].Price.Cmp(money.PriceFromFloat(0.60)) != 0 {
		t.Errorf("expected best ask 0.60, got %s", book.Asks[0].Price)
	}
}

func TestMidAndSpread(t *testing.T) {
	s := NewStore(time.Minute)
	s.ApplyBook("asset-1", []types.PriceLevel{level("0.48", "10")}, []types.PriceLevel{level("0.52", "10")}, time.Now())

	mid, ok := s.Mid("asset-1")
	if !ok {
		t.Fatal("expected mid")
	}
	if mid.Cmp(money.PriceFromFloat(0.50)) != 0 {
		t.Errorf("expected mid 0.50, got %s", mid)
	}

	spread, ok := s.Spread("asset-1")
	if !ok {
		t.Fatal("expected spread")
	}
	if spread.Cmp(money.PriceFromFloat(0.04)) != 0 {
		t.Errorf("expected spread 0.04, got %s", spread)
	}
}

func TestCheckSequenceDetectsGap(t *testing.T) {
	s := NewStore(time.Minute)

	if !s.CheckSequence("asset-1", 5) {
		t.Error("first sequence observation should always be accepted")
	}
	if !s.CheckSequence("asset-1", 6) {
		t.Error("sequential seq should be accepted")
	}
	if s.CheckSequence("asset-1", 9) {
		t.Error("expected gap to be detected")
	}
	if !s.HasGaps() {
		t.Error("expected HasGaps to be true after a detected gap")
	}

	s.ClearGaps("asset-1")
	if s.HasGaps() {
		t.Error("expected HasGaps to be false after ClearGaps")
	}
}

func TestIsFreshRespectsStaleThreshold(t *testing.T) {
	s := NewStore(10 * time.Millisecond)
	s.ApplyPrice("asset-1", money.PriceFromFloat(0.5))

	if !s.IsFresh("asset-1") {
		t.Error("expected fresh immediately after mutation")
	}

	time.Sleep(20 * time.Millisecond)
	if s.IsFresh("asset-1") {
		t.Error("expected stale after threshold elapses")
	}
}

func TestIsFreshUnknownAsset(t *testing.T) {
	s := NewStore(time.Minute)
	if s.IsFresh("nope") {
		t.Error("unregistered asset should never be fresh")
	}
}
