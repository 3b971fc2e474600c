package alpha

import (
	"testing"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func fixedPrices(prices map[string]money.Price) PriceGetter {
	return func(assetID string) (money.Price, bool) {
		p, ok := prices[assetID]
		return p, ok
	}
}

func TestScanAllClassifiesSellBothOnRichParity(t *testing.T) {
	t.Parallel()
	d := NewArbitrageDetector(0.01) // 1% per leg -> 200 bps fee cost
	d.RegisterPair(Pair{ConditionID: "c1", YesTokenID: "yes", NoTokenID: "no"})

	// sum = 1.05 -> deviation 500 bps, net = 500-200=300 >= 20
	signals := d.ScanAll(fixedPrices(map[string]money.Price{
		"yes": money.PriceFromFloat(0.55),
		"no":  money.PriceFromFloat(0.50),
	}))

	if len(signals) != 1 {
		t.Fatalf("expected 1 actionable signal, got %d", len(signals))
	}
	if signals[0].Type != types.ArbSellBoth {
		t.Errorf("type = %s, want SELL_BOTH", signals[0].Type)
	}
}

func TestScanAllClassifiesBuyBothOnCheapParity(t *testing.T) {
	t.Parallel()
	d := NewArbitrageDetector(0.01)
	d.RegisterPair(Pair{ConditionID: "c1", YesTokenID: "yes", NoTokenID: "no"})

	signals := d.ScanAll(fixedPrices(map[string]money.Price{
		"yes": money.PriceFromFloat(0.40),
		"no":  money.PriceFromFloat(0.45),
	}))

	if len(signals) != 1 || signals[0].Type != types.ArbBuyBoth {
		t.Fatalf("expected BUY_BOTH, got %+v", signals)
	}
}

func TestScanAllSkipsPairsMissingAPrice(t *testing.T) {
	t.Parallel()
	d := NewArbitrageDetector(0.01)
	d.RegisterPair(Pair{ConditionID: "c1", YesTokenID: "yes", NoTokenID: "no"})

	signals := d.ScanAll(fixedPrices(map[string]money.Price{
		"yes": money.PriceFromFloat(0.55),
	}))
	if len(signals) != 0 {
		t.Fatalf("expected no signals without both prices, got %d", len(signals))
	}
}

func TestGetQuoteAdjustmentShiftsTowardFairValueOnSkew(t *testing.T) {
	t.Parallel()
	d := NewArbitrageDetector(0.01) // fee cost dominates, so the deviation nets negative and falls to SKEW
	d.RegisterPair(Pair{ConditionID: "c1", YesTokenID: "yes", NoTokenID: "no"})

	d.ScanAll(fixedPrices(map[string]money.Price{
		"yes": money.PriceFromFloat(0.51),
		"no":  money.PriceFromFloat(0.50),
	}))

	baseBid, baseAsk := money.PriceFromFloat(0.50), money.PriceFromFloat(0.52)
	bid, ask := d.GetQuoteAdjustment("yes", baseBid, baseAsk)

	if bid.Cmp(baseBid) == 0 && ask.Cmp(baseAsk) == 0 {
		t.Fatal("expected quotes to shift on a cached SKEW signal")
	}
}

func TestGetQuoteAdjustmentUnchangedWithoutCachedSignal(t *testing.T) {
	t.Parallel()
	d := NewArbitrageDetector(0.01)
	d.RegisterPair(Pair{ConditionID: "c1", YesTokenID: "yes", NoTokenID: "no"})

	baseBid, baseAsk := money.PriceFromFloat(0.50), money.PriceFromFloat(0.52)
	bid, ask := d.GetQuoteAdjustment("yes", baseBid, baseAsk)

	if bid.Cmp(baseBid) != 0 || ask.Cmp(baseAsk) != 0 {
		t.Errorf("expected unchanged quotes without a scan, got bid=%s ask=%s", bid, ask)
	}
}
