package scorer

import (
	"testing"
	"time"

	"predictmm/internal/config"
)

func testScannerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		MinLiquidity:   1000,
		MinVolume24h:   500,
		MaxEndDateDays: 90,
		ExcludeSlugs:   []string{"excluded-slug"},
	}
}

func baseMarket() GammaMarket {
	endDate := time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339)
	return GammaMarket{
		ID:              "m1",
		ConditionID:     "cond1",
		Slug:            "test-market",
		Active:          true,
		Closed:          false,
		AcceptingOrders: true,
		EnableOrderBook: true,
		EndDate:         endDate,
		Liquidity:       "5000",
		Volume24hr:      1000,
		Spread:          0.05,
		ClobTokenIds:    `["yes-token","no-token"]`,
	}
}

func newTestGammaClient() *GammaClient {
	return &GammaClient{cfg: testScannerConfig()}
}

func TestFilterMarketsPassesValid(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	result := g.filterMarkets([]GammaMarket{baseMarket()})
	if len(result) != 1 {
		t.Fatalf("expected 1 market, got %d", len(result))
	}
}

func TestFilterMarketsRejectsInactive(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.Active = false
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for inactive, got %d", len(result))
	}
}

func TestFilterMarketsRejectsClosed(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.Closed = true
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for closed, got %d", len(result))
	}
}

func TestFilterMarketsRejectsNotAcceptingOrders(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.AcceptingOrders = false
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for not accepting orders, got %d", len(result))
	}
}

func TestFilterMarketsRejectsLowLiquidity(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.Liquidity = "100"
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for low liquidity, got %d", len(result))
	}
}

func TestFilterMarketsRejectsLowVolume(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.Volume24hr = 100
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for low volume, got %d", len(result))
	}
}

func TestFilterMarketsRejectsExcludedSlug(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.Slug = "excluded-slug"
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for excluded slug, got %d", len(result))
	}
}

func TestFilterMarketsIncludeFilterNarrowsToMatches(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()
	g.cfg.IncludeSlugs = []string{"test-market"}

	other := baseMarket()
	other.ID = "m2"
	other.Slug = "other-market"

	result := g.filterMarkets([]GammaMarket{baseMarket(), other})
	if len(result) != 1 || result[0].Slug != "test-market" {
		t.Fatalf("expected only test-market to survive include filter, got %+v", result)
	}
}

func TestFilterMarketsRejectsExpiredEndDate(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.EndDate = time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for expired end date, got %d", len(result))
	}
}

func TestFilterMarketsRejectsTooFarEndDate(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.EndDate = time.Now().Add(365 * 24 * time.Hour).Format(time.RFC3339)
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for end date too far, got %d", len(result))
	}
}

func TestFilterMarketsRejectsNoTokenIDs(t *testing.T) {
	t.Parallel()
	g := newTestGammaClient()

	m := baseMarket()
	m.ClobTokenIds = ""
	if result := g.filterMarkets([]GammaMarket{m}); len(result) != 0 {
		t.Errorf("expected 0 markets for missing token IDs, got %d", len(result))
	}
}

func TestConvertToMarketInfoParsesTokenIDsAndTickSize(t *testing.T) {
	t.Parallel()

	m := baseMarket()
	m.OrderPriceMinTickSize = 0.001
	m.BestBid = 0.45
	m.BestAsk = 0.47

	info := convertToMarketInfo(m)
	if info.YesTokenID != "yes-token" || info.NoTokenID != "no-token" {
		t.Fatalf("unexpected token IDs: yes=%s no=%s", info.YesTokenID, info.NoTokenID)
	}
	if info.TickSize != "0.001" {
		t.Errorf("tick size = %s, want 0.001", info.TickSize)
	}
	if info.BestBid.String() != "0.45" || info.BestAsk.String() != "0.47" {
		t.Errorf("prices not converted: bid=%s ask=%s", info.BestBid, info.BestAsk)
	}
}
