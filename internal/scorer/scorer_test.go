package scorer

import (
	"testing"
	"time"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func testScorerConfig() config.ScannerConfig {
	return config.ScannerConfig{
		MinHoursToResolution: 12,
		MinSpreadTicks:       3,
		MaxSpreadTicks:       6,
		VolumeFloor:          1,
		DepthFloorUSD:        100,
		DepthCapUSD:          5000,
		WeightVolume:         0.25,
		WeightSpread:         0.25,
		WeightDepth:          0.2,
		WeightTiming:         0.15,
		WeightPrice:          0.15,
	}
}

func baseScoredMarket() types.MarketInfo {
	return types.MarketInfo{
		ID:         "m1",
		YesTokenID: "yes",
		NoTokenID:  "no",
		TickSize:   types.Tick001,
		BestBid:    money.PriceFromFloat(0.47),
		BestAsk:    money.PriceFromFloat(0.52), // 5 ticks
		Volume24h:  5000,
		EndDate:    time.Now().Add(5 * 24 * time.Hour),
	}
}

func TestScoreRejectsBelowVolumeFloor(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	m := baseScoredMarket()
	m.Volume24h = 0.5
	got := s.Score(m, nil)

	if !got.Rejected || got.RejectReason != "volume below floor" {
		t.Fatalf("expected volume rejection, got %+v", got)
	}
}

func TestScoreRejectsSpreadOutsideBand(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	m := baseScoredMarket()
	m.BestBid = money.PriceFromFloat(0.49)
	m.BestAsk = money.PriceFromFloat(0.51) // 2 ticks, below min of 3
	got := s.Score(m, nil)

	if !got.Rejected || got.RejectReason != "spread outside acceptable band" {
		t.Fatalf("expected spread rejection, got %+v", got)
	}
}

func TestScoreRejectsPriceOutsideBand(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	m := baseScoredMarket()
	m.BestBid = money.PriceFromFloat(0.94)
	m.BestAsk = money.PriceFromFloat(0.98) // 4 ticks passes the spread check; mid 0.96 is outside (0.05, 0.95)
	got := s.Score(m, nil)

	if !got.Rejected || got.RejectReason != "price outside (0.05, 0.95)" {
		t.Fatalf("expected price rejection, got %+v", got)
	}
}

func TestScoreRejectsResolutionTooClose(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	m := baseScoredMarket()
	m.EndDate = time.Now().Add(1 * time.Hour)
	got := s.Score(m, nil)

	if !got.Rejected || got.RejectReason != "resolution too close" {
		t.Fatalf("expected resolution rejection, got %+v", got)
	}
}

func TestScoreAcceptsWellFormedMarket(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	got := s.Score(baseScoredMarket(), nil)
	if got.Rejected {
		t.Fatalf("expected acceptance, got rejected: %s", got.RejectReason)
	}
	if got.Total <= 0 {
		t.Errorf("expected positive total score, got %v", got.Total)
	}
	if got.Components.Spread != 100 {
		t.Errorf("5-tick spread should peak spread score, got %v", got.Components.Spread)
	}
}

func TestDepthScoreScalesBetweenFloorAndCap(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	book := &types.OrderBookSnapshot{
		AssetID: "yes",
		Bids: []types.PriceLevel{
			{Price: money.PriceFromFloat(0.49), Size: money.SizeFromFloat(2000)},
		},
		Asks: []types.PriceLevel{
			{Price: money.PriceFromFloat(0.50), Size: money.SizeFromFloat(2000)},
		},
	}

	got := s.Score(baseScoredMarket(), book)
	if got.Rejected {
		t.Fatalf("unexpected rejection: %s", got.RejectReason)
	}
	if got.Components.Depth <= 50 || got.Components.Depth > 100 {
		t.Errorf("depth score out of expected range: %v", got.Components.Depth)
	}
}

func TestRankSortsNonRejectedFirstByScoreDescending(t *testing.T) {
	t.Parallel()
	s := NewScorer(testScorerConfig())

	good := baseScoredMarket()
	good.ID = "good"

	rejected := baseScoredMarket()
	rejected.ID = "rejected"
	rejected.Volume24h = 0

	weak := baseScoredMarket()
	weak.ID = "weak"
	weak.Volume24h = 10 // scores lower than good's 5000

	ranked := s.Rank([]types.MarketInfo{rejected, weak, good}, nil)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[2].Rejected != true || ranked[2].Market.ID != "rejected" {
		t.Fatalf("rejected market should sort last, got order %v/%v/%v",
			ranked[0].Market.ID, ranked[1].Market.ID, ranked[2].Market.ID)
	}
	if ranked[0].Market.ID != "good" {
		t.Errorf("expected good to rank first, got %s", ranked[0].Market.ID)
	}
}
