package quoter

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"predictmm/internal/alpha"
	"predictmm/internal/config"
	"predictmm/internal/feed"
	"predictmm/internal/order"
	"predictmm/internal/risk"
	"predictmm/internal/timer"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func testStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		BaseSpreadBps:    100,
		MinSpreadBps:     20,
		MaxSpreadBps:     500,
		OrderSizeUSD:     50,
		MinOrderSize:     1.0,
		RequoteThreshold: 0.03,
		MaxSkewPerSide:   0.02,
		FeeRateBps:       0,
		Inventory:        config.InventoryConfig{PositionLimit: 100, SkewMax: 0.1, MinSizeMult: 0.2},
		Timer:            config.TimerConfig{NormalInterval: time.Second},
	}
}

func testMarketInfo() types.MarketInfo {
	return types.MarketInfo{
		ConditionID:  "cond-1",
		YesTokenID:   "yes-token",
		NoTokenID:    "no-token",
		TickSize:     types.Tick001,
		MinOrderSize: 1.0,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testFeed(t *testing.T) *feed.Facade {
	t.Helper()
	cfg := feed.FacadeConfig{
		StaleThreshold:      time.Minute,
		HeartbeatTimeout:    time.Minute,
		ReconnectBaseDelay:  time.Second,
		ReconnectMaxDelay:   time.Second,
		RESTPollInterval:    time.Minute,
		HealthCheckInterval: time.Minute,
		RecoveryDelay:       time.Minute,
		QueueCapacity:       16,
	}
	return feed.NewFacade("wss://example.invalid/ws", "market", nil, nil, cfg, feed.Callbacks{}, testLogger())
}

func testRiskManager() *risk.Manager {
	cfg := config.RiskConfig{
		MaxPositionPerMarket: 1000,
		MaxGlobalExposure:    5000,
		MaxDailyLoss:         1000,
		AdverseSelection: config.AdverseSelectionConfig{
			AdverseThreshold: 0.01,
			ToxicThreshold:   0.4,
			HighlyToxic:      0.7,
			LookbackWindow:   time.Hour,
			PriceAfterDelay:  10 * time.Second,
		},
		DynamicLimits: config.DynamicLimitsConfig{
			MinLimitPct: 0.2, MaxLimitPct: 2.0, EMAFactor: 0.3, HistorySize: 100,
		},
		Kelly: config.KellyConfig{Fraction: 0.5, MaxPositionPct: 0.25, MinTrades: 5},
		Correlation: config.CorrelationConfig{
			WindowSize: 50, MinSamples: 5, CorrelationThreshold: 0.7, MaxCorrelatedExposure: 1000,
		},
	}
	return risk.NewManager(cfg, testLogger(), risk.ModeEnforce)
}

func setupMaker(t *testing.T, cfg config.StrategyConfig) *Maker {
	t.Helper()
	info := testMarketInfo()
	f := testFeed(t)
	f.Store().ApplyBook(info.YesTokenID,
		[]types.PriceLevel{{Price: money.PriceFromFloat(0.49), Size: money.SizeFromFloat(100)}},
		[]types.PriceLevel{{Price: money.PriceFromFloat(0.51), Size: money.SizeFromFloat(100)}},
		time.Now(),
	)

	return &Maker{
		cfg:      cfg,
		market:   info,
		assetID:  info.YesTokenID,
		feed:     f,
		orders:   order.NewSimulator(0, testLogger()),
		risk:     testRiskManager(),
		vol:      alpha.NewVolatilityTracker(cfg.Volatility),
		book:     alpha.NewBookAnalyzer(),
		inv:      alpha.NewInventoryManager(money.SizeFromFloat(cfg.Inventory.PositionLimit)),
		flow:     alpha.NewFlowAnalyzer(),
		event:    alpha.NewEventTracker(),
		timer:    timer.New(cfg.Timer),
		logger:   testLogger(),
		active:   true,
	}
}

func TestComposeQuoteClampsCombinedSkewPerSide(t *testing.T) {
	t.Parallel()
	cfg := testStrategyConfig()
	cfg.MaxSkewPerSide = 0.01 // tight cap to force clamping
	m := setupMaker(t, cfg)

	// Push inventory heavily long so the inventory-skew component alone
	// would exceed the cap without clamping.
	m.inv.RecordFill(true, money.PriceFromFloat(0.50), money.SizeFromFloat(90))

	mid := money.PriceFromFloat(0.50)
	bid, ask, _, _ := m.composeQuote(mid)

	midF, bidF, askF := mid.Float64(), bid.Float64(), ask.Float64()
	// The skew contribution (distance from the unskewed half-spread point)
	// must not exceed max_skew_per_side on either side.
	base := float64(cfg.BaseSpreadBps) / 10000.0
	if d := (midF - bidF) - base/2; d > cfg.MaxSkewPerSide+1e-9 {
		t.Errorf("bid skew %v exceeds cap %v", d, cfg.MaxSkewPerSide)
	}
	if d := (askF - midF) - base/2; d > cfg.MaxSkewPerSide+1e-9 {
		t.Errorf("ask skew %v exceeds cap %v", d, cfg.MaxSkewPerSide)
	}
}

func TestComposeQuoteBidBelowAsk(t *testing.T) {
	t.Parallel()
	cfg := testStrategyConfig()
	m := setupMaker(t, cfg)

	mid := money.PriceFromFloat(0.50)
	bid, ask, _, _ := m.composeQuote(mid)

	if bid.Cmp(ask) >= 0 {
		t.Errorf("bid %v >= ask %v (crossed)", bid, ask)
	}
}

func TestComposeQuoteConsultsAdverseResponse(t *testing.T) {
	t.Parallel()
	cfg := testStrategyConfig()
	m := setupMaker(t, cfg)

	mid := money.PriceFromFloat(0.50)
	_, _, baseline, _ := m.composeQuote(mid)

	// Manufacture enough adverse buy fills (moved against the filler) to
	// push toxicity past toxic_threshold and trigger a spread widen.
	for i := 0; i < 10; i++ {
		id := m.risk.AdverseSelection().RecordFill(types.BUY, money.PriceFromFloat(0.50), money.SizeFromFloat(1))
		m.risk.AdverseSelection().RecordOutcome(id, money.PriceFromFloat(0.40))
	}

	_, _, widened, resp := m.composeQuote(mid)
	if resp.WidenMult <= 1.0 {
		t.Fatalf("expected WidenMult > 1.0 once toxicity crosses the threshold, got %v", resp.WidenMult)
	}
	if widened <= baseline {
		t.Errorf("spread = %v, want wider than baseline %v once adverse selection is detected", widened, baseline)
	}
}

func TestMaybeRequoteSkipsBidAtMaxLongInventory(t *testing.T) {
	t.Parallel()
	cfg := testStrategyConfig()
	m := setupMaker(t, cfg)

	sim := m.orders.(*order.Simulator)
	sim.SeedPosition(m.assetID, money.SizeFromFloat(cfg.Inventory.PositionLimit))

	mid := money.PriceFromFloat(0.50)
	bid, ask, spread, adverseResp := m.composeQuote(mid)
	m.maybeRequote(context.Background(), mid, bid, ask, spread, adverseResp)

	m.mu.Lock()
	activeBid := m.activeBid
	m.mu.Unlock()
	if activeBid != nil {
		t.Errorf("expected no bid placed at max long inventory, got %+v", activeBid)
	}
}
