// Package quoter runs the core market-making loop for binary prediction
// markets: a deterministic quote-composition pipeline fed by the alpha
// signal generators (volatility, book, inventory, flow, arbitrage, event),
// gated by the risk manager and the feed's health state, and a pool
// supervisor that runs one quoter per asset under a shared capital budget.
//
// The pipeline replaces Avellaneda-Stoikov's two-parameter reservation
// price/spread with an explicit multiplier chain so each signal's
// contribution is independently tunable and loggable: a base spread is
// widened by volatility and inventory, skewed by book imbalance, trade
// flow, and YES/NO arbitrage, then clamped to tick and to the tradeable
// price range.
package quoter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"predictmm/internal/alpha"
	"predictmm/internal/api"
	"predictmm/internal/config"
	"predictmm/internal/feed"
	"predictmm/internal/metrics"
	"predictmm/internal/order"
	"predictmm/internal/risk"
	"predictmm/internal/timer"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// TradeLogger is the append-only sink for trades, quotes, and arbitrary
// events. Defined here, at the consumer, so internal/tradelog's concrete
// implementation and any test fake both satisfy it without an import
// cycle.
type TradeLogger interface {
	LogTrade(marketID string, fill types.Fill)
	LogQuote(marketID string, bid, ask *types.UserOrder, mid money.Price)
	LogEvent(marketID, kind string, data any)
}

// Maker runs the quoting loop for a single traded asset (one leg — YES or
// NO — of a binary market). ComplementID, if set, is the other leg and
// feeds the parity check and the shared arbitrage detector.
type Maker struct {
	cfg    config.StrategyConfig
	market types.MarketInfo

	assetID      string
	complementID string

	feed   *feed.Facade
	orders order.Subsystem
	risk   *risk.Manager
	pool   *Pool // nil outside of a pool (e.g. in tests); guards Kelly bankroll and portfolio checks

	vol   *alpha.VolatilityTracker
	book  *alpha.BookAnalyzer
	inv   *alpha.InventoryManager
	flow  *alpha.FlowAnalyzer
	event *alpha.EventTracker
	arb   *alpha.ArbitrageDetector // shared across the pool; nil if no pair registered
	timer *timer.AdaptiveTimer

	tradeLog        TradeLogger
	dashboardEvents chan<- api.DashboardEvent
	logger          *slog.Logger

	mu             sync.Mutex
	activeBid      *types.Order
	activeAsk      *types.Order
	lastMid        money.Price
	hasLastMid     bool
	loopCount      int64
	lastHeartbeat  time.Time
	startTime      time.Time
	fillsSeen      int
	realizedPnL    float64
	active         bool
	pendingAdverse []pendingAdverseFill
}

// pendingAdverseFill tracks a recorded fill awaiting its post-fill outcome
// price, sampled once dueAt has elapsed.
type pendingAdverseFill struct {
	id    int64
	dueAt time.Time
}

// MakerDeps bundles the shared collaborators a pool wires into every
// Maker it creates.
type MakerDeps struct {
	Feed     *feed.Facade
	Orders   order.Subsystem
	Risk     *risk.Manager
	Arb      *alpha.ArbitrageDetector
	Pool     *Pool
	TradeLog TradeLogger
	Events   chan<- api.DashboardEvent
}

// NewMaker builds a quoter for one asset with its own private alpha signal
// state and the pool's shared feed/orders/risk/arbitrage collaborators.
func NewMaker(cfg config.StrategyConfig, market types.MarketInfo, assetID, complementID string, deps MakerDeps, logger *slog.Logger) *Maker {
	return &Maker{
		cfg:             cfg,
		market:          market,
		assetID:         assetID,
		complementID:    complementID,
		feed:            deps.Feed,
		orders:          deps.Orders,
		risk:            deps.Risk,
		pool:            deps.Pool,
		vol:             alpha.NewVolatilityTracker(cfg.Volatility),
		book:            alpha.NewBookAnalyzer(),
		inv:             alpha.NewInventoryManager(money.SizeFromFloat(cfg.Inventory.PositionLimit)),
		flow:            alpha.NewFlowAnalyzer(),
		event:           alpha.NewEventTracker(),
		arb:             deps.Arb,
		timer:           timer.New(cfg.Timer),
		tradeLog:        deps.TradeLog,
		dashboardEvents: deps.Events,
		startTime:       time.Now(),
		active:          true,
		logger:          logger.With("component", "quoter", "market", market.Slug, "asset", assetID),
	}
}

// AssetID returns the token this maker quotes.
func (m *Maker) AssetID() string { return m.assetID }

// Position returns the current signed position in this asset.
func (m *Maker) Position() money.Size { return m.orders.Position(m.assetID) }

// IsActive reports whether the maker's loop is still running.
func (m *Maker) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Run drives the quoting loop until ctx is cancelled. On exit it cancels
// every order this maker placed and logs a final summary.
func (m *Maker) Run(ctx context.Context) {
	m.logger.Info("quoter started", "tick_size", m.market.TickSize)

	tmr := time.NewTimer(m.timer.Interval())
	defer tmr.Stop()

	for {
		select {
		case <-ctx.Done():
			m.cancelAll(context.Background())
			m.setInactive()
			m.logger.Info("quoter stopped", "fills", m.fillsSeen, "realized_pnl", m.realizedPnL)
			return
		case <-tmr.C:
			m.tick(ctx)
			tmr.Reset(m.timer.Interval())
		}
	}
}

func (m *Maker) setInactive() {
	m.mu.Lock()
	m.active = false
	m.mu.Unlock()
}

// tick runs one pass of the quoting pipeline.
func (m *Maker) tick(ctx context.Context) {
	m.mu.Lock()
	m.loopCount++
	loopCount := m.loopCount
	m.mu.Unlock()

	// 1. Read mid and publish live state (volatility, position, price) into
	// the risk manager ahead of this tick's gate, so the position-limit and
	// exposure steps see what's happening now rather than lagging a tick.
	m.timer.RecordActivity(m.timer.IdleFor().Seconds())
	mid, midOK := m.feed.Mid(m.assetID)
	m.timer.OnFeedUpdate(midOK)
	if midOK {
		m.timer.UpdateFromPrice(mid.Float64())
		m.vol.Update(mid.Float64())
		position := m.orders.Position(m.assetID)
		m.risk.SetVolatilityMultiplier(m.vol.Multiplier())
		m.risk.UpdateUnrealizedPnL(m.assetID, position.Float64(), mid.Float64(), nil)
		m.risk.RecordPrice(m.assetID, mid.Float64())
		m.processAdverseOutcomes(mid)

		eventSignal := m.event.GetSignal(m.market.ConditionID)
		flowState := m.flow.State()
		m.risk.DynamicLimits().SetConditions(risk.MarketConditions{
			Confidence:      eventSignal.Confidence,
			VolatilityLevel: m.vol.Level(),
			FillRate:        flowState.AggressiveRatio,
		})
		if m.pool != nil {
			m.risk.Kelly().SetBankroll(m.pool.GetAllocation(m.assetID))
		}
	}

	// 2. Risk gate.
	result := m.risk.Check([]string{m.assetID})
	switch result.Status {
	case risk.STOP:
		metrics.RecordRiskEvent(string(result.Status), m.risk.IsKilled())
		m.logger.Warn("risk stop, cancelling quotes", "reason", result.Reason)
		m.cancelAll(ctx)
		return
	case risk.WARN:
		metrics.RecordRiskEvent(string(result.Status), m.risk.IsKilled())
		m.logger.Warn("risk warn, continuing", "reason", result.Reason)
	}

	// 3. Feed gate.
	healthy := m.feed.IsHealthy()
	metrics.SetFeedHealthy(m.market.Slug, healthy)
	if !healthy {
		m.logger.Warn("feed unhealthy, cancelling quotes")
		m.cancelAll(ctx)
		return
	}

	// 4. Arbitrage scan: a parity breach worth acting on supersedes making.
	if m.arb != nil {
		if signal, ok := m.arb.CachedSignal(m.market.ConditionID); ok {
			if signal.Type == types.ArbSellBoth || signal.Type == types.ArbBuyBoth {
				m.logger.Info("arbitrage opportunity, cancelling quotes", "type", signal.Type, "profit_bps", signal.ProfitBps)
				m.cancelAll(ctx)
				return
			}
		}
	}

	if !midOK {
		return
	}

	// 5. Parity skip.
	if m.complementID != "" {
		if noPrice, ok := m.feed.Mid(m.complementID); ok {
			sum := mid.Add(noPrice).Float64()
			if math.Abs(sum-1.00) > 0.02 {
				m.logger.Debug("parity out of tolerance, skipping", "sum", sum)
				m.cancelAll(ctx)
				return
			}
		}
	}

	// 6. Dry-run fill sweep.
	if sim, isSim := m.orders.(*order.Simulator); isSim {
		m.sweepSimulatedFills(sim)
	}

	// 7. Compose quote.
	bid, ask, spread, adverseResp := m.composeQuote(mid)

	// 8. Requote decision.
	m.maybeRequote(ctx, mid, bid, ask, spread, adverseResp)

	// 9. Heartbeat.
	m.maybeHeartbeat(loopCount, mid)
}

// processAdverseOutcomes samples the current mid into every pending fill
// whose outcome delay has elapsed, scoring it for adverse selection.
func (m *Maker) processAdverseOutcomes(mid money.Price) {
	m.mu.Lock()
	now := time.Now()
	due := make([]int64, 0, len(m.pendingAdverse))
	kept := make([]pendingAdverseFill, 0, len(m.pendingAdverse))
	for _, p := range m.pendingAdverse {
		if now.After(p.dueAt) {
			due = append(due, p.id)
		} else {
			kept = append(kept, p)
		}
	}
	m.pendingAdverse = kept
	m.mu.Unlock()

	for _, id := range due {
		m.risk.AdverseSelection().RecordOutcome(id, mid)
	}
}

// composeQuote runs the deterministic multiplier chain from the current
// mid down to a tick-rounded, range-clamped bid/ask pair. The combined
// per-side perturbation (inventory skew, book imbalance, flow skew) is
// clamped to max_skew_per_side before the spread widenings and rounding are
// applied, so no combination of signals can push a side arbitrarily far
// from the raw half-spread point.
func (m *Maker) composeQuote(mid money.Price) (bid, ask money.Price, spread float64, adverseResp risk.AdverseResponse) {
	position := m.orders.Position(m.assetID)
	invState := m.inv.State(position, mid)
	invMult := math.Min(1.5, 1+math.Abs(invState.Ratio)/2)

	volMult := m.vol.Multiplier()

	book, _ := m.feed.Book(m.assetID)
	bookAnalysis := m.book.Analyze(&book)
	imbalanceAdj := bookAnalysis.PriceAdjustment.Float64()

	base := float64(m.cfg.BaseSpreadBps) / 10000.0
	minS := float64(m.cfg.MinSpreadBps) / 10000.0
	maxS := float64(m.cfg.MaxSpreadBps) / 10000.0
	spread = clamp(base*volMult*invMult, minS, maxS)

	flowState := m.flow.State()
	flowSkew := flowState.RecommendedSkew.Float64()

	maxSkew := m.cfg.MaxSkewPerSide
	if maxSkew <= 0 {
		maxSkew = 0.05
	}
	bidSkew := clamp(invState.BidSkew.Float64()+imbalanceAdj+flowSkew, -maxSkew, maxSkew)
	askSkew := clamp(invState.AskSkew.Float64()+imbalanceAdj+flowSkew, -maxSkew, maxSkew)

	midF := mid.Float64()
	bidF := midF - spread/2 + bidSkew
	askF := midF + spread/2 + askSkew

	if m.arb != nil {
		adjBid, adjAsk := m.arb.GetQuoteAdjustment(m.assetID, money.PriceFromFloat(bidF), money.PriceFromFloat(askF))
		bidF, askF = adjBid.Float64(), adjAsk.Float64()
	}

	if m.flow.ShouldWidenSpread() {
		spread *= 1.2
		bidF = midF - spread/2 + bidSkew
		askF = midF + spread/2 + askSkew
	}

	eventSignal := m.event.GetSignal(m.market.ConditionID)
	if eventSignal.SpreadMult != 0 && eventSignal.SpreadMult != 1 {
		spread *= eventSignal.SpreadMult
		bidF = midF - spread/2 + bidSkew
		askF = midF + spread/2 + askSkew
	}

	adverseResp = m.risk.AdverseSelection().Response()
	if adverseResp.WidenMult != 1.0 {
		spread *= adverseResp.WidenMult
		bidF = midF - spread/2 + bidSkew
		askF = midF + spread/2 + askSkew
	}

	tick := m.market.TickSize.Price()
	bid = money.PriceFromFloat(bidF).RoundToTick(tick)
	ask = money.PriceFromFloat(askF).RoundToTick(tick)

	bid = bid.Clamp(money.PriceFromFloat(0.01), money.PriceFromFloat(0.98))
	ask = ask.Clamp(money.PriceFromFloat(0.02), money.PriceFromFloat(0.99))
	if bid.Cmp(ask) >= 0 {
		bid = money.PriceFromFloat(midF - spread/2).RoundToTick(tick)
		ask = money.PriceFromFloat(midF + spread/2).RoundToTick(tick)
	}
	return bid, ask, spread, adverseResp
}

// maybeRequote places or holds quotes per the requote threshold and the
// inventory-derived size multipliers, skipping a side once inventory has
// reached its max band or adverse-selection toxicity recommends it.
// Kelly and the dynamic-limit manager further cap each side's size, and a
// portfolio-correlation check can veto a side outright when the pool is
// already overexposed to markets this one moves with.
func (m *Maker) maybeRequote(ctx context.Context, mid, bid, ask money.Price, spread float64, adverseResp risk.AdverseResponse) {
	m.mu.Lock()
	hasQuotes := m.activeBid != nil || m.activeAsk != nil
	lastMid := m.lastMid
	hasLastMid := m.hasLastMid
	m.mu.Unlock()

	threshold := m.cfg.RequoteThreshold
	if threshold <= 0 {
		threshold = 0.03
	}
	if hasQuotes && hasLastMid && math.Abs(mid.Float64()-lastMid.Float64()) < threshold {
		return
	}

	position := m.orders.Position(m.assetID)
	invState := m.inv.State(position, mid)

	baseSize := m.cfg.OrderSizeUSD / mid.Float64()
	bidSize := math.Max(baseSize*invState.BidSizeMult*adverseResp.SizeMult, m.cfg.MinOrderSize)
	askSize := math.Max(baseSize*invState.AskSizeMult*adverseResp.SizeMult, m.cfg.MinOrderSize)

	if dynLimit := m.risk.DynamicLimits().GetLimit(); dynLimit > 0 {
		bidSize = math.Min(bidSize, dynLimit)
		askSize = math.Min(askSize, dynLimit)
	}
	if kellyPct := m.risk.Kelly().CalculateFromTrades(); kellyPct > 0 && m.pool != nil {
		if bankroll := m.pool.GetAllocation(m.assetID); bankroll > 0 {
			kellyMax := bankroll * kellyPct / mid.Float64()
			bidSize = math.Min(bidSize, kellyMax)
			askSize = math.Min(askSize, kellyMax)
		}
	}

	skipBid := invState.Classification == "MAX_LONG" || adverseResp.SkipBuySide
	skipAsk := invState.Classification == "MAX_SHORT" || adverseResp.SkipSell
	if m.pool != nil {
		existing := m.pool.Positions(m.assetID)
		if !skipBid && !m.risk.Correlation().CanAddPosition(m.assetID, position.Float64()+bidSize, existing) {
			skipBid = true
		}
		if !skipAsk && !m.risk.Correlation().CanAddPosition(m.assetID, position.Float64()-askSize, existing) {
			skipAsk = true
		}
	}

	if err := m.cancelActive(ctx); err != nil {
		m.logger.Error("cancel before requote failed", "error", err)
		return
	}

	if !skipBid {
		order, err := m.orders.PlaceOrder(ctx, types.UserOrder{
			TokenID: m.assetID, Price: bid, Size: money.SizeFromFloat(bidSize),
			Side: types.BUY, OrderType: types.OrderTypeGTC, TickSize: m.market.TickSize, FeeRateBps: m.cfg.FeeRateBps,
		})
		if err != nil {
			m.risk.RecordError()
			m.logger.Error("place bid failed", "error", err)
		} else {
			m.mu.Lock()
			m.activeBid = &order
			m.mu.Unlock()
		}
	}

	if !skipAsk {
		order, err := m.orders.PlaceOrder(ctx, types.UserOrder{
			TokenID: m.assetID, Price: ask, Size: money.SizeFromFloat(askSize),
			Side: types.SELL, OrderType: types.OrderTypeGTC, TickSize: m.market.TickSize, FeeRateBps: m.cfg.FeeRateBps,
		})
		if err != nil {
			m.risk.RecordError()
			m.logger.Error("place ask failed", "error", err)
		} else {
			m.mu.Lock()
			m.activeAsk = &order
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	m.lastMid = mid
	m.hasLastMid = true
	m.mu.Unlock()

	if m.tradeLog != nil {
		var bidOrder, askOrder *types.UserOrder
		if !skipBid {
			bidOrder = &types.UserOrder{Price: bid, Size: money.SizeFromFloat(bidSize), Side: types.BUY}
		}
		if !skipAsk {
			askOrder = &types.UserOrder{Price: ask, Size: money.SizeFromFloat(askSize), Side: types.SELL}
		}
		m.tradeLog.LogQuote(m.market.ConditionID, bidOrder, askOrder, mid)
	}

	m.logger.Debug("requoted", "mid", mid, "bid", bid, "ask", ask, "spread", spread, "inventory", invState.Classification)
}

// cancelActive cancels this maker's own tracked bid/ask, if any.
func (m *Maker) cancelActive(ctx context.Context) error {
	m.mu.Lock()
	bid, ask := m.activeBid, m.activeAsk
	m.activeBid, m.activeAsk = nil, nil
	m.mu.Unlock()

	if bid != nil {
		if err := m.orders.CancelOrder(ctx, bid.ID); err != nil {
			return fmt.Errorf("cancel bid: %w", err)
		}
	}
	if ask != nil {
		if err := m.orders.CancelOrder(ctx, ask.ID); err != nil {
			return fmt.Errorf("cancel ask: %w", err)
		}
	}
	return nil
}

// cancelAll cancels every open order for this asset, not just the ones
// this maker is tracking (covers stray orders from a previous run).
func (m *Maker) cancelAll(ctx context.Context) {
	if err := m.cancelActive(ctx); err != nil {
		m.logger.Error("cancel active failed", "error", err)
	}
	if err := m.orders.CancelAllForAsset(ctx, m.assetID); err != nil {
		m.logger.Error("cancel all for asset failed", "error", err)
	}
}

// sweepSimulatedFills checks the dry-run simulator for fills against the
// current touch and records each into the inventory manager, flow
// analyzer, and trade log.
func (m *Maker) sweepSimulatedFills(sim *order.Simulator) {
	bid, ask, ok := m.feed.BestBidAsk(m.assetID)
	if !ok {
		return
	}
	for _, fill := range sim.CheckFills(m.assetID, bid, ask) {
		m.recordFill(fill)
	}
}

// recordFill applies a fill (from the simulator or a live user-channel
// event) to the inventory manager, flow analyzer, and risk manager, and
// emits a trade-log entry plus a dashboard event.
func (m *Maker) recordFill(fill types.Fill) {
	isBuy := fill.Side == types.BUY
	m.inv.RecordFill(isBuy, fill.Price, fill.Size)
	m.flow.RecordTrade(fill.Price, fill.Size, fill.Side, true)

	m.mu.Lock()
	m.fillsSeen++
	m.mu.Unlock()

	metrics.RecordFill(m.market.Slug, string(fill.Side))
	metrics.SetPosition(m.market.Slug, m.orders.Position(m.assetID).Float64())

	fee := fill.Fee.Float64()
	fillID := m.risk.RecordTrade(risk.TradeRecord{
		AssetID: m.assetID, Side: fill.Side,
		Price: fill.Price.Float64(), Size: fill.Size.Float64(),
		Fee: fee, Timestamp: fill.Timestamp,
	})

	m.mu.Lock()
	m.pendingAdverse = append(m.pendingAdverse, pendingAdverseFill{
		id:    fillID,
		dueAt: fill.Timestamp.Add(m.risk.AdverseSelection().OutcomeDelay()),
	})
	m.mu.Unlock()

	if m.tradeLog != nil {
		m.tradeLog.LogTrade(m.market.ConditionID, fill)
	}
	m.emitDashboardEvent(api.DashboardEvent{
		Type:      "fill",
		Timestamp: fill.Timestamp,
		MarketID:  m.market.ConditionID,
	})

	m.logger.Info("fill", "side", fill.Side, "price", fill.Price, "size", fill.Size)
}

// OnExternalFill applies a fill observed from the live order adapter's
// user-channel callback (see internal/engine's event routing).
func (m *Maker) OnExternalFill(fill types.Fill) { m.recordFill(fill) }

// MakerSnapshot is a point-in-time view of one maker's market, used to build
// the dashboard's per-market status.
type MakerSnapshot struct {
	Market        types.MarketInfo
	Active        bool
	Mid           money.Price
	HasMid        bool
	BestBid       money.Price
	BestAsk       money.Price
	HasBidAsk     bool
	Position      money.Size
	VWAP          money.Price
	HasVWAP       bool
	RealizedPnL   money.Price
	UnrealizedPnL money.Price
	ActiveBid     *types.Order
	ActiveAsk     *types.Order
}

// Snapshot reads this maker's current market state for dashboard display.
func (m *Maker) Snapshot() MakerSnapshot {
	m.mu.Lock()
	activeBid, activeAsk := m.activeBid, m.activeAsk
	realizedPnL := m.realizedPnL
	active := m.active
	m.mu.Unlock()

	position := m.orders.Position(m.assetID)
	mid, hasMid := m.feed.Mid(m.assetID)
	bestBid, bestAsk, hasBidAsk := m.feed.BestBidAsk(m.assetID)
	invState := m.inv.State(position, mid)

	return MakerSnapshot{
		Market:        m.market,
		Active:        active,
		Mid:           mid,
		HasMid:        hasMid,
		BestBid:       bestBid,
		BestAsk:       bestAsk,
		HasBidAsk:     hasBidAsk,
		Position:      position,
		VWAP:          invState.VWAP,
		HasVWAP:       invState.HasVWAP,
		RealizedPnL:   money.PriceFromFloat(realizedPnL),
		UnrealizedPnL: invState.UnrealizedPnL,
		ActiveBid:     activeBid,
		ActiveAsk:     activeAsk,
	}
}

func (m *Maker) maybeHeartbeat(loopCount int64, mid money.Price) {
	m.mu.Lock()
	due := time.Since(m.lastHeartbeat) >= 30*time.Second
	if due {
		m.lastHeartbeat = time.Now()
	}
	fills, pnl := m.fillsSeen, m.realizedPnL
	m.mu.Unlock()

	if !due {
		return
	}
	m.logger.Info("heartbeat", "loop", loopCount, "mid", mid, "fills", fills, "realized_pnl", pnl, "timer_mode", m.timer.Mode())
}

func (m *Maker) emitDashboardEvent(evt api.DashboardEvent) {
	if m.dashboardEvents == nil {
		return
	}
	select {
	case m.dashboardEvents <- evt:
	default:
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
