// Package engine is the central orchestrator of the market-making bot.
//
// It wires together all subsystems:
//
//  1. scorer discovers and ranks candidate markets from the Gamma API.
//  2. quoter.Pool runs one Maker per discovered asset under a shared
//     capital budget, reading market data off feed.Facade and placing
//     orders through an order.Subsystem (simulator in dry-run, the real
//     exchange otherwise).
//  3. The authenticated user channel (fills, order lifecycle) is consumed
//     directly here and routed into the live order adapter and the
//     matching Maker's external-fill hook — the market-data facade does
//     not carry order events.
//  4. risk.Manager gates every quote across the pool; store.Store persists
//     each market's position across restarts.
//
// Lifecycle: New() → Start(ctx) → [runs until ctx is cancelled] → Stop()
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"predictmm/internal/alpha"
	"predictmm/internal/api"
	"predictmm/internal/config"
	"predictmm/internal/exchange"
	"predictmm/internal/feed"
	"predictmm/internal/order"
	"predictmm/internal/quoter"
	"predictmm/internal/ratelimit"
	"predictmm/internal/risk"
	"predictmm/internal/scorer"
	"predictmm/internal/store"
	"predictmm/internal/tradelog"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// positionSeeder is implemented by both order.Simulator and
// order.LiveAdapter. It isn't part of order.Subsystem since restoring a
// persisted position is a one-time startup concern, not something a Maker
// ever calls mid-run.
type positionSeeder interface {
	SeedPosition(assetID string, position money.Size)
}

// Engine orchestrates discovery, quoting, and order/feed wiring for the
// whole bot.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	auth   *exchange.Auth
	client *exchange.Client

	marketFeed *feed.Facade
	userFeed   *exchange.WSFeed // nil in dry-run: the simulator needs no live fills

	gamma  *scorer.GammaClient
	rank   *scorer.Scorer
	riskMgr *risk.Manager
	store  *store.Store
	trades *tradelog.Logger
	orders order.Subsystem
	arb    *alpha.ArbitrageDetector
	pool   *quoter.Pool

	dashboardEvents chan api.DashboardEvent

	mu      sync.Mutex
	known   map[string]types.MarketInfo // by YesTokenID

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires every component. If L2 API credentials aren't configured, it
// derives them via L1 (EIP-712) auth against the live exchange.
func New(cfg config.Config, logger *slog.Logger) (*Engine, error) {
	logger = logger.With("component", "engine")

	auth, err := exchange.NewAuth(cfg)
	if err != nil {
		return nil, fmt.Errorf("build auth: %w", err)
	}
	client := exchange.NewClient(cfg, auth, logger)

	if !auth.HasL2Credentials() {
		logger.Info("no L2 credentials configured, deriving API key via L1")
		creds, err := client.DeriveAPIKey(context.Background())
		if err != nil {
			return nil, fmt.Errorf("derive API key: %w", err)
		}
		auth.SetCredentials(*creds)
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open position store: %w", err)
	}

	tl, err := tradelog.New(cfg.TradeLog, logger)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}

	rl := ratelimit.New(cfg.RateLimit.OrderRatePerSec, cfg.RateLimit.OrderBurst, cfg.RateLimit.MarketRatePerSec, cfg.RateLimit.MarketBurst)

	riskMode := risk.ModeEnforce
	if cfg.DryRun {
		riskMode = risk.ModeDataGather
	}
	riskMgr := risk.NewManager(cfg.Risk, logger, riskMode)

	var orders order.Subsystem
	var userFeed *exchange.WSFeed
	if cfg.DryRun {
		orders = order.NewSimulator(cfg.Strategy.FeeRateBps, logger)
	} else {
		balances := order.NewRESTBalanceFetcher(cfg.API.CLOBBaseURL, auth)
		orders = order.NewLiveAdapter(client, balances, money.ZeroSize(), logger)
		userFeed = exchange.NewUserFeed(cfg.API.WSUserURL, auth, logger)
	}

	restBooks := feed.NewRESTClient(cfg.API.CLOBBaseURL, rl, logger)

	var dashEvents chan api.DashboardEvent
	if cfg.Dashboard.Enabled {
		dashEvents = make(chan api.DashboardEvent, 256)
	}

	e := &Engine{
		cfg:             cfg,
		logger:          logger,
		auth:            auth,
		client:          client,
		userFeed:        userFeed,
		gamma:           scorer.NewGammaClient(cfg.API.GammaBaseURL, cfg.Scanner),
		rank:            scorer.NewScorer(cfg.Scanner),
		riskMgr:         riskMgr,
		store:           st,
		trades:          tl,
		orders:          orders,
		arb:             alpha.NewArbitrageDetector(float64(cfg.Strategy.FeeRateBps) / 10000),
		dashboardEvents: dashEvents,
		known:           make(map[string]types.MarketInfo),
	}

	e.marketFeed = feed.NewFacade(cfg.API.WSMarketURL, "market", nil, restBooks, feed.FacadeConfig{
		StaleThreshold:       cfg.Feed.StaleThreshold,
		HeartbeatTimeout:     cfg.Feed.HeartbeatTimeout,
		ReconnectBaseDelay:   cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Feed.ReconnectMaxDelay,
		ReconnectMaxAttempts: cfg.Feed.ReconnectMaxAttempts,
		RESTPollInterval:     cfg.Feed.RESTPollInterval,
		HealthCheckInterval:  cfg.Feed.HealthCheckInterval,
		RecoveryDelay:        cfg.Feed.RecoveryDelay,
		QueueCapacity:        cfg.Feed.QueueCapacity,
	}, feed.Callbacks{
		OnStateChange: e.onFeedSourceChange,
	}, logger)

	e.pool = quoter.NewPool(cfg.Pool, e.marketFeed, riskMgr, e.arb, logger)

	return e, nil
}

func (e *Engine) onFeedSourceChange(source feed.DataSource) {
	e.logger.Warn("market feed source changed", "source", source)
}

// Start launches the market feed, the user fill channel (if live), the
// quoter pool, and the periodic discovery loop. It restores any positions
// persisted by a previous run before the pool starts quoting (§4.25).
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.reconcileStartupPositions(); err != nil {
		e.logger.Error("startup position reconciliation failed", "error", err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.marketFeed.Run(e.ctx)
	}()

	if e.userFeed != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.userFeed.Run(e.ctx); err != nil && e.ctx.Err() == nil {
				e.logger.Error("user feed exited", "error", err)
			}
		}()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.dispatchUserEvents()
		}()
	}

	e.pool.Start(e.ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.discoveryLoop()
	}()

	e.logger.Info("engine started", "dry_run", e.cfg.DryRun, "max_markets", e.cfg.Pool.MaxMarkets)
	return nil
}

// reconcileStartupPositions restores every persisted position snapshot into
// the order subsystem's in-memory cache, ahead of any quoter touching it.
func (e *Engine) reconcileStartupPositions() error {
	snaps, err := e.store.LoadAll()
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	seeder, ok := e.orders.(positionSeeder)
	if !ok {
		return nil
	}
	for _, snap := range snaps {
		seeder.SeedPosition(snap.AssetID, snap.Position)
		e.logger.Info("restored position", "asset", snap.AssetID, "position", snap.Position, "saved_at", snap.SavedAt)
	}
	return nil
}

// discoveryLoop periodically polls the Gamma API, ranks candidates, and
// reconciles the pool's registered markets against the top results.
func (e *Engine) discoveryLoop() {
	ticker := time.NewTicker(e.cfg.Scanner.PollInterval)
	defer ticker.Stop()

	e.runDiscovery()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.runDiscovery()
		}
	}
}

func (e *Engine) runDiscovery() {
	candidates, err := e.gamma.FetchCandidates(e.ctx)
	if err != nil {
		e.logger.Error("fetch candidates failed", "error", err)
		return
	}

	books := make(map[string]*types.OrderBookSnapshot)
	for _, c := range candidates {
		if book, ok := e.marketFeed.Book(c.YesTokenID); ok {
			books[c.YesTokenID] = &book
		}
	}

	ranked := e.rank.Rank(candidates, books)

	desired := make(map[string]types.MarketInfo)
	for _, s := range ranked {
		if s.Rejected {
			continue
		}
		if len(desired) >= e.cfg.Pool.MaxMarkets {
			break
		}
		desired[s.Market.YesTokenID] = s.Market
	}

	e.mu.Lock()
	current := make(map[string]types.MarketInfo, len(e.known))
	for id, m := range e.known {
		current[id] = m
	}
	e.mu.Unlock()

	for id := range current {
		if _, ok := desired[id]; !ok {
			e.removeMarket(id)
		}
	}
	for id, m := range desired {
		if _, ok := current[id]; !ok {
			e.addMarket(m)
		}
	}
}

func (e *Engine) addMarket(m types.MarketInfo) {
	if m.YesTokenID == "" || m.NoTokenID == "" {
		e.logger.Warn("skipping candidate with missing token IDs", "slug", m.Slug)
		return
	}

	if seeder, ok := e.orders.(positionSeeder); ok {
		if snap, err := e.store.LoadPosition(m.ConditionID); err == nil && snap != nil {
			seeder.SeedPosition(m.YesTokenID, snap.Position)
		}
	}

	if err := e.pool.AddMarket(m, e.cfg.Strategy, e.orders, e.trades, e.dashboardEvents); err != nil {
		e.logger.Error("add market failed", "slug", m.Slug, "error", err)
		return
	}

	e.marketFeed.Subscribe([]string{m.YesTokenID, m.NoTokenID})
	if e.userFeed != nil {
		if err := e.userFeed.Subscribe(e.ctx, []string{m.ConditionID}); err != nil {
			e.logger.Error("subscribe user feed failed", "condition_id", m.ConditionID, "error", err)
		}
	}

	e.mu.Lock()
	e.known[m.YesTokenID] = m
	e.mu.Unlock()

	e.logger.Info("market added", "slug", m.Slug, "condition_id", m.ConditionID, "asset", m.YesTokenID)
}

func (e *Engine) removeMarket(assetID string) {
	e.mu.Lock()
	m, ok := e.known[assetID]
	delete(e.known, assetID)
	e.mu.Unlock()
	if !ok {
		return
	}

	e.persistPosition(m)
	e.pool.RemoveMarket(assetID)

	if e.userFeed != nil {
		if err := e.userFeed.Unsubscribe(e.ctx, []string{m.ConditionID}); err != nil {
			e.logger.Error("unsubscribe user feed failed", "condition_id", m.ConditionID, "error", err)
		}
	}

	e.logger.Info("market removed", "slug", m.Slug, "condition_id", m.ConditionID)
}

func (e *Engine) persistPosition(m types.MarketInfo) {
	snap := store.PositionSnapshot{
		AssetID:  m.YesTokenID,
		Position: e.orders.Position(m.YesTokenID),
	}
	if maker, ok := e.pool.MakerFor(m.YesTokenID); ok {
		ms := maker.Snapshot()
		snap.VWAP = ms.VWAP
		snap.RealizedPnL = ms.RealizedPnL.Float64()
	}
	if err := e.store.SavePosition(m.ConditionID, snap); err != nil {
		e.logger.Error("save position failed", "condition_id", m.ConditionID, "error", err)
	}
}

// dispatchUserEvents routes the authenticated user channel's fills and
// order-lifecycle events into the live order adapter and the matching
// Maker's inventory/flow trackers.
func (e *Engine) dispatchUserEvents() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case trade := <-e.userFeed.TradeEvents():
			e.handleUserTrade(trade)
		case evt := <-e.userFeed.OrderEvents():
			e.handleUserOrder(evt)
		}
	}
}

func (e *Engine) handleUserTrade(trade types.WSTradeEvent) {
	price, err := money.NewPrice(trade.Price)
	if err != nil {
		e.logger.Error("parse trade price", "error", err, "price", trade.Price)
		return
	}
	size, err := money.NewSize(trade.Size)
	if err != nil {
		e.logger.Error("parse trade size", "error", err, "size", trade.Size)
		return
	}
	side := types.Side(trade.Side)

	if live, ok := e.orders.(*order.LiveAdapter); ok {
		live.ApplyFill(trade.ID, trade.AssetID, side, size)
	}

	if maker, ok := e.pool.MakerFor(trade.AssetID); ok {
		maker.OnExternalFill(types.Fill{
			ID:      trade.ID,
			TokenID: trade.AssetID,
			Side:    side,
			Price:   price,
			Size:    size,
		})
	}
}

func (e *Engine) handleUserOrder(evt types.WSOrderEvent) {
	e.logger.Debug("order lifecycle event", "id", evt.ID, "type", evt.Type, "asset", evt.AssetID)
}

// Stop cancels the engine's context, sends a cancel-all to the exchange as
// a safety net, persists every pooled market's position, waits for every
// goroutine, and closes underlying resources.
func (e *Engine) Stop() {
	e.logger.Info("shutting down")

	e.cancel()
	e.pool.Stop()

	cancelCtx, cancelDone := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := e.client.CancelAll(cancelCtx); err != nil {
		e.logger.Error("cancel all orders on shutdown failed", "error", err)
	}
	cancelDone()

	e.mu.Lock()
	known := make([]types.MarketInfo, 0, len(e.known))
	for _, m := range e.known {
		known = append(known, m)
	}
	e.mu.Unlock()
	for _, m := range known {
		e.persistPosition(m)
	}

	e.wg.Wait()

	if e.userFeed != nil {
		e.userFeed.Close()
	}
	if err := e.store.Close(); err != nil {
		e.logger.Error("close store failed", "error", err)
	}
	if err := e.trades.Close(); err != nil {
		e.logger.Error("close trade log failed", "error", err)
	}

	e.logger.Info("shutdown complete")
}

// DashboardEvents returns the dashboard event channel (nil if disabled).
func (e *Engine) DashboardEvents() <-chan api.DashboardEvent {
	return e.dashboardEvents
}

// GetMarketsSnapshot builds the dashboard's per-market status list from
// every currently pooled maker.
func (e *Engine) GetMarketsSnapshot() []api.MarketStatus {
	snaps := e.pool.Snapshots()
	out := make([]api.MarketStatus, 0, len(snaps))

	for _, s := range snaps {
		var spread, spreadBps float64
		if s.HasBidAsk {
			spread = s.BestAsk.Sub(s.BestBid).Float64()
			if mid := s.Mid.Float64(); s.HasMid && mid > 0 {
				spreadBps = spread / mid * 10000
			}
		}

		exposure := 0.0
		if s.HasMid {
			exposure = s.Position.Float64() * s.Mid.Float64()
		}

		posSnap := api.PositionSnapshot{
			Position:      s.Position.Float64(),
			VWAP:          s.VWAP.Float64(),
			RealizedPnL:   s.RealizedPnL.Float64(),
			UnrealizedPnL: s.UnrealizedPnL.Float64(),
			ExposureUSD:   exposure,
			LastUpdated:   time.Now(),
		}

		var activeBid, activeAsk *api.QuoteInfo
		if s.ActiveBid != nil {
			activeBid = &api.QuoteInfo{Price: s.ActiveBid.Price.Float64(), Size: s.ActiveBid.Size.Float64(), OrderID: s.ActiveBid.ID, Timestamp: s.ActiveBid.CreatedAt}
		}
		if s.ActiveAsk != nil {
			activeAsk = &api.QuoteInfo{Price: s.ActiveAsk.Price.Float64(), Size: s.ActiveAsk.Size.Float64(), OrderID: s.ActiveAsk.ID, Timestamp: s.ActiveAsk.CreatedAt}
		}

		out = append(out, api.MarketStatus{
			ConditionID: s.Market.ConditionID,
			AssetID:     s.Market.YesTokenID,
			Slug:        s.Market.Slug,
			Question:    s.Market.Question,
			MidPrice:    s.Mid.Float64(),
			BestBid:     s.BestBid.Float64(),
			BestAsk:     s.BestAsk.Float64(),
			Spread:      spread,
			SpreadBps:   spreadBps,
			LastUpdated: time.Now(),
			IsStale:     !s.HasMid,
			Position:    posSnap,
			ActiveBid:   activeBid,
			ActiveAsk:   activeAsk,
			Allocation:  e.pool.GetAllocation(s.Market.YesTokenID),
			Active:      s.Active,
			TickSize:    s.Market.TickSize.Price().Float64(),
			EndDate:     s.Market.EndDate,
			Liquidity:   s.Market.Liquidity,
			Volume24h:   s.Market.Volume24h,
		})
	}

	return out
}

// GetPool returns the quoter pool through api.PoolProvider's narrow
// interface, keeping internal/api free of a dependency on internal/quoter.
func (e *Engine) GetPool() api.PoolProvider { return e.pool }

// GetRiskManager returns the shared risk manager for dashboard access.
func (e *Engine) GetRiskManager() *risk.Manager { return e.riskMgr }
