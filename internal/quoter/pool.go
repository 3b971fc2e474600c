package quoter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"predictmm/internal/alpha"
	"predictmm/internal/api"
	"predictmm/internal/config"
	"predictmm/internal/feed"
	"predictmm/internal/metrics"
	"predictmm/internal/order"
	"predictmm/internal/risk"
	"predictmm/pkg/money"
	"predictmm/pkg/types"

	"golang.org/x/sync/errgroup"
)

// marketState tracks one pooled market's quoter and its equal-capital
// allocation.
type marketState struct {
	assetID    string
	maker      *Maker
	allocation float64
	cancel     context.CancelFunc
}

// Pool supervises one Maker per market under a shared capital budget,
// recomputing equal-capital allocations whenever a market is added or
// removed (§4.20). A market's quoter failing does not affect its
// siblings: its failure is logged, it is marked inactive, and the rest of
// the pool keeps running.
type Pool struct {
	cfg    config.PoolConfig
	feed   *feed.Facade
	risk   *risk.Manager
	arb    *alpha.ArbitrageDetector
	logger *slog.Logger

	mu         sync.Mutex
	markets    map[string]*marketState
	wg         sync.WaitGroup
	running    bool
	scanCancel context.CancelFunc
}

// NewPool builds an empty pool. arb may be nil when no YES/NO pair
// arbitrage scanning is configured.
func NewPool(cfg config.PoolConfig, f *feed.Facade, riskMgr *risk.Manager, arb *alpha.ArbitrageDetector, logger *slog.Logger) *Pool {
	return &Pool{
		cfg:     cfg,
		feed:    f,
		risk:    riskMgr,
		arb:     arb,
		logger:  logger.With("component", "pool"),
		markets: make(map[string]*marketState),
	}
}

// MarketCount returns the number of registered markets.
func (p *Pool) MarketCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.markets)
}

// MakerFor returns the Maker quoting assetID, if registered. Used by the
// engine to route a live user-channel fill to the right quoter's trackers.
func (p *Pool) MakerFor(assetID string) (*Maker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.markets[assetID]
	if !ok {
		return nil, false
	}
	return state.maker, true
}

// Assets returns every currently-registered asset ID.
func (p *Pool) Assets() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.markets))
	for id := range p.markets {
		out = append(out, id)
	}
	return out
}

// Snapshots returns a point-in-time view of every registered market, for
// dashboard display.
func (p *Pool) Snapshots() []MakerSnapshot {
	p.mu.Lock()
	states := make([]*marketState, 0, len(p.markets))
	for _, s := range p.markets {
		states = append(states, s)
	}
	p.mu.Unlock()

	out := make([]MakerSnapshot, 0, len(states))
	for _, s := range states {
		out = append(out, s.maker.Snapshot())
	}
	return out
}

// AddMarket registers a new market to quote, builds its Maker, and — if
// the pool is already running — starts it immediately. Returns an error
// if max_markets is already reached.
func (p *Pool) AddMarket(market types.MarketInfo, strategyCfg config.StrategyConfig, orders order.Subsystem, tradeLog TradeLogger, events chan<- api.DashboardEvent) error {
	p.mu.Lock()
	if p.cfg.MaxMarkets > 0 && len(p.markets) >= p.cfg.MaxMarkets {
		p.mu.Unlock()
		return fmt.Errorf("pool: max_markets (%d) reached", p.cfg.MaxMarkets)
	}
	if _, exists := p.markets[market.YesTokenID]; exists {
		p.mu.Unlock()
		return fmt.Errorf("pool: market %s already registered", market.Slug)
	}

	if market.ConditionID != "" && p.arb != nil {
		p.arb.RegisterPair(alpha.Pair{
			ConditionID: market.ConditionID,
			YesTokenID:  market.YesTokenID,
			NoTokenID:   market.NoTokenID,
		})
	}

	maker := NewMaker(strategyCfg, market, market.YesTokenID, market.NoTokenID, MakerDeps{
		Feed: p.feed, Orders: orders, Risk: p.risk, Arb: p.arb, Pool: p, TradeLog: tradeLog, Events: events,
	}, p.logger)

	state := &marketState{assetID: market.YesTokenID, maker: maker}
	p.markets[market.YesTokenID] = state
	running := p.running
	p.mu.Unlock()

	p.recalculateAllocations()

	if running {
		p.startOne(state)
	}
	return nil
}

// RemoveMarket stops and unregisters a market's quoter.
func (p *Pool) RemoveMarket(assetID string) {
	p.mu.Lock()
	state, ok := p.markets[assetID]
	if ok {
		delete(p.markets, assetID)
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	if state.cancel != nil {
		state.cancel()
	}
	p.recalculateAllocations()
}

// recalculateAllocations splits total_capital equally across all
// registered markets.
func (p *Pool) recalculateAllocations() {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.markets)
	if n == 0 {
		return
	}
	share := p.cfg.TotalCapital / float64(n)
	for _, state := range p.markets {
		state.allocation = share
	}
}

// GetAllocation returns the current per-market capital allocation.
func (p *Pool) GetAllocation(assetID string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state, ok := p.markets[assetID]; ok {
		return state.allocation
	}
	return 0
}

// GetMaxPosition bounds a market's max position by whichever is tighter:
// its own capital allocation, or the pool's remaining headroom under the
// risk manager's total exposure limit once every other market's position
// is accounted for.
func (p *Pool) GetMaxPosition(assetID string, maxTotalExposure float64) float64 {
	p.mu.Lock()
	state, ok := p.markets[assetID]
	if !ok {
		p.mu.Unlock()
		return 0
	}
	allocation := state.allocation

	var othersExposure float64
	for id, s := range p.markets {
		if id == assetID {
			continue
		}
		othersExposure += abs(s.maker.Position().Float64())
	}
	p.mu.Unlock()

	remaining := maxTotalExposure - othersExposure
	if remaining < 0 {
		remaining = 0
	}
	if remaining < allocation {
		return remaining
	}
	return allocation
}

// Positions returns the signed position of every pooled market except
// excluding, for correlation and portfolio-beta checks.
func (p *Pool) Positions(excluding string) map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]float64, len(p.markets))
	for id, s := range p.markets {
		if id == excluding {
			continue
		}
		out[id] = s.maker.Position().Float64()
	}
	return out
}

// GetTotalExposure sums the absolute position value across every pooled
// market.
func (p *Pool) GetTotalExposure() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	var total float64
	for _, s := range p.markets {
		total += abs(s.maker.Position().Float64())
	}
	return total
}

// Start runs every registered market's quoter concurrently under an
// errgroup, isolating each market's panics/errors from the rest of the
// pool: a single market failing is logged and marked inactive, it does
// not stop its siblings or propagate past Start.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.running = true
	states := make([]*marketState, 0, len(p.markets))
	for _, s := range p.markets {
		states = append(states, s)
	}
	p.mu.Unlock()

	for _, s := range states {
		p.startOne(s)
	}

	if p.arb != nil {
		scanCtx, cancel := context.WithCancel(context.Background())
		p.mu.Lock()
		p.scanCancel = cancel
		p.mu.Unlock()

		p.wg.Add(1)
		go p.runArbScanner(scanCtx)
	}
}

func (p *Pool) startOne(state *marketState) {
	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("market quoter panicked", "asset", state.assetID, "panic", r)
			}
		}()
		p.runMarket(ctx, state)
	}()
}

// runMarket drives one market's quoter loop, isolated via errgroup.Go so
// a failure there is contained to this goroutine and logged, never
// propagated to the rest of the pool.
func (p *Pool) runMarket(ctx context.Context, state *marketState) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		state.maker.Run(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		state.maker.setInactive()
		p.logger.Error("market quoter exited with error", "asset", state.assetID, "error", err)
	}
}

// runArbScanner periodically scans every registered YES/NO pair so each
// Maker's per-tick CachedSignal read stays fresh.
func (p *Pool) runArbScanner(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	priceGetter := func(assetID string) (money.Price, bool) { return p.feed.Mid(assetID) }

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			signals := p.arb.ScanAll(priceGetter)
			for _, s := range signals {
				metrics.ArbitrageSignalsTotal.WithLabelValues(string(s.Type)).Inc()
				p.logger.Info("arbitrage signal", "condition_id", s.ConditionID, "type", s.Type, "profit_bps", s.ProfitBps)
			}
		}
	}
}

// Stop cancels every market's quoter and the arbitrage scanner, then
// waits for all of them to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.running = false
	for _, state := range p.markets {
		if state.cancel != nil {
			state.cancel()
		}
	}
	if p.scanCancel != nil {
		p.scanCancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
