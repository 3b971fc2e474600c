package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// TradeTapeEntry is one entry from the exchange's per-asset trade tape.
// All trades the tape returns are taker-completed (§4.24).
type TradeTapeEntry struct {
	ID        string
	AssetID   string
	Price     money.Price
	Size      money.Size
	Side      types.Side
	Timestamp time.Time
}

// TradeTapeFetcher fetches recent trades for one asset, most exchanges
// return newest-first; the poller re-sorts chronologically before
// delivering callbacks.
type TradeTapeFetcher interface {
	FetchTrades(ctx context.Context, assetID string) ([]TradeTapeEntry, error)
}

// TradeCallback receives one live trade, in chronological order, as the
// LIVE flow ingest for internal/alpha's flow analyzer.
type TradeCallback func(assetID string, price money.Price, size money.Size, side types.Side, isTaker bool)

// TradesPoller polls the exchange trade tape per asset (§4.24), tracking the
// last-seen trade ID so each poll only delivers new trades.
type TradesPoller struct {
	fetcher  TradeTapeFetcher
	interval time.Duration
	callback TradeCallback
	logger   *slog.Logger

	mu       sync.Mutex
	lastSeen map[string]string
	cancels  map[string]context.CancelFunc
}

// NewTradesPoller builds a trades poller that invokes cb for each new trade.
func NewTradesPoller(fetcher TradeTapeFetcher, interval time.Duration, cb TradeCallback, logger *slog.Logger) *TradesPoller {
	return &TradesPoller{
		fetcher:  fetcher,
		interval: interval,
		callback: cb,
		logger:   logger.With("component", "trades_poller"),
		lastSeen: make(map[string]string),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start begins polling an asset's trade tape, if not already running.
func (p *TradesPoller) Start(ctx context.Context, assetID string) {
	p.mu.Lock()
	if _, ok := p.cancels[assetID]; ok {
		p.mu.Unlock()
		return
	}
	assetCtx, cancel := context.WithCancel(ctx)
	p.cancels[assetID] = cancel
	p.mu.Unlock()

	go p.run(assetCtx, assetID)
}

// StartAll begins polling every given asset's trade tape.
func (p *TradesPoller) StartAll(ctx context.Context, assetIDs []string) {
	for _, id := range assetIDs {
		p.Start(ctx, id)
	}
}

// StopAll halts every trade-tape poll loop.
func (p *TradesPoller) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cancel := range p.cancels {
		cancel()
		delete(p.cancels, id)
	}
}

func (p *TradesPoller) run(ctx context.Context, assetID string) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, assetID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, assetID)
		}
	}
}

func (p *TradesPoller) poll(ctx context.Context, assetID string) {
	trades, err := p.fetcher.FetchTrades(ctx, assetID)
	if err != nil {
		p.logger.Warn("trades poll failed", "asset", assetID, "error", err)
		return
	}
	if len(trades) == 0 {
		return
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].Timestamp.Before(trades[j].Timestamp) })

	p.mu.Lock()
	lastSeen, haveLastSeen := p.lastSeen[assetID]
	p.mu.Unlock()

	fresh := trades
	if haveLastSeen {
		cut := 0
		for i, tr := range trades {
			if tr.ID == lastSeen {
				cut = i + 1
			}
		}
		fresh = trades[cut:]
	}
	if len(fresh) == 0 {
		return
	}

	for _, tr := range fresh {
		if p.callback != nil {
			safeCall(func() { p.callback(tr.AssetID, tr.Price, tr.Size, tr.Side, true) }, p.logger)
		}
	}

	p.mu.Lock()
	p.lastSeen[assetID] = fresh[len(fresh)-1].ID
	p.mu.Unlock()
}
