package feed

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

type fakeTradeTapeFetcher struct {
	mu     sync.Mutex
	trades []TradeTapeEntry
}

func (f *fakeTradeTapeFetcher) FetchTrades(ctx context.Context, assetID string) ([]TradeTapeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TradeTapeEntry, len(f.trades))
	copy(out, f.trades)
	return out, nil
}

func (f *fakeTradeTapeFetcher) set(trades []TradeTapeEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = trades
}

func TestTradesPollerDeliversOnlyNewTradesInOrder(t *testing.T) {
	base := time.Now()
	fetcher := &fakeTradeTapeFetcher{trades: []TradeTapeEntry{
		{ID: "1", AssetID: "a", Price: money.PriceFromFloat(0.5), Size: money.SizeFromFloat(1), Side: types.BUY, Timestamp: base},
		{ID: "2", AssetID: "a", Price: money.PriceFromFloat(0.51), Size: money.SizeFromFloat(2), Side: types.SELL, Timestamp: base.Add(time.Second)},
	}}

	var mu sync.Mutex
	var seen []string
	cb := func(assetID string, price money.Price, size money.Size, side types.Side, isTaker bool) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, assetID+":"+price.String())
		if !isTaker {
			t.Error("trade tape entries must always be reported as taker-completed")
		}
	}

	poller := NewTradesPoller(fetcher, 5*time.Millisecond, cb, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx, "a")

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	})

	// Append a third trade; only it should be delivered on the next poll.
	fetcher.set(append(fetcher.trades, TradeTapeEntry{
		ID: "3", AssetID: "a", Price: money.PriceFromFloat(0.52), Size: money.SizeFromFloat(1), Side: types.BUY, Timestamp: base.Add(2 * time.Second),
	}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	})

	poller.StopAll()

	mu.Lock()
	defer mu.Unlock()
	if seen[2] != "a:0.52" {
		t.Errorf("expected third delivered trade at 0.52, got %s", seen[2])
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for condition")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
