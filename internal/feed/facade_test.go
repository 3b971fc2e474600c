package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"predictmm/pkg/types"
)

func testFacade(fetcher BookFetcher) *Facade {
	cfg := FacadeConfig{
		StaleThreshold:       50 * time.Millisecond,
		HeartbeatTimeout:     time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		ReconnectMaxAttempts: 5,
		RESTPollInterval:     5 * time.Millisecond,
		HealthCheckInterval:  5 * time.Millisecond,
		RecoveryDelay:        30 * time.Second,
		QueueCapacity:        16,
	}
	return NewFacade("wss://example.invalid/ws", "market", nil, fetcher, cfg, Callbacks{}, slog.Default())
}

func TestFacadeFailsOverToRESTWhenWSUnhealthy(t *testing.T) {
	fetcher := &fakeBookFetcher{resp: &types.BookResponse{
		Bids: []types.WireLevel{{Price: "0.45", Size: "10"}},
		Asks: []types.WireLevel{{Price: "0.55", Size: "10"}},
	}}
	f := testFacade(fetcher)
	f.Subscribe([]string{"asset-1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WS never connects in this test (no real dial target), so the health
	// monitor should start the REST poller on its first tick.
	f.evaluateHealth(ctx)

	waitFor(t, func() bool { return f.DataSource() == SourceREST })
	waitFor(t, func() bool { _, ok := f.Store().OrderBook("asset-1"); return ok })
}

func TestFacadeEnqueueDropsOnFullQueue(t *testing.T) {
	fetcher := &fakeBookFetcher{resp: &types.BookResponse{}}
	f := testFacade(fetcher)
	f.queue = make(chan json_ish) // unbuffered with no reader: enqueue's non-blocking send fails and the frame is dropped

	f.enqueue(json_ish{kind: "trade"})
	if f.DroppedFrames() != 1 {
		t.Errorf("expected 1 dropped frame, got %d", f.DroppedFrames())
	}
}

func TestFacadeApplyBookFiresCallback(t *testing.T) {
	fetcher := &fakeBookFetcher{resp: &types.BookResponse{}}
	f := testFacade(fetcher)

	var called string
	f.cb.OnBookUpdate = func(assetID string) { called = assetID }

	f.apply(json_ish{kind: "book", book: types.WSBookEvent{
		AssetID: "asset-1",
		Buys:    []types.WireLevel{{Price: "0.4", Size: "1"}},
		Sells:   []types.WireLevel{{Price: "0.6", Size: "1"}},
	}})

	if called != "asset-1" {
		t.Errorf("expected OnBookUpdate callback for asset-1, got %q", called)
	}
	if _, ok := f.Store().OrderBook("asset-1"); !ok {
		t.Error("expected book to be stored")
	}
}
