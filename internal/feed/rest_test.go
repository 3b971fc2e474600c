package feed

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"predictmm/pkg/types"
)

type fakeBookFetcher struct {
	mu    sync.Mutex
	calls int
	resp  *types.BookResponse
	err   error
}

func (f *fakeBookFetcher) FetchBook(ctx context.Context, assetID string) (*types.BookResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeBookFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollerAppliesBookAndClearsGaps(t *testing.T) {
	fetcher := &fakeBookFetcher{resp: &types.BookResponse{
		Bids: []types.WireLevel{{Price: "0.45", Size: "10"}},
		Asks: []types.WireLevel{{Price: "0.55", Size: "10"}},
	}}
	store := NewStore(time.Minute)
	store.CheckSequence("asset-1", 5)
	store.CheckSequence("asset-1", 9) // induce a gap

	poller := NewPoller(fetcher, store, 5*time.Millisecond, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx, "asset-1")
	defer poller.StopAll()

	deadline := time.After(500 * time.Millisecond)
	for {
		if _, ok := store.OrderBook("asset-1"); ok && !store.HasGaps() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for poller to apply book and clear gaps")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPollerRunningReflectsActiveAssets(t *testing.T) {
	fetcher := &fakeBookFetcher{resp: &types.BookResponse{}}
	store := NewStore(time.Minute)
	poller := NewPoller(fetcher, store, 50*time.Millisecond, slog.Default())

	if poller.Running() {
		t.Error("expected not running before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx, "asset-1")
	if !poller.Running() {
		t.Error("expected running after Start")
	}

	cancel()
	poller.StopAll()
	if poller.Running() {
		t.Error("expected not running after StopAll")
	}
}
