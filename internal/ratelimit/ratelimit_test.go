package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitOrderBlocksUntilToken(t *testing.T) {
	t.Parallel()

	l := New(2, 1, 10, 10) // 2/s, burst 1: second call must wait
	ctx := context.Background()

	if err := l.WaitOrder(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := l.WaitOrder(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("expected second call to wait ~500ms for refill, waited %v", elapsed)
	}
}

func TestWaitMarketRespectsContextCancel(t *testing.T) {
	t.Parallel()

	l := New(10, 10, 1, 1)
	ctx := context.Background()
	if err := l.WaitMarket(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.WaitMarket(cctx); err == nil {
		t.Error("expected context deadline error")
	}
}
