// Package ratelimit throttles outbound exchange calls by endpoint class.
//
// Two classes are maintained, per spec: order-class (placing/cancelling
// orders) and market-data-class (book/trade-tape reads). Each wraps
// golang.org/x/time/rate, whose token-bucket semantics match the
// continuous-refill limiter the exchange expects — up to burst calls pass
// at once, after which Wait blocks the caller until a token refills at the
// configured rate, rather than resetting in fixed windows.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter groups the two endpoint-class limiters. The feed's REST book
// client waits on the market-data class; nothing calls WaitOrder at present.
type Limiter struct {
	Order  *rate.Limiter // order placement/cancellation
	Market *rate.Limiter // book/trade-tape reads
}

// New builds a Limiter from the configured per-second rates and burst
// allowances.
func New(orderPerSec, orderBurst, marketPerSec, marketBurst int) *Limiter {
	return &Limiter{
		Order:  rate.NewLimiter(rate.Limit(orderPerSec), orderBurst),
		Market: rate.NewLimiter(rate.Limit(marketPerSec), marketBurst),
	}
}

// WaitOrder blocks until an order-class token is available or ctx is done.
func (l *Limiter) WaitOrder(ctx context.Context) error {
	return l.Order.Wait(ctx)
}

// WaitMarket blocks until a market-data-class token is available or ctx is done.
func (l *Limiter) WaitMarket(ctx context.Context) error {
	return l.Market.Wait(ctx)
}
