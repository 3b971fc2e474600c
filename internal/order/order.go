// Package order defines the order subsystem interface and its two
// implementations: an in-memory simulator for dry-run, and a live adapter
// over the exchange REST API. The quoter talks to whichever is configured
// through this one interface, with no conditional on dry-run anywhere in
// its quoting logic.
package order

import (
	"context"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// Subsystem is the order-management interface shared by the simulator and
// the live adapter (§4.5, §4.6).
type Subsystem interface {
	// PlaceOrder submits a new resting order and returns its tracked record.
	PlaceOrder(ctx context.Context, order types.UserOrder) (types.Order, error)

	// CancelOrder cancels a single order by ID. A cancel of an
	// already-terminal order is not an error.
	CancelOrder(ctx context.Context, orderID string) error

	// CancelAllForAsset cancels every open order on one asset.
	CancelAllForAsset(ctx context.Context, assetID string) error

	// CancelAll cancels every open order across all assets.
	CancelAll(ctx context.Context) error

	// OpenOrders returns currently-live orders, optionally filtered to one
	// asset (empty string means all assets).
	OpenOrders(assetID string) []types.Order

	// Position returns the current signed position for an asset: O(1) via
	// a cached running total (§4.5).
	Position(assetID string) money.Size

	// IsSimulated reports whether this subsystem fills orders itself
	// (simulator) or executes against the real exchange (live).
	IsSimulated() bool
}
