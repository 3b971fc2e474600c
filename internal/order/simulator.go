package order

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// Simulator is deterministic in-memory order matching for dry-run (§4.5).
// It has no network dependency; every call completes synchronously.
type Simulator struct {
	mu         sync.Mutex
	orders     map[string]*types.Order
	fills      []types.Fill
	positions  map[string]money.Size
	feeRateBps int
	logger     *slog.Logger
}

// NewSimulator builds an empty simulator. feeRateBps is the simulated fee
// rate applied on every fill.
func NewSimulator(feeRateBps int, logger *slog.Logger) *Simulator {
	return &Simulator{
		orders:     make(map[string]*types.Order),
		positions:  make(map[string]money.Size),
		feeRateBps: feeRateBps,
		logger:     logger.With("component", "order_simulator"),
	}
}

func (s *Simulator) IsSimulated() bool { return true }

// PlaceOrder creates a LIVE simulated order with a fresh identifier.
func (s *Simulator) PlaceOrder(ctx context.Context, req types.UserOrder) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := types.Order{
		ID:          "sim_" + uuid.NewString()[:12],
		TokenID:     req.TokenID,
		Side:        req.Side,
		Price:       req.Price,
		Size:        req.Size,
		Status:      types.StatusLive,
		IsSimulated: true,
		CreatedAt:   time.Now(),
		Expiration:  req.Expiration,
		FeeRateBps:  req.FeeRateBps,
	}
	s.orders[o.ID] = &o
	s.logger.Debug("sim order created", "side", o.Side, "size", o.Size, "price", o.Price)
	return o, nil
}

// CancelOrder transitions LIVE → CANCELLED.
func (s *Simulator) CancelOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.Status != types.StatusLive {
		return nil
	}
	o.Status = types.StatusCancelled
	return nil
}

// CancelAllForAsset cancels every LIVE order for one token.
func (s *Simulator) CancelAllForAsset(ctx context.Context, assetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Status == types.StatusLive && o.TokenID == assetID {
			o.Status = types.StatusCancelled
		}
	}
	return nil
}

// CancelAll cancels every LIVE order.
func (s *Simulator) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.Status == types.StatusLive {
			o.Status = types.StatusCancelled
		}
	}
	return nil
}

// OpenOrders returns LIVE orders, optionally filtered by asset.
func (s *Simulator) OpenOrders(assetID string) []types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Order
	for _, o := range s.orders {
		if o.Status != types.StatusLive {
			continue
		}
		if assetID != "" && o.TokenID != assetID {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// Position returns the O(1) cached signed position for an asset.
func (s *Simulator) Position(assetID string) money.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[assetID]
}

// SeedPosition sets the starting position for an asset, restoring state
// persisted from a previous run (§4.25 startup reconciliation).
func (s *Simulator) SeedPosition(assetID string, position money.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[assetID] = position
}

// CheckFills walks LIVE orders for assetID and fills any that would cross
// the current touch (§4.5): BUY fills if price >= ask, SELL fills if price
// <= bid. The full size is matched at the order's own price. Returns the
// fills produced by this invocation.
func (s *Simulator) CheckFills(assetID string, bid, ask money.Price) []types.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()

	var produced []types.Fill
	for _, o := range s.orders {
		if o.Status != types.StatusLive || o.TokenID != assetID {
			continue
		}

		shouldFill := false
		switch o.Side {
		case types.BUY:
			shouldFill = o.Price.Cmp(ask) >= 0
		case types.SELL:
			shouldFill = o.Price.Cmp(bid) <= 0
		}
		if !shouldFill {
			continue
		}

		fee := money.SizeFromFloat(o.Price.Float64() * o.Size.Float64() * float64(s.feeRateBps) / 10000)
		fill := types.Fill{
			ID:          "trade_" + uuid.NewString()[:12],
			OrderID:     o.ID,
			TokenID:     o.TokenID,
			Side:        o.Side,
			Price:       o.Price,
			Size:        o.Size,
			Fee:         fee,
			Timestamp:   time.Now(),
			IsSimulated: true,
		}
		s.fills = append(s.fills, fill)
		produced = append(produced, fill)

		s.updatePositionLocked(o.TokenID, o.Side, o.Size)

		o.Filled = o.Size
		o.Status = types.StatusMatched
		s.logger.Debug("sim fill", "side", o.Side, "size", o.Size, "price", o.Price)
	}
	return produced
}

func (s *Simulator) updatePositionLocked(assetID string, side types.Side, size money.Size) {
	pos := s.positions[assetID]
	if side == types.BUY {
		s.positions[assetID] = pos.Add(size)
	} else {
		s.positions[assetID] = pos.Sub(size)
	}
}

// Fills returns all recorded fills, optionally filtered by asset.
func (s *Simulator) Fills(assetID string) []types.Fill {
	s.mu.Lock()
	defer s.mu.Unlock()
	if assetID == "" {
		out := make([]types.Fill, len(s.fills))
		copy(out, s.fills)
		return out
	}
	var out []types.Fill
	for _, f := range s.fills {
		if f.TokenID == assetID {
			out = append(out, f)
		}
	}
	return out
}

// Reset clears all orders, fills, and positions.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[string]*types.Order)
	s.fills = nil
	s.positions = make(map[string]money.Size)
}
