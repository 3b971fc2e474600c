package order

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"predictmm/internal/errs"
	"predictmm/internal/exchange"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// BalanceFetcher reports the account's free USDC balance, used to guard
// every LIVE placement (§4.6, §7). Extracted as an interface so tests can
// substitute a fake instead of hitting the real balance-allowance endpoint.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context) (money.Size, error)
}

// RESTBalanceFetcher reads the CLOB's balance-allowance endpoint for the
// collateral asset.
type RESTBalanceFetcher struct {
	http *resty.Client
	auth *exchange.Auth
}

// NewRESTBalanceFetcher builds a balance fetcher against baseURL.
func NewRESTBalanceFetcher(baseURL string, auth *exchange.Auth) *RESTBalanceFetcher {
	return &RESTBalanceFetcher{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
		auth: auth,
	}
}

func (f *RESTBalanceFetcher) FetchBalance(ctx context.Context) (money.Size, error) {
	headers, err := f.auth.L2Headers("GET", "/balance-allowance", "")
	if err != nil {
		return money.ZeroSize(), errs.Protocol("l2 headers for balance", err)
	}

	var result struct {
		Balance string `json:"balance"`
	}
	resp, err := f.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("asset_type", "COLLATERAL").
		SetResult(&result).
		Get("/balance-allowance")
	if err != nil {
		return money.ZeroSize(), errs.Transport("fetch balance", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return money.ZeroSize(), errs.Transport("fetch balance", fmt.Errorf("status %d", resp.StatusCode()))
	}

	// Balance is returned in 6-decimal USDC base units.
	raw, err := strconv.ParseFloat(result.Balance, 64)
	if err != nil {
		return money.ZeroSize(), errs.Protocol("parse balance", err)
	}
	return money.SizeFromFloat(raw / 1e6), nil
}

// LiveAdapter mirrors the simulator's interface (Subsystem) over the real
// exchange (§4.6). PlaceOrder checks balance and posts through the exchange
// client; the posted order's Signature field is left empty, as no EIP-712
// order signature is computed. Cancels and queries pass through the
// exchange client.
type LiveAdapter struct {
	client  *exchange.Client
	balance BalanceFetcher
	logger  *slog.Logger

	mu         sync.RWMutex
	tracked    map[string]*types.Order
	positions  map[string]money.Size
	minBalance money.Size
}

// NewLiveAdapter wraps an exchange client and balance fetcher behind the
// Subsystem interface. minBalance is the floor below which a placement is
// rejected with a validation error rather than risking an exchange reject.
func NewLiveAdapter(client *exchange.Client, balance BalanceFetcher, minBalance money.Size, logger *slog.Logger) *LiveAdapter {
	return &LiveAdapter{
		client:     client,
		balance:    balance,
		minBalance: minBalance,
		logger:     logger.With("component", "order_live"),
		tracked:    make(map[string]*types.Order),
		positions:  make(map[string]money.Size),
	}
}

func (a *LiveAdapter) IsSimulated() bool { return false }

// PlaceOrder checks balance, then posts a single order via the batch
// endpoint and returns its tracked Order.
func (a *LiveAdapter) PlaceOrder(ctx context.Context, req types.UserOrder) (types.Order, error) {
	bal, err := a.balance.FetchBalance(ctx)
	if err != nil {
		return types.Order{}, err
	}
	if bal.LessThan(a.minBalance) {
		return types.Order{}, errs.Balance("insufficient balance: have %s, need at least %s", bal, a.minBalance)
	}
	cost := money.SizeFromFloat(req.Price.Float64() * req.Size.Float64())
	if req.Side == types.BUY && bal.LessThan(cost) {
		return types.Order{}, errs.Balance("insufficient balance for order: have %s, need %s", bal, cost)
	}

	negRisk := false
	results, err := a.client.PostOrders(ctx, []types.UserOrder{req}, negRisk)
	if err != nil {
		return types.Order{}, errs.Transport("place order", err)
	}
	if len(results) == 0 || !results[0].Success {
		msg := "rejected"
		if len(results) > 0 {
			msg = results[0].ErrorMsg
		}
		return types.Order{}, errs.Validation("order rejected: %s", msg)
	}

	o := types.Order{
		ID:          results[0].OrderID,
		TokenID:     req.TokenID,
		Side:        req.Side,
		Price:       req.Price,
		Size:        req.Size,
		Status:      types.StatusLive,
		IsSimulated: false,
		CreatedAt:   time.Now(),
		Expiration:  req.Expiration,
		FeeRateBps:  req.FeeRateBps,
	}

	a.mu.Lock()
	a.tracked[o.ID] = &o
	a.mu.Unlock()

	return o, nil
}

// CancelOrder posts a cancel for a single order ID.
func (a *LiveAdapter) CancelOrder(ctx context.Context, orderID string) error {
	_, err := a.client.CancelOrders(ctx, []string{orderID})
	if err != nil {
		return errs.Transport("cancel order", err)
	}
	a.mu.Lock()
	if o, ok := a.tracked[orderID]; ok {
		o.Status = types.StatusCancelled
	}
	a.mu.Unlock()
	return nil
}

// CancelAllForAsset cancels every order in one market (by condition ID,
// which the caller passes as assetID for this method — see quoter wiring).
func (a *LiveAdapter) CancelAllForAsset(ctx context.Context, assetID string) error {
	if _, err := a.client.CancelMarketOrders(ctx, assetID); err != nil {
		return errs.Transport("cancel market orders", err)
	}
	a.mu.Lock()
	for _, o := range a.tracked {
		if o.TokenID == assetID {
			o.Status = types.StatusCancelled
		}
	}
	a.mu.Unlock()
	return nil
}

// CancelAll cancels every open order across all markets.
func (a *LiveAdapter) CancelAll(ctx context.Context) error {
	if _, err := a.client.CancelAll(ctx); err != nil {
		return errs.Transport("cancel all", err)
	}
	a.mu.Lock()
	for _, o := range a.tracked {
		o.Status = types.StatusCancelled
	}
	a.mu.Unlock()
	return nil
}

// OpenOrders returns locally-tracked LIVE orders, optionally filtered.
// Tracked state is updated locally by PlaceOrder, the cancel calls and
// ApplyFill, not re-fetched here, to avoid an extra REST round trip on
// every read.
func (a *LiveAdapter) OpenOrders(assetID string) []types.Order {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []types.Order
	for _, o := range a.tracked {
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

// Position returns the O(1) cached signed position, updated by ApplyFill as
// user-channel trade events arrive.
func (a *LiveAdapter) Position(assetID string) money.Size {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.positions[assetID]
}

// SeedPosition sets the starting position for an asset, restoring state
// persisted from a previous run (§4.25 startup reconciliation).
func (a *LiveAdapter) SeedPosition(assetID string, position money.Size) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.positions[assetID] = position
}

// ApplyFill updates tracked order/position state from a user-channel trade
// event. The live adapter does not poll for fills; the engine calls it for
// each trade event read from exchange.WSFeed's user channel.
func (a *LiveAdapter) ApplyFill(orderID, assetID string, side types.Side, size money.Size) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if o, ok := a.tracked[orderID]; ok {
		o.Filled = o.Filled.Add(size)
		if o.Filled.Cmp(o.Size) >= 0 {
			o.Status = types.StatusMatched
		}
	}

	pos := a.positions[assetID]
	if side == types.BUY {
		a.positions[assetID] = pos.Add(size)
	} else {
		a.positions[assetID] = pos.Sub(size)
	}
}
