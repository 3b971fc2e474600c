// Package feed implements the market-data layer: an in-memory per-asset
// store, a WebSocket connection with auto-reconnect, a REST fallback
// poller, and a facade that orchestrates automatic failover between them.
// It also runs the live trades poller that feeds the flow analyzer.
package feed

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

const sequenceSentinel = ^uint64(0) // "no predecessor" marker

// assetState holds everything the store tracks for one asset.
type assetState struct {
	book            types.OrderBookSnapshot
	lastTradePrice  money.Price
	lastTradeSide   types.Side
	lastTradeSize   money.Size
	mutatedAt       time.Time
	lastSeq         uint64 // sequenceSentinel until the first sequenced message arrives
	gapCount        int
}

// Store keeps, per asset, the latest order book, last trade, last mutation
// time, and sequence-gap bookkeeping (§4.1). Writes come from the facade's
// worker, the REST poller, and Register/Unregister; every access takes mu,
// so reads and writes are safe from any goroutine.
type Store struct {
	mu              sync.RWMutex
	assets          map[string]*assetState
	lastAnyMessage  time.Time
	staleThreshold  time.Duration
}

// NewStore builds an empty store. staleThreshold is the per-asset
// mutation-age cutoff used by IsFresh.
func NewStore(staleThreshold time.Duration) *Store {
	return &Store{
		assets:         make(map[string]*assetState),
		staleThreshold: staleThreshold,
	}
}

// Register begins tracking an asset. Safe to call repeatedly.
func (s *Store) Register(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[assetID]; !ok {
		s.assets[assetID] = &assetState{lastSeq: sequenceSentinel}
	}
}

// Unregister drops tracking for an asset.
func (s *Store) Unregister(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assets, assetID)
}

// ApplyBook replaces the book for an asset: bids sorted descending, asks
// ascending. Unordered input is sorted here; a crossed book (best_bid >=
// best_ask) is stored as given.
func (s *Store) ApplyBook(assetID string, bids, asks []types.PriceLevel, ts time.Time) {
	bids = sortedLevels(bids, true)
	asks = sortedLevels(asks, false)
	if ts.IsZero() {
		ts = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(assetID)
	st.book = types.OrderBookSnapshot{
		AssetID:   assetID,
		Bids:      bids,
		Asks:      asks,
		Timestamp: ts,
	}
	st.mutatedAt = time.Now()
	s.lastAnyMessage = st.mutatedAt
}

func sortedLevels(levels []types.PriceLevel, descending bool) []types.PriceLevel {
	out := make([]types.PriceLevel, len(levels))
	copy(out, levels)
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// ApplyPrice updates the last traded price for an asset.
func (s *Store) ApplyPrice(assetID string, price money.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(assetID)
	st.lastTradePrice = price
	st.mutatedAt = time.Now()
	s.lastAnyMessage = st.mutatedAt
}

// ApplyTrade updates the last trade for an asset.
func (s *Store) ApplyTrade(assetID string, price money.Price, size money.Size, side types.Side) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(assetID)
	st.lastTradePrice = price
	st.lastTradeSize = size
	st.lastTradeSide = side
	st.mutatedAt = time.Now()
	s.lastAnyMessage = st.mutatedAt
}

// CheckSequence returns false iff seq != last+1 and last is defined (i.e. a
// gap was detected). Sequences supplied without a predecessor are accepted
// unconditionally. On mismatch, the gap counter increments and seq is
// adopted as the new baseline.
func (s *Store) CheckSequence(assetID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(assetID)

	if st.lastSeq == sequenceSentinel {
		st.lastSeq = seq
		return true
	}
	if seq != st.lastSeq+1 {
		st.gapCount++
		st.lastSeq = seq
		return false
	}
	st.lastSeq = seq
	return true
}

// ClearGaps resets the gap counter for an asset, called after a REST resync.
func (s *Store) ClearGaps(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.assets[assetID]; ok {
		st.gapCount = 0
	}
}

func (s *Store) stateLocked(assetID string) *assetState {
	st, ok := s.assets[assetID]
	if !ok {
		st = &assetState{lastSeq: sequenceSentinel}
		s.assets[assetID] = st
	}
	return st
}

// OrderBook returns the current snapshot for an asset.
func (s *Store) OrderBook(assetID string) (types.OrderBookSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.assets[assetID]
	if !ok {
		return types.OrderBookSnapshot{}, false
	}
	return st.book, true
}

// Mid returns the current mid price for an asset.
func (s *Store) Mid(assetID string) (money.Price, bool) {
	book, ok := s.OrderBook(assetID)
	if !ok {
		return money.ZeroPrice(), false
	}
	return book.Mid()
}

// BestBidAsk returns the best bid and ask for an asset.
func (s *Store) BestBidAsk(assetID string) (bid, ask money.Price, ok bool) {
	book, found := s.OrderBook(assetID)
	if !found {
		return money.ZeroPrice(), money.ZeroPrice(), false
	}
	b, okB := book.BestBid()
	a, okA := book.BestAsk()
	if !okB || !okA {
		return money.ZeroPrice(), money.ZeroPrice(), false
	}
	return b, a, true
}

// Spread returns ask-bid for an asset.
func (s *Store) Spread(assetID string) (money.Price, bool) {
	book, ok := s.OrderBook(assetID)
	if !ok {
		return money.ZeroPrice(), false
	}
	return book.Spread()
}

// SecondsSinceMutation returns how long since this asset last changed.
func (s *Store) SecondsSinceMutation(assetID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.assets[assetID]
	if !ok || st.mutatedAt.IsZero() {
		return -1
	}
	return time.Since(st.mutatedAt).Seconds()
}

// SecondsSinceAnyMessage returns the store-wide heartbeat age.
func (s *Store) SecondsSinceAnyMessage() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastAnyMessage.IsZero() {
		return -1
	}
	return time.Since(s.lastAnyMessage).Seconds()
}

// IsFresh reports whether an asset's data is within the staleness threshold.
func (s *Store) IsFresh(assetID string) bool {
	age := s.SecondsSinceMutation(assetID)
	return age >= 0 && age < s.staleThreshold.Seconds()
}

// HasGaps reports whether any tracked asset has an uncleared sequence gap.
func (s *Store) HasGaps() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.assets {
		if st.gapCount > 0 {
			return true
		}
	}
	return false
}

// ParsePrice parses a wire decimal string into a money.Price, defaulting to
// zero on malformed input; the parse error is not surfaced to the caller.
func ParsePrice(s string) money.Price {
	if s == "" {
		return money.ZeroPrice()
	}
	p, err := money.NewPrice(s)
	if err != nil {
		return money.ZeroPrice()
	}
	return p
}

// ParseSize parses a wire decimal string into a money.Size.
func ParseSize(s string) money.Size {
	if s == "" {
		return money.ZeroSize()
	}
	sz, err := money.NewSize(s)
	if err != nil {
		return money.ZeroSize()
	}
	return sz
}

// ParseSeq parses an optional wire sequence number.
func ParseSeq(s *uint64) (uint64, bool) {
	if s == nil {
		return 0, false
	}
	return *s, true
}

// WireLevelsToPriceLevels converts wire-format levels to domain levels.
func WireLevelsToPriceLevels(levels []types.WireLevel) []types.PriceLevel {
	out := make([]types.PriceLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, types.PriceLevel{Price: ParsePrice(l.Price), Size: ParseSize(l.Size)})
	}
	return out
}

// parseUint turns an optional numeric wire field into a uint64. Nothing in
// the package calls it at present.
func parseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
