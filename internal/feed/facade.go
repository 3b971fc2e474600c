package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// DataSource is which transport is currently authoritative.
type DataSource string

const (
	SourceWebSocket DataSource = "websocket"
	SourceREST      DataSource = "rest"
)

// FacadeState is the facade's coarse run state.
type FacadeState string

const (
	FacadeStarting FacadeState = "STARTING"
	FacadeRunning  FacadeState = "RUNNING"
	FacadeStopped  FacadeState = "STOPPED"
)

// Callbacks for market data are fired from the facade's worker goroutine,
// never from the network read loop, so implementations may do real (if
// prompt) work. OnStateChange is fired from the health monitor goroutine
// when the active source changes.
type Callbacks struct {
	OnPriceChange func(assetID string, price money.Price)
	OnBookUpdate  func(assetID string)
	OnTrade       func(assetID string, price money.Price, size money.Size, side types.Side)
	OnStateChange func(source DataSource)
}

// Facade orchestrates the WS connection and REST poller with automatic
// failover (§4.4). It owns the store and exposes a minimal synchronous read
// API plus a coarse IsHealthy().
type Facade struct {
	store  *Store
	conn   *Conn
	poller *Poller
	cb     Callbacks
	logger *slog.Logger

	queueCap         int
	queue            chan json_ish
	heartbeatTimeout time.Duration
	healthInterval   time.Duration
	recoveryDelay    time.Duration

	mu            sync.Mutex
	state         FacadeState
	source        DataSource
	wsHealthySince time.Time
	assetIDs      []string
	droppedFrames int
}

// json_ish is the bounded-queue element: a pre-decoded event plus its kind,
// avoiding a second JSON pass in the worker.
type json_ish struct {
	kind string
	book types.WSBookEvent
	pc   types.WSPriceChangeEvent
	tr   types.WSTradeEvent
	ord  types.WSOrderEvent
}

// FacadeConfig configures the facade's timers.
type FacadeConfig struct {
	StaleThreshold      time.Duration
	HeartbeatTimeout    time.Duration
	ReconnectBaseDelay  time.Duration
	ReconnectMaxDelay   time.Duration
	ReconnectMaxAttempts int
	RESTPollInterval    time.Duration
	HealthCheckInterval time.Duration
	RecoveryDelay       time.Duration
	QueueCapacity       int
}

// NewFacade builds a facade over a WS connection to wsURL and a REST
// fallback via fetcher.
func NewFacade(wsURL, channelType string, auth *types.WSAuth, fetcher BookFetcher, cfg FacadeConfig, cb Callbacks, logger *slog.Logger) *Facade {
	store := NewStore(cfg.StaleThreshold)
	f := &Facade{
		store:            store,
		cb:               cb,
		logger:           logger.With("component", "feed_facade"),
		queueCap:         cfg.QueueCapacity,
		queue:            make(chan json_ish, cfg.QueueCapacity),
		heartbeatTimeout: cfg.HeartbeatTimeout,
		healthInterval:   cfg.HealthCheckInterval,
		recoveryDelay:    cfg.RecoveryDelay,
		state:            FacadeStarting,
		source:           SourceWebSocket,
	}
	f.poller = NewPoller(fetcher, store, cfg.RESTPollInterval, logger)
	f.conn = NewConn(ConnConfig{
		URL:         wsURL,
		ChannelType: channelType,
		Auth:        auth,
		BaseDelay:   cfg.ReconnectBaseDelay,
		MaxDelay:    cfg.ReconnectMaxDelay,
		MaxAttempts: cfg.ReconnectMaxAttempts,
	}, f, logger)
	return f
}

// Store exposes the underlying store for read-only queries by other packages.
func (f *Facade) Store() *Store { return f.store }

// Subscribe begins tracking assetIDs on both transports.
func (f *Facade) Subscribe(assetIDs []string) {
	f.mu.Lock()
	f.assetIDs = append(f.assetIDs, assetIDs...)
	f.mu.Unlock()

	for _, id := range assetIDs {
		f.store.Register(id)
	}
	f.conn.Subscribe(assetIDs)
}

// Run starts the WS connection, worker, and health monitor. Blocks until
// ctx is cancelled.
func (f *Facade) Run(ctx context.Context) {
	f.mu.Lock()
	f.state = FacadeRunning
	f.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		f.conn.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		f.worker(ctx)
	}()
	go func() {
		defer wg.Done()
		f.healthMonitor(ctx)
	}()

	<-ctx.Done()
	f.poller.StopAll()
	wg.Wait()

	f.mu.Lock()
	f.state = FacadeStopped
	f.mu.Unlock()
}

// worker drains the bounded queue and applies updates to the store, firing
// callbacks. The REST poller and Subscribe also write to the store, under
// its own lock.
func (f *Facade) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-f.queue:
			f.apply(item)
		}
	}
}

func (f *Facade) apply(item json_ish) {
	switch item.kind {
	case "book":
		evt := item.book
		f.store.ApplyBook(evt.AssetID, WireLevelsToPriceLevels(evt.Buys), WireLevelsToPriceLevels(evt.Sells), time.Now())
		if f.cb.OnBookUpdate != nil {
			safeCall(func() { f.cb.OnBookUpdate(evt.AssetID) }, f.logger)
		}
	case "price_change":
		for _, pc := range item.pc.PriceChanges {
			price := ParsePrice(pc.Price)
			f.store.ApplyPrice(pc.AssetID, price)
			if f.cb.OnPriceChange != nil {
				safeCall(func() { f.cb.OnPriceChange(pc.AssetID, price) }, f.logger)
			}
		}
	case "trade":
		evt := item.tr
		price := ParsePrice(evt.Price)
		size := ParseSize(evt.Size)
		side := types.Side(evt.Side)
		f.store.ApplyTrade(evt.AssetID, price, size, side)
		if f.cb.OnTrade != nil {
			safeCall(func() { f.cb.OnTrade(evt.AssetID, price, size, side) }, f.logger)
		}
	case "order":
		// Order lifecycle events are not applied here; the facade only
		// tracks market-channel data. The engine reads user-channel events
		// from exchange.WSFeed instead.
	}
}

// safeCall isolates a callback panic so it never takes down the worker
// (§5 "A callback exception is caught and logged").
func safeCall(fn func(), logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("feed callback panicked", "recover", r)
		}
	}()
	fn()
}

// —— WSHandler implementation: enqueues onto the bounded channel, never
// blocking the network read loop. ——

func (f *Facade) OnBook(evt types.WSBookEvent) { f.enqueue(json_ish{kind: "book", book: evt}) }
func (f *Facade) OnPriceChange(evt types.WSPriceChangeEvent) {
	f.enqueue(json_ish{kind: "price_change", pc: evt})
}
func (f *Facade) OnTrade(evt types.WSTradeEvent) { f.enqueue(json_ish{kind: "trade", tr: evt}) }
func (f *Facade) OnOrder(evt types.WSOrderEvent) { f.enqueue(json_ish{kind: "order", ord: evt}) }

func (f *Facade) OnStateChange(s ConnState) {
	if s == ConnState(StateConnected) {
		f.mu.Lock()
		if f.wsHealthySince.IsZero() {
			f.wsHealthySince = time.Now()
		}
		f.mu.Unlock()
	} else {
		f.mu.Lock()
		f.wsHealthySince = time.Time{}
		f.mu.Unlock()
	}
}

func (f *Facade) enqueue(item json_ish) {
	select {
	case f.queue <- item:
	default:
		f.mu.Lock()
		f.droppedFrames++
		f.mu.Unlock()
		f.logger.Warn("feed queue full, dropping frame", "kind", item.kind)
	}
}

// healthMonitor runs the WS/REST failover loop described in §4.4.
func (f *Facade) healthMonitor(ctx context.Context) {
	ticker := time.NewTicker(f.healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.evaluateHealth(ctx)
		}
	}
}

func (f *Facade) evaluateHealth(ctx context.Context) {
	f.mu.Lock()
	wsConnected := f.conn.State() == StateConnected
	wsHealthySince := f.wsHealthySince
	assetIDs := append([]string(nil), f.assetIDs...)
	source := f.source
	f.mu.Unlock()

	allFresh := true
	for _, id := range assetIDs {
		if !f.store.IsFresh(id) {
			allFresh = false
			break
		}
	}
	wsHealthyNow := wsConnected && allFresh

	if wsHealthyNow {
		if !wsHealthySince.IsZero() && source == SourceREST && time.Since(wsHealthySince) >= f.recoveryDelay {
			f.poller.StopAll()
			f.setSource(SourceWebSocket)
			f.logger.Info("ws recovered, stopping rest poller")
		}
	} else if !f.poller.Running() {
		f.poller.StartAll(ctx, assetIDs)
		f.setSource(SourceREST)
		f.logger.Warn("ws unhealthy, starting rest poller")
	}
}

func (f *Facade) setSource(s DataSource) {
	f.mu.Lock()
	changed := f.source != s
	f.source = s
	f.mu.Unlock()
	if changed && f.cb.OnStateChange != nil {
		safeCall(func() { f.cb.OnStateChange(s) }, f.logger)
	}
}

// DataSource returns the transport currently authoritative for reads.
func (f *Facade) DataSource() DataSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

// IsHealthy reports overall feed health per §4.4: running, heartbeat fresh,
// all subscribed assets fresh, and — on the WS source — no uncleared gaps.
func (f *Facade) IsHealthy() bool {
	f.mu.Lock()
	state := f.state
	assetIDs := append([]string(nil), f.assetIDs...)
	source := f.source
	f.mu.Unlock()

	if state != FacadeRunning {
		return false
	}
	if hb := f.store.SecondsSinceAnyMessage(); hb < 0 || hb >= f.heartbeatTimeout.Seconds() {
		return false
	}
	for _, id := range assetIDs {
		if !f.store.IsFresh(id) {
			return false
		}
	}
	if source == SourceWebSocket && f.store.HasGaps() {
		return false
	}
	return true
}

// Mid, BestBidAsk, Spread, Book are the facade's synchronous-looking read API.
func (f *Facade) Mid(assetID string) (money.Price, bool) { return f.store.Mid(assetID) }
func (f *Facade) BestBidAsk(assetID string) (bid, ask money.Price, ok bool) {
	return f.store.BestBidAsk(assetID)
}
func (f *Facade) Spread(assetID string) (money.Price, bool) { return f.store.Spread(assetID) }
func (f *Facade) Book(assetID string) (types.OrderBookSnapshot, bool) {
	return f.store.OrderBook(assetID)
}

// DroppedFrames returns the count of frames dropped due to queue overflow.
func (f *Facade) DroppedFrames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.droppedFrames
}
