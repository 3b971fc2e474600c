package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"predictmm/pkg/types"
)

// ConnState is the WebSocket connection lifecycle state (§4.2).
type ConnState string

const (
	StateDisconnected ConnState = "DISCONNECTED"
	StateConnecting   ConnState = "CONNECTING"
	StateConnected    ConnState = "CONNECTED"
	StateReconnecting ConnState = "RECONNECTING"
	StateFailed       ConnState = "FAILED"
)

const (
	pingInterval = 30 * time.Second
	readTimeout  = 90 * time.Second
	writeTimeout = 10 * time.Second
)

// WSHandler receives decoded frames from the connection. Implementations
// must return promptly; the connection invokes them synchronously from its
// network read loop, so a slow handler delays the next read.
type WSHandler interface {
	OnBook(types.WSBookEvent)
	OnPriceChange(types.WSPriceChangeEvent)
	OnTrade(types.WSTradeEvent)
	OnOrder(types.WSOrderEvent)
	OnStateChange(ConnState)
}

// Conn is a single WebSocket connection with auto-reconnect and exponential
// backoff (§4.2). ChannelType is "market" (public) or "user" (authenticated).
type Conn struct {
	url         string
	channelType string
	auth        *types.WSAuth

	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int

	mu         sync.Mutex
	conn       *websocket.Conn
	state      ConnState
	subscribed map[string]bool

	handler WSHandler
	logger  *slog.Logger
}

// ConnConfig configures reconnect behavior.
type ConnConfig struct {
	URL         string
	ChannelType string // "market" or "user"
	Auth        *types.WSAuth
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// NewConn builds a connection in the DISCONNECTED state.
func NewConn(cfg ConnConfig, handler WSHandler, logger *slog.Logger) *Conn {
	return &Conn{
		url:         cfg.URL,
		channelType: cfg.ChannelType,
		auth:        cfg.Auth,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		maxAttempts: cfg.MaxAttempts,
		state:       StateDisconnected,
		subscribed:  make(map[string]bool),
		handler:     handler,
		logger:      logger.With("component", "feed_ws", "channel", cfg.ChannelType),
	}
}

// State returns the current connection state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.handler.OnStateChange(s)
}

// Subscribe adds asset IDs (market) or condition IDs (user) to the
// subscription set and, if connected, sends an update frame immediately.
func (c *Conn) Subscribe(ids []string) error {
	c.mu.Lock()
	for _, id := range ids {
		c.subscribed[id] = true
	}
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.writeJSON(updateMsg(c.channelType, ids, "subscribe"))
}

// Unsubscribe removes IDs from the subscription set.
func (c *Conn) Unsubscribe(ids []string) error {
	c.mu.Lock()
	for _, id := range ids {
		delete(c.subscribed, id)
	}
	connected := c.conn != nil
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.writeJSON(updateMsg(c.channelType, ids, "unsubscribe"))
}

func updateMsg(channelType string, ids []string, op string) types.WSUpdateMsg {
	msg := types.WSUpdateMsg{Operation: op}
	if channelType == "market" {
		msg.AssetIDs = ids
	} else {
		msg.Markets = ids
	}
	return msg
}

// Run connects and maintains the connection with exponential backoff until
// ctx is cancelled or the reconnect-attempt cap is exhausted (entering
// FAILED). Blocks until one of those happens.
func (c *Conn) Run(ctx context.Context) error {
	attempt := 0
	for {
		c.setState(StateConnecting)
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		attempt++
		if attempt > c.maxAttempts {
			c.setState(StateFailed)
			return fmt.Errorf("feed ws: exceeded %d reconnect attempts: %w", c.maxAttempts, err)
		}

		delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
		c.logger.Warn("websocket disconnected, reconnecting", "error", err, "attempt", attempt, "delay", delay)
		c.setState(StateReconnecting)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Reset moves the connection back to DISCONNECTED so a FAILED connection
// can be run again without rebuilding subscriptions; the reconnect attempt
// counter is local to Run, so the next Run call starts it from zero.
func (c *Conn) Reset() {
	c.setState(StateDisconnected)
}

func (c *Conn) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	ids := make([]string, 0, len(c.subscribed))
	for id := range c.subscribed {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		conn.Close()
		c.conn = nil
		c.mu.Unlock()
	}()

	if err := c.sendSubscription(ids); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.setState(StateConnected)
	c.logger.Info("websocket connected", "assets", len(ids))

	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.pingLoop(pingCtx, conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(msg)
	}
}

func (c *Conn) sendSubscription(ids []string) error {
	msg := types.WSSubscribeMsg{Type: c.channelType}
	if c.channelType == "market" {
		msg.AssetIDs = ids
	} else {
		msg.Auth = c.auth
		msg.Markets = ids
	}
	return c.writeJSON(msg)
}

// dispatch decodes a frame (or array of frames) and routes each by
// event_type. Unrecognized types are logged and ignored; malformed JSON is
// dropped with a log line and is not counted (the facade's DroppedFrames
// counts only queue overflow).
func (c *Conn) dispatch(data []byte) {
	trimmed := bytesTrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var frames []json.RawMessage
		if err := json.Unmarshal(trimmed, &frames); err != nil {
			c.logger.Debug("dropping malformed frame array", "error", err)
			return
		}
		for _, f := range frames {
			c.dispatchOne(f)
		}
		return
	}
	c.dispatchOne(trimmed)
}

func (c *Conn) dispatchOne(data []byte) {
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Debug("dropping non-json message", "error", err)
		return
	}

	switch envelope.EventType {
	case "book":
		var evt types.WSBookEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Error("unmarshal book event", "error", err)
			return
		}
		c.handler.OnBook(evt)
	case "price_change":
		var evt types.WSPriceChangeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Error("unmarshal price_change event", "error", err)
			return
		}
		c.handler.OnPriceChange(evt)
	case "trade", "last_trade_price":
		var evt types.WSTradeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Error("unmarshal trade event", "error", err)
			return
		}
		c.handler.OnTrade(evt)
	case "order":
		var evt types.WSOrderEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			c.logger.Error("unmarshal order event", "error", err)
			return
		}
		c.handler.OnOrder(evt)
	case "tick_size_change":
		c.logger.Debug("tick size change event, ignoring")
	default:
		c.logger.Debug("unknown event type", "type", envelope.EventType)
	}
}

func (c *Conn) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				c.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *Conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("feed ws: not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func bytesTrimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
