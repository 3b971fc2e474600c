// Package tradelog writes an append-only record of every trade, quote,
// and notable event to a JSON-lines file, and mirrors trade records into a
// SQLite fills table so post-hoc analysis can query them instead of
// re-parsing the log (§4.23). Quote and event records go to the file only.
package tradelog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// record is one JSON-lines entry. Fields are all optional except
// Timestamp/Type/MarketID — which ones are populated depends on Type.
type record struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // "trade", "quote", or a caller-supplied event kind
	MarketID  string    `json:"market_id"`

	// trade fields
	Side   string `json:"side,omitempty"`
	Price  string `json:"price,omitempty"`
	Size   string `json:"size,omitempty"`
	Fee    string `json:"fee,omitempty"`
	FillID string `json:"fill_id,omitempty"`

	// quote fields
	BidPrice string `json:"bid_price,omitempty"`
	AskPrice string `json:"ask_price,omitempty"`
	BidSize  string `json:"bid_size,omitempty"`
	AskSize  string `json:"ask_size,omitempty"`
	Mid      string `json:"mid,omitempty"`

	// event fields
	Data any `json:"data,omitempty"`
}

// Logger is the trade/quote/event sink. Safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	db      *sql.DB
	logger  *slog.Logger
}

// New opens (creating if needed) the JSONL file under cfg.Dir and the
// SQLite database at cfg.SQLitePath, and prepares the fills table.
func New(cfg config.TradeLogConfig, logger *slog.Logger) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("tradelog: create dir: %w", err)
	}

	logPath := filepath.Join(cfg.Dir, "trades.jsonl")
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tradelog: open log file: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("tradelog: open sqlite: %w", err)
	}
	if err := initSchema(db); err != nil {
		file.Close()
		db.Close()
		return nil, fmt.Errorf("tradelog: init schema: %w", err)
	}

	return &Logger{file: file, db: db, logger: logger.With("component", "tradelog")}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS fills (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			fill_id    TEXT NOT NULL,
			market_id  TEXT NOT NULL,
			side       TEXT NOT NULL,
			price      TEXT NOT NULL,
			size       TEXT NOT NULL,
			fee        TEXT NOT NULL,
			timestamp  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fills_market ON fills(market_id);
		CREATE INDEX IF NOT EXISTS idx_fills_fill_id ON fills(fill_id);
	`)
	return err
}

// LogTrade appends a fill to both the JSONL file and the SQLite fills
// table, where RecentFills can look it up.
func (l *Logger) LogTrade(marketID string, fill types.Fill) {
	rec := record{
		Timestamp: fill.Timestamp,
		Type:      "trade",
		MarketID:  marketID,
		Side:      string(fill.Side),
		Price:     fill.Price.String(),
		Size:      fill.Size.String(),
		Fee:       fill.Fee.String(),
		FillID:    fill.ID,
	}
	l.write(rec)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.db.Exec(
		`INSERT INTO fills (fill_id, market_id, side, price, size, fee, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fill.ID, marketID, string(fill.Side), fill.Price.String(), fill.Size.String(), fill.Fee.String(), fill.Timestamp,
	); err != nil {
		l.logger.Error("sqlite insert failed", "error", err)
	}
}

// LogQuote appends a quote-update record. A nil bid or ask means that
// side was held back (e.g. inventory at its max band).
func (l *Logger) LogQuote(marketID string, bid, ask *types.UserOrder, mid money.Price) {
	rec := record{Timestamp: time.Now(), Type: "quote", MarketID: marketID, Mid: mid.String()}
	if bid != nil {
		rec.BidPrice = bid.Price.String()
		rec.BidSize = bid.Size.String()
	}
	if ask != nil {
		rec.AskPrice = ask.Price.String()
		rec.AskSize = ask.Size.String()
	}
	l.write(rec)
}

// LogEvent appends a free-form event record (e.g. a risk event, a kill
// switch trip, an arbitrage signal).
func (l *Logger) LogEvent(marketID, kind string, data any) {
	l.write(record{Timestamp: time.Now(), Type: kind, MarketID: marketID, Data: data})
}

func (l *Logger) write(rec record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(rec)
	if err != nil {
		l.logger.Error("marshal record failed", "error", err)
		return
	}
	b = append(b, '\n')
	if _, err := l.file.Write(b); err != nil {
		l.logger.Error("write record failed", "error", err)
	}
}

// RecentFills returns the IDs of fills for marketID logged since the given
// time, ordered chronologically. Startup reconciliation does not call it.
func (l *Logger) RecentFills(marketID string, since time.Time) ([]string, error) {
	rows, err := l.db.Query(
		`SELECT fill_id FROM fills WHERE market_id = ? AND timestamp >= ? ORDER BY timestamp ASC`,
		marketID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("tradelog: query recent fills: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("tradelog: scan fill id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close flushes and closes the file and database handles.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fileErr := l.file.Close()
	dbErr := l.db.Close()
	if fileErr != nil {
		return fileErr
	}
	return dbErr
}
