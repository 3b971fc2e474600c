package tradelog

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

func testConfig(t *testing.T) config.TradeLogConfig {
	t.Helper()
	dir := t.TempDir()
	return config.TradeLogConfig{
		Dir:        dir,
		SQLitePath: filepath.Join(dir, "trades.db"),
	}
}

func testLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := New(testConfig(t), slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogTradeWritesJSONLAndSQLite(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	logger, err := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	fill := types.Fill{
		ID: "fill-1", OrderID: "order-1", TokenID: "asset-1", Side: types.BUY,
		Price: money.PriceFromFloat(0.55), Size: money.SizeFromFloat(10), Fee: money.SizeFromFloat(0.1),
		Timestamp: time.Now(),
	}
	logger.LogTrade("market-1", fill)

	lines := readLines(t, filepath.Join(cfg.Dir, "trades.jsonl"))
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	if lines[0]["type"] != "trade" || lines[0]["fill_id"] != "fill-1" {
		t.Errorf("record = %+v, want type=trade fill_id=fill-1", lines[0])
	}

	ids, err := logger.RecentFills("market-1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("RecentFills() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "fill-1" {
		t.Errorf("RecentFills() = %v, want [fill-1]", ids)
	}
}

func TestLogQuoteOmitsMissingSide(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	logger, err := New(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	bid := &types.UserOrder{Price: money.PriceFromFloat(0.49), Size: money.SizeFromFloat(5)}
	logger.LogQuote("market-1", bid, nil, money.PriceFromFloat(0.50))

	lines := readLines(t, filepath.Join(cfg.Dir, "trades.jsonl"))
	if len(lines) != 1 {
		t.Fatalf("len(lines) = %d, want 1", len(lines))
	}
	if _, hasAsk := lines[0]["ask_price"]; hasAsk {
		t.Error("expected ask_price to be omitted when ask is nil")
	}
	if lines[0]["bid_price"] != "0.49" {
		t.Errorf("bid_price = %v, want 0.49", lines[0]["bid_price"])
	}
}

func TestLogEventIncludesArbitraryData(t *testing.T) {
	t.Parallel()
	logger := testLogger(t)
	logger.LogEvent("market-1", "risk_stop", map[string]any{"reason": "max daily loss"})

	lines := readLines(t, filepath.Join(filepath.Dir(logger.file.Name()), "trades.jsonl"))
	if len(lines) != 1 || lines[0]["type"] != "risk_stop" {
		t.Fatalf("records = %+v, want one risk_stop record", lines)
	}
}
