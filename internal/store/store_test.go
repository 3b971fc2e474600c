package store

import (
	"testing"

	"predictmm/pkg/money"
)

func TestSaveAndLoadPosition(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	snap := PositionSnapshot{
		AssetID:     "asset-1",
		Position:    money.SizeFromFloat(10.5),
		VWAP:        money.PriceFromFloat(0.55),
		RealizedPnL: 1.23,
	}

	if err := s.SavePosition("mkt1", snap); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	loaded, err := s.LoadPosition("mkt1")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadPosition returned nil")
	}

	if loaded.Position.Cmp(snap.Position) != 0 {
		t.Errorf("Position = %v, want %v", loaded.Position, snap.Position)
	}
	if loaded.VWAP.Cmp(snap.VWAP) != 0 {
		t.Errorf("VWAP = %v, want %v", loaded.VWAP, snap.VWAP)
	}
	if loaded.RealizedPnL != snap.RealizedPnL {
		t.Errorf("RealizedPnL = %v, want %v", loaded.RealizedPnL, snap.RealizedPnL)
	}
}

func TestLoadPositionMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadPosition("nonexistent")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing position, got %+v", loaded)
	}
}

func TestSavePositionOverwrites(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	snap1 := PositionSnapshot{AssetID: "asset-1", Position: money.SizeFromFloat(10)}
	snap2 := PositionSnapshot{AssetID: "asset-1", Position: money.SizeFromFloat(20)}

	_ = s.SavePosition("mkt1", snap1)
	_ = s.SavePosition("mkt1", snap2)

	loaded, err := s.LoadPosition("mkt1")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if loaded.Position.Float64() != 20 {
		t.Errorf("Position = %v, want 20 (latest save)", loaded.Position.Float64())
	}
}

func TestLoadAllReturnsEverySavedSnapshot(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SavePosition("mkt1", PositionSnapshot{AssetID: "asset-1", Position: money.SizeFromFloat(5)})
	_ = s.SavePosition("mkt2", PositionSnapshot{AssetID: "asset-2", Position: money.SizeFromFloat(-3)})

	all, err := s.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
}
