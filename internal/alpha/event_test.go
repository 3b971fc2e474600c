package alpha

import (
	"testing"
	"time"
)

func TestEventSignalNeutralWithNoEventsOrResolution(t *testing.T) {
	t.Parallel()
	tr := NewEventTracker()
	signal := tr.GetSignal("m1")

	if signal.Direction != "NEUTRAL" || signal.TradeSide != "yes" {
		t.Fatalf("unexpected signal: %+v", signal)
	}
	if signal.SpreadMult != 1.0 || signal.SizeMult != 1.0 {
		t.Errorf("expected neutral multipliers, got %+v", signal)
	}
}

func TestEventSignalWidensApproachingResolution(t *testing.T) {
	t.Parallel()
	tr := NewEventTracker()
	tr.SetResolution("m1", time.Now().Add(6*time.Hour))

	signal := tr.GetSignal("m1")
	if signal.SpreadMult <= 1.0 {
		t.Errorf("expected widened spread approaching resolution, got %v", signal.SpreadMult)
	}
	if signal.SizeMult >= 1.0 {
		t.Errorf("expected reduced size approaching resolution, got %v", signal.SizeMult)
	}
}

func TestEventSignalTradesNoWithinOneHourOfResolution(t *testing.T) {
	t.Parallel()
	tr := NewEventTracker()
	tr.SetResolution("m1", time.Now().Add(30*time.Minute))

	signal := tr.GetSignal("m1")
	if signal.TradeSide != "no" {
		t.Errorf("expected trade_side no within 1h of resolution, got %s", signal.TradeSide)
	}
}

func TestEventSignalLongOnStrongConfidentBullishEvent(t *testing.T) {
	t.Parallel()
	tr := NewEventTracker()
	tr.AddEvent("m1", MarketEvent{Impact: 0.8, Confidence: 0.9, Expiry: time.Now().Add(time.Hour)})

	signal := tr.GetSignal("m1")
	if signal.Direction != "LONG" {
		t.Fatalf("expected LONG, got %+v", signal)
	}
	if signal.Strength <= 0 {
		t.Errorf("expected positive strength, got %v", signal.Strength)
	}
}

func TestEventSignalNeutralWhenImpactWeak(t *testing.T) {
	t.Parallel()
	tr := NewEventTracker()
	tr.AddEvent("m1", MarketEvent{Impact: 0.1, Confidence: 0.9, Expiry: time.Now().Add(time.Hour)})

	signal := tr.GetSignal("m1")
	if signal.Direction != "NEUTRAL" {
		t.Errorf("expected NEUTRAL with weak impact, got %s", signal.Direction)
	}
}

func TestEventSignalDropsExpiredEvents(t *testing.T) {
	t.Parallel()
	tr := NewEventTracker()
	tr.AddEvent("m1", MarketEvent{Impact: 0.9, Confidence: 0.9, Expiry: time.Now().Add(-time.Minute)})

	signal := tr.GetSignal("m1")
	if signal.Direction != "NEUTRAL" || signal.TradeSide != "yes" {
		t.Errorf("expected neutral signal once event expired, got %+v", signal)
	}
}
