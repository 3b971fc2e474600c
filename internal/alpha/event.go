package alpha

import (
	"math"
	"sync"
	"time"
)

// MarketEvent is a scheduled or observed event expected to move a market's
// price (an announcement, a data release, a known catalyst).
type MarketEvent struct {
	Impact     float64 // [-1, 1]: negative favors NO, positive favors YES
	Confidence float64 // [0, 1]
	Expiry     time.Time
}

// EventSignal is the computed trading adjustment for a market (§4.12).
type EventSignal struct {
	Direction  string // NEUTRAL, LONG, SHORT
	TradeSide  string // "yes" or "no" — which side is safe/preferred to trade
	SpreadMult float64
	SizeMult   float64
	Strength   float64
	Confidence float64 // mean confidence across active events driving this signal, [0,1]
}

// EventTracker holds per-market events and resolution timestamps, deriving
// a trading adjustment that widens spreads and shrinks size as resolution
// approaches or a strong directional event is active.
type EventTracker struct {
	mu         sync.Mutex
	events     map[string][]MarketEvent
	resolution map[string]time.Time
}

// NewEventTracker builds an empty tracker.
func NewEventTracker() *EventTracker {
	return &EventTracker{
		events:     make(map[string][]MarketEvent),
		resolution: make(map[string]time.Time),
	}
}

// AddEvent registers an event for marketID.
func (t *EventTracker) AddEvent(marketID string, e MarketEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[marketID] = append(t.events[marketID], e)
}

// SetResolution records marketID's expected resolution time.
func (t *EventTracker) SetResolution(marketID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolution[marketID] = at
}

// GetSignal computes the current trading adjustment for marketID.
func (t *EventTracker) GetSignal(marketID string) EventSignal {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	active := activeEvents(t.events[marketID], now)
	t.events[marketID] = active

	resolution, hasResolution := t.resolution[marketID]
	var hoursToResolution float64
	if hasResolution {
		hoursToResolution = resolution.Sub(now).Hours()
	}

	if len(active) == 0 {
		if !hasResolution || hoursToResolution > 24 {
			return EventSignal{Direction: "NEUTRAL", TradeSide: "yes", SpreadMult: 1.0, SizeMult: 1.0, Confidence: 0.5}
		}
		if hoursToResolution <= 1 {
			return EventSignal{Direction: "NEUTRAL", TradeSide: "no", SpreadMult: 2.5, SizeMult: 0.2, Confidence: 0.5}
		}
		// (1h, 24h]
		h := hoursToResolution
		return EventSignal{
			Direction:  "NEUTRAL",
			TradeSide:  "yes",
			SpreadMult: 1.5 + (1 - h/24),
			SizeMult:   math.Max(0.2, h/24),
			Confidence: 0.5,
		}
	}

	if hasResolution && hoursToResolution <= 1 {
		return EventSignal{Direction: "NEUTRAL", TradeSide: "no", SpreadMult: 2.5, SizeMult: 0.2, Confidence: 0.5}
	}

	impact, confidence := weightedImpact(active)
	signal := EventSignal{Direction: "NEUTRAL", TradeSide: "yes", SpreadMult: 1.0, SizeMult: 1.0, Confidence: confidence}

	if math.Abs(impact) > 0.2 && confidence > 0.7 {
		if impact > 0 {
			signal.Direction = "LONG"
		} else {
			signal.Direction = "SHORT"
		}
		signal.Strength = math.Abs(impact) * confidence
		signal.SpreadMult = 1 + (1-confidence)*0.5
		signal.SizeMult = confidence
	}
	return signal
}

func activeEvents(events []MarketEvent, now time.Time) []MarketEvent {
	var active []MarketEvent
	for _, e := range events {
		if e.Expiry.After(now) {
			active = append(active, e)
		}
	}
	return active
}

// weightedImpact returns the confidence-weighted mean impact and the mean
// confidence across active events.
func weightedImpact(events []MarketEvent) (impact, confidence float64) {
	var weightedSum, confSum float64
	for _, e := range events {
		weightedSum += e.Impact * e.Confidence
		confSum += e.Confidence
	}
	if confSum == 0 {
		return 0, 0
	}
	meanConf := confSum / float64(len(events))
	return weightedSum / confSum, meanConf
}
