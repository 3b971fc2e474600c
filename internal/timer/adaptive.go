// Package timer implements the adaptive loop-interval scheduler: the
// quoter runs fast during volatile or high-volume conditions, at a normal
// cadence otherwise, and backs off to a slow poll during extended quiet
// periods (§4.22).
package timer

import (
	"math"
	"sync"
	"time"

	"predictmm/internal/config"
)

// Mode is the current scheduling mode.
type Mode string

const (
	FAST   Mode = "FAST"
	NORMAL Mode = "NORMAL"
	SLEEP  Mode = "SLEEP"
)

// AdaptiveTimer picks the quoter's next tick interval from recent price
// moves, volume, and feed activity. One instance per asset.
type AdaptiveTimer struct {
	mu sync.Mutex

	fastInterval     time.Duration
	normalInterval   time.Duration
	sleepInterval    time.Duration
	fastModeDuration time.Duration
	priceChangePct   float64
	volumeRatio      float64
	idleSeconds      float64

	mode            Mode
	lastFastTrigger time.Time
	lastActivity    time.Time
	lastPrice       float64
	hasLastPrice    bool
}

// New builds a timer from the configured thresholds, defaulting any
// unset duration/threshold to the spec's baseline (2s/100ms/5s,
// 1%/2x/60s).
func New(cfg config.TimerConfig) *AdaptiveTimer {
	t := &AdaptiveTimer{
		fastInterval:     cfg.FastInterval,
		normalInterval:   cfg.NormalInterval,
		sleepInterval:    cfg.SleepInterval,
		fastModeDuration: cfg.FastModeDuration,
		priceChangePct:   cfg.PriceChangePct,
		volumeRatio:      cfg.VolumeRatio,
		idleSeconds:      cfg.IdleSeconds,
		mode:             NORMAL,
		lastActivity:     time.Now(),
	}
	if t.fastInterval <= 0 {
		t.fastInterval = 100 * time.Millisecond
	}
	if t.normalInterval <= 0 {
		t.normalInterval = 2 * time.Second
	}
	if t.sleepInterval <= 0 {
		t.sleepInterval = 5 * time.Second
	}
	if t.fastModeDuration <= 0 {
		t.fastModeDuration = 10 * time.Second
	}
	if t.priceChangePct <= 0 {
		t.priceChangePct = 0.01
	}
	if t.volumeRatio <= 0 {
		t.volumeRatio = 2.0
	}
	if t.idleSeconds <= 0 {
		t.idleSeconds = 60
	}
	return t
}

// Mode returns the current scheduling mode.
func (t *AdaptiveTimer) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Interval returns the duration to sleep before the next tick.
func (t *AdaptiveTimer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.mode {
	case FAST:
		return t.fastInterval
	case SLEEP:
		return t.sleepInterval
	default:
		return t.normalInterval
	}
}

// RecordPriceChange switches to FAST when the move exceeds the
// volatility threshold, and drops FAST back to NORMAL once
// fast_mode_duration has elapsed without a further trigger.
func (t *AdaptiveTimer) RecordPriceChange(pctChange float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.lastActivity = now

	if math.Abs(pctChange) >= t.priceChangePct {
		t.mode = FAST
		t.lastFastTrigger = now
	} else if t.mode == FAST && now.Sub(t.lastFastTrigger) > t.fastModeDuration {
		t.mode = NORMAL
	}
}

// UpdateFromPrice is a convenience wrapper over RecordPriceChange that
// tracks the last observed price itself.
func (t *AdaptiveTimer) UpdateFromPrice(price float64) {
	t.mu.Lock()
	last := t.lastPrice
	has := t.hasLastPrice
	t.lastPrice = price
	t.hasLastPrice = true
	t.mu.Unlock()

	if !has || last == 0 {
		return
	}
	t.RecordPriceChange(math.Abs(price-last) / last)
}

// RecordVolume switches to FAST when current volume exceeds avg by the
// configured spike ratio.
func (t *AdaptiveTimer) RecordVolume(current, avg float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastActivity = time.Now()
	if avg > 0 && current/avg >= t.volumeRatio {
		t.mode = FAST
		t.lastFastTrigger = time.Now()
	}
}

// RecordActivity drops to SLEEP once secondsSinceLast exceeds the
// inactivity threshold (unless already FAST), and wakes SLEEP back to
// NORMAL on any fresh activity.
func (t *AdaptiveTimer) RecordActivity(secondsSinceLast float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if secondsSinceLast >= t.idleSeconds {
		if t.mode != FAST {
			t.mode = SLEEP
		}
		return
	}
	if t.mode == SLEEP {
		t.mode = NORMAL
	}
	t.lastActivity = time.Now()
}

// OnFeedUpdate wakes the timer from SLEEP whenever the feed delivers
// fresh data.
func (t *AdaptiveTimer) OnFeedUpdate(hasData bool) {
	if !hasData {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity = time.Now()
	if t.mode == SLEEP {
		t.mode = NORMAL
	}
}

// IdleFor reports how long it has been since the last recorded activity.
func (t *AdaptiveTimer) IdleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Since(t.lastActivity)
}
