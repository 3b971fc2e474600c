package risk

import (
	"sync"
	"time"

	"predictmm/internal/config"
	"predictmm/pkg/money"
	"predictmm/pkg/types"
)

// AdverseResponse recommends how to react to measured toxicity.
type AdverseResponse struct {
	WidenMult   float64
	SizeMult    float64
	SkipBuySide bool
	SkipSell    bool
}

// AdverseSelectionDetector records fills and, once a post-fill price is
// observed, scores whether the fill was adverse (the market moved against
// the filler). Toxicity is the adverse fraction of scored fills (§4.14).
type AdverseSelectionDetector struct {
	mu  sync.Mutex
	cfg config.AdverseSelectionConfig

	nextID  int64
	fills   map[int64]*types.FillRecord
	ordered []int64
}

// NewAdverseSelectionDetector builds an empty detector tuned by cfg.
func NewAdverseSelectionDetector(cfg config.AdverseSelectionConfig) *AdverseSelectionDetector {
	return &AdverseSelectionDetector{cfg: cfg, fills: make(map[int64]*types.FillRecord)}
}

// RecordFill assigns a sequential fill_id and stores the fill for later
// outcome scoring.
func (d *AdverseSelectionDetector) RecordFill(side types.Side, price money.Price, size money.Size) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	d.fills[id] = &types.FillRecord{
		FillID:    id,
		Timestamp: time.Now(),
		Price:     price,
		Side:      side,
		Size:      size,
	}
	d.ordered = append(d.ordered, id)
	d.pruneLocked()
	return id
}

// RecordOutcome attaches the observed price some time after the fill
// (typically ~10s later, read from the mid); whether it was adverse is
// derived from it on read.
func (d *AdverseSelectionDetector) RecordOutcome(fillID int64, priceAfter money.Price) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.fills[fillID]
	if !ok {
		return
	}
	f.PriceAfter = &priceAfter
	f.SecondsToPriceAfter = time.Since(f.Timestamp).Seconds()
}

// OutcomeDelay reports how long after a fill to sample the post-fill price
// for RecordOutcome, typically ~10s.
func (d *AdverseSelectionDetector) OutcomeDelay() time.Duration {
	return d.cfg.PriceAfterDelay
}

// isAdverse reports whether a fill with a recorded outcome moved against
// the filler by more than adverse_threshold: price dropped after a BUY,
// or rose after a SELL.
func (d *AdverseSelectionDetector) isAdverse(f *types.FillRecord) bool {
	if f.PriceAfter == nil {
		return false
	}
	move := f.PriceAfter.Float64() - f.Price.Float64()
	switch f.Side {
	case types.BUY:
		return move < -d.cfg.AdverseThreshold
	case types.SELL:
		return move > d.cfg.AdverseThreshold
	default:
		return false
	}
}

// pruneLocked drops fills older than lookback_window. Caller holds d.mu.
func (d *AdverseSelectionDetector) pruneLocked() {
	cutoff := time.Now().Add(-d.cfg.LookbackWindow)
	i := 0
	for i < len(d.ordered) {
		id := d.ordered[i]
		f, ok := d.fills[id]
		if !ok || f.Timestamp.Before(cutoff) {
			delete(d.fills, id)
			i++
			continue
		}
		break
	}
	d.ordered = d.ordered[i:]
}

// Toxicity returns adverse fills / total fills with outcomes, optionally
// restricted to one side. side == nil means both sides combined.
func (d *AdverseSelectionDetector) Toxicity(side *types.Side) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var adverse, total int
	for _, id := range d.ordered {
		f := d.fills[id]
		if f.PriceAfter == nil {
			continue
		}
		if side != nil && f.Side != *side {
			continue
		}
		total++
		if d.isAdverse(f) {
			adverse++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(adverse) / float64(total)
}

// Response maps current buy-side/sell-side toxicity to a quoting
// adjustment: widen spread and shrink size once toxicity crosses
// toxic_threshold; recommend skipping a side entirely once it's highly
// toxic while the other side remains clean.
func (d *AdverseSelectionDetector) Response() AdverseResponse {
	buy, sell := types.BUY, types.SELL
	buyTox := d.Toxicity(&buy)
	sellTox := d.Toxicity(&sell)
	tox := d.Toxicity(nil)

	resp := AdverseResponse{WidenMult: 1.0, SizeMult: 1.0}
	if tox >= d.cfg.ToxicThreshold {
		resp.WidenMult = min(2.0, 1+(tox-d.cfg.ToxicThreshold))
		resp.SizeMult = max(0.3, 1-(tox-d.cfg.ToxicThreshold)*0.5)
	}

	if buyTox > d.cfg.HighlyToxic && sellTox < d.cfg.ToxicThreshold {
		resp.SkipBuySide = true
	}
	if sellTox > d.cfg.HighlyToxic && buyTox < d.cfg.ToxicThreshold {
		resp.SkipSell = true
	}
	return resp
}
