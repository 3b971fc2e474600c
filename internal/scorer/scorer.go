package scorer

import (
	"math"
	"sort"
	"time"

	"predictmm/internal/config"
	"predictmm/pkg/types"
)

// ScoreComponents breaks a market's total score down by dimension, useful
// for logging and for a human to understand why a market was ranked where
// it was.
type ScoreComponents struct {
	Volume float64
	Spread float64
	Depth  float64
	Timing float64
	Price  float64
}

// Scored is one candidate's result. Rejected markets carry Total == 0 and a
// non-empty RejectReason; they still appear in Rank's output so callers can
// see what was considered and why it was dropped.
type Scored struct {
	Market       types.MarketInfo
	Components   ScoreComponents
	Total        float64
	Rejected     bool
	RejectReason string
}

// Scorer computes the weighted five-component opportunity score for a
// candidate market (§4.13).
type Scorer struct {
	cfg config.ScannerConfig
}

// NewScorer builds a Scorer from scanner config (weights + thresholds).
func NewScorer(cfg config.ScannerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates a single market. book may be nil; when absent, depth
// scores 0 and the market is not rejected solely for that (a market with
// no cached book yet is given a chance to quote once one arrives).
func (s *Scorer) Score(m types.MarketInfo, book *types.OrderBookSnapshot) Scored {
	if reason, bad := s.reject(m, book); bad {
		return Scored{Market: m, Rejected: true, RejectReason: reason}
	}

	spreadTicks := spreadInTicks(m)
	comp := ScoreComponents{
		Volume: s.volumeScore(m.Volume24h),
		Spread: s.spreadScore(spreadTicks),
		Depth:  s.depthScore(book),
		Timing: s.timingScore(m.EndDate),
		Price:  s.priceScore(m),
	}

	total := s.cfg.WeightVolume*comp.Volume +
		s.cfg.WeightSpread*comp.Spread +
		s.cfg.WeightDepth*comp.Depth +
		s.cfg.WeightTiming*comp.Timing +
		s.cfg.WeightPrice*comp.Price

	return Scored{Market: m, Components: comp, Total: total}
}

// Rank scores every candidate and returns them sorted with non-rejected
// markets first, ties broken by descending total score.
func (s *Scorer) Rank(markets []types.MarketInfo, books map[string]*types.OrderBookSnapshot) []Scored {
	out := make([]Scored, 0, len(markets))
	for _, m := range markets {
		var book *types.OrderBookSnapshot
		if books != nil {
			book = books[m.YesTokenID]
		}
		out = append(out, s.Score(m, book))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rejected != out[j].Rejected {
			return !out[i].Rejected
		}
		return out[i].Total > out[j].Total
	})
	return out
}

// reject applies the hard rejection criteria: volume below floor, spread
// outside the acceptable band, price outside (0.05, 0.95), insufficient
// depth, resolution closer than min_hours_to_resolution, or no book.
func (s *Scorer) reject(m types.MarketInfo, book *types.OrderBookSnapshot) (string, bool) {
	if m.Volume24h < s.cfg.VolumeFloor {
		return "volume below floor", true
	}

	ticks := spreadInTicks(m)
	if ticks < s.cfg.MinSpreadTicks || ticks > s.cfg.MaxSpreadTicks {
		return "spread outside acceptable band", true
	}

	mid := (m.BestBid.Float64() + m.BestAsk.Float64()) / 2
	if mid <= 0.05 || mid >= 0.95 {
		return "price outside (0.05, 0.95)", true
	}

	if m.BestBid.IsZero() && m.BestAsk.IsZero() {
		return "no book", true
	}

	if book != nil {
		bidDepth, askDepth := book.DepthWithin(0.02)
		if math.Min(bidDepth.Float64(), askDepth.Float64()) < s.cfg.DepthFloorUSD {
			return "insufficient depth", true
		}
	}

	hoursToResolution := time.Until(m.EndDate).Hours()
	if hoursToResolution < s.cfg.MinHoursToResolution {
		return "resolution too close", true
	}

	return "", false
}

// volumeScore log-scales volume above volume_floor; 0 below it.
// The score is 20*ln(volume/floor + 1), capped at 100 (reached once volume
// is about 147x the floor) rather than left to run away.
func (s *Scorer) volumeScore(volume24h float64) float64 {
	if volume24h < s.cfg.VolumeFloor {
		return 0
	}
	ratio := volume24h / s.cfg.VolumeFloor
	score := 20 * math.Log(ratio+1)
	return clamp(score, 0, 100)
}

// spreadScore peaks at 100 between 3 and 6 ticks, decaying linearly toward
// the configured band's edges.
func (s *Scorer) spreadScore(ticks float64) float64 {
	const peakLo, peakHi = 3.0, 6.0
	lo, hi := s.cfg.MinSpreadTicks, s.cfg.MaxSpreadTicks
	if ticks < lo || ticks > hi {
		return 0
	}
	switch {
	case ticks >= peakLo && ticks <= peakHi:
		return 100
	case ticks < peakLo:
		return clamp(100*(ticks-lo)/(peakLo-lo), 0, 100)
	default:
		return clamp(100*(hi-ticks)/(hi-peakHi), 0, 100)
	}
}

// depthScore maps min-side notional linearly 50 -> 100 between the
// configured depth floor and cap.
func (s *Scorer) depthScore(book *types.OrderBookSnapshot) float64 {
	if book == nil {
		return 0
	}
	bidDepth, askDepth := book.DepthWithin(0.02)
	minSide := math.Min(bidDepth.Float64(), askDepth.Float64())

	floor, cap_ := s.cfg.DepthFloorUSD, s.cfg.DepthCapUSD
	if cap_ <= floor {
		return 50
	}
	if minSide <= floor {
		return 0
	}
	if minSide >= cap_ {
		return 100
	}
	return 50 + 50*(minSide-floor)/(cap_-floor)
}

// timingScore penalizes short horizons to resolution, plateauing at 100
// once the market has more than 7 days left.
func (s *Scorer) timingScore(endDate time.Time) float64 {
	hours := time.Until(endDate).Hours()
	const plateauHours = 7 * 24
	if hours >= plateauHours {
		return 100
	}
	if hours <= s.cfg.MinHoursToResolution {
		return 0
	}
	return clamp(100*(hours-s.cfg.MinHoursToResolution)/(plateauHours-s.cfg.MinHoursToResolution), 0, 100)
}

// priceScore prefers mids in 0.30-0.70, diminishing toward the edges.
func (s *Scorer) priceScore(m types.MarketInfo) float64 {
	mid := (m.BestBid.Float64() + m.BestAsk.Float64()) / 2
	switch {
	case mid >= 0.30 && mid <= 0.70:
		return 100
	case mid < 0.30:
		return clamp(100*mid/0.30, 0, 100)
	default:
		return clamp(100*(1-mid)/0.30, 0, 100)
	}
}

func spreadInTicks(m types.MarketInfo) float64 {
	tick := m.TickSize.Price().Float64()
	if tick <= 0 {
		return 0
	}
	return m.Spread().Float64() / tick
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
