package risk

import (
	"math"
	"sync"

	"predictmm/internal/config"
)

// CorrelationEntry reports the correlation between two tracked markets.
type CorrelationEntry struct {
	MarketA     string
	MarketB     string
	Correlation float64
	SampleCount int
}

// CorrelationTracker keeps a rolling window of per-market prices and
// computes pairwise Pearson correlation over their aligned tails (§4.17).
type CorrelationTracker struct {
	mu         sync.Mutex
	windowSize int
	minSamples int

	prices map[string][]float64
}

// NewCorrelationTracker builds a tracker with the given rolling window.
func NewCorrelationTracker(cfg config.CorrelationConfig) *CorrelationTracker {
	return &CorrelationTracker{
		windowSize: cfg.WindowSize,
		minSamples: cfg.MinSamples,
		prices:     make(map[string][]float64),
	}
}

// RecordPrice appends a price observation for market, trimming to the
// configured window.
func (c *CorrelationTracker) RecordPrice(market string, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	series := append(c.prices[market], price)
	if len(series) > c.windowSize {
		series = series[len(series)-c.windowSize:]
	}
	c.prices[market] = series
}

// GetCorrelation returns the Pearson correlation between two markets over
// their aligned tail, or 0 if either has fewer than min_samples.
func (c *CorrelationTracker) GetCorrelation(marketA, marketB string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.correlationLocked(marketA, marketB)
}

func (c *CorrelationTracker) correlationLocked(marketA, marketB string) float64 {
	a := c.prices[marketA]
	b := c.prices[marketB]
	if len(a) < c.minSamples || len(b) < c.minSamples {
		return 0
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	return pearson(a, b)
}

// GetAllCorrelations reports the correlation between every pair of
// currently tracked markets.
func (c *CorrelationTracker) GetAllCorrelations() []CorrelationEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	markets := make([]string, 0, len(c.prices))
	for m := range c.prices {
		markets = append(markets, m)
	}

	var entries []CorrelationEntry
	for i, a := range markets {
		for _, b := range markets[i+1:] {
			samples := len(c.prices[a])
			if len(c.prices[b]) < samples {
				samples = len(c.prices[b])
			}
			entries = append(entries, CorrelationEntry{
				MarketA:     a,
				MarketB:     b,
				Correlation: c.correlationLocked(a, b),
				SampleCount: samples,
			})
		}
	}
	return entries
}

func pearson(a, b []float64) float64 {
	n := float64(len(a))
	if n == 0 {
		return 0
	}

	var sumA, sumB float64
	for i := range a {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/n, sumB/n

	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}

	corr := cov / math.Sqrt(varA*varB)
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

// pairKey orders two market IDs so (a,b) and (b,a) map to the same entry.
func pairKey(a, b string) [2]string {
	if a <= b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// PortfolioRisk caps correlated exposure across markets and reports a
// correlation-weighted portfolio beta (§4.17).
type PortfolioRisk struct {
	mu  sync.Mutex
	cfg config.CorrelationConfig

	correlations map[[2]string]float64
}

// NewPortfolioRisk builds a portfolio-risk tracker tuned by cfg.
func NewPortfolioRisk(cfg config.CorrelationConfig) *PortfolioRisk {
	return &PortfolioRisk{cfg: cfg, correlations: make(map[[2]string]float64)}
}

// SetCorrelation records the correlation between two markets.
func (p *PortfolioRisk) SetCorrelation(marketA, marketB string, correlation float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.correlations[pairKey(marketA, marketB)] = correlation
}

// GetCorrelation returns the recorded correlation between two markets, or
// 0 if unset.
func (p *PortfolioRisk) GetCorrelation(marketA, marketB string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.correlations[pairKey(marketA, marketB)]
}

// CanAddPosition reports whether adding size to market would push exposure
// in markets correlated with it (correlation >= correlation_threshold)
// beyond max_correlated_exposure.
func (p *PortfolioRisk) CanAddPosition(market string, size float64, existing map[string]float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	var correlatedExposure float64
	for other, otherSize := range existing {
		if other == market {
			continue
		}
		if p.correlations[pairKey(market, other)] >= p.cfg.CorrelationThreshold {
			correlatedExposure += math.Abs(otherSize)
		}
	}
	return correlatedExposure+math.Abs(size) <= p.cfg.MaxCorrelatedExposure
}

// PortfolioBeta computes 1 + Σ_{i<j} corr_ij·w_i·w_j where w_k is market
// k's share of total absolute exposure. Returns 1.0 with zero or one
// position.
func (p *PortfolioRisk) PortfolioBeta(positions map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(positions) <= 1 {
		return 1.0
	}

	var total float64
	for _, size := range positions {
		total += math.Abs(size)
	}
	if total == 0 {
		return 1.0
	}

	markets := make([]string, 0, len(positions))
	for m := range positions {
		markets = append(markets, m)
	}

	var corrSum float64
	for i, a := range markets {
		for _, b := range markets[i+1:] {
			corr := p.correlations[pairKey(a, b)]
			wa := math.Abs(positions[a]) / total
			wb := math.Abs(positions[b]) / total
			corrSum += corr * wa * wb
		}
	}
	return 1.0 + corrSum
}
