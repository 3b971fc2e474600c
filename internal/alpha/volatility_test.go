package alpha

import (
	"testing"
	"time"

	"predictmm/internal/config"
)

func TestVolatilityUpdateRespectsSampleInterval(t *testing.T) {
	t.Parallel()
	v := NewVolatilityTracker(config.VolatilityConfig{})
	v.sampleInterval = time.Hour // avoid real-time flakiness

	if !v.Update(0.5) {
		t.Fatal("first update should always sample")
	}
	if v.Update(0.51) {
		t.Fatal("second update within the interval should not sample")
	}
}

func TestVolatilityIgnoresNonPositivePrice(t *testing.T) {
	t.Parallel()
	v := NewVolatilityTracker(config.VolatilityConfig{})
	if v.Update(0) || v.Update(-1) {
		t.Fatal("non-positive prices should never sample")
	}
}

func TestVolatilityMultiplierNeutralWithoutEnoughSamples(t *testing.T) {
	t.Parallel()
	v := NewVolatilityTracker(config.VolatilityConfig{})
	v.sampleInterval = time.Millisecond
	v.minSamples = 10

	for i := 0; i < 3; i++ {
		v.Update(0.5)
		time.Sleep(2 * time.Millisecond)
	}

	if mult := v.Multiplier(); mult != 1.0 {
		t.Errorf("multiplier = %v, want 1.0 with insufficient samples", mult)
	}
	if level := v.Level(); level != "UNKNOWN" {
		t.Errorf("level = %q, want UNKNOWN", level)
	}
}

func TestVolatilityCalmMarketTightensSpread(t *testing.T) {
	t.Parallel()
	v := NewVolatilityTracker(config.VolatilityConfig{})
	v.sampleInterval = time.Millisecond
	v.minSamples = 5

	// Nearly constant price -> near-zero realized vol -> calm.
	for i := 0; i < 12; i++ {
		v.Update(0.50)
		time.Sleep(2 * time.Millisecond)
	}

	if mult := v.Multiplier(); mult != v.multMin {
		t.Errorf("calm market multiplier = %v, want mult_min %v", mult, v.multMin)
	}
	if level := v.Level(); level != "LOW" {
		t.Errorf("level = %q, want LOW", level)
	}
}

func TestVolatilityReset(t *testing.T) {
	t.Parallel()
	v := NewVolatilityTracker(config.VolatilityConfig{})
	v.sampleInterval = time.Millisecond
	v.Update(0.5)
	time.Sleep(2 * time.Millisecond)
	v.Update(0.51)

	v.Reset()
	if len(v.samples) != 0 || !v.lastSample.IsZero() {
		t.Fatal("reset should clear samples and last-sample time")
	}
}

func TestMultiAssetVolatilityIsolatesPerAsset(t *testing.T) {
	t.Parallel()
	m := NewMultiAssetVolatility(config.VolatilityConfig{})

	if mult := m.Multiplier("unknown"); mult != 1.0 {
		t.Errorf("multiplier for unseen asset = %v, want 1.0", mult)
	}

	m.Update("a", 0.5)
	m.Update("b", 0.5)
	if _, ok := m.trackers["a"]; !ok {
		t.Fatal("expected tracker for asset a")
	}
	if _, ok := m.trackers["b"]; !ok {
		t.Fatal("expected tracker for asset b")
	}
}
