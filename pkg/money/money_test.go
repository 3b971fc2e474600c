package money

import "testing"

func TestPriceMid(t *testing.T) {
	bid := PriceFromFloat(0.48)
	ask := PriceFromFloat(0.52)
	mid := bid.Mid(ask)
	if mid.String() != "0.50" {
		t.Fatalf("mid = %s, want 0.50", mid.String())
	}
}

func TestPriceRoundToTick(t *testing.T) {
	tick := PriceFromFloat(0.01)
	p := PriceFromFloat(0.4567)
	got := p.RoundToTick(tick)
	if got.String() != "0.46" {
		t.Fatalf("rounded = %s, want 0.46", got.String())
	}
}

func TestPriceClamp(t *testing.T) {
	lo := PriceFromFloat(0.01)
	hi := PriceFromFloat(0.98)
	if got := PriceFromFloat(1.5).Clamp(lo, hi); got.String() != "0.98" {
		t.Fatalf("clamp high = %s, want 0.98", got.String())
	}
	if got := PriceFromFloat(-1).Clamp(lo, hi); got.String() != "0.01" {
		t.Fatalf("clamp low = %s, want 0.01", got.String())
	}
}

func TestSizeArithmetic(t *testing.T) {
	a := SizeFromFloat(10)
	b := SizeFromFloat(3)
	if got := a.Sub(b); got.String() != "7.00" {
		t.Fatalf("sub = %s, want 7.00", got.String())
	}
}

func TestMulSizeNotional(t *testing.T) {
	p := PriceFromFloat(0.55)
	s := SizeFromFloat(100)
	got := p.MulSize(s)
	if got.String() != "55.00" {
		t.Fatalf("notional = %s, want 55.00", got.String())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	p := PriceFromFloat(0.37)
	data, err := p.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var p2 Price
	if err := p2.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if p2.String() != p.String() {
		t.Fatalf("round trip mismatch: %s vs %s", p2, p)
	}
}
