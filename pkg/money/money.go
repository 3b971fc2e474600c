// Package money provides fixed-point decimal types for everything that
// touches the order, fill, inventory, and risk accounting paths. Binary
// floating point is never used for money: it is only acceptable as a
// display or intermediate statistical type (volatility, scores), never
// here.
//
// Two canonical scales exist: Price (minor unit 0.01, valid range (0, 1)
// for a binary market) and Size (minor unit 0.01, contracts/tokens).
// Both wrap shopspring/decimal and round half-away-from-zero on division,
// matching Polymarket's own rounding convention.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const scale = 2 // minor-unit decimal places for both Price and Size

func init() {
	decimal.DivisionPrecision = 16
}

// Price is a fixed-point price in (0, 1), quantized to the tick scale.
type Price struct{ d decimal.Decimal }

// Size is a fixed-point quantity, quantized to the size scale.
type Size struct{ d decimal.Decimal }

// NewPrice builds a Price from a string (e.g. "0.55"), the exchange's
// native wire representation.
func NewPrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return Price{d: d.Round(scale)}, nil
}

// PriceFromFloat builds a Price from a float64. Use only at boundaries
// where the source is already a float (e.g. config defaults); never for
// arithmetic results that matter for accounting.
func PriceFromFloat(f float64) Price {
	return Price{d: decimal.NewFromFloat(f).Round(scale)}
}

// NewSize mirrors NewPrice for quantities.
func NewSize(s string) (Size, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Size{}, fmt.Errorf("parse size %q: %w", s, err)
	}
	return Size{d: d.Round(scale)}, nil
}

// SizeFromFloat mirrors PriceFromFloat for quantities.
func SizeFromFloat(f float64) Size {
	return Size{d: decimal.NewFromFloat(f).Round(scale)}
}

// ZeroPrice and ZeroSize are the additive identities.
func ZeroPrice() Price { return Price{} }
func ZeroSize() Size   { return Size{} }

func (p Price) Float64() float64 { f, _ := p.d.Float64(); return f }
func (s Size) Float64() float64  { f, _ := s.d.Float64(); return f }

func (p Price) String() string { return p.d.StringFixed(scale) }
func (s Size) String() string  { return s.d.StringFixed(scale) }

func (p Price) IsZero() bool { return p.d.IsZero() }
func (s Size) IsZero() bool  { return s.d.IsZero() }

func (p Price) Add(o Price) Price { return Price{d: p.d.Add(o.d).Round(scale)} }
func (p Price) Sub(o Price) Price { return Price{d: p.d.Sub(o.d).Round(scale)} }

func (s Size) Add(o Size) Size { return Size{d: s.d.Add(o.d).Round(scale)} }
func (s Size) Sub(o Size) Size { return Size{d: s.d.Sub(o.d).Round(scale)} }

func (p Price) Cmp(o Price) int { return p.d.Cmp(o.d) }
func (s Size) Cmp(o Size) int   { return s.d.Cmp(o.d) }

func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) GreaterThan(o Price) bool { return p.d.GreaterThan(o.d) }
func (s Size) LessThan(o Size) bool      { return s.d.LessThan(o.d) }
func (s Size) GreaterThan(o Size) bool   { return s.d.GreaterThan(o.d) }

// MulSize returns the notional value price*size, rounded half-away-from-zero.
func (p Price) MulSize(s Size) Size {
	return Size{d: p.d.Mul(s.d).Round(scale)}
}

// Mid returns (p+o)/2, rounded half-away-from-zero to the price scale.
func (p Price) Mid(o Price) Price {
	sum := p.d.Add(o.d)
	return Price{d: sum.Div(decimal.NewFromInt(2)).Round(scale)}
}

// RoundToTick rounds p to the nearest multiple of tick (half-away-from-zero).
func (p Price) RoundToTick(tick Price) Price {
	if tick.d.IsZero() {
		return p
	}
	units := p.d.Div(tick.d).Round(0)
	return Price{d: units.Mul(tick.d).Round(scale)}
}

// Clamp restricts p to [lo, hi].
func (p Price) Clamp(lo, hi Price) Price {
	if p.d.LessThan(lo.d) {
		return lo
	}
	if p.d.GreaterThan(hi.d) {
		return hi
	}
	return p
}

// MarshalJSON / UnmarshalJSON emit and parse the canonical decimal string
// form, per spec §4.23 ("all decimal values are emitted as their
// canonical string form").
func (p Price) MarshalJSON() ([]byte, error) { return []byte(`"` + p.String() + `"`), nil }
func (s Size) MarshalJSON() ([]byte, error)  { return []byte(`"` + s.String() + `"`), nil }

func (p *Price) UnmarshalJSON(b []byte) error {
	v, err := NewPrice(trimQuotes(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (s *Size) UnmarshalJSON(b []byte) error {
	v, err := NewSize(trimQuotes(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func trimQuotes(b []byte) string {
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		return string(b[1 : len(b)-1])
	}
	return string(b)
}
