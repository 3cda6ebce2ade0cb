// Package discount defines the discount computation primitives shared by
// vouchers and promotions: the closed discount type variant and the global
// cap applied to combined discounts.
package discount

import "github.com/shopspring/decimal"

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage removes a percentage of the applicable subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed removes a fixed amount, capped at the applicable subtotal.
	TypeFixed Type = "fixed"
)

var hundred = decimal.NewFromInt(100)

// Valid reports whether t is one of the supported discount types.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

// Spec is a discount type together with its value. The value is a percentage
// in [0, 100] for TypePercentage and a monetary amount for TypeFixed.
type Spec struct {
	Type  Type
	Value decimal.Decimal
}

// Amount computes the raw discount for the given applicable subtotal.
// A percentage discount yields base * value / 100; a fixed discount yields
// min(value, base), so it never exceeds its own base. The result carries
// full precision; rounding happens only when a capped component is rescaled.
func (s Spec) Amount(base decimal.Decimal) decimal.Decimal {
	switch s.Type {
	case TypeFixed:
		return decimal.Min(s.Value, base)
	default:
		return base.Mul(s.Value).Div(hundred)
	}
}

// Cap bounds the combined discount of an order to a fraction of its total.
type Cap struct {
	// MaxRatio is the maximum fraction of the order total that combined
	// discounts may remove, e.g. 0.5 for a 50% cap.
	MaxRatio decimal.Decimal
}

// NewCap builds a Cap from a ratio expressed as a float, as loaded from
// configuration.
func NewCap(maxRatio float64) Cap {
	return Cap{MaxRatio: decimal.NewFromFloat(maxRatio)}
}

// Enforce returns the discount actually applied to an order: the minimum of
// the raw combined discount, MaxRatio * total, and the total itself. The
// returned value is exact; it is the authoritative figure that determines
// the final amount.
func (c Cap) Enforce(total, raw decimal.Decimal) decimal.Decimal {
	applied := decimal.Min(raw, total.Mul(c.MaxRatio), total)
	if applied.IsNegative() {
		return decimal.Zero
	}
	return applied
}

// Rescale shrinks a single discount component by applied/raw so that capped
// components keep their relative proportions, rounding half-up to two decimal
// places. Components are rounded independently, so their sum may drift from
// the applied total by a cent or two; the applied total remains authoritative.
func Rescale(component, applied, raw decimal.Decimal) decimal.Decimal {
	if raw.IsZero() {
		return component
	}
	return component.Mul(applied).Div(raw).Round(2)
}
