package market

import "github.com/shopspring/decimal"

const (
	// PricePlaces is the precision of quotes, inverted quotes, pips and
	// unrealized profit.
	PricePlaces int32 = 5

	// CashPlaces is the precision of realized P&L credited to the balance.
	CashPlaces int32 = 2
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// RoundHalfDown rounds d to places decimal places. Ties go toward zero, every
// other value goes to the nearest step.
func RoundHalfDown(d decimal.Decimal, places int32) decimal.Decimal {
	t := d.Truncate(places)
	rem := d.Sub(t).Abs()
	half := decimal.New(5, -(places + 1))
	if !rem.GreaterThan(half) {
		return t
	}
	step := decimal.New(1, -places)
	if d.Sign() < 0 {
		return t.Sub(step)
	}
	return t.Add(step)
}

// DivHalfDown returns a/b rounded half-down to places decimal places. The
// quotient is never rounded twice. b must be non-zero.
func DivHalfDown(a, b decimal.Decimal, places int32) decimal.Decimal {
	q, r := a.QuoRem(b, places)
	step := decimal.New(1, -places)
	if !r.Abs().Mul(two).GreaterThan(b.Abs().Mul(step)) {
		return q
	}
	if a.Sign()*b.Sign() < 0 {
		return q.Sub(step)
	}
	return q.Add(step)
}

// Invert turns the quote of a pair into the quote of its inverse. The inverse
// bid comes from the ask and the inverse ask from the bid, both rounded
// half-down to PricePlaces.
func Invert(bid, ask decimal.Decimal) (invBid, invAsk decimal.Decimal) {
	return DivHalfDown(one, ask, PricePlaces), DivHalfDown(one, bid, PricePlaces)
}
