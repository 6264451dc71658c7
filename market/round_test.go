package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s got %s %v", want, got.String(), msgAndArgs)
}

func TestRoundHalfDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		places int32
		want   string
	}{
		{"1.234565", 5, "1.23456"},
		{"1.2345651", 5, "1.23457"},
		{"1.234564", 5, "1.23456"},
		{"1.234567", 5, "1.23457"},
		{"-1.234565", 5, "-1.23456"},
		{"-1.234566", 5, "-1.23457"},
		{"7.845", 2, "7.84"},
		{"7.8451", 2, "7.85"},
		{"1.1", 5, "1.1"},
		{"0", 2, "0"},
	}

	for _, tt := range tests {
		assertDec(t, tt.want, RoundHalfDown(dec(tt.in), tt.places), tt.in)
	}
}

func TestDivHalfDown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b   string
		places int32
		want   string
	}{
		{"1", "1.10010", 5, "0.90901"},
		{"1", "1.1", 5, "0.90909"},
		{"1", "3", 5, "0.33333"},
		{"2", "3", 5, "0.66667"},
		// exact tie: 0.000125 / 1 at 4 places
		{"0.000125", "1", 4, "0.0001"},
		{"-2", "3", 5, "-0.66667"},
		{"2", "-3", 5, "-0.66667"},
		{"1", "8", 2, "0.12"},
	}

	for _, tt := range tests {
		assertDec(t, tt.want, DivHalfDown(dec(tt.a), dec(tt.b), tt.places), tt.a+"/"+tt.b)
	}
}

func TestInvertTwiceRoundTrips(t *testing.T) {
	t.Parallel()

	quotes := [][2]string{
		{"1.10000", "1.10010"},
		{"1.25000", "1.25010"},
		{"0.85123", "0.85141"},
		{"1.00001", "1.00003"},
	}

	unit := decimal.New(1, -PricePlaces)
	for _, q := range quotes {
		bid, ask := dec(q[0]), dec(q[1])
		ib, ia := Invert(bid, ask)
		assert.True(t, ib.LessThanOrEqual(ia), "inverse bid above ask for %v", q)

		bb, aa := Invert(ib, ia)
		assert.True(t, bb.Sub(bid).Abs().LessThanOrEqual(unit), "bid %s -> %s", bid, bb)
		assert.True(t, aa.Sub(ask).Abs().LessThanOrEqual(unit), "ask %s -> %s", ask, aa)
	}
}

func decFromInt(i int) decimal.Decimal {
	return decimal.NewFromInt(int64(i))
}
