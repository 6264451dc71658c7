package portfolio

import (
	"testing"
	"time"

	"github.com/rustyeddy/fxloop/journal"
	"github.com/rustyeddy/fxloop/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, what string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%s: want %s got %s", what, want, got.String())
}

func newBook(t *testing.T, pairs ...string) *market.PriceBook {
	t.Helper()
	b, err := market.NewPriceBook(pairs...)
	require.NoError(t, err)
	return b
}

func setPrice(t *testing.T, b *market.PriceBook, pair, bid, ask string) {
	t.Helper()
	_, err := b.Update(pair, dec(bid), dec(ask), t0)
	require.NoError(t, err)
}

// gbpBook is a GBP account's view: EURUSD traded, GBPUSD for conversion.
// USDGBP comes out at .79994/.80000.
func gbpBook(t *testing.T) *market.PriceBook {
	t.Helper()
	b := newBook(t, "EURUSD", "GBPUSD")
	setPrice(t, b, "GBPUSD", "1.25000", "1.25010")
	setPrice(t, b, "EURUSD", "1.10000", "1.10010")
	return b
}

type recordingJournal struct {
	trades   []journal.TradeRecord
	balances []journal.BalanceSnapshot
}

func (j *recordingJournal) RecordTrade(r journal.TradeRecord) error {
	j.trades = append(j.trades, r)
	return nil
}

func (j *recordingJournal) RecordOrder(journal.OrderRecord) error { return nil }

func (j *recordingJournal) RecordBalance(b journal.BalanceSnapshot) error {
	j.balances = append(j.balances, b)
	return nil
}

func (j *recordingJournal) Close() error { return nil }
