package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/indicators"
	"github.com/rustyeddy/fxloop/market"
)

// Cross tracks a fast and a slow moving average of each pair's mid price. It
// buys when the fast average crosses above the slow one and sells on the
// opposite cross. Nothing is emitted until both averages have warmed up.
type Cross struct {
	name       string
	q          Publisher
	fastPeriod int
	slowPeriod int
	newAverage func(period int) indicators.Indicator
	pairs      map[string]*crossState
}

type crossState struct {
	fast     indicators.Indicator
	slow     indicators.Indicator
	lastDiff float64
	haveDiff bool
}

// NewEMACross crosses exponential moving averages.
func NewEMACross(q Publisher, fast, slow int) (*Cross, error) {
	return newCross("ema-cross", q, fast, slow, func(n int) indicators.Indicator { return indicators.NewEMA(n) })
}

// NewSMACross crosses simple moving averages.
func NewSMACross(q Publisher, fast, slow int) (*Cross, error) {
	return newCross("sma-cross", q, fast, slow, func(n int) indicators.Indicator { return indicators.NewMA(n) })
}

func newCross(name string, q Publisher, fast, slow int, avg func(int) indicators.Indicator) (*Cross, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("%s: periods must be positive (fast=%d slow=%d)", name, fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("%s: fast period %d must be below slow period %d", name, fast, slow)
	}
	return &Cross{
		name:       name,
		q:          q,
		fastPeriod: fast,
		slowPeriod: slow,
		newAverage: avg,
		pairs:      make(map[string]*crossState),
	}, nil
}

func (c *Cross) String() string {
	return fmt.Sprintf("%s(%d,%d)", c.name, c.fastPeriod, c.slowPeriod)
}

func (c *Cross) CalculateSignals(_ context.Context, t event.Tick) error {
	st, ok := c.pairs[t.Instrument]
	if !ok {
		st = &crossState{
			fast: c.newAverage(c.fastPeriod),
			slow: c.newAverage(c.slowPeriod),
		}
		c.pairs[t.Instrument] = st
	}

	// indicators run on float64; money stays decimal elsewhere
	mid := market.Quote{Bid: t.Bid, Ask: t.Ask}.Mid().InexactFloat64()
	st.fast.Update(mid)
	st.slow.Update(mid)
	if !st.fast.Ready() || !st.slow.Ready() {
		return nil
	}

	diff := st.fast.Value() - st.slow.Value()
	defer func() {
		st.lastDiff = diff
		st.haveDiff = true
	}()
	if !st.haveDiff {
		return nil
	}

	switch {
	case st.lastDiff <= 0 && diff > 0:
		c.q.Push(event.Signal{Instrument: t.Instrument, OrderType: event.Market, Side: event.Buy})
	case st.lastDiff >= 0 && diff < 0:
		c.q.Push(event.Signal{Instrument: t.Instrument, OrderType: event.Market, Side: event.Sell})
	}
	return nil
}
