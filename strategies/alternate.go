package strategies

import (
	"context"

	"github.com/rustyeddy/fxloop/event"
)

// Alternate buys on every interval-th tick of a pair and sells on the next,
// counting from the first tick seen. It exists to exercise the trading loop.
type Alternate struct {
	q        Publisher
	interval int
	pairs    map[string]*alternateState
}

type alternateState struct {
	ticks    int
	invested bool
}

// NewAlternate uses an interval of 10 when interval is not positive.
func NewAlternate(q Publisher, interval int) *Alternate {
	if interval <= 0 {
		interval = 10
	}
	return &Alternate{
		q:        q,
		interval: interval,
		pairs:    make(map[string]*alternateState),
	}
}

func (a *Alternate) CalculateSignals(_ context.Context, t event.Tick) error {
	st, ok := a.pairs[t.Instrument]
	if !ok {
		st = &alternateState{}
		a.pairs[t.Instrument] = st
	}

	if st.ticks%a.interval == 0 {
		side := event.Buy
		if st.invested {
			side = event.Sell
		}
		a.q.Push(event.Signal{Instrument: t.Instrument, OrderType: event.Market, Side: side})
		st.invested = !st.invested
	}
	st.ticks++
	return nil
}
