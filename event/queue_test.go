package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(Tick{Instrument: "EURUSD", Bid: decimal.RequireFromString("1.1"), Ask: decimal.RequireFromString("1.2")})
	q.Push(Signal{Instrument: "EURUSD", OrderType: Market, Side: Buy})
	q.Push(Order{Instrument: "EUR_USD", Units: 10, OrderType: Market, Side: Buy})
	require.Equal(t, 3, q.Len())

	want := []Type{TickEvent, SignalEvent, OrderEvent}
	for _, w := range want {
		ev, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, w, ev.Type())
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueueNextTimesOut(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	start := time.Now()
	ev, ok, err := q.Next(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, ev)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueNextWakesOnPush(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(Signal{Instrument: "GBPUSD", OrderType: Market, Side: Sell})
	}()

	ev, ok, err := q.Next(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Signal{Instrument: "GBPUSD", OrderType: Market, Side: Sell}, ev)
}

func TestQueueNextHonorsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := q.Next(ctx, time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueueNextLeavesEventsAfterCancel(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(Signal{Instrument: "EURUSD", OrderType: Market, Side: Buy})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := q.Next(ctx, time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, q.Len())
}

func TestQueueWaitIdle(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	ctx := context.Background()
	require.NoError(t, q.WaitIdle(ctx), "a new queue is idle")

	q.Push(Tick{Instrument: "EURUSD"})
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.WaitIdle(short), context.DeadlineExceeded, "queued event")

	ev, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, TickEvent, ev.Type())

	short2, cancel2 := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel2()
	assert.ErrorIs(t, q.WaitIdle(short2), context.DeadlineExceeded, "event still being handled")

	done := make(chan error, 1)
	go func() { done <- q.WaitIdle(ctx) }()

	// the consumer asking for more marks the tick handled
	_, ok, err := q.Next(ctx, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WaitIdle did not return after the consumer went idle")
	}
}

func TestQueueCloseDrainsFirst(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	q.Push(Signal{Instrument: "EURUSD", OrderType: Market, Side: Buy})
	q.Close()

	// pushes after close are still delivered
	q.Push(Order{Instrument: "EUR_USD", Units: 1, OrderType: Market, Side: Buy})

	ctx := context.Background()
	ev, ok, err := q.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, SignalEvent, ev.Type())

	ev, ok, err = q.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OrderEvent, ev.Type())

	_, ok, err = q.Next(ctx, time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	const producers, each = 4, 250
	q := NewQueue()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.Push(Tick{Instrument: "EURUSD"})
			}
		}()
	}
	go func() {
		wg.Wait()
		q.Close()
	}()

	n := 0
	for {
		_, ok, err := q.Next(context.Background(), time.Second)
		if err != nil {
			require.ErrorIs(t, err, ErrClosed)
			break
		}
		if ok {
			n++
		}
	}
	assert.Equal(t, producers*each, n)
}

func TestSideMultiplier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1), Buy.Multiplier())
	assert.Equal(t, int64(-1), Sell.Multiplier())
	assert.Equal(t, int64(0), Side("hold").Multiplier())
	assert.False(t, Side("hold").Valid())

	o := Order{Instrument: "EUR_USD", Units: 2000, OrderType: Market, Side: Sell}
	assert.Equal(t, int64(-2000), o.SignedUnits())
	assert.Equal(t, "ORDER EUR_USD 2000 market sell", o.String())
}
