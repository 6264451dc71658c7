// Package engine runs the coordination loop: the single goroutine that pulls
// events off the queue and routes them to the strategy, the portfolio and
// the order executor.
package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/fxloop/broker"
	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/portfolio"
)

// DefaultHeartbeat bounds each blocking receive on the queue.
const DefaultHeartbeat = 500 * time.Millisecond

type Strategy interface {
	CalculateSignals(ctx context.Context, t event.Tick) error
}

type Portfolio interface {
	ExecuteSignal(sig event.Signal) (portfolio.Outcome, error)
	UpdateFromTick(instrument string) error
}

// Source is the consumer side of event.Queue.
type Source interface {
	Next(ctx context.Context, wait time.Duration) (event.Event, bool, error)
	TryPop() (event.Event, bool)
}

type Stats struct {
	Ticks          uint64
	Signals        uint64
	SkippedSignals uint64
	FailedSignals  uint64
	Orders         uint64
	FailedOrders   uint64
}

type Option func(*Loop)

func WithHeartbeat(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.heartbeat = d
		}
	}
}

func WithLogger(lg logger.Logger) Option {
	return func(l *Loop) { l.log = lg }
}

// Loop dispatches strictly one event at a time, which is what lets the
// portfolio go without locks.
type Loop struct {
	queue     Source
	strategy  Strategy
	portfolio Portfolio
	executor  broker.Executor
	heartbeat time.Duration
	log       logger.Logger

	ticks          atomic.Uint64
	signals        atomic.Uint64
	skippedSignals atomic.Uint64
	failedSignals  atomic.Uint64
	orders         atomic.Uint64
	failedOrders   atomic.Uint64
}

func New(q Source, s Strategy, p Portfolio, x broker.Executor, opts ...Option) *Loop {
	l := &Loop{
		queue:     q,
		strategy:  s,
		portfolio: p,
		executor:  x,
		heartbeat: DefaultHeartbeat,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run consumes events until the queue is closed and drained (returns nil) or
// ctx ends (returns ctx.Err()). After ctx ends no tick or signal is handled,
// but orders the portfolio already produced are still sent so the broker
// matches the positions held here.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Infof("coordination loop started (heartbeat %s)", l.heartbeat)
	defer func() {
		s := l.Stats()
		l.log.Infof("coordination loop stopped: ticks=%d signals=%d skipped=%d orders=%d failed_orders=%d",
			s.Ticks, s.Signals, s.SkippedSignals, s.Orders, s.FailedOrders)
	}()

	for {
		ev, ok, err := l.queue.Next(ctx, l.heartbeat)
		switch {
		case errors.Is(err, event.ErrClosed):
			return nil
		case err != nil:
			l.flushOrders(ctx)
			return err
		case !ok:
			l.log.Debugf("heartbeat")
			continue
		}
		l.Dispatch(ctx, ev)
	}
}

// Dispatch handles a single event synchronously. Handler errors are logged
// and counted; they never stop the loop.
func (l *Loop) Dispatch(ctx context.Context, ev event.Event) {
	switch e := ev.(type) {
	case event.Tick:
		l.ticks.Add(1)
		if err := l.strategy.CalculateSignals(ctx, e); err != nil {
			l.log.Errorf("strategy on %s: %v", e.Instrument, err)
		}

	case event.Signal:
		l.signals.Add(1)
		out, err := l.portfolio.ExecuteSignal(e)
		if err != nil {
			l.failedSignals.Add(1)
			l.log.Errorf("%s: %v", e, err)
			return
		}
		if out == portfolio.InsufficientPriceData {
			l.skippedSignals.Add(1)
			return
		}
		if err := l.portfolio.UpdateFromTick(e.Instrument); err != nil {
			l.log.Errorf("refresh %s: %v", e.Instrument, err)
		}

	case event.Order:
		l.executeOrder(ctx, e)

	default:
		l.log.Warnf("unknown event %T", ev)
	}
}

// executeOrder is not cancelled with ctx: the position change behind the
// order has already been applied. The executor's own timeout bounds it.
func (l *Loop) executeOrder(ctx context.Context, o event.Order) {
	l.orders.Add(1)
	if err := l.executor.ExecuteOrder(context.WithoutCancel(ctx), o); err != nil {
		l.failedOrders.Add(1)
		l.log.Errorf("%s failed: %v", o, err)
	}
}

func (l *Loop) flushOrders(ctx context.Context) {
	var dropped int
	for {
		ev, ok := l.queue.TryPop()
		if !ok {
			break
		}
		if o, isOrder := ev.(event.Order); isOrder {
			l.executeOrder(ctx, o)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		l.log.Warnf("stopped with %d unhandled events", dropped)
	}
}

// Stats is safe to call from other goroutines.
func (l *Loop) Stats() Stats {
	return Stats{
		Ticks:          l.ticks.Load(),
		Signals:        l.signals.Load(),
		SkippedSignals: l.skippedSignals.Load(),
		FailedSignals:  l.failedSignals.Load(),
		Orders:         l.orders.Load(),
		FailedOrders:   l.failedOrders.Load(),
	}
}
