package oanda

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/fxloop/broker"
	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/internal/id"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/journal"
	"go.uber.org/ratelimit"
)

type orderCreator interface {
	CreateMarketOrder(ctx context.Context, instrument string, units int64) (OrderResult, error)
}

// Executor sends market orders to OANDA, throttled to the configured rate,
// and journals every attempt. Failures are returned, never retried.
type Executor struct {
	client  orderCreator
	limiter ratelimit.Limiter
	journal journal.Journal
	log     logger.Logger
	now     func() time.Time
}

type ExecutorOption func(*Executor)

func WithJournal(j journal.Journal) ExecutorOption {
	return func(e *Executor) { e.journal = j }
}

func WithLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) { e.log = l }
}

func NewExecutor(c *Client, opts ...ExecutorOption) *Executor {
	return newExecutor(c, c.cfg.RatePerSecond, opts...)
}

func newExecutor(c orderCreator, perSecond int, opts ...ExecutorOption) *Executor {
	if perSecond <= 0 {
		perSecond = DefaultRatePerSecond
	}
	e := &Executor{
		client:  c,
		limiter: ratelimit.New(perSecond, ratelimit.Per(time.Second)),
		journal: journal.Discard{},
		log:     logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) ExecuteOrder(ctx context.Context, o event.Order) error {
	ts := e.now().UTC()
	rec := journal.OrderRecord{
		OrderID:    id.NewAt(ts),
		Time:       ts,
		Instrument: o.Instrument,
		Units:      o.Units,
		Side:       string(o.Side),
		OrderType:  string(o.OrderType),
	}

	if o.OrderType != event.Market {
		e.log.Warnf("%s: only market orders are supported, skipping", o)
		rec.Status = "skipped"
		e.record(rec)
		return nil
	}

	e.limiter.Take()
	res, err := e.client.CreateMarketOrder(ctx, o.Instrument, o.SignedUnits())
	rec.BrokerID = res.OrderID
	switch {
	case err == nil:
		rec.Status = "filled"
		e.log.Infof("%s filled at %s (order %s)", o, res.Price, res.OrderID)
	case errors.Is(err, broker.ErrRejected):
		rec.Status = "rejected"
		rec.Error = err.Error()
	default:
		rec.Status = "failed"
		rec.Error = err.Error()
	}
	e.record(rec)
	return err
}

func (e *Executor) record(rec journal.OrderRecord) {
	if err := e.journal.RecordOrder(rec); err != nil {
		e.log.Errorf("journal order %s: %v", rec.Instrument, err)
	}
}
