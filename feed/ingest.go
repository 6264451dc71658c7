// Package feed turns external price updates into price book writes and Tick
// events. Every source funnels through one Ingestor, the book's only writer.
package feed

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/market"
	"github.com/shopspring/decimal"
)

// Book is the write side of market.PriceBook.
type Book interface {
	Update(pair string, bid, ask decimal.Decimal, t time.Time) (market.Quote, error)
}

type Publisher interface {
	Push(event.Event)
}

// Source delivers price updates to an Ingestor until it runs dry, fails, or
// ctx ends.
type Source interface {
	Run(ctx context.Context, ing *Ingestor) error
}

// Idler reports when the consumer has handled everything published so far.
// event.Queue implements it.
type Idler interface {
	WaitIdle(ctx context.Context) error
}

type Ingestor struct {
	book     Book
	q        Publisher
	log      logger.Logger
	lockstep Idler

	applied  atomic.Uint64
	rejected atomic.Uint64
}

type IngestorOption func(*Ingestor)

func WithLogger(l logger.Logger) IngestorOption {
	return func(i *Ingestor) { i.log = l }
}

// WithLockstep makes Settle wait for w to go idle. Replays use it so every
// signal executes against the tick that produced it.
func WithLockstep(w Idler) IngestorOption {
	return func(i *Ingestor) { i.lockstep = w }
}

func NewIngestor(book Book, q Publisher, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{book: book, q: q, log: logger.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Apply writes one update to the book and pushes the quantized Tick. A
// rejected update (unknown pair, bad price) is logged, counted and returned;
// nothing is pushed for it.
func (i *Ingestor) Apply(instrument string, t time.Time, bid, ask decimal.Decimal) error {
	pair := market.NormalizePair(instrument)
	q, err := i.book.Update(pair, bid, ask, t)
	if err != nil {
		return i.reject(fmt.Errorf("tick %s: %w", instrument, err))
	}

	i.applied.Add(1)
	i.q.Push(event.Tick{Instrument: pair, Time: q.Time, Bid: q.Bid, Ask: q.Ask})
	return nil
}

// Settle waits until the consumer has finished with every tick applied so
// far. Without WithLockstep it returns at once.
func (i *Ingestor) Settle(ctx context.Context) error {
	if i.lockstep == nil {
		return ctx.Err()
	}
	return i.lockstep.WaitIdle(ctx)
}

// ApplyStrings parses decimal price strings before calling Apply.
func (i *Ingestor) ApplyStrings(instrument string, t time.Time, bid, ask string) error {
	b, err := decimal.NewFromString(bid)
	if err != nil {
		return i.reject(fmt.Errorf("tick %s: bad bid %q: %w", instrument, bid, err))
	}
	a, err := decimal.NewFromString(ask)
	if err != nil {
		return i.reject(fmt.Errorf("tick %s: bad ask %q: %w", instrument, ask, err))
	}
	return i.Apply(instrument, t, b, a)
}

// Counts returns how many updates were applied and rejected so far.
func (i *Ingestor) Counts() (applied, rejected uint64) {
	return i.applied.Load(), i.rejected.Load()
}

func (i *Ingestor) reject(err error) error {
	i.rejected.Add(1)
	i.log.Warnf("rejected %v", err)
	return err
}
