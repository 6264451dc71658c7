// Package paper fills every market order locally. Replays and dry runs use
// it in place of a live broker.
package paper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/internal/id"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/journal"
)

type Executor struct {
	journal journal.Journal
	log     logger.Logger
	now     func() time.Time
	filled  atomic.Uint64
}

type Option func(*Executor)

func WithJournal(j journal.Journal) Option {
	return func(e *Executor) { e.journal = j }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithClock sets the journal timestamp source, e.g. the replayed tick time.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func New(opts ...Option) *Executor {
	e := &Executor{
		journal: journal.Discard{},
		log:     logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) ExecuteOrder(_ context.Context, o event.Order) error {
	ts := e.now().UTC()
	rec := journal.OrderRecord{
		OrderID:    id.NewAt(ts),
		Time:       ts,
		Instrument: o.Instrument,
		Units:      o.Units,
		Side:       string(o.Side),
		OrderType:  string(o.OrderType),
		Status:     "paper",
	}
	if o.OrderType != event.Market {
		rec.Status = "skipped"
		e.log.Warnf("%s: only market orders are supported, skipping", o)
	} else {
		e.filled.Add(1)
		e.log.Infof("paper %s", o)
	}

	if err := e.journal.RecordOrder(rec); err != nil {
		e.log.Errorf("journal order %s: %v", o.Instrument, err)
	}
	return nil
}

// Filled counts the market orders accepted so far.
func (e *Executor) Filled() uint64 { return e.filled.Load() }
