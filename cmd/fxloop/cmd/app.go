package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rustyeddy/fxloop/broker"
	"github.com/rustyeddy/fxloop/config"
	"github.com/rustyeddy/fxloop/engine"
	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/feed"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/journal"
	"github.com/rustyeddy/fxloop/market"
	"github.com/rustyeddy/fxloop/portfolio"
	"github.com/rustyeddy/fxloop/strategies"
	"golang.org/x/sync/errgroup"
)

// app is everything a run or replay shares: one book, one queue and the
// portfolio and strategy that the loop owns.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	syncLog   func()
	book      *market.PriceBook
	queue     *event.Queue
	journal   journal.Journal
	portfolio *portfolio.Portfolio
	strategy  strategies.Strategy
}

func newApp(cfg *config.Config) (*app, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zl, syncLog, err := logger.NewZapLogger(level)
	if err != nil {
		return nil, err
	}
	log := zl.With("account", cfg.Account.ID)

	book, err := market.NewPriceBook(cfg.PairCodes()...)
	if err != nil {
		return nil, fmt.Errorf("price book: %w", err)
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	pc, err := cfg.PortfolioConfig()
	if err != nil {
		j.Close()
		return nil, err
	}

	q := event.NewQueue()
	p, err := portfolio.New(pc, book, q,
		portfolio.WithJournal(j),
		portfolio.WithLogger(log.With("component", "portfolio")))
	if err != nil {
		j.Close()
		return nil, fmt.Errorf("portfolio: %w", err)
	}

	s, err := strategies.ByName(cfg.Strategy.Name, cfg.StrategyParams(), q)
	if err != nil {
		j.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		syncLog:   syncLog,
		book:      book,
		queue:     q,
		journal:   j,
		portfolio: p,
		strategy:  s,
	}, nil
}

func (a *app) Close() error {
	err := a.journal.Close()
	a.syncLog()
	return err
}

// run starts the ingestion task and the coordination loop. When the source
// returns, successfully or not, the queue is closed and the loop drains what
// is left. Only ctx stops the loop early; a feed failure never cancels it.
// A lock-step run holds every tick until the loop has finished with the one
// before, which replays need for fills at the prices that triggered them.
func (a *app) run(ctx context.Context, src feed.Source, x broker.Executor, lockstep bool) (engine.Stats, error) {
	hb, err := a.cfg.HeartbeatDuration()
	if err != nil {
		return engine.Stats{}, err
	}

	opts := []feed.IngestorOption{feed.WithLogger(a.log.With("component", "feed"))}
	if lockstep {
		opts = append(opts, feed.WithLockstep(a.queue))
	}
	ing := feed.NewIngestor(a.book, a.queue, opts...)
	loop := engine.New(a.queue, a.strategy, a.portfolio, x,
		engine.WithHeartbeat(hb),
		engine.WithLogger(a.log.With("component", "loop")))

	var g errgroup.Group
	g.Go(func() error {
		defer a.queue.Close()
		err := src.Run(ctx, ing)
		applied, rejected := ing.Counts()
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Errorf("feed stopped: %v (applied=%d rejected=%d)", err, applied, rejected)
			return fmt.Errorf("feed: %w", err)
		}
		a.log.Infof("feed finished: applied=%d rejected=%d", applied, rejected)
		return nil
	})
	g.Go(func() error {
		return loop.Run(ctx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return loop.Stats(), err
}

func (a *app) printSummary(w io.Writer, st engine.Stats) {
	p := a.portfolio
	fmt.Fprintf(w, "\nLoop stopped: %d ticks, %d signals (%d skipped, %d failed), %d orders (%d failed)\n",
		st.Ticks, st.Signals, st.SkippedSignals, st.FailedSignals, st.Orders, st.FailedOrders)
	fmt.Fprintf(w, "  Balance: %s %s\n", p.Balance().StringFixed(2), p.HomeCurrency())
	fmt.Fprintf(w, "  Unrealized P/L: %s %s\n", p.UnrealizedPL().StringFixed(5), p.HomeCurrency())

	positions := p.Positions()
	if len(positions) == 0 {
		fmt.Fprintln(w, "  No open positions")
		return
	}
	fmt.Fprintln(w, "  Open positions:")
	for _, pos := range positions {
		fmt.Fprintf(w, "    %s %-5s %8d @ %s  now %s  P/L %s\n",
			pos.Pair(), pos.Side(), pos.Units(),
			pos.AveragePrice().StringFixed(5), pos.CurrentPrice().StringFixed(5),
			pos.ProfitBase().StringFixed(5))
	}
}
