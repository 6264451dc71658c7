// Package portfolio keeps the account's open positions and turns signals into
// position changes, realized P&L and orders.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/internal/id"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/journal"
	"github.com/rustyeddy/fxloop/market"
	"github.com/shopspring/decimal"
)

// Book is the part of market.PriceBook the portfolio reads.
type Book interface {
	Quoter
	IsReady(pairs ...string) bool
}

// Publisher receives the orders produced by ExecuteSignal.
type Publisher interface {
	Push(event.Event)
}

type Config struct {
	HomeCurrency string
	Leverage     decimal.Decimal
	Equity       decimal.Decimal
	RiskPerTrade decimal.Decimal
}

// Outcome reports what ExecuteSignal did with a signal.
type Outcome int

const (
	Executed Outcome = iota + 1
	InsufficientPriceData
)

func (o Outcome) String() string {
	switch o {
	case Executed:
		return "executed"
	case InsufficientPriceData:
		return "insufficient price data"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

type Option func(*Portfolio)

func WithJournal(j journal.Journal) Option {
	return func(p *Portfolio) { p.journal = j }
}

func WithLogger(l logger.Logger) Option {
	return func(p *Portfolio) { p.log = l }
}

// WithClock replaces time.Now for position and journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Portfolio) { p.now = now }
}

// Portfolio is owned by the coordination loop and is not safe for
// concurrent use.
type Portfolio struct {
	home       string
	leverage   decimal.Decimal
	equity     decimal.Decimal
	balance    decimal.Decimal
	risk       decimal.Decimal
	tradeUnits int64
	positions  map[string]*Position

	book    Book
	orders  Publisher
	journal journal.Journal
	log     logger.Logger
	now     func() time.Time
}

func New(cfg Config, book Book, orders Publisher, opts ...Option) (*Portfolio, error) {
	if _, _, err := market.SplitPair(cfg.HomeCurrency + cfg.HomeCurrency); err != nil {
		return nil, fmt.Errorf("home currency %q: want three upper case letters", cfg.HomeCurrency)
	}
	if !cfg.Equity.IsPositive() {
		return nil, fmt.Errorf("equity must be positive, got %s", cfg.Equity)
	}
	if !cfg.RiskPerTrade.IsPositive() {
		return nil, fmt.Errorf("risk per trade must be positive, got %s", cfg.RiskPerTrade)
	}
	units := cfg.Equity.Mul(cfg.RiskPerTrade).IntPart()
	if units <= 0 {
		return nil, fmt.Errorf("equity %s * risk %s gives no tradable units", cfg.Equity, cfg.RiskPerTrade)
	}

	p := &Portfolio{
		home:       cfg.HomeCurrency,
		leverage:   cfg.Leverage,
		equity:     cfg.Equity,
		balance:    cfg.Equity,
		risk:       cfg.RiskPerTrade,
		tradeUnits: units,
		positions:  make(map[string]*Position),
		book:       book,
		orders:     orders,
		journal:    journal.Discard{},
		log:        logger.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Portfolio) HomeCurrency() string      { return p.home }
func (p *Portfolio) Balance() decimal.Decimal  { return p.balance }
func (p *Portfolio) Equity() decimal.Decimal   { return p.equity }
func (p *Portfolio) Leverage() decimal.Decimal { return p.leverage }

// TradeUnits is the fixed size of every signal: int(equity * risk).
func (p *Portfolio) TradeUnits() int64 { return p.tradeUnits }

func (p *Portfolio) Position(pair string) (*Position, bool) {
	pos, ok := p.positions[pair]
	return pos, ok
}

// Positions returns the open positions sorted by pair.
func (p *Portfolio) Positions() []*Position {
	out := make([]*Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pair < out[j].pair })
	return out
}

// UnrealizedPL sums ProfitBase over the open positions.
func (p *Portfolio) UnrealizedPL() decimal.Decimal {
	sum := decimal.Zero
	for _, pos := range p.positions {
		sum = sum.Add(pos.profit)
	}
	return sum
}

// ExecuteSignal applies sig at the fixed trade size and publishes exactly one
// order when something was executed. Nothing changes while any tracked pair
// is still unpriced.
//
//	existing  signal  size    action
//	long      buy     any     add U
//	long      sell    U == N  close
//	long      sell    U < N   remove U
//	long      sell    U > N   close, open short U-N
//
// Shorts mirror the table.
func (p *Portfolio) ExecuteSignal(sig event.Signal) (Outcome, error) {
	if !p.book.IsReady() {
		p.log.Warnf("signal %s %s skipped: insufficient price data", sig.Instrument, sig.Side)
		return InsufficientPriceData, nil
	}

	side, err := SideOf(sig.Side)
	if err != nil {
		return 0, fmt.Errorf("execute signal: %w", err)
	}
	pair := market.NormalizePair(sig.Instrument)
	if _, _, err := market.SplitPair(pair); err != nil {
		return 0, fmt.Errorf("execute signal: %w", err)
	}

	u := p.tradeUnits
	pos, ok := p.positions[pair]
	switch {
	case !ok:
		err = p.open(pair, side, u)
	case pos.side == side:
		err = pos.AddUnits(u)
	case u == pos.units:
		err = p.closePosition(pos, "close")
	case u < pos.units:
		err = p.reduce(pos, u)
	default:
		residual := u - pos.units
		if err = p.closePosition(pos, "flip"); err == nil {
			err = p.open(pair, side, residual)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("execute signal %s %s: %w", pair, sig.Side, err)
	}

	ot := sig.OrderType
	if ot == "" {
		ot = event.Market
	}
	p.orders.Push(event.Order{
		Instrument: market.Instrument(pair),
		Units:      u,
		OrderType:  ot,
		Side:       sig.Side,
	})
	p.recordBalance()
	return Executed, nil
}

// UpdateFromTick refreshes the position in instrument, if there is one.
func (p *Portfolio) UpdateFromTick(instrument string) error {
	pos, ok := p.positions[market.NormalizePair(instrument)]
	if !ok {
		return nil
	}
	return pos.Refresh()
}

func (p *Portfolio) open(pair string, side Side, units int64) error {
	pos, err := OpenAt(p.home, side, pair, units, p.book, p.now())
	if err != nil {
		return err
	}

	p.positions[pair] = pos
	p.log.Infof("opened %s %s %d @ %s", side, pair, units, pos.avgPrice)
	return nil
}

func (p *Portfolio) reduce(pos *Position, units int64) error {
	pl, err := pos.RemoveUnits(units)
	if err != nil {
		return err
	}
	p.realize(pos, units, pos.current, pl, "reduce")
	return nil
}

func (p *Portfolio) closePosition(pos *Position, reason string) error {
	units := pos.units
	pl, err := pos.Close()
	if err != nil {
		return err
	}
	delete(p.positions, pos.pair)
	p.realize(pos, units, pos.current, pl, reason)
	return nil
}

func (p *Portfolio) realize(pos *Position, units int64, exit, pl decimal.Decimal, reason string) {
	p.balance = p.balance.Add(pl)
	p.log.Infof("%s %s %s %d @ %s realized %s balance %s", reason, pos.side, pos.pair, units, exit, pl.StringFixed(market.CashPlaces), p.balance.StringFixed(market.CashPlaces))

	now := p.now().UTC()
	err := p.journal.RecordTrade(journal.TradeRecord{
		TradeID:    id.NewAt(now),
		PositionID: pos.id,
		Instrument: market.Instrument(pos.pair),
		Side:       pos.side.String(),
		Units:      units,
		EntryPrice: pos.avgPrice,
		ExitPrice:  exit,
		OpenTime:   pos.openedAt,
		CloseTime:  now,
		RealizedPL: pl,
		Reason:     reason,
	})
	if err != nil {
		p.log.Errorf("journal trade %s: %v", pos.pair, err)
	}
}

func (p *Portfolio) recordBalance() {
	err := p.journal.RecordBalance(journal.BalanceSnapshot{
		Time:          p.now().UTC(),
		Balance:       p.balance,
		UnrealizedPL:  p.UnrealizedPL(),
		OpenPositions: len(p.positions),
	})
	if err != nil {
		p.log.Errorf("journal balance: %v", err)
	}
}
