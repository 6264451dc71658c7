package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/fxloop/event"
	"github.com/rustyeddy/fxloop/internal/id"
	"github.com/rustyeddy/fxloop/market"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidUnits      = errors.New("units must be positive")
	ErrInsufficientUnits = errors.New("not enough units in position")
	ErrPositionClosed    = errors.New("position has no units")
	ErrInvalidSide       = errors.New("invalid side")
)

// averagePlaces bounds the precision of the weighted average entry price.
const averagePlaces int32 = 16

var hundred = decimal.NewFromInt(100)

type Side int

const (
	Long  Side = 1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

func (s Side) valid() bool { return s == Long || s == Short }

// SideOf maps a signal side onto the position it would open.
func SideOf(s event.Side) (Side, error) {
	switch s {
	case event.Buy:
		return Long, nil
	case event.Sell:
		return Short, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Quoter is the read side of the price book.
type Quoter interface {
	Quote(pair string) (market.Quote, error)
}

// Position is one open exposure in one pair. Longs enter on the ask and are
// marked on the bid; shorts enter on the bid and are marked on the ask.
// Profit is converted into the home currency through the quote/home pair,
// e.g. USDGBP for a EURUSD position in a GBP account.
type Position struct {
	id        string
	home      string
	side      Side
	pair      string
	quoteHome string
	units     int64
	avgPrice  decimal.Decimal
	current   decimal.Decimal
	profit    decimal.Decimal
	profitPct decimal.Decimal
	openedAt  time.Time

	book Quoter
}

// Open enters units of pair on side at the book's current entry price and
// computes the profit fields straight away.
func Open(home string, side Side, pair string, units int64, book Quoter) (*Position, error) {
	return OpenAt(home, side, pair, units, book, time.Now())
}

// OpenAt is Open with an explicit open time, which also stamps the ID.
func OpenAt(home string, side Side, pair string, units int64, book Quoter, at time.Time) (*Position, error) {
	if !side.valid() {
		return nil, fmt.Errorf("open %s: %w: %v", pair, ErrInvalidSide, side)
	}
	if units <= 0 {
		return nil, fmt.Errorf("open %s: %w: %d", pair, ErrInvalidUnits, units)
	}
	_, quote, err := market.SplitPair(pair)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	p := &Position{
		home:      home,
		side:      side,
		pair:      pair,
		quoteHome: quote + home,
		units:     units,
		book:      book,
	}
	if _, _, err := market.SplitPair(p.quoteHome); err != nil {
		return nil, fmt.Errorf("open %s: %w", pair, err)
	}

	entry, err := p.entryPrice()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pair, err)
	}
	p.avgPrice = entry
	if err := p.Refresh(); err != nil {
		return nil, fmt.Errorf("open %s: %w", pair, err)
	}

	p.openedAt = at.UTC()
	p.id = id.NewAt(p.openedAt)
	return p, nil
}

func (p *Position) ID() string                        { return p.id }
func (p *Position) HomeCurrency() string              { return p.home }
func (p *Position) Side() Side                        { return p.side }
func (p *Position) Pair() string                      { return p.pair }
func (p *Position) QuoteHomePair() string             { return p.quoteHome }
func (p *Position) Units() int64                      { return p.units }
func (p *Position) AveragePrice() decimal.Decimal     { return p.avgPrice }
func (p *Position) CurrentPrice() decimal.Decimal     { return p.current }
func (p *Position) ProfitBase() decimal.Decimal       { return p.profit }
func (p *Position) ProfitPercentage() decimal.Decimal { return p.profitPct }
func (p *Position) OpenedAt() time.Time               { return p.openedAt }

// PipMovement is the price change since entry, positive when in profit.
func (p *Position) PipMovement() decimal.Decimal {
	return pips(p.side, p.current, p.avgPrice)
}

// AddUnits scales in at the book's current entry price and re-averages.
func (p *Position) AddUnits(n int64) error {
	if n <= 0 {
		return fmt.Errorf("add units: %w: %d", ErrInvalidUnits, n)
	}
	fill, err := p.entryPrice()
	if err != nil {
		return fmt.Errorf("add units: %w", err)
	}

	total := p.units + n
	cost := p.avgPrice.Mul(decimal.NewFromInt(p.units)).Add(fill.Mul(decimal.NewFromInt(n)))
	avg := market.DivHalfDown(cost, decimal.NewFromInt(total), averagePlaces)

	m, err := p.mark(avg, total)
	if err != nil {
		return fmt.Errorf("add units: %w", err)
	}
	p.avgPrice = avg
	p.units = total
	p.apply(m)
	return nil
}

// RemoveUnits realizes the P&L on n units and returns it in the home
// currency at CashPlaces. The quote/home conversion uses the ask for longs
// and the bid for shorts.
func (p *Position) RemoveUnits(n int64) (decimal.Decimal, error) {
	if p.units == 0 {
		return decimal.Zero, fmt.Errorf("remove units: %w", ErrPositionClosed)
	}
	if n <= 0 {
		return decimal.Zero, fmt.Errorf("remove units: %w: %d", ErrInvalidUnits, n)
	}
	if n > p.units {
		return decimal.Zero, fmt.Errorf("remove units: %w: have %d, want %d", ErrInsufficientUnits, p.units, n)
	}

	qh, err := p.quote(p.quoteHome)
	if err != nil {
		return decimal.Zero, fmt.Errorf("remove units: %w", err)
	}
	qhClose := qh.Ask
	if p.side == Short {
		qhClose = qh.Bid
	}

	remaining := p.units - n
	m, err := p.mark(p.avgPrice, remaining)
	if err != nil {
		return decimal.Zero, fmt.Errorf("remove units: %w", err)
	}

	move := pips(p.side, m.current, p.avgPrice)
	realized := market.RoundHalfDown(move.Mul(qhClose).Mul(decimal.NewFromInt(n)), market.CashPlaces)

	p.units = remaining
	p.apply(m)
	return realized, nil
}

// Close realizes everything and leaves the position with zero units.
func (p *Position) Close() (decimal.Decimal, error) {
	if p.units == 0 {
		return decimal.Zero, fmt.Errorf("close %s: %w", p.pair, ErrPositionClosed)
	}
	return p.RemoveUnits(p.units)
}

// Refresh re-reads the mark price and recomputes unrealized profit.
func (p *Position) Refresh() error {
	m, err := p.mark(p.avgPrice, p.units)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", p.pair, err)
	}
	p.apply(m)
	return nil
}

type marking struct {
	current   decimal.Decimal
	profit    decimal.Decimal
	profitPct decimal.Decimal
}

// mark computes the mark price and profit fields for the given average and
// size without touching the position, so callers can fail before mutating.
func (p *Position) mark(avg decimal.Decimal, units int64) (marking, error) {
	q, err := p.quote(p.pair)
	if err != nil {
		return marking{}, err
	}
	qh, err := p.quote(p.quoteHome)
	if err != nil {
		return marking{}, err
	}

	current, qhMark := q.Bid, qh.Bid
	if p.side == Short {
		current, qhMark = q.Ask, qh.Ask
	}

	m := marking{current: current, profit: decimal.Zero, profitPct: decimal.Zero}
	if units == 0 {
		return m, nil
	}
	u := decimal.NewFromInt(units)
	m.profit = market.RoundHalfDown(pips(p.side, current, avg).Mul(qhMark).Mul(u), market.PricePlaces)
	m.profitPct = market.DivHalfDown(m.profit.Mul(hundred), u, market.PricePlaces)
	return m, nil
}

func (p *Position) apply(m marking) {
	p.current = m.current
	p.profit = m.profit
	p.profitPct = m.profitPct
}

func (p *Position) entryPrice() (decimal.Decimal, error) {
	q, err := p.quote(p.pair)
	if err != nil {
		return decimal.Zero, err
	}
	if p.side == Short {
		return q.Bid, nil
	}
	return q.Ask, nil
}

func (p *Position) quote(pair string) (market.Quote, error) {
	q, err := p.book.Quote(pair)
	if err != nil {
		if errors.Is(err, market.ErrUnknownPair) {
			return market.Quote{}, &market.InvalidPairError{Pair: pair, Reason: "not in price book"}
		}
		return market.Quote{}, err
	}
	if !q.Priced {
		return market.Quote{}, fmt.Errorf("%w: %s", market.ErrNoPrice, pair)
	}
	return q, nil
}

func pips(side Side, current, avg decimal.Decimal) decimal.Decimal {
	return market.RoundHalfDown(current.Sub(avg).Mul(decimal.NewFromInt(int64(side))), market.PricePlaces)
}
