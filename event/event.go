package event

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type identifies the kind of event carried on the queue.
type Type uint8

const (
	TickEvent Type = iota + 1
	SignalEvent
	OrderEvent
)

func (t Type) String() string {
	switch t {
	case TickEvent:
		return "TICK"
	case SignalEvent:
		return "SIGNAL"
	case OrderEvent:
		return "ORDER"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Event is implemented by the value records passed through the Queue.
type Event interface {
	Type() Type
}

// Side is the direction of a signal or order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Multiplier signs order units: +1 buy, -1 sell, 0 otherwise.
func (s Side) Multiplier() int64 {
	switch s {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

type OrderType string

// Market is the only order type that executors act on.
const Market OrderType = "market"

// Tick is one price update for a pair, quantized by the price book.
type Tick struct {
	Instrument string // "EURUSD"
	Time       time.Time
	Bid        decimal.Decimal
	Ask        decimal.Decimal
}

func (Tick) Type() Type { return TickEvent }

func (t Tick) String() string {
	return fmt.Sprintf("TICK %s %s bid=%s ask=%s", t.Instrument, t.Time.Format(time.RFC3339Nano), t.Bid, t.Ask)
}

// Signal is a strategy's request to trade one pair at the portfolio's size.
type Signal struct {
	Instrument string // "EURUSD"
	OrderType  OrderType
	Side       Side
}

func (Signal) Type() Type { return SignalEvent }

func (s Signal) String() string {
	return fmt.Sprintf("SIGNAL %s %s %s", s.Instrument, s.OrderType, s.Side)
}

// Order is what the portfolio hands to the execution collaborator.
type Order struct {
	Instrument string // "EUR_USD"
	Units      int64
	OrderType  OrderType
	Side       Side
}

func (Order) Type() Type { return OrderEvent }

func (o Order) String() string {
	return fmt.Sprintf("ORDER %s %d %s %s", o.Instrument, o.Units, o.OrderType, o.Side)
}

// SignedUnits returns Units with the side folded into the sign.
func (o Order) SignedUnits() int64 {
	return o.Units * o.Side.Multiplier()
}
