// Package journal is the append-only audit log of realized trades, submitted
// orders and balance snapshots. Nothing reads it back to rebuild state.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one realization: a partial reduce, a full close, or the
// closing leg of a flip.
type TradeRecord struct {
	TradeID    string
	PositionID string
	Instrument string
	Side       string // long | short
	Units      int64
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL decimal.Decimal
	Reason     string // reduce | close | flip
}

// OrderRecord is one attempt to hand an order to an executor.
type OrderRecord struct {
	OrderID    string
	Time       time.Time
	Instrument string
	Units      int64
	Side       string
	OrderType  string
	Status     string // filled | rejected | failed | paper | skipped
	BrokerID   string
	Error      string
}

type BalanceSnapshot struct {
	Time          time.Time
	Balance       decimal.Decimal
	UnrealizedPL  decimal.Decimal
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordOrder(OrderRecord) error
	RecordBalance(BalanceSnapshot) error
	Close() error
}

// Discard drops every record.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error       { return nil }
func (Discard) RecordOrder(OrderRecord) error       { return nil }
func (Discard) RecordBalance(BalanceSnapshot) error { return nil }
func (Discard) Close() error                        { return nil }
