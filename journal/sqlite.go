package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies Schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// the loop is the only writer; one connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, position_id, instrument, side, units, entry_price, exit_price, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.PositionID, t.Instrument, t.Side, t.Units, t.EntryPrice,
		t.ExitPrice, t.OpenTime.UTC(), t.CloseTime.UTC(), t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordOrder(o OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(order_id, time, instrument, units, side, order_type, status, broker_id, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderID, o.Time.UTC(), o.Instrument, o.Units, o.Side, o.OrderType, o.Status, o.BrokerID, o.Error,
	)
	return err
}

func (j *SQLite) RecordBalance(b BalanceSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO balances
		(time, balance, unrealized_pl, open_positions)
		VALUES (?, ?, ?, ?)`,
		b.Time.UTC(), b.Balance, b.UnrealizedPL, b.OpenPositions,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
