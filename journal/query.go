package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, position_id, instrument, side, units, entry_price, exit_price, open_time, close_time, realized_pl, reason`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(r rowScanner) (TradeRecord, error) {
	var rec TradeRecord
	err := r.Scan(
		&rec.TradeID,
		&rec.PositionID,
		&rec.Instrument,
		&rec.Side,
		&rec.Units,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns trades whose close_time is within [start, end). A zero
// end means no upper bound.
func (j *SQLite) ListTrades(start, end time.Time) ([]TradeRecord, error) {
	if end.IsZero() {
		end = farFuture
	}
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, trade_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListOrders returns orders recorded within [start, end).
func (j *SQLite) ListOrders(start, end time.Time) ([]OrderRecord, error) {
	if end.IsZero() {
		end = farFuture
	}
	rows, err := j.db.Query(`
		SELECT order_id, time, instrument, units, side, order_type, status, broker_id, error
		FROM orders
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, order_id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		if err := rows.Scan(
			&rec.OrderID,
			&rec.Time,
			&rec.Instrument,
			&rec.Units,
			&rec.Side,
			&rec.OrderType,
			&rec.Status,
			&rec.BrokerID,
			&rec.Error,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListBalances returns balance snapshots within [start, end).
func (j *SQLite) ListBalances(start, end time.Time) ([]BalanceSnapshot, error) {
	if end.IsZero() {
		end = farFuture
	}
	rows, err := j.db.Query(`
		SELECT time, balance, unrealized_pl, open_positions
		FROM balances
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceSnapshot
	for rows.Next() {
		var rec BalanceSnapshot
		if err := rows.Scan(&rec.Time, &rec.Balance, &rec.UnrealizedPL, &rec.OpenPositions); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
