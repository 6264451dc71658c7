package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	tradeHeader   = []string{"trade_id", "position_id", "instrument", "side", "units", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "reason"}
	orderHeader   = []string{"order_id", "time", "instrument", "units", "side", "order_type", "status", "broker_id", "error"}
	balanceHeader = []string{"time", "balance", "unrealized_pl", "open_positions"}
)

// CSV writes each record kind to its own file, flushing after every row.
type CSV struct {
	mu       sync.Mutex
	trades   *csv.Writer
	orders   *csv.Writer
	balances *csv.Writer
	files    []*os.File
}

func NewCSV(tradesPath, ordersPath, balancesPath string) (*CSV, error) {
	j := &CSV{}

	open := func(path string, header []string) (*csv.Writer, error) {
		fh, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, fh)

		w := csv.NewWriter(fh)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.trades, err = open(tradesPath, tradeHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.orders, err = open(ordersPath, orderHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if j.balances, err = open(balancesPath, balanceHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.TradeID,
		t.PositionID,
		t.Instrument,
		t.Side,
		strconv.FormatInt(t.Units, 10),
		t.EntryPrice.String(),
		t.ExitPrice.String(),
		t.OpenTime.Format(time.RFC3339Nano),
		t.CloseTime.Format(time.RFC3339Nano),
		t.RealizedPL.StringFixed(2),
		t.Reason,
	})
}

func (j *CSV) RecordOrder(o OrderRecord) error {
	return j.write(j.orders, []string{
		o.OrderID,
		o.Time.Format(time.RFC3339Nano),
		o.Instrument,
		strconv.FormatInt(o.Units, 10),
		o.Side,
		o.OrderType,
		o.Status,
		o.BrokerID,
		o.Error,
	})
}

func (j *CSV) RecordBalance(b BalanceSnapshot) error {
	return j.write(j.balances, []string{
		b.Time.Format(time.RFC3339Nano),
		b.Balance.StringFixed(2),
		b.UnrealizedPL.String(),
		strconv.Itoa(b.OpenPositions),
	})
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	var errs []error
	for _, w := range []*csv.Writer{j.trades, j.orders, j.balances} {
		w.Flush()
		errs = append(errs, w.Error())
	}
	errs = append(errs, j.closeFiles())
	return errors.Join(errs...)
}

func (j *CSV) closeFiles() error {
	var errs []error
	for _, fh := range j.files {
		errs = append(errs, fh.Close())
	}
	j.files = nil
	return errors.Join(errs...)
}
