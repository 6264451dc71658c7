package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TickRow is one parsed line of a tick CSV.
type TickRow struct {
	Time       time.Time
	Instrument string
	Bid        decimal.Decimal
	Ask        decimal.Decimal
}

// CSVTicks reads canonical tick CSV rows:
//
//	time,instrument,bid,ask[,extra...]
//
// where time is RFC3339 or RFC3339Nano. A header row ("time,...") is
// allowed, empty or short rows are skipped, and rows outside [from, to) are
// dropped when the bounds are set.
type CSVTicks struct {
	c    io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
}

func OpenCSVTicks(path string, from, to time.Time) (*CSVTicks, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	t := NewCSVTicks(fh, from, to)
	t.c = fh
	return t, nil
}

func NewCSVTicks(r io.Reader, from, to time.Time) *CSVTicks {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVTicks{r: cr, from: from, to: to}
}

func (f *CSVTicks) Close() error {
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// Next returns the next row in range; ok is false at end of input.
func (f *CSVTicks) Next() (TickRow, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return TickRow{}, false, nil
		}
		if err != nil {
			return TickRow{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		tr, ok, err := parseTickRow(row)
		if err != nil {
			return TickRow{}, false, err
		}
		if !ok || !inRange(tr.Time, f.from, f.to) {
			continue
		}
		return tr, true, nil
	}
}

func parseTickRow(row []string) (TickRow, bool, error) {
	if len(row) < 4 {
		return TickRow{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	inst := strings.TrimSpace(row[1])
	if ts == "" || inst == "" {
		return TickRow{}, false, nil
	}

	// RFC3339Nano parsing also accepts plain RFC3339
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return TickRow{}, false, fmt.Errorf("bad time %q: %w", ts, err)
	}

	bid, err := decimal.NewFromString(strings.TrimSpace(row[2]))
	if err != nil {
		return TickRow{}, false, fmt.Errorf("bad bid %q: %w", row[2], err)
	}
	ask, err := decimal.NewFromString(strings.TrimSpace(row[3]))
	if err != nil {
		return TickRow{}, false, fmt.Errorf("bad ask %q: %w", row[3], err)
	}

	return TickRow{Time: t, Instrument: inst, Bid: bid, Ask: ask}, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// CSVSource replays a tick file, optionally pausing Delay between rows. Each
// row waits for Ingestor.Settle, so a lock-step ingestor never moves the book
// while the loop is still working on the previous tick.
type CSVSource struct {
	Path  string
	From  time.Time
	To    time.Time
	Delay time.Duration
}

// Run returns nil once the file is exhausted. Malformed rows end the replay;
// rejected prices are skipped.
func (s CSVSource) Run(ctx context.Context, ing *Ingestor) error {
	ticks, err := OpenCSVTicks(s.Path, s.From, s.To)
	if err != nil {
		return err
	}
	defer ticks.Close()

	return replay(ctx, ticks, ing, s.Delay)
}

func replay(ctx context.Context, ticks *CSVTicks, ing *Ingestor, delay time.Duration) error {
	var pace *time.Ticker
	if delay > 0 {
		pace = time.NewTicker(delay)
		defer pace.Stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, ok, err := ticks.Next()
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		if !ok {
			return nil
		}
		if err := ing.Settle(ctx); err != nil {
			return err
		}
		_ = ing.Apply(row.Instrument, row.Time, row.Bid, row.Ask)

		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace.C:
			}
		}
	}
}

// WriteCSVTicks writes rows in the format CSVTicks reads, header included.
func WriteCSVTicks(w io.Writer, rows []TickRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "instrument", "bid", "ask"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Time.UTC().Format(time.RFC3339Nano), r.Instrument, r.Bid.String(), r.Ask.String()}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
