// Package dukascopy downloads hourly tick archives from the Dukascopy data
// feed and turns them into feed.TickRow values for CSV replay.
//
// Each archive (.bi5) is LZMA compressed and holds 20 byte big-endian
// records: milliseconds into the hour, ask and bid as integer points, then
// ask and bid volume as float32.
package dukascopy

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/fxloop/feed"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/market"
	"github.com/shopspring/decimal"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

const (
	DefaultBaseURL = "https://datafeed.dukascopy.com/datafeed"
	DefaultWorkers = 4
	DefaultTimeout = 45 * time.Second

	recordSize = 20
)

// HourURL is the archive for one UTC hour. Months are zero based in the path.
func HourURL(base, symbol string, hour time.Time) string {
	hour = hour.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02dh_ticks.bi5",
		strings.TrimRight(base, "/"), symbol,
		hour.Year(), int(hour.Month())-1, hour.Day(), hour.Hour())
}

// PointPlaces is the number of decimal places in an archive price point:
// three for JPY quoted pairs and five otherwise.
func PointPlaces(symbol string) int32 {
	if strings.HasSuffix(symbol, "JPY") {
		return 3
	}
	return 5
}

// Decode reads one decompressed hour of records. hour is the start of the
// hour the archive covers.
func Decode(r io.Reader, instrument string, hour time.Time, places int32) ([]feed.TickRow, error) {
	var rows []feed.TickRow
	var rec [recordSize]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("dukascopy record %d: %w", len(rows), err)
		}

		ms := binary.BigEndian.Uint32(rec[0:4])
		ask := binary.BigEndian.Uint32(rec[4:8])
		bid := binary.BigEndian.Uint32(rec[8:12])
		rows = append(rows, feed.TickRow{
			Time:       hour.Add(time.Duration(ms) * time.Millisecond).UTC(),
			Instrument: instrument,
			Bid:        decimal.New(int64(bid), -places),
			Ask:        decimal.New(int64(ask), -places),
		})
	}
}

// DecodeArchive decompresses and decodes one .bi5 archive. An empty archive
// is an hour without ticks.
func DecodeArchive(data []byte, instrument string, hour time.Time, places int32) ([]feed.TickRow, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("dukascopy lzma: %w", err)
	}
	return Decode(r, instrument, hour, places)
}

type Downloader struct {
	BaseURL  string
	CacheDir string        // archives are kept here when set
	Workers  int           // parallel hours
	Pause    time.Duration // polite delay before each request
	Timeout  time.Duration
	Log      logger.Logger
}

// Ticks downloads every hour in [start, end) for pair ("EURUSD" or
// "EUR_USD") and returns the ticks in time order. Missing hours (404) are
// logged and skipped.
func (d Downloader) Ticks(ctx context.Context, pair string, start, end time.Time) ([]feed.TickRow, error) {
	symbol := market.NormalizePair(pair)
	if _, _, err := market.SplitPair(symbol); err != nil {
		return nil, err
	}
	start = start.UTC().Truncate(time.Hour)
	end = end.UTC()
	if !end.After(start) {
		return nil, fmt.Errorf("dukascopy: end %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	d = d.withDefaults()
	client := resty.New().
		SetTimeout(d.Timeout).
		SetHeader("User-Agent", "fxloop-dukascopy/1.0").
		SetLogger(d.Log)
	defer client.Close()

	var hours []time.Time
	for h := start; h.Before(end); h = h.Add(time.Hour) {
		hours = append(hours, h)
	}

	instrument := market.Instrument(symbol)
	places := PointPlaces(symbol)
	results := make([][]feed.TickRow, len(hours))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)
	for i, h := range hours {
		i, h := i, h
		g.Go(func() error {
			if d.Pause > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(d.Pause):
				}
			}
			data, err := d.archive(ctx, client, symbol, h)
			if err != nil {
				return err
			}
			rows, err := DecodeArchive(data, instrument, h, places)
			if err != nil {
				return fmt.Errorf("%s %s: %w", symbol, h.Format(time.RFC3339), err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []feed.TickRow
	for _, rows := range results {
		for _, r := range rows {
			if r.Time.Before(end) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

var errNotFound = errors.New("not found")

// archive returns the raw .bi5 bytes, from the cache when present.
func (d Downloader) archive(ctx context.Context, client *resty.Client, symbol string, hour time.Time) ([]byte, error) {
	cached := d.cachePath(symbol, hour)
	if cached != "" {
		if data, err := os.ReadFile(cached); err == nil {
			return data, nil
		}
	}

	url := HourURL(d.BaseURL, symbol, hour)
	data, err := fetch(ctx, client, url)
	if errors.Is(err, errNotFound) {
		d.Log.Warnf("dukascopy: no archive for %s %s", symbol, hour.Format(time.RFC3339))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Log.Debugf("dukascopy: %s (%d bytes)", url, len(data))

	if cached != "" {
		if err := writeAtomic(cached, data); err != nil {
			d.Log.Warnf("dukascopy cache %s: %v", cached, err)
		}
	}
	return data, nil
}

func fetch(ctx context.Context, client *resty.Client, url string) ([]byte, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("dukascopy get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode() == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("dukascopy get %s: %s", url, resp.Status())
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("dukascopy read %s: %w", url, err)
	}
	return data, nil
}

func (d Downloader) cachePath(symbol string, hour time.Time) string {
	if d.CacheDir == "" {
		return ""
	}
	return filepath.Join(d.CacheDir, symbol,
		fmt.Sprintf("%04d", hour.Year()), fmt.Sprintf("%02d", hour.Month()), fmt.Sprintf("%02d", hour.Day()),
		fmt.Sprintf("%02dh_ticks.bi5", hour.Hour()))
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (d Downloader) withDefaults() Downloader {
	if d.BaseURL == "" {
		d.BaseURL = DefaultBaseURL
	}
	if d.Workers <= 0 {
		d.Workers = DefaultWorkers
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultTimeout
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return d
}
