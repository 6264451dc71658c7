package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/fxloop/feed"
	"github.com/rustyeddy/fxloop/feed/dukascopy"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/spf13/cobra"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download historical ticks",
}

var dataDukascopyCmd = &cobra.Command{
	Use:   "dukascopy",
	Short: "Download Dukascopy ticks into a replay CSV",
	Long: `Download hourly Dukascopy tick archives for one pair and write them as
a CSV that "fxloop replay" reads.

Times are UTC hours; --end is exclusive.

Example:
  fxloop data dukascopy --pair EURUSD --start 2024-01-02T00 --end 2024-01-03T00 -o ticks.csv`,
	RunE: runDataDukascopy,
}

var (
	dataPair    string
	dataStart   string
	dataEnd     string
	dataOut     string
	dataCache   string
	dataWorkers int
	dataPause   time.Duration
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataDukascopyCmd)

	f := dataDukascopyCmd.Flags()
	f.StringVar(&dataPair, "pair", "EURUSD", "pair like EURUSD or USD_JPY")
	f.StringVar(&dataStart, "start", "", "first UTC hour, e.g. 2024-01-02T00 (required)")
	f.StringVar(&dataEnd, "end", "", "UTC hour to stop before (required)")
	f.StringVarP(&dataOut, "output", "o", "ticks.csv", "CSV file to write")
	f.StringVar(&dataCache, "cache", "./dukas", "directory for downloaded archives (empty disables)")
	f.IntVar(&dataWorkers, "workers", dukascopy.DefaultWorkers, "parallel downloads")
	f.DurationVar(&dataPause, "sleep", 50*time.Millisecond, "pause before each request")
	dataDukascopyCmd.MarkFlagRequired("start")
	dataDukascopyCmd.MarkFlagRequired("end")
}

func runDataDukascopy(cmd *cobra.Command, args []string) error {
	start, err := time.ParseInLocation("2006-01-02T15", dataStart, time.UTC)
	if err != nil {
		return fmt.Errorf("bad --start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02T15", dataEnd, time.UTC)
	if err != nil {
		return fmt.Errorf("bad --end: %w", err)
	}

	log, syncLog, err := logger.NewZapLogger(logger.Info)
	if err != nil {
		return err
	}
	defer syncLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := dukascopy.Downloader{
		CacheDir: dataCache,
		Workers:  dataWorkers,
		Pause:    dataPause,
		Log:      log.With("component", "dukascopy"),
	}
	rows, err := d.Ticks(ctx, dataPair, start, end)
	if err != nil {
		return err
	}

	fh, err := os.Create(dataOut)
	if err != nil {
		return err
	}
	if err := feed.WriteCSVTicks(fh, rows); err != nil {
		fh.Close()
		return fmt.Errorf("write %s: %w", dataOut, err)
	}
	if err := fh.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d ticks for %s to %s\n", len(rows), dataPair, dataOut)
	return nil
}
