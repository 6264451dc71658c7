package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/fxloop/broker/paper"
	"github.com/rustyeddy/fxloop/config"
	"github.com/rustyeddy/fxloop/feed"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay historical ticks from CSV",
	Long: `Replay a tick file (time,instrument,bid,ask) through the trading loop
with a paper executor. The loop drains every event the file produced, then
the final balance and open positions are printed.

Examples:
  fxloop replay -f fxloop.yaml --ticks data/ticks.csv
  fxloop replay -f fxloop.yaml --ticks data/ticks.csv --from 2024-01-02T00:00:00Z --delay 10ms`,
	RunE: runReplay,
}

var (
	replayConfigPath string
	replayTicksPath  string
	replayFrom       string
	replayTo         string
	replayDelay      time.Duration
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfigPath, "config", "f", "", "path to config file (required)")
	replayCmd.Flags().StringVarP(&replayTicksPath, "ticks", "t", "", "CSV file of ticks (required)")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "skip ticks before this RFC3339 time")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "stop before ticks at or after this RFC3339 time")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "pause between ticks")
	replayCmd.MarkFlagRequired("config")
	replayCmd.MarkFlagRequired("ticks")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(replayConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	from, err := parseFlagTime("from", replayFrom)
	if err != nil {
		return err
	}
	to, err := parseFlagTime("to", replayTo)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	src := feed.CSVSource{Path: replayTicksPath, From: from, To: to, Delay: replayDelay}
	x := paper.New(paper.WithJournal(a.journal), paper.WithLogger(a.log.With("component", "paper")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Replaying %s with strategy %q\n", replayTicksPath, cfg.Strategy.Name)

	st, err := a.run(ctx, src, x, true)
	a.printSummary(out, st)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	fmt.Fprintf(out, "  Paper fills: %d\n", x.Filled())
	return nil
}

func parseFlagTime(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t, nil
}
