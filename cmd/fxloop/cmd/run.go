package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/fxloop/broker"
	"github.com/rustyeddy/fxloop/broker/oanda"
	"github.com/rustyeddy/fxloop/broker/paper"
	"github.com/rustyeddy/fxloop/config"
	"github.com/rustyeddy/fxloop/feed"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trade a live price feed",
	Long: `Run the trading loop against a live price feed until interrupted.

Prices come from the OANDA pricing stream, or from a WebSocket relay when
--ws (or feed.websocket_url) is set. Orders go to OANDA unless --paper is
given. A dropped price feed is reconnected with backoff.

Example:
  fxloop run -f fxloop.yaml --paper`,
	RunE: runRun,
}

var (
	runConfigPath string
	runPaper      bool
	runWSURL      string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML, JSON or TOML) (required)")
	runCmd.Flags().BoolVar(&runPaper, "paper", false, "fill orders on paper instead of sending them to OANDA")
	runCmd.Flags().StringVar(&runWSURL, "ws", "", "read prices from this WebSocket relay instead of OANDA")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var client *oanda.Client
	oandaClient := func() (*oanda.Client, error) {
		if client != nil {
			return client, nil
		}
		c, err := newOANDAClient(cfg, a)
		if err != nil {
			return nil, err
		}
		client = c
		return client, nil
	}
	defer func() {
		if client != nil {
			client.Close()
		}
	}()

	var src feed.Source
	wsURL := runWSURL
	if wsURL == "" {
		wsURL = cfg.Feed.WebSocketURL
	}
	if wsURL != "" {
		timeout, err := cfg.FeedReadTimeout()
		if err != nil {
			return err
		}
		src = feed.WebSocketSource{URL: wsURL, ReadTimeout: timeout}
	} else {
		c, err := oandaClient()
		if err != nil {
			return err
		}
		src = oanda.PriceSource{Client: c, Instruments: cfg.Instruments()}
	}
	src = feed.Reconnecting{Source: src, Log: a.log.With("component", "feed")}

	var x broker.Executor
	if runPaper {
		x = paper.New(paper.WithJournal(a.journal), paper.WithLogger(a.log.With("component", "paper")))
	} else {
		c, err := oandaClient()
		if err != nil {
			return err
		}
		x = oanda.NewExecutor(c,
			oanda.WithJournal(a.journal),
			oanda.WithLogger(a.log.With("component", "oanda")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Trading %v with strategy %q (home %s, equity %s)\n",
		cfg.Instruments(), cfg.Strategy.Name, cfg.Account.HomeCurrency, cfg.Account.Equity)

	st, err := a.run(ctx, src, x, false)
	a.printSummary(out, st)
	return err
}

func newOANDAClient(cfg *config.Config, a *app) (*oanda.Client, error) {
	c, err := oanda.NewClient(oanda.Config{
		Env:           cfg.OANDA.Env,
		AccountID:     cfg.OANDA.AccountID,
		Token:         cfg.OANDA.Token,
		BaseURL:       cfg.OANDA.BaseURL,
		StreamURL:     cfg.OANDA.StreamURL,
		RatePerSecond: cfg.OANDA.RatePerSecond,
	}, a.log.With("component", "oanda"))
	if err != nil {
		return nil, fmt.Errorf("oanda client (set %s and %s): %w", config.EnvToken, config.EnvAccountID, err)
	}
	return c, nil
}
