package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/fxloop/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query a SQLite journal",
	Long: `Query the trades, orders and balance snapshots recorded in a SQLite
journal.

Subcommands:
  trade    - Show one trade by ID
  trades   - List realized trades
  orders   - List orders
  balances - List balance snapshots

--day limits a listing to one local calendar day.

Examples:
  fxloop journal trades --db fxloop.sqlite
  fxloop journal orders --db fxloop.sqlite --day 2024-01-15`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "List realized trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalTrades,
}

var journalOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrders,
}

var journalBalancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "List balance snapshots",
	Args:  cobra.NoArgs,
	RunE:  runJournalBalances,
}

var (
	journalDBPath string
	journalDay    string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd, journalTradesCmd, journalOrdersCmd, journalBalancesCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./fxloop.sqlite", "path to SQLite journal DB")
	journalCmd.PersistentFlags().StringVar(&journalDay, "day", "", "only records from this day (YYYY-MM-DD)")
}

func openJournal() (*journal.SQLite, time.Time, time.Time, error) {
	var start, end time.Time
	if journalDay != "" {
		var err error
		start, end, err = dayBounds(time.Local, journalDay)
		if err != nil {
			return nil, start, end, fmt.Errorf("--day: %w", err)
		}
	}
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, start, end, fmt.Errorf("open db: %w", err)
	}
	return j, start, end, nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, _, _, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	writeTrades(cmd.OutOrStdout(), []journal.TradeRecord{rec})
	return nil
}

func runJournalTrades(cmd *cobra.Command, args []string) error {
	j, start, end, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTrades(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	writeTrades(cmd.OutOrStdout(), recs)
	return nil
}

func runJournalOrders(cmd *cobra.Command, args []string) error {
	j, start, end, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListOrders(start, end)
	if err != nil {
		return fmt.Errorf("query orders: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tINSTRUMENT\tSIDE\tUNITS\tTYPE\tSTATUS\tBROKER ID\tERROR")
	for _, o := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			o.Time.Local().Format(time.DateTime), o.Instrument, o.Side, o.Units,
			o.OrderType, o.Status, o.BrokerID, o.Error)
	}
	return tw.Flush()
}

func runJournalBalances(cmd *cobra.Command, args []string) error {
	j, start, end, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListBalances(start, end)
	if err != nil {
		return fmt.Errorf("query balances: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tBALANCE\tUNREALIZED\tOPEN")
	for _, b := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n",
			b.Time.Local().Format(time.DateTime), b.Balance.StringFixed(2),
			b.UnrealizedPL.StringFixed(5), b.OpenPositions)
	}
	return tw.Flush()
}

func writeTrades(w io.Writer, recs []journal.TradeRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRADE ID\tINSTRUMENT\tSIDE\tUNITS\tENTRY\tEXIT\tCLOSED\tP/L\tREASON")
	for _, t := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			t.TradeID, t.Instrument, t.Side, t.Units,
			t.EntryPrice.StringFixed(5), t.ExitPrice.StringFixed(5),
			t.CloseTime.Local().Format(time.DateTime), t.RealizedPL.StringFixed(2), t.Reason)
	}
	tw.Flush()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
