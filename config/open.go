package config

import (
	"fmt"

	"github.com/rustyeddy/fxloop/journal"
	"github.com/rustyeddy/fxloop/portfolio"
)

// OpenJournal opens the configured journal. Type "none" (or empty) gives a
// journal that discards everything.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "", "none":
		return journal.Discard{}, nil
	case "csv":
		return journal.NewCSV(c.Journal.TradesFile, c.Journal.OrdersFile, c.Journal.BalancesFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	default:
		return nil, fmt.Errorf("unknown journal type %q", c.Journal.Type)
	}
}

// PortfolioConfig converts the account section.
func (c *Config) PortfolioConfig() (portfolio.Config, error) {
	equity, leverage, risk, err := c.Account.Decimals()
	if err != nil {
		return portfolio.Config{}, err
	}
	return portfolio.Config{
		HomeCurrency: c.Account.HomeCurrency,
		Leverage:     leverage,
		Equity:       equity,
		RiskPerTrade: risk,
	}, nil
}
