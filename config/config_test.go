package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/fxloop/journal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "GBP", cfg.Account.HomeCurrency)
	assert.Equal(t, "100000", cfg.Account.Equity)
	assert.Equal(t, []string{"EUR_USD", "GBP_USD"}, cfg.Instruments())
	assert.NoError(t, cfg.Validate())

	hb, err := cfg.HeartbeatDuration()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, hb)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{name: "valid config", modify: func(*Config) {}},
		{
			name:   "missing home currency",
			modify: func(c *Config) { c.Account.HomeCurrency = "" },
			errMsg: "account.home_currency",
		},
		{
			name:   "lower case home currency",
			modify: func(c *Config) { c.Account.HomeCurrency = "gbp" },
			errMsg: "account.home_currency",
		},
		{
			name:   "equity not a number",
			modify: func(c *Config) { c.Account.Equity = "lots" },
			errMsg: "account.equity",
		},
		{
			name:   "negative equity",
			modify: func(c *Config) { c.Account.Equity = "-1000" },
			errMsg: "account.equity must be positive",
		},
		{
			name:   "zero leverage",
			modify: func(c *Config) { c.Account.Leverage = "0" },
			errMsg: "account.leverage must be positive",
		},
		{
			name:   "risk above one",
			modify: func(c *Config) { c.Account.RiskPerTrade = "1.5" },
			errMsg: "account.risk_per_trade must be in (0, 1]",
		},
		{
			name: "risk too small for one unit",
			modify: func(c *Config) {
				c.Account.Equity = "10"
				c.Account.RiskPerTrade = "0.01"
			},
			errMsg: "at least one unit",
		},
		{
			name:   "no pairs",
			modify: func(c *Config) { c.Pairs = nil },
			errMsg: "pairs is required",
		},
		{
			name:   "bad pair",
			modify: func(c *Config) { c.Pairs = []string{"EUR_USD", "BITCOIN"} },
			errMsg: "pairs:",
		},
		{
			name:   "conversion pair not tracked",
			modify: func(c *Config) { c.Pairs = []string{"EURUSD"} },
			errMsg: "pairs: EURUSD needs USDGBP or its inverse to convert profit into GBP",
		},
		{
			name:   "conversion through inverse",
			modify: func(c *Config) { c.Pairs = []string{"EURUSD", "usd_gbp"} },
		},
		{
			name: "quote is the home currency",
			modify: func(c *Config) {
				c.Account.HomeCurrency = "USD"
				c.Pairs = []string{"EURUSD"}
			},
			errMsg: "needs USDUSD",
		},
		{
			name:   "unknown strategy",
			modify: func(c *Config) { c.Strategy.Name = "martingale" },
			errMsg: "strategy.name",
		},
		{
			name:   "strategy alias",
			modify: func(c *Config) { c.Strategy.Name = "test" },
		},
		{
			name:   "bad heartbeat",
			modify: func(c *Config) { c.Engine.Heartbeat = "soon" },
			errMsg: "engine.heartbeat",
		},
		{
			name:   "bad oanda env",
			modify: func(c *Config) { c.OANDA.Env = "staging" },
			errMsg: "oanda.env",
		},
		{
			name:   "csv journal missing file",
			modify: func(c *Config) { c.Journal.OrdersFile = "" },
			errMsg: "required for CSV type",
		},
		{
			name: "sqlite journal missing path",
			modify: func(c *Config) {
				c.Journal.Type = "sqlite"
			},
			errMsg: "db_path required",
		},
		{
			name:   "unknown journal",
			modify: func(c *Config) { c.Journal.Type = "parquet" },
			errMsg: "journal.type",
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Log.Level = "chatty" },
			errMsg: "log.level",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, ext := range []string{".json", ".yaml", ".toml"} {
		t.Run(ext, func(t *testing.T) {
			t.Setenv(EnvToken, "")
			t.Setenv(EnvAccountID, "")

			path := filepath.Join(t.TempDir(), "config"+ext)
			cfg := Default()
			cfg.Strategy.Name = "ema-cross"
			cfg.Account.RiskPerTrade = "0.015"
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	t.Setenv(EnvToken, "")
	t.Setenv(EnvAccountID, "")

	path := filepath.Join(t.TempDir(), "fxloop.yaml")
	doc := `
account:
  home_currency: GBP
  equity: "5000"
  leverage: "20"
  risk_per_trade: "0.1"
pairs: [GBP_USD, usdgbp]
strategy:
  name: alternate
  interval: 3
journal:
  type: none
oanda:
  account_id: from-file
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"GBPUSD", "USDGBP"}, cfg.PairCodes())
	assert.Equal(t, 3, cfg.StrategyParams().Interval)
	assert.Equal(t, 30, cfg.StrategyParams().Slow)
	assert.Equal(t, "from-file", cfg.OANDA.AccountID)

	pc, err := cfg.PortfolioConfig()
	require.NoError(t, err)
	assert.True(t, pc.Equity.Equal(decimal.NewFromInt(5000)))
	assert.True(t, pc.RiskPerTrade.Equal(decimal.RequireFromString("0.1")))

	j, err := cfg.OpenJournal()
	require.NoError(t, err)
	assert.IsType(t, journal.Discard{}, j)
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv(EnvToken, "secret")
	t.Setenv(EnvAccountID, "101-004-1")

	path := filepath.Join(t.TempDir(), "fxloop.json")
	cfg := Default()
	cfg.OANDA.AccountID = "from-file"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.OANDA.Token)
	assert.Equal(t, "101-004-1", loaded.OANDA.AccountID)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("account = [unclosed"), 0o600))
	_, err = LoadFromFile(bad)
	assert.ErrorContains(t, err, "parse config (toml)")

	invalid := filepath.Join(t.TempDir(), "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"pairs": ["EURUSD"]}`), 0o600))
	_, err = LoadFromFile(invalid)
	assert.ErrorContains(t, err, "invalid config")
}

func TestOpenJournalCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()
	cfg.Journal.TradesFile = filepath.Join(dir, "trades.csv")
	cfg.Journal.OrdersFile = filepath.Join(dir, "orders.csv")
	cfg.Journal.BalancesFile = filepath.Join(dir, "balances.csv")

	j, err := cfg.OpenJournal()
	require.NoError(t, err)
	require.NoError(t, j.Close())
	assert.FileExists(t, cfg.Journal.TradesFile)
}
