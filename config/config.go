// Package config loads the trading loop's settings from YAML, JSON or TOML.
// Money values are decimal strings so they are never parsed through float64.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rustyeddy/fxloop/internal/logger"
	"github.com/rustyeddy/fxloop/market"
	"github.com/rustyeddy/fxloop/strategies"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables that take precedence over the file.
const (
	EnvToken     = "OANDA_TOKEN"
	EnvAccountID = "OANDA_ACCOUNT_ID"
)

type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account" toml:"account"`
	Pairs    []string       `json:"pairs" yaml:"pairs" toml:"pairs"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy" toml:"strategy"`
	Engine   EngineConfig   `json:"engine" yaml:"engine" toml:"engine"`
	OANDA    OANDAConfig    `json:"oanda" yaml:"oanda" toml:"oanda"`
	Feed     FeedConfig     `json:"feed" yaml:"feed" toml:"feed"`
	Journal  JournalConfig  `json:"journal" yaml:"journal" toml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log" toml:"log"`
}

// AccountConfig holds the portfolio settings.
type AccountConfig struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	HomeCurrency string `json:"home_currency" yaml:"home_currency" toml:"home_currency"`
	Equity       string `json:"equity" yaml:"equity" toml:"equity"`
	Leverage     string `json:"leverage" yaml:"leverage" toml:"leverage"`
	RiskPerTrade string `json:"risk_per_trade" yaml:"risk_per_trade" toml:"risk_per_trade"`
}

type StrategyConfig struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Interval int    `json:"interval,omitempty" yaml:"interval,omitempty" toml:"interval,omitempty"`
	Fast     int    `json:"fast,omitempty" yaml:"fast,omitempty" toml:"fast,omitempty"`
	Slow     int    `json:"slow,omitempty" yaml:"slow,omitempty" toml:"slow,omitempty"`
}

type EngineConfig struct {
	Heartbeat string `json:"heartbeat" yaml:"heartbeat" toml:"heartbeat"` // e.g. "500ms"
}

type OANDAConfig struct {
	Env           string `json:"env" yaml:"env" toml:"env"` // practice | live
	AccountID     string `json:"account_id,omitempty" yaml:"account_id,omitempty" toml:"account_id,omitempty"`
	Token         string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	BaseURL       string `json:"base_url,omitempty" yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	StreamURL     string `json:"stream_url,omitempty" yaml:"stream_url,omitempty" toml:"stream_url,omitempty"`
	RatePerSecond int    `json:"rate_per_second,omitempty" yaml:"rate_per_second,omitempty" toml:"rate_per_second,omitempty"`
}

type FeedConfig struct {
	WebSocketURL string `json:"websocket_url,omitempty" yaml:"websocket_url,omitempty" toml:"websocket_url,omitempty"`
	ReadTimeout  string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty" toml:"read_timeout,omitempty"`
}

type JournalConfig struct {
	Type         string `json:"type" yaml:"type" toml:"type"` // csv | sqlite | none
	TradesFile   string `json:"trades_file,omitempty" yaml:"trades_file,omitempty" toml:"trades_file,omitempty"`
	OrdersFile   string `json:"orders_file,omitempty" yaml:"orders_file,omitempty" toml:"orders_file,omitempty"`
	BalancesFile string `json:"balances_file,omitempty" yaml:"balances_file,omitempty" toml:"balances_file,omitempty"`
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
}

// LoadFromFile reads a .toml file with TOML and anything else as YAML,
// falling back to JSON. Environment overrides are applied before Validate.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (toml): %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes TOML, YAML or JSON depending on the extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides OANDA credentials with non-empty environment values.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvToken); v != "" {
		c.OANDA.Token = v
	}
	if v := getenv(EnvAccountID); v != "" {
		c.OANDA.AccountID = v
	}
}

// Validate checks everything except OANDA credentials, which only the live
// commands need.
func (c *Config) Validate() error {
	if _, _, err := market.SplitPair(c.Account.HomeCurrency + c.Account.HomeCurrency); err != nil {
		return fmt.Errorf("account.home_currency must be a three letter upper case code, got %q", c.Account.HomeCurrency)
	}
	equity, leverage, risk, err := c.Account.Decimals()
	if err != nil {
		return err
	}
	if !equity.IsPositive() {
		return fmt.Errorf("account.equity must be positive")
	}
	if !leverage.IsPositive() {
		return fmt.Errorf("account.leverage must be positive")
	}
	if !risk.IsPositive() || risk.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("account.risk_per_trade must be in (0, 1]")
	}
	if equity.Mul(risk).IntPart() <= 0 {
		return fmt.Errorf("account.equity * account.risk_per_trade must be at least one unit")
	}

	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs is required")
	}
	tracked := make(map[string]bool, 2*len(c.Pairs))
	for _, p := range c.Pairs {
		code := market.NormalizePair(p)
		inv, err := market.InversePair(code)
		if err != nil {
			return fmt.Errorf("pairs: %w", err)
		}
		tracked[code], tracked[inv] = true, true
	}
	// profit converts through quote+home, so that pair or its inverse must be priced
	for _, code := range c.PairCodes() {
		_, quote, _ := market.SplitPair(code)
		if conv := quote + c.Account.HomeCurrency; !tracked[conv] {
			return fmt.Errorf("pairs: %s needs %s or its inverse to convert profit into %s", code, conv, c.Account.HomeCurrency)
		}
	}

	if !strategies.Known(c.Strategy.Name) {
		return fmt.Errorf("strategy.name %q is unknown (supported: %s)", c.Strategy.Name, strings.Join(strategies.Names(), ", "))
	}
	if c.Strategy.Interval < 0 || c.Strategy.Fast < 0 || c.Strategy.Slow < 0 {
		return fmt.Errorf("strategy periods must not be negative")
	}

	if _, err := c.HeartbeatDuration(); err != nil {
		return err
	}
	if _, err := c.FeedReadTimeout(); err != nil {
		return err
	}

	switch strings.ToLower(c.OANDA.Env) {
	case "", "practice", "demo", "live":
	default:
		return fmt.Errorf("oanda.env must be 'practice' or 'live', got %q", c.OANDA.Env)
	}
	if c.OANDA.RatePerSecond < 0 {
		return fmt.Errorf("oanda.rate_per_second must not be negative")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.OrdersFile == "" || c.Journal.BalancesFile == "" {
			return fmt.Errorf("journal trades_file, orders_file and balances_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Decimals parses equity, leverage and risk per trade.
func (a AccountConfig) Decimals() (equity, leverage, risk decimal.Decimal, err error) {
	if equity, err = decimal.NewFromString(a.Equity); err != nil {
		return equity, leverage, risk, fmt.Errorf("account.equity: %w", err)
	}
	if leverage, err = decimal.NewFromString(a.Leverage); err != nil {
		return equity, leverage, risk, fmt.Errorf("account.leverage: %w", err)
	}
	if risk, err = decimal.NewFromString(a.RiskPerTrade); err != nil {
		return equity, leverage, risk, fmt.Errorf("account.risk_per_trade: %w", err)
	}
	return equity, leverage, risk, nil
}

// PairCodes returns the configured pairs as six letter codes ("EURUSD").
func (c *Config) PairCodes() []string {
	out := make([]string, len(c.Pairs))
	for i, p := range c.Pairs {
		out[i] = market.NormalizePair(p)
	}
	return out
}

// Instruments returns the configured pairs in broker form ("EUR_USD").
func (c *Config) Instruments() []string {
	out := make([]string, len(c.Pairs))
	for i, p := range c.PairCodes() {
		out[i] = market.Instrument(p)
	}
	return out
}

// HeartbeatDuration parses engine.heartbeat; empty means zero (the loop's
// default).
func (c *Config) HeartbeatDuration() (time.Duration, error) {
	return parseDuration("engine.heartbeat", c.Engine.Heartbeat)
}

func (c *Config) FeedReadTimeout() (time.Duration, error) {
	return parseDuration("feed.read_timeout", c.Feed.ReadTimeout)
}

func (c *Config) StrategyParams() strategies.Params {
	p := strategies.DefaultParams()
	if c.Strategy.Interval > 0 {
		p.Interval = c.Strategy.Interval
	}
	if c.Strategy.Fast > 0 {
		p.Fast = c.Strategy.Fast
	}
	if c.Strategy.Slow > 0 {
		p.Slow = c.Strategy.Slow
	}
	return p
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Default returns a configuration that replays EURUSD and GBPUSD for a GBP
// account with the alternate strategy.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:           "paper",
			HomeCurrency: "GBP",
			Equity:       "100000",
			Leverage:     "20",
			RiskPerTrade: "0.02",
		},
		Pairs: []string{"EURUSD", "GBPUSD"},
		Strategy: StrategyConfig{
			Name:     "alternate",
			Interval: 10,
			Fast:     10,
			Slow:     30,
		},
		Engine: EngineConfig{Heartbeat: "500ms"},
		OANDA: OANDAConfig{
			Env:           "practice",
			RatePerSecond: 10,
		},
		Journal: JournalConfig{
			Type:         "csv",
			TradesFile:   "./trades.csv",
			OrdersFile:   "./orders.csv",
			BalancesFile: "./balances.csv",
		},
		Log: LogConfig{Level: "info"},
	}
}
