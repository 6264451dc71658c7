package oanda

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	PracticeURL       = "https://api-fxpractice.oanda.com"
	LiveURL           = "https://api-fxtrade.oanda.com"
	PracticeStreamURL = "https://stream-fxpractice.oanda.com"
	LiveStreamURL     = "https://stream-fxtrade.oanda.com"

	DefaultRatePerSecond = 10
	DefaultTimeout       = 30 * time.Second
)

// Config is injected by the caller; nothing here reads the environment.
type Config struct {
	Env           string // practice | live
	AccountID     string
	Token         string
	BaseURL       string // overrides Env for the REST API
	StreamURL     string // overrides Env for the pricing stream
	RatePerSecond int
	Timeout       time.Duration
}

// URLs returns the REST and streaming hosts for env.
func URLs(env string) (api, stream string, err error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "practice", "demo":
		return PracticeURL, PracticeStreamURL, nil
	case "live":
		return LiveURL, LiveStreamURL, nil
	default:
		return "", "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

// withDefaults fills in hosts, rate and timeout.
func (c Config) withDefaults() (Config, error) {
	if c.Token == "" {
		return c, errors.New("oanda: missing token")
	}
	if c.AccountID == "" {
		return c, errors.New("oanda: missing account id")
	}

	api, stream, err := URLs(c.Env)
	if err != nil {
		return c, err
	}
	if c.BaseURL == "" {
		c.BaseURL = api
	}
	if c.StreamURL == "" {
		c.StreamURL = stream
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = DefaultRatePerSecond
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c, nil
}
