// Package strategies holds the signal generators the coordination loop feeds
// ticks to. A strategy pushes zero or one Signal per tick.
package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/fxloop/event"
)

// Strategy is called once per tick from the coordination loop goroutine.
type Strategy interface {
	CalculateSignals(ctx context.Context, t event.Tick) error
}

// Publisher is where signals go; event.Queue satisfies it.
type Publisher interface {
	Push(event.Event)
}

type Params struct {
	Interval int // alternate: ticks between signals
	Fast     int // ema-cross, sma-cross
	Slow     int // ema-cross, sma-cross
}

func DefaultParams() Params {
	return Params{Interval: 10, Fast: 10, Slow: 30}
}

type constructor func(p Params, q Publisher) (Strategy, error)

var registry = map[string]constructor{
	"alternate": func(p Params, q Publisher) (Strategy, error) {
		return NewAlternate(q, p.Interval), nil
	},
	"ema-cross": func(p Params, q Publisher) (Strategy, error) {
		return NewEMACross(q, p.Fast, p.Slow)
	},
	"noop": func(Params, Publisher) (Strategy, error) {
		return Noop{}, nil
	},
	"sma-cross": func(p Params, q Publisher) (Strategy, error) {
		return NewSMACross(q, p.Fast, p.Slow)
	},
}

var aliases = map[string]string{
	"test":     "alternate",
	"emacross": "ema-cross",
	"smacross": "sma-cross",
	"none":     "noop",
}

func canonical(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[key]; ok {
		return a
	}
	return key
}

// Known reports whether name (or one of its aliases) is registered.
func Known(name string) bool {
	_, ok := registry[canonical(name)]
	return ok
}

// ByName builds the named strategy.
func ByName(name string, p Params, q Publisher) (Strategy, error) {
	ctor, ok := registry[canonical(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(p, q)
}

// Names lists the registered strategies, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
