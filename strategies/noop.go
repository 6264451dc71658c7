package strategies

import (
	"context"

	"github.com/rustyeddy/fxloop/event"
)

// Noop never signals.
type Noop struct{}

func (Noop) CalculateSignals(context.Context, event.Tick) error { return nil }
