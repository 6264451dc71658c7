package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/fxloop/internal/logger"
)

const (
	DefaultReconnectBase = time.Second
	DefaultReconnectMax  = time.Minute
)

// Reconnecting restarts Source whenever it fails, with exponential backoff
// between attempts. It returns nil when Source does, ctx.Err() when ctx ends
// and the last error after MaxAttempts failures in a row (0 retries forever).
// A run that lasted MaxDelay or longer resets the failure count.
type Reconnecting struct {
	Source      Source
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Log         logger.Logger
}

func (r Reconnecting) Run(ctx context.Context, ing *Ingestor) error {
	base, maxDelay := r.BaseDelay, r.MaxDelay
	if base <= 0 {
		base = DefaultReconnectBase
	}
	if maxDelay <= 0 {
		maxDelay = DefaultReconnectMax
	}
	log := r.Log
	if log == nil {
		log = logger.NewNop()
	}

	failures := 0
	for {
		started := time.Now()
		err := r.Source.Run(ctx, ing)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Since(started) >= maxDelay {
			failures = 0
		}
		failures++
		if r.MaxAttempts > 0 && failures >= r.MaxAttempts {
			return fmt.Errorf("price feed failed %d times: %w", failures, err)
		}

		delay := Backoff(failures-1, base, maxDelay)
		log.Warnf("price feed dropped: %v (retry %d in %s)", err, failures, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Backoff returns base * 2^retry, capped at maxDelay.
func Backoff(retry int, base, maxDelay time.Duration) time.Duration {
	if retry <= 0 {
		return min(base, maxDelay)
	}
	if retry > 30 {
		return maxDelay
	}
	d := base * time.Duration(1<<retry)
	if d <= 0 || d > maxDelay {
		return maxDelay
	}
	return d
}
