package market

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPair is returned for a pair the book was not initialized with.
	ErrUnknownPair = errors.New("unknown currency pair")

	// ErrNoPrice is returned when a tracked pair has not been quoted yet.
	ErrNoPrice = errors.New("no price for currency pair")

	// ErrInvalidPrice is returned for ticks with a zero or negative side.
	ErrInvalidPrice = errors.New("invalid price")
)

// InvalidPairError reports a malformed pair code, or a pair that a position
// needs but the price book does not track.
type InvalidPairError struct {
	Pair   string
	Reason string
}

func (e *InvalidPairError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid currency pair %q", e.Pair)
	}
	return fmt.Sprintf("invalid currency pair %q: %s", e.Pair, e.Reason)
}
