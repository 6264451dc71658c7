// Package broker defines the order execution collaborator the coordination
// loop hands orders to. Implementations live in the subpackages.
package broker

import (
	"context"
	"errors"

	"github.com/rustyeddy/fxloop/event"
)

// ErrRejected is wrapped by executors when the broker refused an order.
var ErrRejected = errors.New("order rejected")

// Executor submits one order. Only market orders act; other order types are
// accepted as no-ops. A returned error is logged by the caller and never
// retried.
type Executor interface {
	ExecuteOrder(ctx context.Context, o event.Order) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, o event.Order) error

func (f ExecutorFunc) ExecuteOrder(ctx context.Context, o event.Order) error {
	return f(ctx, o)
}
