package event

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Next once the queue is closed and drained.
var ErrClosed = errors.New("event queue closed")

// Queue is an unbounded FIFO shared by the ingestion task (pushing ticks) and
// the coordination loop (popping everything, pushing signals and orders).
// Push never blocks.
//
// The queue has a single consumer. Calling Next or TryPop again means the
// previously returned event has been handled, which is what WaitIdle waits
// for.
type Queue struct {
	mu       sync.Mutex
	items    []Event
	closed   bool
	inFlight bool
	ready    chan struct{}

	// idle is closed while nothing is queued or in flight
	idle     chan struct{}
	idleDone bool
}

func NewQueue() *Queue {
	q := &Queue{
		ready: make(chan struct{}, 1),
		idle:  make(chan struct{}),
	}
	close(q.idle)
	q.idleDone = true
	return q
}

// Push appends ev. Pushing to a closed queue is allowed so the loop can
// finish the signals and orders produced while draining.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.busyLocked()
	q.mu.Unlock()
	q.wake()
}

// Close marks the end of external input. Next keeps returning queued events
// and reports ErrClosed once none are left.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// TryPop removes the oldest event without waiting.
func (q *Queue) TryPop() (Event, bool) {
	ev, ok, _ := q.pop()
	return ev, ok
}

// Next waits up to wait for an event. It returns ok=false with a nil error
// when wait elapses first, ctx.Err() when ctx ends, and ErrClosed when the
// queue is closed and empty. Once ctx has ended nothing more is popped.
func (q *Queue) Next(ctx context.Context, wait time.Duration) (Event, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			q.release()
			return nil, false, err
		}
		ev, ok, closed := q.pop()
		if ok {
			return ev, true, nil
		}
		if closed {
			return nil, false, ErrClosed
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-timer.C:
			return nil, false, nil
		case <-q.ready:
		}
	}
}

// WaitIdle blocks until the queue is empty and the consumer has finished the
// last event it took, or ctx ends. A producer that waits before every push
// runs in lock step with the consumer.
func (q *Queue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) pop() (Event, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.inFlight = false
	if len(q.items) == 0 {
		q.idleLocked()
		return nil, false, q.closed
	}
	ev := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.inFlight = true
	return ev, true, q.closed
}

// release marks the last event handled without taking another.
func (q *Queue) release() {
	q.mu.Lock()
	q.inFlight = false
	if len(q.items) == 0 {
		q.idleLocked()
	}
	q.mu.Unlock()
}

func (q *Queue) idleLocked() {
	if !q.idleDone {
		close(q.idle)
		q.idleDone = true
	}
}

func (q *Queue) busyLocked() {
	if q.idleDone {
		q.idle = make(chan struct{})
		q.idleDone = false
	}
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
