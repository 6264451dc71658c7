// Package indicators provides streaming technical indicators fed one value at
// a time, such as the mid price of each tick.
package indicators

// Indicator computes a single streaming value.
// It is deterministic and safe to use in live and replay runs.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next value.
	Update(v float64)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}
