package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var closes = []float64{102, 105, 106, 108, 110}

func TestSimpleMAStreaming(t *testing.T) {
	t.Run("basic functionality", func(t *testing.T) {
		ma := NewMA(3)
		assert.Equal(t, "MA(3)", ma.Name())
		assert.Equal(t, 3, ma.Warmup())
		assert.False(t, ma.Ready())
		assert.Equal(t, 0.0, ma.Value())

		ma.Update(closes[0])
		ma.Update(closes[1])
		assert.False(t, ma.Ready())

		ma.Update(closes[2])
		assert.True(t, ma.Ready())
		assert.InDelta(t, (102.0+105.0+106.0)/3.0, ma.Value(), 0.001)

		// only the last 3 count
		ma.Update(closes[3])
		assert.InDelta(t, (105.0+106.0+108.0)/3.0, ma.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		ma := NewMA(2)
		ma.Update(closes[0])
		ma.Update(closes[1])
		assert.True(t, ma.Ready())

		ma.Reset()
		assert.False(t, ma.Ready())
		assert.Equal(t, 0.0, ma.Value())
	})

	t.Run("slides over every window", func(t *testing.T) {
		ma := NewMA(3)
		for i, v := range closes {
			ma.Update(v)
			if i >= 2 {
				want := (closes[i-2] + closes[i-1] + closes[i]) / 3
				assert.InDelta(t, want, ma.Value(), 1e-9)
			}
		}
	})
}

func TestExponentialMAStreaming(t *testing.T) {
	t.Run("seeds with SMA", func(t *testing.T) {
		e := NewEMA(3)
		assert.Equal(t, "EMA(3)", e.Name())
		e.Update(closes[0])
		e.Update(closes[1])
		assert.False(t, e.Ready())
		assert.Equal(t, 0.0, e.Value())

		e.Update(closes[2])
		require.True(t, e.Ready())
		assert.InDelta(t, (102.0+105.0+106.0)/3.0, e.Value(), 1e-9)
	})

	t.Run("applies smoothing after warmup", func(t *testing.T) {
		e := NewEMA(3)
		for _, v := range closes[:3] {
			e.Update(v)
		}
		seed := e.Value()
		e.Update(closes[3])
		assert.InDelta(t, (108-seed)*0.5+seed, e.Value(), 1e-9)
	})

	t.Run("reset", func(t *testing.T) {
		e := NewEMA(2)
		e.Update(1)
		e.Update(2)
		e.Reset()
		assert.False(t, e.Ready())
	})
}

func TestEMAOverFullSeries(t *testing.T) {
	e := NewEMA(5)
	for _, v := range closes {
		e.Update(v)
	}
	require.True(t, e.Ready())
	assert.InDelta(t, 106.2, e.Value(), 1e-9)
}

func TestZeroPeriodNeverReady(t *testing.T) {
	ma := NewMA(0)
	ma.Update(1)
	assert.False(t, ma.Ready())
	assert.False(t, NewEMA(0).Ready())
}
