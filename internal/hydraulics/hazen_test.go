package hydraulics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadLossClosedForm(t *testing.T) {
	const (
		length   = 100.0
		diameter = 0.05
		flow     = 0.002778
		c        = 135.0
	)
	want := 10.67 * length * math.Pow(flow, 1.852) / (math.Pow(c, 1.852) * math.Pow(diameter, 4.87))

	got := HeadLoss(length, flow, diameter, c)
	assert.InEpsilon(t, want, got, 1e-6)

	t.Run("linear in length", func(t *testing.T) {
		assert.InEpsilon(t, 2*got, HeadLoss(2*length, flow, diameter, c), 1e-12)
	})

	t.Run("zero flow or diameter", func(t *testing.T) {
		assert.Zero(t, HeadLoss(length, 0, diameter, c))
		assert.Zero(t, HeadLoss(length, flow, 0, c))
		assert.Zero(t, HeadLoss(length, -1, diameter, c))
	})
}

func TestVelocityAndRequiredDiameter(t *testing.T) {
	q := PerSecond(20) // 20 m³/h
	d := RequiredDiameter(q, 1.5)

	assert.InDelta(t, 0.06868, d, 1e-4)
	assert.InDelta(t, 1.5, Velocity(q, d), 1e-9)
	assert.Zero(t, Velocity(0, d))
	assert.Zero(t, RequiredDiameter(q, 0))
	assert.Equal(t, 0.075, Metres(75))
}
