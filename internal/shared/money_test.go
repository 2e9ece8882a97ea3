package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 0.13, Round(0.125, 2))
	assert.Equal(t, -0.13, Round(-0.125, 2))
	assert.Equal(t, 2.0, Round(1.5, 0))
	assert.Equal(t, -2.0, Round(-1.5, 0))
	assert.Equal(t, 3.0, Round(2.5, 0))
	assert.Equal(t, 0.0, Round(0, 2))
}

func TestRoundIsStableUnderRecomputation(t *testing.T) {
	v := Round(10.0/3.0, 2)
	assert.Equal(t, v, Round(v, 2))
}

func TestRoundingEpsilon(t *testing.T) {
	assert.InDelta(t, 0.001, RoundingEpsilon(2), 1e-12)
	assert.InDelta(t, 0.0001, RoundingEpsilon(3), 1e-12)
}

func TestAlmostEqual(t *testing.T) {
	assert.True(t, AlmostEqual(1.0004, 1.0, 2))
	assert.False(t, AlmostEqual(1.002, 1.0, 2))
	assert.True(t, AlmostEqual(-5, -5, 2))
}
