package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseContextDeterministic(t *testing.T) {
	a := NewNoiseContext(1337)
	b := NewNoiseContext(1337)
	c := NewNoiseContext(7)

	differs := false
	for i := 0; i < 64; i++ {
		x, y, z := float64(i)*0.37+0.11, float64(i)*0.21+0.05, float64(i)*0.13+0.29
		assert.Equal(t, a.Worm(x, y, z), b.Worm(x, y, z))
		assert.Equal(t, a.Material(x, y, z), b.Material(x, y, z))

		ax, ay, az := a.Warp(x, y, z, 2)
		bx, by, bz := b.Warp(x, y, z, 2)
		assert.Equal(t, [3]float64{ax, ay, az}, [3]float64{bx, by, bz})

		if a.Worm(x, y, z) != c.Worm(x, y, z) {
			differs = true
		}
	}
	assert.True(t, differs, "разные сиды должны давать разные поля")
}

func TestNoiseRanges(t *testing.T) {
	n := NewNoiseContext(42)
	for i := 0; i < 256; i++ {
		x, y, z := float64(i)*0.173+0.3, float64(i%16)*0.41+0.7, float64(i/16)*0.29+0.1
		assert.True(t, n.Worm(x, y, z) >= 0 && n.Worm(x, y, z) <= 1)
		assert.True(t, n.Ravine(x, y, z) >= 0 && n.Ravine(x, y, z) <= 1)
		assert.True(t, n.Feature(x, y, z) >= 0 && n.Feature(x, y, z) <= 1)
		m := n.Material(x, y, z)
		assert.True(t, m >= -1 && m <= 1)
	}
}

func TestSmoothstep(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(0.2, 0.8, 0.1))
	assert.Equal(t, 1.0, Smoothstep(0.2, 0.8, 0.9))
	assert.InDelta(t, 0.5, Smoothstep(0.2, 0.8, 0.5), 1e-12)
	assert.Equal(t, 1.0, Smoothstep(0.5, 0.5, 0.5))
}
