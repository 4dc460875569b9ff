package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorDivNegative(t *testing.T) {
	cases := []struct {
		a, b, div, mod int
	}{
		{0, 16, 0, 0},
		{15, 16, 0, 15},
		{16, 16, 1, 0},
		{-1, 16, -1, 15},
		{-16, 16, -1, 0},
		{-17, 16, -2, 15},
	}

	for _, c := range cases {
		assert.Equal(t, c.div, FloorDiv(c.a, c.b), "FloorDiv(%d,%d)", c.a, c.b)
		assert.Equal(t, c.mod, FloorMod(c.a, c.b), "FloorMod(%d,%d)", c.a, c.b)
		// Деление и остаток должны восстанавливать исходное число
		assert.Equal(t, c.a, FloorDiv(c.a, c.b)*c.b+FloorMod(c.a, c.b))
	}
}

func TestDirectionOpposite(t *testing.T) {
	for _, d := range Directions {
		sum := d.Offset().Add(d.Opposite().Offset())
		assert.Equal(t, Vec3{}, sum, "смещения %s и %s должны компенсировать друг друга", d, d.Opposite())
		assert.Equal(t, d, d.Opposite().Opposite())
		assert.NotEqual(t, d.Positive(), d.Opposite().Positive())
	}
}

func TestDirectionAxis(t *testing.T) {
	assert.Equal(t, 0, East.Axis())
	assert.Equal(t, 0, West.Axis())
	assert.Equal(t, 1, Up.Axis())
	assert.Equal(t, 1, Down.Axis())
	assert.Equal(t, 2, South.Axis())
	assert.Equal(t, 2, North.Axis())
}
