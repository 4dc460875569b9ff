package solidity

import (
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkerPositions строит позиции, где воздух стоит в шахматном порядке
func checkerPositions() []blockpos.Packed {
	positions := make([]blockpos.Packed, blockpos.Capacity)
	for i := range positions {
		p := blockpos.FromIndex(i)
		x, y, z := blockpos.Unpack(p)
		if (x+y+z)%2 == 1 {
			p = blockpos.FlagSet(p, blockpos.FlagAir)
		}
		positions[i] = p
	}
	return positions
}

func TestBuildConsistency(t *testing.T) {
	var g Grid
	Fill(&g, 7) // заведомо «чужое» значение в ореоле

	positions := checkerPositions()
	Build(&g, positions)

	for i, p := range positions {
		x, y, z := blockpos.Unpack(p)
		want := Empty
		if blockpos.IsSolid(p) {
			want = Solid
		}
		require.Equal(t, want, g.Get(x, y, z), "клетка %d не совпадает с флагами", i)
	}

	// Ореол не тронут
	assert.Equal(t, byte(7), g.Get(-1, 0, 0))
	assert.Equal(t, byte(7), g.Get(blockpos.AxisLength, 5, 5))
	assert.Equal(t, byte(7), g.Get(3, 3, -1))
}

func TestNeighborQueries(t *testing.T) {
	var g Grid
	Fill(&g, Solid)

	center := HaloIndex(8, 8, 8)
	assert.True(t, NeighborsAllSolid(&g, center))
	assert.True(t, NeighborsAnySolid(&g, center))
	assert.False(t, NeighborsNoSolid(&g, center))

	g.Set(9, 8, 8, Empty)
	assert.False(t, NeighborsAllSolid(&g, center))
	assert.True(t, NeighborsAnySolid(&g, center))

	Fill(&g, Empty)
	assert.True(t, NeighborsNoSolid(&g, center))

	// Граничная клетка читает ореол без проверок границ
	g.Set(-1, 0, 0, Solid)
	assert.True(t, NeighborsAnySolid(&g, HaloIndex(0, 0, 0)))
	assert.Equal(t, Solid, g.Neighbor(HaloIndex(0, 0, 0), vec.West))
}

func TestStridesMatchOffsets(t *testing.T) {
	base := HaloIndex(5, 6, 7)
	for _, d := range vec.Directions {
		o := d.Offset()
		assert.Equal(t, HaloIndex(5+o.X, 6+o.Y, 7+o.Z), base+Stride(d), "направление %s", d)
	}
}

func TestCopyFace(t *testing.T) {
	var own, neighbor Grid
	Fill(&own, Empty)
	Fill(&neighbor, Empty)

	// У соседа с востока заполнен только западный внутренний слой
	for y := 0; y < blockpos.AxisLength; y++ {
		for z := 0; z < blockpos.AxisLength; z++ {
			neighbor.Set(0, y, z, Solid)
		}
	}

	own.CopyFace(vec.East, &neighbor)
	for y := 0; y < blockpos.AxisLength; y++ {
		for z := 0; z < blockpos.AxisLength; z++ {
			require.Equal(t, Solid, own.Get(blockpos.AxisLength, y, z))
		}
	}
	// Противоположная грань не изменилась
	assert.Equal(t, Empty, own.Get(-1, 4, 4))

	own.FillFace(vec.Down, Solid)
	assert.Equal(t, Solid, own.Get(3, -1, 9))
	assert.Equal(t, Empty, own.Get(3, 0, 9))
}
