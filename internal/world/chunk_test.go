package world

import (
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/annel0/voxel-engine/internal/world/solidity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkPositionFloorDivision(t *testing.T) {
	assert.Equal(t, ChunkPosition{X: -1, Y: -1, Z: -2}, ChunkPositionOf(-1, -16, -17))
	assert.Equal(t, ChunkPosition{X: 0, Y: 1, Z: 0}, ChunkPositionOf(15, 16, 0))

	p := ChunkPosition{X: -2, Y: 0, Z: 3}
	assert.Equal(t, vec.Vec3{X: -32, Y: 0, Z: 48}, p.Origin())
	assert.Equal(t, p, ChunkPositionFromVec(p.Origin()), "начало чанка принадлежит ему же")
	assert.Equal(t, vec.Vec3{X: -31, Y: 2, Z: 51}, p.WorldOf(blockpos.PackLocal(1, 2, 3)))

	assert.Equal(t, ChunkPosition{X: -1, Y: 0, Z: 3}, p.Offset(vec.East))
	assert.Equal(t, ChunkPosition{X: -2, Y: 0, Z: 2}, p.Offset(vec.North))

	m := p.ModelMatrix()
	assert.Equal(t, float32(-32), m.At(0, 3))
	assert.Equal(t, float32(48), m.At(2, 3))
}

func TestStateTransitions(t *testing.T) {
	allowed := map[[2]ChunkState]bool{
		{StateUnloaded, StateCPUEmpty}:   true,
		{StateCPUEmpty, StateCPULoading}: true,
		{StateCPUEmpty, StateUnloaded}:   true,
		{StateCPULoading, StateCPUOnly}:  true,
		{StateCPULoading, StateCPUGPU}:   true,
		{StateCPULoading, StateCPUEmpty}: true,
		{StateCPUOnly, StateCPUGPU}:      true,
		{StateCPUOnly, StateCPUEmpty}:    true,
		{StateCPUGPU, StateCPUOnly}:      true,
	}

	for _, from := range allStates {
		for _, to := range allStates {
			c := NewChunk(ChunkPosition{}, testTable())
			c.state = from

			err := c.SetState(to)
			if from == to || allowed[[2]ChunkState{from, to}] {
				require.NoError(t, err, "%s → %s должен быть разрешён", from, to)
				assert.Equal(t, to, c.State())
			} else {
				require.ErrorIs(t, err, ErrIllegalTransition, "%s → %s должен быть запрещён", from, to)
				assert.Equal(t, from, c.State(), "запрещённый переход не меняет состояние")
			}
		}
	}
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, StateCPUEmpty.CPU())
	assert.True(t, StateCPULoading.CPU())
	assert.True(t, StateCPUOnly.CPU())
	assert.False(t, StateCPUGPU.CPU())
	assert.False(t, StateUnloaded.CPU())

	assert.True(t, StateCPUGPU.GPU())
	assert.False(t, StateCPUOnly.GPU())
	assert.Equal(t, "CPU_GPU", StateCPUGPU.String())
}

func TestNewChunkIsAir(t *testing.T) {
	c := NewChunk(ChunkPosition{X: 1}, testTable())
	assert.Equal(t, StateUnloaded, c.State())
	assert.Equal(t, 0, c.SolidCount())
	assert.Equal(t, block.AirBlockID, c.Block(3, 4, 5).ID)

	for i := 0; i < blockpos.Capacity; i++ {
		v := c.Voxel(i)
		require.Equal(t, uint16(i), blockpos.Index(v.Pos))
	}
}

func TestSetBlockRebuildsTransparency(t *testing.T) {
	table := testTable()
	stone, _ := table.Get(block.StoneBlockID)
	glass, _ := table.Get(block.GlassBlockID)
	water, _ := table.Get(block.WaterBlockID)

	c := NewChunk(ChunkPosition{}, table)
	fillChunk(c, stone)
	grid, built := c.Transparency()
	require.True(t, built)
	assert.Equal(t, solidity.Solid, grid.Get(4, 4, 4))

	c.SetBlock(4, 4, 4, glass)
	assert.Equal(t, solidity.Empty, grid.Get(4, 4, 4), "стекло прозрачно")
	assert.True(t, blockpos.IsSolid(c.Voxel(int(blockpos.Index(blockpos.PackLocal(4, 4, 4)))).Pos), "стекло занимает клетку")
	assert.True(t, c.Dirty())
	assert.True(t, c.NeedsRemesh())

	c.SetBlock(5, 5, 5, water)
	p := c.Voxel(int(blockpos.Index(blockpos.PackLocal(5, 5, 5)))).Pos
	assert.True(t, blockpos.FlagGet(p, blockpos.FlagLiquid))

	c.SetBlock(5, 5, 5, table.Air())
	p = c.Voxel(int(blockpos.Index(blockpos.PackLocal(5, 5, 5)))).Pos
	assert.False(t, blockpos.FlagGet(p, blockpos.FlagLiquid))
	assert.False(t, blockpos.IsSolid(p))
	assert.Equal(t, blockpos.Capacity-2, c.SolidCount())
}

func TestApplyMaterials(t *testing.T) {
	table := testTable()
	c := NewChunk(ChunkPosition{}, table)

	ids := make([]block.BlockID, blockpos.Capacity)
	for i := range ids {
		if i%2 == 0 {
			ids[i] = block.GraniteBlockID
		}
	}
	require.NoError(t, c.ApplyMaterials(ids))
	assert.Equal(t, ids, c.Materials())
	assert.Equal(t, blockpos.Capacity/2, c.SolidCount())
	assert.Equal(t, blockpos.Capacity/2, c.MaterialHistogram()[block.GraniteBlockID])

	ids[10] = 4242
	assert.Error(t, c.ApplyMaterials(ids))
	assert.Equal(t, 0, c.SolidCount(), "при ошибке чанк очищается")

	assert.Error(t, c.ApplyMaterials(ids[:10]))
}

func TestLoaders(t *testing.T) {
	c := NewChunk(ChunkPosition{}, testTable())
	id := uuid.New()

	assert.True(t, c.Evictable())
	assert.True(t, c.AddLoader(id))
	assert.False(t, c.AddLoader(id), "повторная регистрация не увеличивает счётчик")
	assert.Equal(t, 1, c.LoaderCount())
	assert.True(t, c.HasLoader(id))
	assert.False(t, c.Evictable())

	c.RemoveLoader(id)
	assert.True(t, c.Evictable())
}
