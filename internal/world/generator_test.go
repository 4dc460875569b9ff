package world

import (
	"context"
	"testing"

	"github.com/annel0/voxel-engine/internal/util"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/annel0/voxel-engine/internal/world/solidity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, seed uint32, cfg GeneratorConfig) *Generator {
	t.Helper()
	g, err := NewGenerator(util.NewNoiseContext(seed), testTable(), cfg)
	require.NoError(t, err)
	return g
}

func TestGeneratorDeterminism(t *testing.T) {
	mixed := 0
	for _, pos := range PositionsInRadius(ChunkPosition{X: 3, Y: -2, Z: 5}, 1) {
		a := NewChunk(pos, testTable())
		b := NewChunk(pos, testTable())

		// Независимые генераторы с одним сидом
		require.NoError(t, newTestGenerator(t, 1337, cavernousConfig()).Generate(context.Background(), a))
		require.NoError(t, newTestGenerator(t, 1337, cavernousConfig()).Generate(context.Background(), b))

		assert.Equal(t, a.Materials(), b.Materials(), "материалы %s должны совпадать", pos)
		ga, _ := a.Transparency()
		gb, _ := b.Transparency()
		assert.True(t, *ga == *gb, "сетки прозрачности %s должны совпадать", pos)
		assert.Equal(t, a.Positions(), b.Positions())
		assert.Equal(t, a.SolidCount(), b.SolidCount())

		if n := a.SolidCount(); n > 0 && n < blockpos.Capacity {
			mixed++
		}
	}
	// Сравнение сплошных чанков ничего не проверяет
	require.GreaterOrEqual(t, mixed, 3, "слишком мало чанков с пустотами")
}

func TestGeneratorSeedMatters(t *testing.T) {
	pos := ChunkPosition{X: 2, Y: -1, Z: 2}
	a := NewChunk(pos, testTable())
	b := NewChunk(pos, testTable())

	require.NoError(t, newTestGenerator(t, 1, DefaultGeneratorConfig()).Generate(context.Background(), a))
	require.NoError(t, newTestGenerator(t, 2, DefaultGeneratorConfig()).Generate(context.Background(), b))
	assert.NotEqual(t, a.Materials(), b.Materials())
}

func TestFlatStoneScenario(t *testing.T) {
	g := newTestGenerator(t, 42, flatStoneConfig())
	c := NewChunk(ChunkPosition{X: 5, Y: -3, Z: 9}, testTable())

	require.NoError(t, g.Generate(context.Background(), c))
	assert.Equal(t, blockpos.Capacity, c.SolidCount(), "все блоки твёрдые")

	grid, built := c.Transparency()
	require.True(t, built)
	for i := 0; i < blockpos.Capacity; i++ {
		x, y, z := blockpos.Unpack(blockpos.FromIndex(i))
		require.Equal(t, solidity.Solid, grid.Get(x, y, z), "клетка (%d,%d,%d) должна быть непрозрачной", x, y, z)
	}
	assert.True(t, c.NeedsRemesh())
}

func TestFillPocketsScenario(t *testing.T) {
	table := testTable()
	stone, _ := table.Get(block.StoneBlockID)
	c := NewChunk(ChunkPosition{}, table)
	fillChunk(c, stone)

	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(8, 8, 8))), table.Air())
	// На границе чанка ореол считается воздухом, клетка остаётся пустой
	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(0, 5, 5))), table.Air())

	fillPockets(c)

	assert.True(t, blockpos.IsSolid(c.Voxel(int(blockpos.Index(blockpos.PackLocal(8, 8, 8)))).Pos), "пустота должна быть заполнена")
	assert.Equal(t, block.StoneBlockID, c.Block(8, 8, 8).ID)
	assert.False(t, blockpos.IsSolid(c.Voxel(int(blockpos.Index(blockpos.PackLocal(0, 5, 5)))).Pos))
}

func TestClearSpursScenario(t *testing.T) {
	table := testTable()
	stone, _ := table.Get(block.StoneBlockID)
	c := NewChunk(ChunkPosition{}, table)

	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(8, 8, 8))), stone)
	// Угловой блок касается ореола, который считается твёрдым
	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(0, 0, 0))), stone)
	// Пара блоков поддерживает друг друга
	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(4, 4, 4))), stone)
	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(4, 5, 4))), stone)

	clearSpurs(c)

	assert.Equal(t, block.AirBlockID, c.Block(8, 8, 8).ID, "одиночный блок должен исчезнуть")
	assert.Equal(t, block.StoneBlockID, c.Block(0, 0, 0).ID)
	assert.Equal(t, block.StoneBlockID, c.Block(4, 4, 4).ID)
	assert.Equal(t, block.StoneBlockID, c.Block(4, 5, 4).ID)

	// Рабочая сетка соответствует итоговым флагам
	assert.Equal(t, solidity.Empty, c.solidity.Get(8, 8, 8))
	assert.Equal(t, solidity.Solid, c.solidity.Get(4, 4, 4))
}

func TestPaintUsesConfiguredMaterials(t *testing.T) {
	cfg := DefaultGeneratorConfig()
	g := newTestGenerator(t, 99, cfg)

	allowed := map[block.BlockID]bool{block.AirBlockID: true}
	for _, m := range cfg.Materials {
		allowed[m.ID] = true
	}

	for _, pos := range []ChunkPosition{{X: 0}, {X: 1, Y: -1}, {Z: 4}} {
		c := NewChunk(pos, testTable())
		require.NoError(t, g.Generate(context.Background(), c))
		for id := range c.MaterialHistogram() {
			assert.True(t, allowed[id], "неожиданный материал %d", id)
		}
	}
}

func TestCarveDensityRange(t *testing.T) {
	g := newTestGenerator(t, 7, DefaultGeneratorConfig())
	for i := 0; i < 512; i++ {
		d := g.carveDensity(float64(i*3-700), float64(i%37-18), float64(i*7-1500))
		require.True(t, d >= 0 && d <= 1, "плотность %f вне [0,1]", d)
	}
}

func TestGenerateCancelled(t *testing.T) {
	g := newTestGenerator(t, 1, DefaultGeneratorConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Generate(ctx, NewChunk(ChunkPosition{}, testTable()))
	assert.ErrorIs(t, err, ErrGenerationAborted)
}

func TestNewGeneratorValidation(t *testing.T) {
	noise := util.NewNoiseContext(1)

	cfg := DefaultGeneratorConfig()
	cfg.Materials = nil
	_, err := NewGenerator(noise, testTable(), cfg)
	assert.Error(t, err)

	cfg.Materials = []MaterialWeight{{ID: 4242, Weight: 1}}
	_, err = NewGenerator(noise, testTable(), cfg)
	assert.Error(t, err)

	cfg.Materials = []MaterialWeight{{ID: block.AirBlockID, Weight: 1}}
	_, err = NewGenerator(noise, testTable(), cfg)
	assert.Error(t, err)

	// Прозрачные и жидкие блоки не годятся в материалы подземелья
	for _, id := range []block.BlockID{block.GlassBlockID, block.WaterBlockID} {
		cfg.Materials = []MaterialWeight{{ID: block.StoneBlockID, Weight: 1}, {ID: id, Weight: 1}}
		_, err = NewGenerator(noise, testTable(), cfg)
		assert.Error(t, err, "материал %d", id)
	}

	_, err = NewGenerator(nil, testTable(), DefaultGeneratorConfig())
	assert.Error(t, err)
}
