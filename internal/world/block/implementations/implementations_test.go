package implementations

import (
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableContainsRegisteredBlocks(t *testing.T) {
	table := block.Default()

	air := table.Air()
	require.NotNil(t, air)
	assert.True(t, air.Transparent(), "воздух должен быть прозрачным")

	stone, ok := table.Get(block.StoneBlockID)
	require.True(t, ok)
	assert.False(t, stone.Transparent())
	assert.Equal(t, "stone", stone.Texture(vec.North))

	water, ok := table.Get(block.WaterBlockID)
	require.True(t, ok)
	assert.True(t, water.Liquid)
	assert.True(t, water.Transparent())
	assert.Equal(t, "water_still", water.Texture(vec.Up))

	glass, ok := table.Get(block.GlassBlockID)
	require.True(t, ok)
	assert.True(t, glass.Transparent())

	for _, def := range StoneFamily() {
		assert.True(t, table.IsValidBlockID(def.ID), "порода %s не зарегистрирована", def.Name)
	}
}

func TestTableOrderedByID(t *testing.T) {
	all := block.Default().All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestRegisterAfterFreezePanics(t *testing.T) {
	block.Default()
	assert.Panics(t, func() {
		block.Register(block.Definition{ID: 999, Name: "late"})
	})
}

func TestByName(t *testing.T) {
	def, ok := block.Default().ByName("granite")
	require.True(t, ok)
	assert.Equal(t, block.GraniteBlockID, def.ID)

	_, ok = block.Default().ByName("unobtainium")
	assert.False(t, ok)
}
