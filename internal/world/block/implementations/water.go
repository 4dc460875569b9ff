package implementations

import (
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// Water описание блока воды. Вода прозрачна и помечена как жидкость,
// поэтому чанк выставляет ей флаг LIQUID.
func Water() block.Definition {
	textures := block.UniformTextures("water_flow")
	textures[vec.Up] = "water_still"
	textures[vec.Down] = "water_still"

	return block.Definition{
		ID:       block.WaterBlockID,
		Name:     "water",
		Render:   block.RenderTransparent,
		Liquid:   true,
		Textures: textures,
	}
}
