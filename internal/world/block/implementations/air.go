package implementations

import (
	"github.com/annel0/voxel-engine/internal/world/block"
)

// Air описание пустого блока (воздуха).
// Воздух прозрачен и не имеет текстур.
func Air() block.Definition {
	return block.Definition{
		ID:     block.AirBlockID,
		Name:   "air",
		Render: block.RenderTransparent,
	}
}

// Glass описание стекла: твёрдый, но прозрачный блок
func Glass() block.Definition {
	return block.Definition{
		ID:       block.GlassBlockID,
		Name:     "glass",
		Render:   block.RenderTransparent,
		Textures: block.UniformTextures("glass"),
	}
}
