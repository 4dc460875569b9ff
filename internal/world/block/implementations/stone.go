package implementations

import (
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
)

// StoneFamily возвращает каменные породы, которыми генератор красит подземелье
func StoneFamily() []block.Definition {
	return []block.Definition{
		opaque(block.StoneBlockID, "stone"),
		opaque(block.GraniteBlockID, "granite"),
		opaque(block.DioriteBlockID, "diorite"),
		opaque(block.AndesiteBlockID, "andesite"),
		opaque(block.TuffBlockID, "tuff"),
		layered(block.DeepslateBlockID, "deepslate", "deepslate_top"),
		opaque(block.CalciteBlockID, "calcite"),
	}
}

// Soil возвращает поверхностные блоки
func Soil() []block.Definition {
	grass := opaque(block.GrassBlockID, "grass")
	grass.Textures = block.UniformTextures("grass_side")
	grass.Textures[vec.Up] = "grass_top"
	grass.Textures[vec.Down] = "dirt"

	return []block.Definition{
		grass,
		opaque(block.DirtBlockID, "dirt"),
		opaque(block.SandBlockID, "sand"),
	}
}

// opaque непрозрачный блок с одной текстурой на всех гранях
func opaque(id block.BlockID, name string) block.Definition {
	return block.Definition{
		ID:       id,
		Name:     name,
		Render:   block.RenderSolid,
		Textures: block.UniformTextures(name),
	}
}

// layered непрозрачный блок с отдельной текстурой верха и низа
func layered(id block.BlockID, name, top string) block.Definition {
	def := opaque(id, name)
	def.Textures[vec.Up] = top
	def.Textures[vec.Down] = top
	return def
}
