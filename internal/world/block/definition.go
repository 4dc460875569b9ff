package block

import "github.com/annel0/voxel-engine/internal/vec"

// RenderType определяет, как рендер рисует блок
type RenderType uint8

const (
	RenderSolid       RenderType = iota // непрозрачный куб
	RenderTransparent                   // прозрачный (воздух, стекло, вода)
)

func (r RenderType) String() string {
	switch r {
	case RenderSolid:
		return "solid"
	case RenderTransparent:
		return "transparent"
	default:
		return "unknown"
	}
}

// Definition неизменяемое описание типа блока.
// Создаётся при старте процесса и никогда не меняется.
type Definition struct {
	ID     BlockID
	Name   string
	Render RenderType
	Liquid bool

	// Textures имена текстур по граням, индекс – vec.Direction
	Textures [vec.DirectionCount]string
}

// Transparent сообщает, пропускает ли блок взгляд на соседние грани
func (d *Definition) Transparent() bool {
	return d.Render == RenderTransparent
}

// Texture возвращает имя текстуры грани
func (d *Definition) Texture(face vec.Direction) string {
	return d.Textures[face]
}

// UniformTextures заполняет все грани одной текстурой
func UniformTextures(name string) [vec.DirectionCount]string {
	var t [vec.DirectionCount]string
	for i := range t {
		t[i] = name
	}
	return t
}
