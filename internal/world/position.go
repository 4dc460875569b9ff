package world

import (
	"fmt"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/go-gl/mathgl/mgl32"
)

// ChunkPosition координаты чанка в сетке чанков (не в блоках)
type ChunkPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// ChunkPositionOf возвращает чанк, содержащий блок с мировыми координатами.
// Используется деление с округлением вниз, поэтому отрицательные координаты
// попадают в правильный чанк.
func ChunkPositionOf(worldX, worldY, worldZ int) ChunkPosition {
	return ChunkPosition{
		X: vec.FloorDiv(worldX, blockpos.AxisLength),
		Y: vec.FloorDiv(worldY, blockpos.AxisLength),
		Z: vec.FloorDiv(worldZ, blockpos.AxisLength),
	}
}

// ChunkPositionFromVec то же, что ChunkPositionOf, для vec.Vec3
func ChunkPositionFromVec(world vec.Vec3) ChunkPosition {
	return ChunkPositionOf(world.X, world.Y, world.Z)
}

// Origin возвращает мировые координаты угла чанка (позиция × 16)
func (p ChunkPosition) Origin() vec.Vec3 {
	return vec.Vec3{
		X: p.X * blockpos.AxisLength,
		Y: p.Y * blockpos.AxisLength,
		Z: p.Z * blockpos.AxisLength,
	}
}

// WorldOf переводит упакованную локальную позицию в мировые координаты
func (p ChunkPosition) WorldOf(local blockpos.Packed) vec.Vec3 {
	x, y, z := blockpos.Unpack(local)
	return p.Origin().Add(vec.Vec3{X: x, Y: y, Z: z})
}

// Offset возвращает соседний чанк в направлении d
func (p ChunkPosition) Offset(d vec.Direction) ChunkPosition {
	o := d.Offset()
	return ChunkPosition{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Vec возвращает позицию как vec.Vec3
func (p ChunkPosition) Vec() vec.Vec3 {
	return vec.Vec3{X: p.X, Y: p.Y, Z: p.Z}
}

// DistanceSq квадрат расстояния между чанками
func (p ChunkPosition) DistanceSq(other ChunkPosition) int {
	return p.Vec().DistanceSq(other.Vec())
}

// ModelMatrix матрица переноса в начало чанка, которую получает рендер
func (p ChunkPosition) ModelMatrix() mgl32.Mat4 {
	o := p.Origin().ToFloat()
	return mgl32.Translate3D(float32(o.X), float32(o.Y), float32(o.Z))
}

// Less задаёт детерминированный порядок позиций (X, затем Y, затем Z)
func (p ChunkPosition) Less(other ChunkPosition) bool {
	if p.X != other.X {
		return p.X < other.X
	}
	if p.Y != other.Y {
		return p.Y < other.Y
	}
	return p.Z < other.Z
}

// String возвращает строковое представление позиции
func (p ChunkPosition) String() string {
	return fmt.Sprintf("chunk(%d,%d,%d)", p.X, p.Y, p.Z)
}
