package mesh

import (
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex вершина грани в пространстве модели чанка
type Vertex struct {
	Pos    mgl32.Vec3
	Normal mgl32.Vec3
	UV     mgl32.Vec2
}

// Geometry буферы вершин и индексов для рендера
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// Углы единичного куба для каждой грани в порядке против часовой стрелки,
// если смотреть снаружи. Нормаль (v1-v0)×(v2-v0) совпадает с направлением грани.
var faceCorners = [vec.DirectionCount][4]mgl32.Vec3{
	vec.East:  {{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	vec.West:  {{0, 0, 1}, {0, 1, 1}, {0, 1, 0}, {0, 0, 0}},
	vec.Up:    {{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
	vec.Down:  {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	vec.South: {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	vec.North: {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
}

var faceUVs = [4]mgl32.Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// Два треугольника на грань, одинаковый обход
var faceIndices = [6]uint32{0, 1, 2, 0, 2, 3}

// BuildGeometry строит по четыре вершины и шесть индексов на каждую грань
func BuildGeometry(m *Mesh) Geometry {
	g := Geometry{
		Vertices: make([]Vertex, 0, len(m.Faces)*4),
		Indices:  make([]uint32, 0, len(m.Faces)*6),
	}

	for _, f := range m.Faces {
		base := uint32(len(g.Vertices))
		origin := mgl32.Vec3{float32(f.X), float32(f.Y), float32(f.Z)}
		normal := f.Dir.Offset().Mgl()

		for i, corner := range faceCorners[f.Dir] {
			g.Vertices = append(g.Vertices, Vertex{
				Pos:    origin.Add(corner),
				Normal: normal,
				UV:     faceUVs[i],
			})
		}
		for _, idx := range faceIndices {
			g.Indices = append(g.Indices, base+idx)
		}
	}
	return g
}
