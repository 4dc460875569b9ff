package mesh

import (
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGeometryWinding(t *testing.T) {
	m := &Mesh{}
	for _, d := range vec.Directions {
		m.Faces = append(m.Faces, Face{X: 1, Y: 2, Z: 3, Dir: d})
	}

	g := BuildGeometry(m)
	require.Len(t, g.Vertices, 4*len(m.Faces))
	require.Len(t, g.Indices, 6*len(m.Faces))

	for i, f := range m.Faces {
		tris := g.Indices[i*6 : i*6+6]
		for k := 0; k < 6; k += 3 {
			a := g.Vertices[tris[k]].Pos
			b := g.Vertices[tris[k+1]].Pos
			c := g.Vertices[tris[k+2]].Pos
			normal := b.Sub(a).Cross(c.Sub(a)).Normalize()
			assert.True(t, normal.ApproxEqual(f.Dir.Offset().Mgl()), "треугольник грани %s обходится не против часовой стрелки", f.Dir)
		}

		// Все вершины лежат на стороне блока
		for _, v := range g.Vertices[i*4 : i*4+4] {
			assert.True(t, v.Pos.X() >= 1 && v.Pos.X() <= 2)
			assert.True(t, v.Pos.Y() >= 2 && v.Pos.Y() <= 3)
			assert.True(t, v.Pos.Z() >= 3 && v.Pos.Z() <= 4)
		}
	}
}

func TestBuildGeometryEmpty(t *testing.T) {
	g := BuildGeometry(&Mesh{})
	assert.Empty(t, g.Vertices)
	assert.Empty(t, g.Indices)
}
