// Package mesh решает, какие грани твёрдых блоков чанка видимы.
//
// Видимость определяется только сетками непрозрачности: своей и соседних
// чанков, граничные слои которых копируются в ореол своей сетки.
package mesh

import (
	"fmt"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/annel0/voxel-engine/internal/world/solidity"
)

// NeighborResolver ищет соседний чанк (реализуется world.Manager)
type NeighborResolver interface {
	Neighbor(pos world.ChunkPosition, d vec.Direction) (*world.Chunk, bool)
}

// MissingPolicy что считать за границей, если соседа нет или он не готов
type MissingPolicy uint8

const (
	// CullMissing грань не рисуется (по умолчанию): лучше видимый шов, чем
	// лишняя геометрия против незагруженного мира
	CullMissing MissingPolicy = iota
	// DrawMissing грань рисуется, как будто за границей воздух
	DrawMissing
)

// Face видимая грань блока
type Face struct {
	X, Y, Z uint8 // локальные координаты блока
	Dir     vec.Direction
	Block   block.BlockID
	Texture string
}

// Mesh набор видимых граней чанка
type Mesh struct {
	Position world.ChunkPosition
	Faces    []Face
}

// Extractor извлекает видимые грани
type Extractor struct {
	Resolver NeighborResolver
	Missing  MissingPolicy
	Metrics  *world.Metrics // может быть nil
}

// Extract извлекает видимые грани с консервативной политикой
func Extract(resolver NeighborResolver, c *world.Chunk) (*Mesh, error) {
	e := Extractor{Resolver: resolver}
	return e.Extract(c)
}

// Extract копирует граничные слои соседей в ореол сетки прозрачности чанка
// и выпускает грань твёрдого блока, только если соседняя клетка не непрозрачна.
func (e *Extractor) Extract(c *world.Chunk) (*Mesh, error) {
	if c == nil {
		return nil, world.ErrNilChunk
	}
	if !c.Meshable() {
		return nil, fmt.Errorf("%s в состоянии %s: %w", c.Position(), c.State(), world.ErrNotResident)
	}

	grid, _ := c.Transparency()
	e.fillHalo(c, grid)

	m := &Mesh{Position: c.Position()}
	for i := 0; i < blockpos.Capacity; i++ {
		v := c.Voxel(i)
		if !blockpos.IsSolid(v.Pos) {
			continue
		}

		x, y, z := blockpos.Unpack(v.Pos)
		hi := solidity.HaloIndex(x, y, z)
		for _, d := range vec.Directions {
			if grid.Neighbor(hi, d) != solidity.Empty {
				continue
			}
			m.Faces = append(m.Faces, Face{
				X: uint8(x), Y: uint8(y), Z: uint8(z),
				Dir:     d,
				Block:   v.Def.ID,
				Texture: v.Def.Texture(d),
			})
		}
	}

	if e.Metrics != nil {
		e.Metrics.ObserveFaces(len(m.Faces))
	}
	return m, nil
}

// fillHalo заполняет ореол сетки по соседям
func (e *Extractor) fillHalo(c *world.Chunk, grid *solidity.Grid) {
	missing := solidity.Solid
	if e.Missing == DrawMissing {
		missing = solidity.Empty
	}

	for _, d := range vec.Directions {
		var neighbor *world.Chunk
		if e.Resolver != nil {
			neighbor, _ = e.Resolver.Neighbor(c.Position(), d)
		}
		if neighbor == nil || !neighbor.Meshable() {
			grid.FillFace(d, missing)
			continue
		}
		ngrid, _ := neighbor.Transparency()
		grid.CopyFace(d, ngrid)
	}
}

// Len количество видимых граней
func (m *Mesh) Len() int {
	return len(m.Faces)
}

// Empty – видимых граней нет
func (m *Mesh) Empty() bool {
	return len(m.Faces) == 0
}

// CountByDirection количество граней по направлениям
func (m *Mesh) CountByDirection() [vec.DirectionCount]int {
	var counts [vec.DirectionCount]int
	for _, f := range m.Faces {
		counts[f.Dir]++
	}
	return counts
}
