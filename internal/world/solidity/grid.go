// Package solidity реализует сетку занятости чанка с ореолом (halo) в одну клетку.
//
// Ореол позволяет читать соседей граничных блоков безусловными обращениями к
// массиву, без проверок границ. Внутренняя часть сетки – чистая функция флагов
// упакованных позиций чанка; после любого изменения флагов сетку нужно
// перестроить через Build, сама она не синхронизируется.
package solidity

import (
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
)

const (
	// Side длина стороны сетки вместе с ореолом
	Side = blockpos.AxisLength + 2
	// Size общее количество клеток
	Size = Side * Side * Side

	strideX = 1
	strideY = Side
	strideZ = Side * Side
)

// Значения клеток
const (
	Empty byte = 0
	Solid byte = 1
)

// strides смещения линейного индекса для каждого направления
var strides = [vec.DirectionCount]int{
	vec.East:  strideX,
	vec.West:  -strideX,
	vec.Up:    strideY,
	vec.Down:  -strideY,
	vec.South: strideZ,
	vec.North: -strideZ,
}

// Grid сетка (AxisLength+2)³ байт
type Grid [Size]byte

// HaloIndex переводит локальные координаты (допускаются -1 и 16) в индекс сетки
func HaloIndex(x, y, z int) int {
	return (x+1)*strideX + (y+1)*strideY + (z+1)*strideZ
}

// Stride возвращает смещение индекса для направления
func Stride(d vec.Direction) int {
	return strides[d]
}

// Build записывает IsSolid каждой позиции во внутреннюю часть сетки.
// Ореол не затрагивается.
func Build(g *Grid, positions []blockpos.Packed) {
	for _, p := range positions {
		x, y, z := blockpos.Unpack(p)
		if blockpos.IsSolid(p) {
			g[HaloIndex(x, y, z)] = Solid
		} else {
			g[HaloIndex(x, y, z)] = Empty
		}
	}
}

// Fill полностью перезаписывает сетку (ореол и внутреннюю часть)
func Fill(g *Grid, v byte) {
	for i := range g {
		g[i] = v
	}
}

// NeighborsAllSolid – все шесть соседей по осям заняты
func NeighborsAllSolid(g *Grid, haloIndex int) bool {
	return g[haloIndex+strideX]&g[haloIndex-strideX]&
		g[haloIndex+strideY]&g[haloIndex-strideY]&
		g[haloIndex+strideZ]&g[haloIndex-strideZ] != 0
}

// NeighborsAnySolid – хотя бы один сосед занят
func NeighborsAnySolid(g *Grid, haloIndex int) bool {
	return g[haloIndex+strideX]|g[haloIndex-strideX]|
		g[haloIndex+strideY]|g[haloIndex-strideY]|
		g[haloIndex+strideZ]|g[haloIndex-strideZ] != 0
}

// NeighborsNoSolid – ни один сосед не занят
func NeighborsNoSolid(g *Grid, haloIndex int) bool {
	return !NeighborsAnySolid(g, haloIndex)
}

// Get читает клетку по локальным координатам (-1..16)
func (g *Grid) Get(x, y, z int) byte {
	return g[HaloIndex(x, y, z)]
}

// Set записывает клетку по локальным координатам (-1..16)
func (g *Grid) Set(x, y, z int, v byte) {
	g[HaloIndex(x, y, z)] = v
}

// Neighbor читает соседа клетки в заданном направлении
func (g *Grid) Neighbor(haloIndex int, d vec.Direction) byte {
	return g[haloIndex+strides[d]]
}

// FillFace заполняет грань ореола в направлении d значением v
func (g *Grid) FillFace(d vec.Direction, v byte) {
	layer := haloLayer(d)
	forEachFaceCell(func(a, b int) {
		x, y, z := faceCoords(d, layer, a, b)
		g.Set(x, y, z, v)
	})
}

// CopyFace копирует граничный слой соседней сетки в грань ореола направления d.
// neighbor – сетка чанка, лежащего в направлении d от текущего.
func (g *Grid) CopyFace(d vec.Direction, neighbor *Grid) {
	dst := haloLayer(d)
	// У соседа берём противоположный внутренний слой
	src := interiorLayer(d.Opposite())
	forEachFaceCell(func(a, b int) {
		dx, dy, dz := faceCoords(d, dst, a, b)
		sx, sy, sz := faceCoords(d, src, a, b)
		g.Set(dx, dy, dz, neighbor.Get(sx, sy, sz))
	})
}

// haloLayer координата слоя ореола вдоль оси направления
func haloLayer(d vec.Direction) int {
	if d.Positive() {
		return blockpos.AxisLength
	}
	return -1
}

// interiorLayer крайний внутренний слой вдоль оси направления
func interiorLayer(d vec.Direction) int {
	if d.Positive() {
		return blockpos.AxisLength - 1
	}
	return 0
}

func forEachFaceCell(fn func(a, b int)) {
	for a := 0; a < blockpos.AxisLength; a++ {
		for b := 0; b < blockpos.AxisLength; b++ {
			fn(a, b)
		}
	}
}

// faceCoords собирает координаты клетки: layer по оси направления, a и b – по двум другим
func faceCoords(d vec.Direction, layer, a, b int) (x, y, z int) {
	switch d.Axis() {
	case 0:
		return layer, a, b
	case 1:
		return a, layer, b
	default:
		return a, b, layer
	}
}
