package world

import (
	"fmt"
	"time"

	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/annel0/voxel-engine/internal/world/solidity"
	"github.com/google/uuid"
)

// Voxel блок чанка: упакованная позиция с флагами и ссылка на описание
type Voxel struct {
	Pos blockpos.Packed
	Def *block.Definition
}

// Chunk представляет куб мира 16x16x16 блоков.
//
// Чанком владеет Manager; остальные компоненты получают невладеющие ссылки
// и работают с ним только из потока тика мира.
type Chunk struct {
	pos   ChunkPosition
	table *block.Table

	// Позиции и описания хранятся раздельно, чтобы сетка занятости
	// строилась прямо по массиву позиций
	positions [blockpos.Capacity]blockpos.Packed
	defs      [blockpos.Capacity]*block.Definition

	// solidity рабочая сетка генератора (этапы вырезания и очистки)
	solidity solidity.Grid
	// transparency сетка непрозрачности для мешинга: 1 – непрозрачно
	transparency      solidity.Grid
	transparencyBuilt bool

	loaders map[uuid.UUID]struct{}
	state   ChunkState
	mesh    MeshHandle

	dirty       bool // есть изменения, не сохранённые источником
	needsRemesh bool // меш устарел относительно блоков

	loadedAt time.Time
}

// NewChunk создаёт несгенерированный чанк: все блоки – воздух.
// Состояние UNLOADED до регистрации в менеджере.
func NewChunk(pos ChunkPosition, table *block.Table) *Chunk {
	c := &Chunk{
		pos:     pos,
		table:   table,
		loaders: make(map[uuid.UUID]struct{}),
		state:   StateUnloaded,
	}
	c.Clear()
	return c
}

// Position возвращает позицию чанка
func (c *Chunk) Position() ChunkPosition {
	return c.pos
}

// State возвращает текущее состояние
func (c *Chunk) State() ChunkState {
	return c.state
}

// Table возвращает таблицу описаний блоков, на которую ссылается чанк
func (c *Chunk) Table() *block.Table {
	return c.table
}

// SetState выполняет проверенный переход состояния.
// Недопустимый переход логируется и возвращается как ErrIllegalTransition,
// состояние при этом не меняется.
func (c *Chunk) SetState(next ChunkState) error {
	if c.state == next {
		return nil
	}
	if !CanTransition(c.state, next) {
		worldLogger().Error("❌ %s: переход %s → %s запрещён", c.pos, c.state, next)
		return fmt.Errorf("%s: %s → %s: %w", c.pos, c.state, next, ErrIllegalTransition)
	}

	worldLogger().Trace("🔁 %s: %s → %s", c.pos, c.state, next)
	c.state = next
	return nil
}

// Clear заполняет чанк воздухом и сбрасывает сетки
func (c *Chunk) Clear() {
	air := c.table.Air()
	for i := range c.positions {
		c.positions[i] = blockpos.FlagSet(blockpos.FromIndex(i), blockpos.FlagAir)
		c.defs[i] = air
	}
	solidity.Fill(&c.solidity, solidity.Empty)
	solidity.Fill(&c.transparency, solidity.Empty)
	c.transparencyBuilt = false
}

// Voxel возвращает блок по линейному индексу
func (c *Chunk) Voxel(index int) Voxel {
	return Voxel{Pos: c.positions[index], Def: c.defs[index]}
}

// Block возвращает описание блока по локальным координатам
func (c *Chunk) Block(x, y, z int) *block.Definition {
	return c.defs[blockpos.Index(blockpos.PackLocal(x, y, z))]
}

// Positions возвращает массив упакованных позиций (только для чтения)
func (c *Chunk) Positions() []blockpos.Packed {
	return c.positions[:]
}

// SetBlock меняет блок и перестраивает сетку прозрачности целиком.
// Чанк помечается грязным и требующим перестроения меша.
func (c *Chunk) SetBlock(x, y, z int, def *block.Definition) {
	c.setDefinition(int(blockpos.Index(blockpos.PackLocal(x, y, z))), def)
	c.dirty = true
	c.needsRemesh = true
	if c.transparencyBuilt {
		c.BuildTransparency()
	}
}

// setDefinition записывает описание и приводит флаги позиции в соответствие
func (c *Chunk) setDefinition(index int, def *block.Definition) {
	p := c.positions[index]
	if def.ID == block.AirBlockID {
		p = blockpos.FlagSet(p, blockpos.FlagAir)
	} else {
		p = blockpos.FlagClear(p, blockpos.FlagAir)
	}
	if def.Liquid {
		p = blockpos.FlagSet(p, blockpos.FlagLiquid)
	} else {
		p = blockpos.FlagClear(p, blockpos.FlagLiquid)
	}
	c.positions[index] = p
	c.defs[index] = def
}

// BuildTransparency строит сетку непрозрачности из финальных описаний блоков.
// Ореол заполняется пустотой; соседи копируются в него при мешинге.
func (c *Chunk) BuildTransparency() {
	solidity.Fill(&c.transparency, solidity.Empty)
	for i, p := range c.positions {
		if blockpos.IsSolid(p) && !c.defs[i].Transparent() {
			x, y, z := blockpos.Unpack(p)
			c.transparency.Set(x, y, z, solidity.Solid)
		}
	}
	c.transparencyBuilt = true
}

// Transparency возвращает сетку непрозрачности, если она построена.
// Мешинг перезаписывает её ореол, внутренняя часть не меняется.
func (c *Chunk) Transparency() (*solidity.Grid, bool) {
	return &c.transparency, c.transparencyBuilt
}

// Meshable – чанк сгенерирован и его сетка прозрачности готова
func (c *Chunk) Meshable() bool {
	return c.state.Resident() && c.transparencyBuilt
}

// SolidCount количество занятых блоков
func (c *Chunk) SolidCount() int {
	n := 0
	for _, p := range c.positions {
		if blockpos.IsSolid(p) {
			n++
		}
	}
	return n
}

// Materials возвращает ID материалов в порядке линейного индекса
func (c *Chunk) Materials() []block.BlockID {
	ids := make([]block.BlockID, blockpos.Capacity)
	for i, def := range c.defs {
		ids[i] = def.ID
	}
	return ids
}

// MaterialHistogram количество блоков каждого материала
func (c *Chunk) MaterialHistogram() map[block.BlockID]int {
	hist := make(map[block.BlockID]int)
	for _, def := range c.defs {
		hist[def.ID]++
	}
	return hist
}

// ApplyMaterials восстанавливает содержимое из сохранённых ID и строит сетки.
// Неизвестный ID – ошибка, чанк при этом остаётся очищенным.
func (c *Chunk) ApplyMaterials(ids []block.BlockID) error {
	if len(ids) != blockpos.Capacity {
		return fmt.Errorf("ожидалось %d блоков, получено %d", blockpos.Capacity, len(ids))
	}

	for i, id := range ids {
		def, ok := c.table.Get(id)
		if !ok {
			c.Clear()
			return fmt.Errorf("неизвестный ID блока %d в позиции %d", id, i)
		}
		c.setDefinition(i, def)
	}

	solidity.Fill(&c.solidity, solidity.Empty)
	solidity.Build(&c.solidity, c.positions[:])
	c.BuildTransparency()
	return nil
}

// AddLoader регистрирует загружающую сущность. Возвращает false, если она уже была.
func (c *Chunk) AddLoader(id uuid.UUID) bool {
	if _, exists := c.loaders[id]; exists {
		return false
	}
	c.loaders[id] = struct{}{}
	return true
}

// RemoveLoader снимает загружающую сущность
func (c *Chunk) RemoveLoader(id uuid.UUID) {
	delete(c.loaders, id)
}

// HasLoader проверяет, держит ли сущность этот чанк
func (c *Chunk) HasLoader(id uuid.UUID) bool {
	_, exists := c.loaders[id]
	return exists
}

// LoaderCount количество загружающих сущностей
func (c *Chunk) LoaderCount() int {
	return len(c.loaders)
}

// Evictable – чанк можно выгрузить: его никто не держит
func (c *Chunk) Evictable() bool {
	return len(c.loaders) == 0
}

// MeshHandle возвращает меш рендера, если он есть
func (c *Chunk) MeshHandle() (MeshHandle, bool) {
	return c.mesh, c.mesh != 0
}

// Dirty – есть несохранённые изменения
func (c *Chunk) Dirty() bool {
	return c.dirty
}

// MarkClean снимает признак несохранённых изменений
func (c *Chunk) MarkClean() {
	c.dirty = false
}

// NeedsRemesh – меш устарел
func (c *Chunk) NeedsRemesh() bool {
	return c.needsRemesh
}

// MarkRemesh помечает меш устаревшим (например, после правки соседа на общей грани)
func (c *Chunk) MarkRemesh() {
	c.needsRemesh = true
}

// LoadedAt время успешной загрузки
func (c *Chunk) LoadedAt() time.Time {
	return c.loadedAt
}
