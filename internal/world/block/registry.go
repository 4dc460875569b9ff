package block

import (
	"fmt"
	"sort"
	"sync"
)

// BlockID представляет идентификатор блока
type BlockID uint16

// Константы ID блоков
const (
	// Базовые типы блоков
	AirBlockID   BlockID = iota // 0
	StoneBlockID                // 1
	GrassBlockID                // 2
	WaterBlockID                // 3
	SandBlockID                 // 4
	DirtBlockID                 // 5

	// Каменные породы для покраски подземелий (начиная с 10)
	GraniteBlockID   BlockID = 10
	DioriteBlockID   BlockID = 11
	AndesiteBlockID  BlockID = 12
	TuffBlockID      BlockID = 13
	DeepslateBlockID BlockID = 14
	CalciteBlockID   BlockID = 15

	// Декоративные блоки (начиная с 100)
	GlassBlockID BlockID = 100
)

var (
	registryMu sync.Mutex
	registry   = make(map[BlockID]Definition)

	defaultOnce  sync.Once
	defaultTable *Table
)

// Register добавляет описание блока в регистр.
// Вызывается из init() пакета implementations до первого обращения к Default().
// Регистрация после заморозки таблицы или повторный ID – ошибка программиста.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if defaultTable != nil {
		panic(fmt.Sprintf("block: регистрация %q после заморозки таблицы", def.Name))
	}
	if _, exists := registry[def.ID]; exists {
		panic(fmt.Sprintf("block: ID %d зарегистрирован повторно", def.ID))
	}
	registry[def.ID] = def
}

// Default возвращает процессную таблицу описаний блоков.
// Первый вызов замораживает регистр: дальнейшие Register запрещены.
func Default() *Table {
	defaultOnce.Do(func() {
		registryMu.Lock()
		defer registryMu.Unlock()

		defs := make([]Definition, 0, len(registry))
		for _, def := range registry {
			defs = append(defs, def)
		}
		table, err := NewTable(defs...)
		if err != nil {
			panic(fmt.Sprintf("block: некорректный регистр: %v", err))
		}
		defaultTable = table
	})
	return defaultTable
}

// Table неизменяемая таблица описаний блоков.
// Чанки держат на её элементы неуправляемые указатели.
type Table struct {
	defs    map[BlockID]*Definition
	ordered []*Definition
}

// NewTable строит таблицу из набора описаний. Воздух обязателен.
func NewTable(defs ...Definition) (*Table, error) {
	t := &Table{
		defs:    make(map[BlockID]*Definition, len(defs)),
		ordered: make([]*Definition, 0, len(defs)),
	}

	for i := range defs {
		def := defs[i]
		if _, exists := t.defs[def.ID]; exists {
			return nil, fmt.Errorf("повторный ID блока %d (%s)", def.ID, def.Name)
		}
		t.defs[def.ID] = &def
		t.ordered = append(t.ordered, &def)
	}

	air, ok := t.defs[AirBlockID]
	if !ok {
		return nil, fmt.Errorf("в таблице нет воздуха (ID %d)", AirBlockID)
	}
	if !air.Transparent() {
		return nil, fmt.Errorf("воздух должен быть прозрачным")
	}

	sort.Slice(t.ordered, func(i, j int) bool { return t.ordered[i].ID < t.ordered[j].ID })
	return t, nil
}

// Get возвращает описание для указанного ID
func (t *Table) Get(id BlockID) (*Definition, bool) {
	def, exists := t.defs[id]
	return def, exists
}

// IsValidBlockID проверяет, является ли ID допустимым идентификатором блока
func (t *Table) IsValidBlockID(id BlockID) bool {
	_, exists := t.defs[id]
	return exists
}

// Air возвращает описание воздуха
func (t *Table) Air() *Definition {
	return t.defs[AirBlockID]
}

// All возвращает описания в порядке возрастания ID
func (t *Table) All() []*Definition {
	out := make([]*Definition, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// ByName ищет описание по имени (для конфигурации материалов)
func (t *Table) ByName(name string) (*Definition, bool) {
	for _, def := range t.ordered {
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}
