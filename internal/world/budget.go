package world

import (
	"unsafe"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/shirou/gopsutil/v3/mem"
)

// ChunkMemoryFootprint примерный размер одного чанка в байтах
const ChunkMemoryFootprint = int(unsafe.Sizeof(Chunk{}))

// Пределы бюджета по умолчанию
const (
	fallbackChunkBudget = 4096
	minChunkBudget      = 64
	maxChunkBudget      = 1 << 16 // ~5 ГБ чанков; дальше упирается в тик, а не в память
	memoryShare         = 0.25 // доля доступной памяти под чанки
)

// DefaultChunkBudget оценивает, сколько чанков можно держать в памяти:
// четверть доступной памяти, делённая на размер чанка, в пределах
// [minChunkBudget, maxChunkBudget]
func DefaultChunkBudget() int {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logging.Warn("⚠️ Не удалось получить сведения о памяти, бюджет чанков %d: %v", fallbackChunkBudget, err)
		return fallbackChunkBudget
	}
	return budgetFor(vm.Available)
}

func budgetFor(available uint64) int {
	n := int(float64(available) * memoryShare / float64(ChunkMemoryFootprint))
	switch {
	case n < minChunkBudget:
		return minChunkBudget
	case n > maxChunkBudget:
		return maxChunkBudget
	}
	return n
}
