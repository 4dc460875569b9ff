package world

import "fmt"

// ChunkState состояние жизненного цикла чанка
type ChunkState uint8

const (
	// StateUnloaded чанк не зарегистрирован в менеджере
	StateUnloaded ChunkState = iota
	// StateCPUEmpty память выделена, содержимое ещё не сгенерировано
	StateCPUEmpty
	// StateCPULoading источник заполняет чанк
	StateCPULoading
	// StateCPUOnly чанк симулируется, но не рисуется
	StateCPUOnly
	// StateCPUGPU чанк дополнительно владеет мешем на стороне рендера
	StateCPUGPU
)

// String возвращает строковое представление состояния
func (s ChunkState) String() string {
	switch s {
	case StateUnloaded:
		return "UNLOADED"
	case StateCPUEmpty:
		return "CPU_EMPTY"
	case StateCPULoading:
		return "CPU_LOADING"
	case StateCPUOnly:
		return "CPU_ONLY"
	case StateCPUGPU:
		return "CPU_GPU"
	default:
		return fmt.Sprintf("ChunkState(%d)", uint8(s))
	}
}

// CPU истинно для CPU_EMPTY, CPU_LOADING и CPU_ONLY
func (s ChunkState) CPU() bool {
	return s == StateCPUEmpty || s == StateCPULoading || s == StateCPUOnly
}

// GPU истинно только для CPU_GPU
func (s ChunkState) GPU() bool {
	return s == StateCPUGPU
}

// Resident истинно, если содержимое чанка сгенерировано и доступно соседям
func (s ChunkState) Resident() bool {
	return s == StateCPUOnly || s == StateCPUGPU
}

// allStates все состояния в порядке объявления (для метрик)
var allStates = [...]ChunkState{StateUnloaded, StateCPUEmpty, StateCPULoading, StateCPUOnly, StateCPUGPU}

// transitions таблица разрешённых переходов
var transitions = map[ChunkState][]ChunkState{
	StateUnloaded:   {StateCPUEmpty},
	StateCPUEmpty:   {StateCPULoading, StateUnloaded},
	StateCPULoading: {StateCPUOnly, StateCPUGPU, StateCPUEmpty},
	StateCPUOnly:    {StateCPUGPU, StateCPUEmpty},
	StateCPUGPU:     {StateCPUOnly},
}

// CanTransition проверяет, допустим ли переход from → to.
// Переход в то же состояние всегда допустим и ничего не меняет.
func CanTransition(from, to ChunkState) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
