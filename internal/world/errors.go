package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-engine/internal/logging"
)

// Ошибки менеджера и источников чанков
var (
	ErrChunkBudget          = errors.New("превышен бюджет резидентных чанков")
	ErrIllegalTransition    = errors.New("недопустимый переход состояния чанка")
	ErrNilSource            = errors.New("источник чанков не задан")
	ErrNilChunk             = errors.New("передан nil вместо чанка")
	ErrSourceNotImplemented = errors.New("источник чанков не реализован")
	ErrNotResident          = errors.New("чанк не загружен")
	ErrGenerationAborted    = errors.New("генерация чанка прервана")
)

// InvariantError нарушение инварианта пространственного индекса.
// Продолжать работу после него нельзя: менеджер логирует ошибку и паникует.
type InvariantError struct {
	Position  ChunkPosition
	Invariant string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("нарушен инвариант для %s: %s", e.Position, e.Invariant)
}

// violate логирует нарушение инварианта и завершает работу паникой
func violate(pos ChunkPosition, format string, args ...interface{}) {
	err := &InvariantError{Position: pos, Invariant: fmt.Sprintf(format, args...)}
	logging.Error("💥 %v", err)
	panic(err)
}
