package storage

import (
	"context"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/google/uuid"
)

// LoaderRepo сохраняет мировые позиции загружающих сущностей,
// чтобы после перезапуска снова держать вокруг них те же чанки.
type LoaderRepo interface {
	// Save сохраняет позицию сущности (в блоках)
	Save(ctx context.Context, id uuid.UUID, pos vec.Vec3) error

	// Load загружает позицию; false – сущность неизвестна
	Load(ctx context.Context, id uuid.UUID) (vec.Vec3, bool, error)

	// Delete удаляет сохранённую позицию
	Delete(ctx context.Context, id uuid.UUID) error

	// BatchSave сохраняет позиции нескольких сущностей (для автосохранения)
	BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3) error

	// All возвращает все сохранённые позиции
	All(ctx context.Context) (map[uuid.UUID]vec.Vec3, error)

	Close() error
}

// validateLoaderID проверяет идентификатор сущности
func validateLoaderID(id uuid.UUID) error {
	if id == uuid.Nil {
		return errNilLoaderID
	}
	return nil
}
