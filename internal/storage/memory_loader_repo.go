package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/google/uuid"
)

var errNilLoaderID = errors.New("недействительный идентификатор сущности: uuid.Nil")

// MemoryLoaderRepo реализует LoaderRepo в памяти.
// Используется, когда внешняя БД не настроена, и в тестах.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryLoaderRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]vec.Vec3
}

// NewMemoryLoaderRepo создает новый репозиторий позиций в памяти
func NewMemoryLoaderRepo() *MemoryLoaderRepo {
	return &MemoryLoaderRepo{
		data: make(map[uuid.UUID]vec.Vec3),
	}
}

// Save сохраняет позицию сущности в памяти
func (r *MemoryLoaderRepo) Save(ctx context.Context, id uuid.UUID, pos vec.Vec3) error {
	if err := validateLoaderID(id); err != nil {
		return err
	}

	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[id] = pos
	return nil
}

// Load загружает позицию сущности из памяти
func (r *MemoryLoaderRepo) Load(ctx context.Context, id uuid.UUID) (vec.Vec3, bool, error) {
	if err := validateLoaderID(id); err != nil {
		return vec.Vec3{}, false, err
	}

	select {
	case <-ctx.Done():
		return vec.Vec3{}, false, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, exists := r.data[id]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию
func (r *MemoryLoaderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := validateLoaderID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[id]; !exists {
		return fmt.Errorf("позиция сущности %s не найдена", id)
	}

	delete(r.data, id)
	return nil
}

// BatchSave сохраняет позиции нескольких сущностей
func (r *MemoryLoaderRepo) BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3) error {
	if len(positions) == 0 {
		return nil // Нечего сохранять
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Валидация всех записей перед сохранением
	for id := range positions {
		if err := validateLoaderID(id); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, pos := range positions {
		r.data[id] = pos
	}
	return nil
}

// All возвращает копию всех сохраненных позиций
func (r *MemoryLoaderRepo) All(ctx context.Context) (map[uuid.UUID]vec.Vec3, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uuid.UUID]vec.Vec3, len(r.data))
	for id, pos := range r.data {
		result[id] = pos
	}
	return result, nil
}

// Count возвращает количество сохраненных позиций
func (r *MemoryLoaderRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryLoaderRepo) Close() error {
	return nil
}
