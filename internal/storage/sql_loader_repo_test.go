package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/google/uuid"
)

func TestSQLiteLoaderRepo(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "loaders.db")

	repo, err := NewSQLiteLoaderRepo(ctx, path)
	if err != nil {
		t.Fatalf("Ошибка открытия SQLite: %v", err)
	}

	id := uuid.New()
	pos := vec.Vec3{X: -5, Y: 64, Z: 300}

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := repo.Save(ctx, id, pos); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}
		// Повторное сохранение обновляет строку
		pos.Y = 65
		if err := repo.Save(ctx, id, pos); err != nil {
			t.Fatalf("Ошибка обновления: %v", err)
		}

		loaded, ok, err := repo.Load(ctx, id)
		if err != nil {
			t.Fatalf("Ошибка загрузки: %v", err)
		}
		if !ok || loaded != pos {
			t.Fatalf("Ожидалось %v, получено %v (найдено: %v)", pos, loaded, ok)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, ok, err := repo.Load(ctx, uuid.New())
		if err != nil || ok {
			t.Fatalf("Неизвестная сущность не должна находиться (ok=%v, err=%v)", ok, err)
		}
	})

	t.Run("NilID", func(t *testing.T) {
		if err := repo.Save(ctx, uuid.Nil, pos); err == nil {
			t.Fatal("Ожидалась ошибка для uuid.Nil")
		}
	})

	other := uuid.New()
	t.Run("BatchSave", func(t *testing.T) {
		batch := map[uuid.UUID]vec.Vec3{
			other: {X: 1, Y: 2, Z: 3},
			id:    pos,
		}
		if err := repo.BatchSave(ctx, batch); err != nil {
			t.Fatalf("Ошибка batch сохранения: %v", err)
		}
		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("Ошибка чтения: %v", err)
		}
		if len(all) != 2 || all[other] != batch[other] {
			t.Fatalf("Неожиданное содержимое: %v", all)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, other); err != nil {
			t.Fatalf("Ошибка удаления: %v", err)
		}
		if err := repo.Delete(ctx, other); err == nil {
			t.Fatal("Повторное удаление должно завершаться ошибкой")
		}
	})

	if err := repo.Close(); err != nil {
		t.Fatalf("Ошибка закрытия: %v", err)
	}

	// Позиции переживают переоткрытие файла
	reopened, err := NewSQLiteLoaderRepo(ctx, path)
	if err != nil {
		t.Fatalf("Ошибка повторного открытия: %v", err)
	}
	defer reopened.Close()

	loaded, ok, err := reopened.Load(ctx, id)
	if err != nil || !ok || loaded != pos {
		t.Fatalf("После переоткрытия ожидалось %v, получено %v (ok=%v, err=%v)", pos, loaded, ok, err)
	}
}

func TestSQLiteLoaderRepoEmptyPath(t *testing.T) {
	if _, err := NewSQLiteLoaderRepo(context.Background(), ""); err == nil {
		t.Fatal("Ожидалась ошибка для пустого пути")
	}
}
