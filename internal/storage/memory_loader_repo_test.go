package storage

import (
	"context"
	"testing"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/google/uuid"
)

var (
	_ LoaderRepo = (*MemoryLoaderRepo)(nil)
	_ LoaderRepo = (*SQLLoaderRepo)(nil)
	_ LoaderRepo = (*RedisLoaderRepo)(nil)
)

func TestMemoryLoaderRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryLoaderRepo()
	defer repo.Close()

	id := uuid.New()
	pos := vec.Vec3{X: 100, Y: -20, Z: 7}

	t.Run("SaveAndLoad", func(t *testing.T) {
		if err := repo.Save(ctx, id, pos); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
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

	t.Run("BatchSave", func(t *testing.T) {
		batch := map[uuid.UUID]vec.Vec3{
			uuid.New(): {X: 1},
			uuid.New(): {Y: 2},
			id:         {Z: 3},
		}
		if err := repo.BatchSave(ctx, batch); err != nil {
			t.Fatalf("Ошибка batch сохранения: %v", err)
		}
		if repo.Count() != 3 {
			t.Fatalf("Ожидалось 3 позиции, получено %d", repo.Count())
		}

		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("Ошибка чтения: %v", err)
		}
		for loaderID, want := range batch {
			if all[loaderID] != want {
				t.Fatalf("%s: ожидалось %v, получено %v", loaderID, want, all[loaderID])
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.Delete(ctx, id); err != nil {
			t.Fatalf("Ошибка удаления: %v", err)
		}
		if err := repo.Delete(ctx, id); err == nil {
			t.Fatal("Повторное удаление должно завершаться ошибкой")
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := repo.Save(cctx, uuid.New(), pos); err == nil {
			t.Fatal("Ожидалась ошибка отменённого контекста")
		}
	})
}
