package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/annel0/voxel-engine/internal/util"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/dgraph-io/badger/v3"
)

// Проверка соответствия интерфейсу на этапе компиляции
var _ world.ChunkStore = (*ChunkStorage)(nil)

func newTestStorage(t *testing.T) *ChunkStorage {
	t.Helper()
	cs, err := NewInMemoryChunkStorage(1)
	if err != nil {
		t.Fatalf("Не удалось открыть хранилище: %v", err)
	}
	return cs
}

// writeRaw записывает произвольные байты под ключ чанка
func writeRaw(cs *ChunkStorage, pos world.ChunkPosition, data []byte) error {
	return cs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(pos), data)
	})
}

func TestChunkStorage(t *testing.T) {
	ctx := context.Background()
	cs := newTestStorage(t)
	defer cs.Close()

	pos := world.ChunkPosition{X: -2, Y: 5, Z: 9}

	t.Run("Missing", func(t *testing.T) {
		_, err := cs.LoadChunk(ctx, pos)
		if !errors.Is(err, world.ErrChunkNotStored) {
			t.Fatalf("Ожидалась ErrChunkNotStored, получено: %v", err)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		materials := sampleMaterials()
		if err := cs.SaveChunk(ctx, pos, materials); err != nil {
			t.Fatalf("Ошибка сохранения: %v", err)
		}

		loaded, err := cs.LoadChunk(ctx, pos)
		if err != nil {
			t.Fatalf("Ошибка загрузки: %v", err)
		}
		for i := range materials {
			if loaded[i] != materials[i] {
				t.Fatalf("Блок %d: ожидалось %d, получено %d", i, materials[i], loaded[i])
			}
		}

		count, err := cs.Count()
		if err != nil || count != 1 {
			t.Fatalf("Ожидался 1 чанк, получено %d (%v)", count, err)
		}
	})

	t.Run("Corrupt", func(t *testing.T) {
		bad := world.ChunkPosition{X: 1}
		if err := writeRaw(cs, bad, []byte{0xde, 0xad, 0xbe, 0xef}); err != nil {
			t.Fatalf("Ошибка записи: %v", err)
		}
		_, err := cs.LoadChunk(ctx, bad)
		if err == nil || errors.Is(err, world.ErrChunkNotStored) {
			t.Fatalf("Ожидалась ошибка декодирования, получено: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := cs.DeleteChunk(ctx, pos); err != nil {
			t.Fatalf("Ошибка удаления: %v", err)
		}
		if _, err := cs.LoadChunk(ctx, pos); !errors.Is(err, world.ErrChunkNotStored) {
			t.Fatalf("Чанк должен быть удалён, получено: %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := cs.SaveChunk(cctx, pos, sampleMaterials()); !errors.Is(err, context.Canceled) {
			t.Fatalf("Ожидалась context.Canceled, получено: %v", err)
		}
	})
}

func TestChunkStorageClosed(t *testing.T) {
	cs := newTestStorage(t)
	if err := cs.Close(); err != nil {
		t.Fatalf("Ошибка закрытия: %v", err)
	}
	// Повторное закрытие безопасно
	if err := cs.Close(); err != nil {
		t.Fatalf("Повторное закрытие: %v", err)
	}
	if err := cs.SaveChunk(context.Background(), world.ChunkPosition{}, sampleMaterials()); err == nil {
		t.Fatal("Сохранение в закрытое хранилище должно завершаться ошибкой")
	}
}

func TestChunkStorageOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	pos := world.ChunkPosition{X: 3, Y: -1, Z: 0}

	cs, err := NewChunkStorage(dir, 2)
	if err != nil {
		t.Fatalf("Не удалось открыть хранилище: %v", err)
	}
	if err := cs.SaveChunk(ctx, pos, sampleMaterials()); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}
	if err := cs.Close(); err != nil {
		t.Fatalf("Ошибка закрытия: %v", err)
	}

	// После переоткрытия снимок на месте
	cs, err = NewChunkStorage(dir, 2)
	if err != nil {
		t.Fatalf("Не удалось переоткрыть хранилище: %v", err)
	}
	defer cs.Close()

	loaded, err := cs.LoadChunk(ctx, pos)
	if err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}
	if loaded[5] != block.GraniteBlockID {
		t.Fatalf("Ожидался гранит, получено %d", loaded[5])
	}
}

// Изменённый чанк сохраняется при выгрузке и восстанавливается вместо генерации
func TestLocalSourcePersistsEdits(t *testing.T) {
	ctx := context.Background()
	table := block.Default()
	cs := newTestStorage(t)

	cfg := world.DefaultGeneratorConfig()
	cfg.CarveThreshold = 2
	cfg.Materials = []world.MaterialWeight{{ID: block.StoneBlockID, Weight: 1}}
	gen, err := world.NewGenerator(util.NewNoiseContext(42), table, cfg)
	if err != nil {
		t.Fatalf("Ошибка создания генератора: %v", err)
	}
	source, err := world.NewLocalSource(gen, cs, nil)
	if err != nil {
		t.Fatalf("Ошибка создания источника: %v", err)
	}
	manager, err := world.NewManager(world.ManagerOptions{Table: table, Source: source, MaxResident: 16})
	if err != nil {
		t.Fatalf("Ошибка создания менеджера: %v", err)
	}

	pos := world.ChunkPosition{X: 1, Y: 2, Z: 3}
	load := func() *world.Chunk {
		created, _, err := manager.Acquire([]world.ChunkPosition{pos})
		if err != nil {
			t.Fatalf("Ошибка Acquire: %v", err)
		}
		report, err := manager.PopulateNew(ctx, created)
		if err != nil || len(report.Loaded) != 1 {
			t.Fatalf("Чанк не загружен: %+v (%v)", report, err)
		}
		c, _ := manager.Get(pos)
		return c
	}

	c := load()
	air, _ := table.Get(block.AirBlockID)
	c.SetBlock(4, 4, 4, air)
	if !c.Dirty() {
		t.Fatal("Чанк должен быть помечен изменённым")
	}

	if _, err := manager.Unload(ctx, []world.ChunkPosition{pos}); err != nil {
		t.Fatalf("Ошибка выгрузки: %v", err)
	}
	if count, _ := cs.Count(); count != 1 {
		t.Fatalf("Ожидался 1 сохранённый чанк, получено %d", count)
	}

	c = load()
	if got := c.Block(4, 4, 4).ID; got != block.AirBlockID {
		t.Fatalf("Правка потеряна: блок %d", got)
	}
	if got := c.Block(4, 5, 4).ID; got != block.StoneBlockID {
		t.Fatalf("Ожидался камень, получено %d", got)
	}
	if c.Dirty() {
		t.Fatal("Восстановленный чанк не должен считаться изменённым")
	}

	if err := manager.Close(ctx); err != nil {
		t.Fatalf("Ошибка закрытия менеджера: %v", err)
	}
}
