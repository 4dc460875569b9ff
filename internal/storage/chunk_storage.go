package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/dgraph-io/badger/v3"
)

// ChunkStorage хранилище снимков чанков в BadgerDB.
// Реализует world.ChunkStore.
type ChunkStorage struct {
	db      *badger.DB
	dbPath  string
	codec   *Codec
	logger  *logging.Logger
	mutex   sync.RWMutex
	isReady bool
}

// NewChunkStorage открывает хранилище в каталоге dataPath/chunks
func NewChunkStorage(dataPath string, compressionLevel int) (*ChunkStorage, error) {
	dbPath := filepath.Join(dataPath, "chunks")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	return openChunkStorage(opts, dbPath, compressionLevel)
}

// NewInMemoryChunkStorage открывает BadgerDB без диска (для тестов и отладки)
func NewInMemoryChunkStorage(compressionLevel int) (*ChunkStorage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openChunkStorage(opts, ":memory:", compressionLevel)
}

func openChunkStorage(opts badger.Options, dbPath string, compressionLevel int) (*ChunkStorage, error) {
	codec, err := NewCodec(compressionLevel)
	if err != nil {
		return nil, err
	}

	db, err := badger.Open(opts)
	if err != nil {
		codec.Close()
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	logger := logging.GetStorageLogger()
	logger.Info("💾 Хранилище чанков открыто: %s", dbPath)

	return &ChunkStorage{
		db:      db,
		dbPath:  dbPath,
		codec:   codec,
		logger:  logger,
		isReady: true,
	}, nil
}

// chunkKey ключ чанка в BadgerDB
func chunkKey(pos world.ChunkPosition) []byte {
	return []byte(fmt.Sprintf("chunk:%d:%d:%d", pos.X, pos.Y, pos.Z))
}

// Close закрывает хранилище данных
func (cs *ChunkStorage) Close() error {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if !cs.isReady {
		return nil
	}

	cs.isReady = false
	cs.codec.Close()
	return cs.db.Close()
}

// SaveChunk сохраняет снимок материалов чанка
func (cs *ChunkStorage) SaveChunk(ctx context.Context, pos world.ChunkPosition, materials []block.BlockID) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := cs.codec.Encode(materials)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", pos, err)
	}

	err = cs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(pos), data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	cs.logger.Debug("💾 %s сохранён (%d байт)", pos, len(data))
	return nil
}

// LoadChunk загружает снимок чанка. Отсутствующий чанк – world.ErrChunkNotStored.
func (cs *ChunkStorage) LoadChunk(ctx context.Context, pos world.ChunkPosition) ([]block.BlockID, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte

	// Читаем данные из BadgerDB
	err := cs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(pos))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, world.ErrChunkNotStored
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	materials, err := cs.codec.Decode(data)
	if err != nil {
		cs.logger.Error("❌ Повреждённый снимок %s: %v", pos, err)
		cs.logger.Debug("%s", logging.HexDump(data))
		return nil, err
	}
	return materials, nil
}

// DeleteChunk удаляет снимок чанка
func (cs *ChunkStorage) DeleteChunk(ctx context.Context, pos world.ChunkPosition) error {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return cs.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(pos))
	})
}

// Count количество сохранённых чанков
func (cs *ChunkStorage) Count() (int, error) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	if !cs.isReady {
		return 0, fmt.Errorf("хранилище не готово")
	}

	count := 0
	err := cs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("chunk:")

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
