package world

import (
	"context"
	"errors"

	"github.com/annel0/voxel-engine/internal/world/block"
)

// ErrChunkNotStored чанк отсутствует в хранилище
var ErrChunkNotStored = errors.New("чанк не найден в хранилище")

// ChunkStore сохранение и восстановление содержимого чанков.
// Материалы передаются в порядке линейного индекса блоков.
type ChunkStore interface {
	LoadChunk(ctx context.Context, pos ChunkPosition) ([]block.BlockID, error)
	SaveChunk(ctx context.Context, pos ChunkPosition, materials []block.BlockID) error
	Close() error
}
