package eventbus

import (
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/google/uuid"
)

// ChunkEvent загрузка, выгрузка или ошибка загрузки чанка
type ChunkEvent struct {
	Position world.ChunkPosition `json:"position"`
	Reason   string              `json:"reason,omitempty"`
}

// BlockChanged правка блока
type BlockChanged struct {
	Position vec.Vec3 `json:"position"`
	Block    uint16   `json:"block"`
	Name     string   `json:"name"`
}

// LoaderEvent перемещение или удаление сущности
type LoaderEvent struct {
	ID       uuid.UUID `json:"id"`
	Position vec.Vec3  `json:"position"`
}
