package app

import (
	"context"
	"sort"
	"time"

	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/google/uuid"
)

// ChunkSummary краткое состояние чанка
type ChunkSummary struct {
	Position world.ChunkPosition `json:"position"`
	State    string              `json:"state"`
	Loaders  int                 `json:"loaders"`
	Meshed   bool                `json:"meshed"`
	Faces    int                 `json:"faces"`
}

// ChunkDetails подробное состояние чанка
type ChunkDetails struct {
	ChunkSummary
	Solid     int            `json:"solid"`
	Dirty     bool           `json:"dirty"`
	LoadedAt  time.Time      `json:"loaded_at"`
	Materials map[string]int `json:"materials"`
}

// Snapshot неизменяемый снимок мира, публикуемый после каждого тика
type Snapshot struct {
	Tick     uint64                 `json:"tick"`
	Time     time.Time              `json:"time"`
	Budget   int                    `json:"budget"`
	States   map[string]int         `json:"states"`
	Chunks   []ChunkSummary         `json:"chunks"`
	Loaders  map[uuid.UUID]vec.Vec3 `json:"loaders"`
	Meshes   int                    `json:"meshes"`
	Faces    int                    `json:"faces"`
	Resident int                    `json:"resident"`
}

// Snapshot возвращает последний опубликованный снимок. Безопасен из любой горутины.
func (w *World) Snapshot() *Snapshot {
	return w.snapshot.Load()
}

// publish строит и публикует снимок текущего состояния
func (w *World) publish() {
	snap := &Snapshot{
		Tick:    w.tick,
		Time:    time.Now(),
		Budget:  w.manager.Budget(),
		States:  make(map[string]int),
		Loaders: make(map[uuid.UUID]vec.Vec3, len(w.loaders)),
	}

	for state, n := range w.manager.Stats() {
		snap.States[state.String()] = n
	}
	for _, c := range w.manager.Chunks() {
		summary := w.summarize(c)
		if summary.Meshed {
			snap.Meshes++
			snap.Faces += summary.Faces
		}
		snap.Chunks = append(snap.Chunks, summary)
	}
	for id, l := range w.loaders {
		snap.Loaders[id] = l.pos
	}
	snap.Resident = len(snap.Chunks)

	w.snapshot.Store(snap)
}

func (w *World) summarize(c *world.Chunk) ChunkSummary {
	_, meshed := c.MeshHandle()
	return ChunkSummary{
		Position: c.Position(),
		State:    c.State().String(),
		Loaders:  c.LoaderCount(),
		Meshed:   meshed,
		Faces:    w.faces[c.Position()],
	}
}

// loaderIDs идентификаторы сущностей в стабильном порядке
func (w *World) loaderIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(w.loaders))
	for id := range w.loaders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// restoreLoaders поднимает сохранённые позиции сущностей
func (w *World) restoreLoaders(ctx context.Context) error {
	if w.repo == nil {
		return nil
	}

	positions, err := w.repo.All(ctx)
	if err != nil {
		return err
	}
	for id, pos := range positions {
		w.placeLoader(id, pos)
	}
	if len(positions) > 0 {
		w.logger.Info("♻️ Восстановлено сущностей: %d", len(positions))
	}
	return nil
}

// saveLoaders сохраняет позиции всех сущностей одной партией
func (w *World) saveLoaders(ctx context.Context) {
	if w.repo == nil || len(w.loaders) == 0 {
		return
	}

	positions := make(map[uuid.UUID]vec.Vec3, len(w.loaders))
	for id, l := range w.loaders {
		positions[id] = l.pos
	}
	if err := w.repo.BatchSave(ctx, positions); err != nil {
		w.logger.Error("❌ Автосохранение сущностей: %v", err)
		return
	}
	w.logger.Debug("💾 Сохранено позиций сущностей: %d", len(positions))
}
