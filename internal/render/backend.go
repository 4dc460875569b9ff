// Package render описывает границу с рендером и содержит безголовую
// реализацию, которая хранит геометрию в памяти (сервер, тесты, отладка).
package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrUnknownMesh освобождение несуществующего меша
var ErrUnknownMesh = errors.New("неизвестный дескриптор меша")

// Backend рендер, принимающий меши видимых чанков
type Backend interface {
	world.MeshReleaser
	Upload(pos world.ChunkPosition, m *mesh.Mesh, model mgl32.Mat4) (world.MeshHandle, error)
}

// Upload загруженный меш
type Upload struct {
	Handle   world.MeshHandle
	Position world.ChunkPosition
	Model    mgl32.Mat4
	Geometry mesh.Geometry
	Faces    int
}

// Headless рендер без GPU: строит геометрию и держит её до освобождения
type Headless struct {
	mu      sync.RWMutex
	next    world.MeshHandle
	uploads map[world.MeshHandle]*Upload

	totalUploaded int
}

// NewHeadless создаёт безголовый рендер
func NewHeadless() *Headless {
	return &Headless{uploads: make(map[world.MeshHandle]*Upload)}
}

// Upload строит вершинный и индексный буферы и выдаёт дескриптор
func (h *Headless) Upload(pos world.ChunkPosition, m *mesh.Mesh, model mgl32.Mat4) (world.MeshHandle, error) {
	if m == nil {
		return 0, fmt.Errorf("%s: пустой меш", pos)
	}
	geometry := mesh.BuildGeometry(m)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.uploads[h.next] = &Upload{
		Handle:   h.next,
		Position: pos,
		Model:    model,
		Geometry: geometry,
		Faces:    m.Len(),
	}
	h.totalUploaded++
	return h.next, nil
}

// DestroyMesh освобождает меш
func (h *Headless) DestroyMesh(handle world.MeshHandle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.uploads[handle]; !ok {
		return fmt.Errorf("%d: %w", handle, ErrUnknownMesh)
	}
	delete(h.uploads, handle)
	return nil
}

// Live количество живых мешей
func (h *Headless) Live() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.uploads)
}

// Get возвращает загруженный меш
func (h *Headless) Get(handle world.MeshHandle) (*Upload, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	u, ok := h.uploads[handle]
	return u, ok
}

// TotalUploaded сколько мешей загружено за всё время
func (h *Headless) TotalUploaded() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalUploaded
}

// VisibleFaces сумма граней всех живых мешей
func (h *Headless) VisibleFaces() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, u := range h.uploads {
		total += u.Faces
	}
	return total
}
