package world

// MeshHandle идентификатор меша на стороне рендера. Нулевое значение – меша нет.
// Чанк только хранит ссылку, владеет мешем рендер.
type MeshHandle uint64

// MeshReleaser обратная связь от рендера: освобождение меша.
// Должен вызываться до уничтожения чанка в состоянии CPU_GPU.
type MeshReleaser interface {
	DestroyMesh(handle MeshHandle) error
}
