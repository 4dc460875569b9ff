package world

import (
	"context"
	"fmt"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func worldLogger() *logging.Logger {
	return logging.GetWorldLogger()
}

// ManagerOptions зависимости менеджера чанков
type ManagerOptions struct {
	Table    *block.Table
	Source   ChunkSource
	Releaser MeshReleaser // нужен, если чанки получают меши
	Metrics  *Metrics     // может быть nil

	// MaxResident предел резидентных чанков; 0 – оценка по свободной памяти
	MaxResident int
}

// PopulateReport итог заполнения партии: какие чанки загружены, какие выброшены
type PopulateReport struct {
	Loaded []ChunkPosition
	Failed []ChunkPosition
}

// Manager единственный владелец памяти чанков.
//
// Чанки хранятся в карте по позиции; соседи не хранятся ссылками, а каждый раз
// ищутся по вычисленной позиции. Менеджер не потокобезопасен: все вызовы
// выполняются из горутины тика мира.
type Manager struct {
	table    *block.Table
	source   ChunkSource
	releaser MeshReleaser
	metrics  *Metrics
	budget   int

	chunks map[ChunkPosition]*Chunk
	tracer trace.Tracer
}

// NewManager создаёт менеджер чанков
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.Table == nil {
		return nil, fmt.Errorf("менеджеру нужна таблица блоков")
	}

	budget := opts.MaxResident
	if budget <= 0 {
		budget = DefaultChunkBudget()
	}

	m := &Manager{
		table:    opts.Table,
		source:   opts.Source,
		releaser: opts.Releaser,
		metrics:  opts.Metrics,
		budget:   budget,
		chunks:   make(map[ChunkPosition]*Chunk),
		tracer:   otel.Tracer("voxel-engine/world"),
	}
	if m.metrics != nil {
		m.metrics.setBudget(budget)
	}

	worldLogger().Info("🧱 Менеджер чанков создан (бюджет: %d чанков, ~%d КБ на чанк)", budget, ChunkMemoryFootprint/1024)
	return m, nil
}

// Budget возвращает предел резидентных чанков
func (m *Manager) Budget() int {
	return m.budget
}

// Len количество зарегистрированных чанков
func (m *Manager) Len() int {
	return len(m.chunks)
}

// Get возвращает чанк по позиции
func (m *Manager) Get(pos ChunkPosition) (*Chunk, bool) {
	c, ok := m.chunks[pos]
	return c, ok
}

// Resident возвращает позиции всех зарегистрированных чанков в детерминированном порядке
func (m *Manager) Resident() []ChunkPosition {
	positions := make([]ChunkPosition, 0, len(m.chunks))
	for pos := range m.chunks {
		positions = append(positions, pos)
	}
	SortPositions(positions)
	return positions
}

// Chunks возвращает все чанки в порядке Resident
func (m *Manager) Chunks() []*Chunk {
	positions := m.Resident()
	chunks := make([]*Chunk, len(positions))
	for i, pos := range positions {
		chunks[i] = m.chunks[pos]
	}
	return chunks
}

// Stats количество чанков по состояниям
func (m *Manager) Stats() map[ChunkState]int {
	counts := make(map[ChunkState]int, len(allStates))
	for _, c := range m.chunks {
		counts[c.state]++
	}
	return counts
}

// Register добавляет несгенерированный чанк. Повторная регистрация позиции –
// нарушение инварианта.
func (m *Manager) Register(c *Chunk) {
	if _, exists := m.chunks[c.pos]; exists {
		violate(c.pos, "позиция зарегистрирована повторно")
	}
	if err := c.SetState(StateCPUEmpty); err != nil {
		violate(c.pos, "регистрация чанка в состоянии %s", c.state)
	}
	m.chunks[c.pos] = c
}

// Acquire делит запрошенные позиции на уже загруженные и новые.
// Новые чанки выделяются и сразу регистрируются. Если бюджет исчерпан
// посреди партии, все новые чанки этой партии откатываются и вызов
// возвращает ErrChunkBudget. Повторы позиций в одном запросе схлопываются.
func (m *Manager) Acquire(positions []ChunkPosition) (newChunks, existing []*Chunk, err error) {
	seen := make(map[ChunkPosition]struct{}, len(positions))

	for _, pos := range positions {
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}

		if c, ok := m.chunks[pos]; ok {
			existing = append(existing, c)
			continue
		}

		if len(m.chunks) >= m.budget {
			m.rollback(newChunks)
			return nil, nil, fmt.Errorf("выделение %s (резидентных: %d): %w", pos, len(m.chunks), ErrChunkBudget)
		}

		c := NewChunk(pos, m.table)
		m.Register(c)
		newChunks = append(newChunks, c)
	}

	m.updateResident()
	return newChunks, existing, nil
}

// rollback снимает с регистрации и уничтожает чанки неудавшейся партии
func (m *Manager) rollback(chunks []*Chunk) {
	for _, c := range chunks {
		m.deregister(c.pos)
		m.destroy(c)
	}
	if len(chunks) > 0 {
		worldLogger().Warn("↩️ Откат партии: уничтожено %d новых чанков", len(chunks))
	}
}

// PopulateNew передаёт новые чанки источнику. Чанки, которые источник не смог
// заполнить, снимаются с регистрации и уничтожаются; это не ошибка вызова.
// Ошибка возвращается только при нарушении предусловий или сбое всей партии.
func (m *Manager) PopulateNew(ctx context.Context, chunks []*Chunk) (PopulateReport, error) {
	var report PopulateReport
	if len(chunks) == 0 {
		return report, nil
	}
	if m.source == nil {
		return report, ErrNilSource
	}

	ctx, span := m.tracer.Start(ctx, "world.PopulateNew", trace.WithAttributes(attribute.Int("chunks", len(chunks))))
	defer span.End()

	for _, c := range chunks {
		if c == nil {
			return report, ErrNilChunk
		}
		if registered, ok := m.chunks[c.pos]; !ok || registered != c {
			return report, fmt.Errorf("%s: %w", c.pos, ErrNotResident)
		}
		if c.state != StateCPUEmpty {
			return report, fmt.Errorf("%s в состоянии %s: %w", c.pos, c.state, ErrIllegalTransition)
		}
	}
	for _, c := range chunks {
		if err := c.SetState(StateCPULoading); err != nil {
			return report, err
		}
	}

	failed, err := LoadChunks(ctx, m.source, chunks)
	if err != nil {
		// Сбой всей партии: все чанки выброшены, но это не ошибка вызова
		span.SetStatus(codes.Error, err.Error())
		worldLogger().Warn("⚠️ Источник не заполнил партию из %d чанков: %v", len(chunks), err)
		for _, c := range chunks {
			report.Failed = append(report.Failed, c.pos)
			m.deregister(c.pos)
			m.destroy(c)
		}
		m.afterPopulate(report)
		return report, nil
	}

	failedSet := make(map[*Chunk]struct{}, len(failed))
	for _, c := range failed {
		failedSet[c] = struct{}{}
	}

	for _, c := range chunks {
		if _, bad := failedSet[c]; bad {
			report.Failed = append(report.Failed, c.pos)
			m.deregister(c.pos)
			m.destroy(c)
			continue
		}
		if err := c.SetState(StateCPUOnly); err != nil {
			violate(c.pos, "завершение загрузки: %v", err)
		}
		report.Loaded = append(report.Loaded, c.pos)
	}

	span.SetAttributes(attribute.Int("loaded", len(report.Loaded)), attribute.Int("failed", len(report.Failed)))
	m.afterPopulate(report)
	return report, nil
}

func (m *Manager) afterPopulate(report PopulateReport) {
	if len(report.Failed) > 0 {
		worldLogger().Warn("⚠️ Загружено %d чанков, выброшено %d", len(report.Loaded), len(report.Failed))
	} else {
		worldLogger().Debug("📦 Загружено %d чанков", len(report.Loaded))
	}
	if m.metrics != nil {
		m.metrics.addLoaded(len(report.Loaded))
		m.metrics.addFailed(len(report.Failed))
	}
	m.updateResident()
}

// Neighbors возвращает соседей по шести граням в порядке vec.Direction.
// Отсутствующий сосед – nil, это не ошибка.
func (m *Manager) Neighbors(pos ChunkPosition) [vec.DirectionCount]*Chunk {
	var out [vec.DirectionCount]*Chunk
	for _, d := range vec.Directions {
		out[d] = m.chunks[pos.Offset(d)]
	}
	return out
}

// Neighbor возвращает соседа в одном направлении
func (m *Manager) Neighbor(pos ChunkPosition, d vec.Direction) (*Chunk, bool) {
	c, ok := m.chunks[pos.Offset(d)]
	return c, ok
}

// AddLoader привязывает загружающую сущность к чанку
func (m *Manager) AddLoader(pos ChunkPosition, id uuid.UUID) error {
	c, ok := m.chunks[pos]
	if !ok {
		return fmt.Errorf("%s: %w", pos, ErrNotResident)
	}
	c.AddLoader(id)
	return nil
}

// RemoveLoader отвязывает сущность от всех чанков
func (m *Manager) RemoveLoader(id uuid.UUID) {
	for _, c := range m.chunks {
		c.RemoveLoader(id)
	}
}

// Evictable позиции чанков, которые никто не держит
func (m *Manager) Evictable() []ChunkPosition {
	var positions []ChunkPosition
	for pos, c := range m.chunks {
		if c.Evictable() && c.state != StateCPULoading {
			positions = append(positions, pos)
		}
	}
	SortPositions(positions)
	return positions
}

// Unload выгружает указанные чанки: сначала источник сохраняет их,
// затем они снимаются с регистрации и уничтожаются. Чанки, которые
// держат сущности, пропускаются.
func (m *Manager) Unload(ctx context.Context, positions []ChunkPosition) ([]ChunkPosition, error) {
	var victims []*Chunk
	for _, pos := range positions {
		c, ok := m.chunks[pos]
		if !ok || !c.Evictable() || c.state == StateCPULoading {
			continue
		}
		victims = append(victims, c)
	}
	return m.unload(ctx, victims)
}

func (m *Manager) unload(ctx context.Context, victims []*Chunk) ([]ChunkPosition, error) {
	if len(victims) == 0 {
		return nil, nil
	}

	var saveErr error
	if m.source != nil {
		saveErr = UnloadChunks(ctx, m.source, victims)
	}

	unloaded := make([]ChunkPosition, 0, len(victims))
	for _, c := range victims {
		m.deregister(c.pos)
		m.destroy(c)
		unloaded = append(unloaded, c.pos)
	}

	worldLogger().Debug("🗑️ Выгружено %d чанков", len(unloaded))
	if m.metrics != nil {
		m.metrics.addUnloaded(len(unloaded))
	}
	m.updateResident()
	return unloaded, saveErr
}

// AttachMesh связывает чанк с мешем рендера (CPU_ONLY → CPU_GPU).
// Если у чанка уже был меш, старый освобождается.
func (m *Manager) AttachMesh(pos ChunkPosition, handle MeshHandle) error {
	c, ok := m.chunks[pos]
	if !ok {
		return fmt.Errorf("%s: %w", pos, ErrNotResident)
	}
	if !c.Meshable() {
		return fmt.Errorf("%s в состоянии %s не готов к мешингу: %w", pos, c.state, ErrIllegalTransition)
	}
	if handle == 0 {
		return fmt.Errorf("%s: пустой дескриптор меша", pos)
	}

	if old, has := c.MeshHandle(); has && old != handle {
		if err := m.release(c); err != nil {
			return err
		}
	}
	if err := c.SetState(StateCPUGPU); err != nil {
		return err
	}
	c.mesh = handle
	c.needsRemesh = false
	m.updateResident()
	return nil
}

// DetachMesh освобождает меш чанка (CPU_GPU → CPU_ONLY)
func (m *Manager) DetachMesh(pos ChunkPosition) error {
	c, ok := m.chunks[pos]
	if !ok {
		return fmt.Errorf("%s: %w", pos, ErrNotResident)
	}
	if !c.state.GPU() {
		return nil
	}
	if err := m.release(c); err != nil {
		return err
	}
	if err := c.SetState(StateCPUOnly); err != nil {
		return err
	}
	c.needsRemesh = true
	m.updateResident()
	return nil
}

// release освобождает меш через рендер
func (m *Manager) release(c *Chunk) error {
	if m.releaser == nil {
		return fmt.Errorf("%s: рендер для освобождения меша не задан", c.pos)
	}
	if err := m.releaser.DestroyMesh(c.mesh); err != nil {
		return fmt.Errorf("%s: освобождение меша: %w", c.pos, err)
	}
	c.mesh = 0
	return nil
}

// Tick передаёт шаг времени источнику
func (m *Manager) Tick(dt float64) error {
	if m.source == nil {
		return nil
	}
	return TickSource(m.source, dt)
}

// Close выгружает все чанки (включая удерживаемые) и закрывает источник
func (m *Manager) Close(ctx context.Context) error {
	_, saveErr := m.unload(ctx, m.Chunks())

	if m.source == nil {
		return saveErr
	}
	if err := CloseSource(m.source); err != nil {
		return fmt.Errorf("закрытие источника: %w", err)
	}
	return saveErr
}

func (m *Manager) deregister(pos ChunkPosition) {
	delete(m.chunks, pos)
}

// destroy проводит чанк по цепочке CPU_GPU → CPU_ONLY → CPU_EMPTY → UNLOADED
// и освобождает его память. Меш рендера освобождается первым; если это
// невозможно, процесс завершается: чанк нельзя уничтожить при живой ссылке из рендера.
func (m *Manager) destroy(c *Chunk) {
	switch c.state {
	case StateCPULoading:
		worldLogger().Warn("⚠️ Уничтожение %s во время загрузки", c.pos)
		c.state = StateCPUEmpty
	case StateCPUGPU:
		if err := m.release(c); err != nil {
			violate(c.pos, "уничтожение чанка с живым мешем: %v", err)
		}
		c.state = StateCPUOnly
		fallthrough
	case StateCPUOnly:
		c.state = StateCPUEmpty
	}

	if c.state == StateCPUEmpty {
		c.state = StateUnloaded
	}
	c.loaders = nil
	c.transparencyBuilt = false
	worldLogger().Trace("🗑️ %s уничтожен", c.pos)
}

func (m *Manager) updateResident() {
	if m.metrics != nil {
		m.metrics.setResident(m.Stats())
	}
}
