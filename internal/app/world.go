// Package app связывает менеджер чанков, мешинг и рендер в мир с тиком.
//
// Вся работа с чанками идёт в одной горутине Run. Остальные горутины
// (REST API, CLI) обращаются к миру через запросы в канал и читают
// неизменяемый снимок состояния.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-engine/internal/eventbus"
	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/mesh"
	"github.com/annel0/voxel-engine/internal/render"
	"github.com/annel0/voxel-engine/internal/storage"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/annel0/voxel-engine/internal/world"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/annel0/voxel-engine/internal/world/blockpos"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrStopped мир остановлен, запрос не будет выполнен
	ErrStopped = errors.New("мир остановлен")
	// ErrUnknownBlock ID блока нет в таблице
	ErrUnknownBlock = errors.New("неизвестный блок")
	// ErrUnknownLoader сущность не зарегистрирована
	ErrUnknownLoader = errors.New("неизвестная сущность")
)

const (
	requestQueueSize = 256
	maxLoadsPerTick  = 64
	maxMeshesPerTick = 32
)

// Options зависимости мира
type Options struct {
	Manager *world.Manager
	Backend render.Backend
	Loaders storage.LoaderRepo // может быть nil: позиции не сохраняются
	Missing mesh.MissingPolicy
	Metrics *world.Metrics    // может быть nil
	Events  eventbus.EventBus // может быть nil: события не публикуются

	ViewRadius       int           // радиус загрузки вокруг сущности, в чанках
	TickInterval     time.Duration // длительность тика
	AutosaveInterval time.Duration // период сохранения позиций сущностей
}

// request действие, выполняемое в горутине тика
type request struct {
	fn    func() error
	reply chan error
}

// loader загружающая сущность и чанки, которые она держит
type loader struct {
	pos  vec.Vec3
	held map[world.ChunkPosition]struct{}
}

// World мир с тиком: загружает чанки вокруг сущностей, строит и
// освобождает меши, выгружает ненужное.
type World struct {
	manager   *world.Manager
	backend   render.Backend
	extractor *mesh.Extractor
	repo      storage.LoaderRepo
	events    eventbus.EventBus
	logger    *logging.Logger

	radius           int
	tickInterval     time.Duration
	autosaveInterval time.Duration

	requests chan request
	done     chan struct{}
	running  atomic.Bool

	// Принадлежат горутине тика
	loaders      map[uuid.UUID]*loader
	tick         uint64
	lastAutosave time.Time
	faces        map[world.ChunkPosition]int

	snapshot atomic.Pointer[Snapshot]
}

// NewWorld создаёт мир. Запускается вызовом Run.
func NewWorld(opts Options) (*World, error) {
	if opts.Manager == nil {
		return nil, fmt.Errorf("миру нужен менеджер чанков")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("миру нужен рендер")
	}
	if opts.ViewRadius < 0 {
		return nil, fmt.Errorf("отрицательный радиус загрузки: %d", opts.ViewRadius)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}
	if opts.AutosaveInterval <= 0 {
		opts.AutosaveInterval = 30 * time.Second
	}

	w := &World{
		manager: opts.Manager,
		backend: opts.Backend,
		extractor: &mesh.Extractor{
			Resolver: opts.Manager,
			Missing:  opts.Missing,
			Metrics:  opts.Metrics,
		},
		repo:             opts.Loaders,
		events:           opts.Events,
		logger:           logging.GetWorldLogger(),
		radius:           opts.ViewRadius,
		tickInterval:     opts.TickInterval,
		autosaveInterval: opts.AutosaveInterval,
		requests:         make(chan request, requestQueueSize),
		done:             make(chan struct{}),
		loaders:          make(map[uuid.UUID]*loader),
		faces:            make(map[world.ChunkPosition]int),
		lastAutosave:     time.Now(),
	}
	w.publish()
	return w, nil
}

// Run выполняет тики до отмены контекста. При выходе сохраняет позиции
// сущностей и выгружает все чанки.
func (w *World) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return fmt.Errorf("мир уже запущен")
	}
	defer close(w.done)

	if err := w.restoreLoaders(ctx); err != nil {
		w.logger.Error("❌ Не удалось восстановить сущности: %v", err)
	}

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.logger.Info("🌍 Мир запущен (радиус: %d, тик: %v)", w.radius, w.tickInterval)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return w.shutdown()
		case req := <-w.requests:
			req.reply <- req.fn()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			w.Step(ctx, dt)
		}
	}
}

// Done закрывается после завершения Run
func (w *World) Done() <-chan struct{} {
	return w.done
}

// shutdown сохраняет сущности и выгружает мир
func (w *World) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	w.drainRequests()
	w.saveLoaders(ctx)

	err := w.manager.Close(ctx)
	w.faces = make(map[world.ChunkPosition]int)
	w.publish()
	if err != nil {
		w.logger.Error("❌ Ошибка выгрузки мира: %v", err)
		return err
	}
	w.logger.Info("🛑 Мир остановлен на тике %d", w.tick)
	return nil
}

// drainRequests отклоняет запросы, оставшиеся в очереди
func (w *World) drainRequests() {
	for {
		select {
		case req := <-w.requests:
			req.reply <- ErrStopped
		default:
			return
		}
	}
}

// submit выполняет fn в горутине тика и ждёт результата
func (w *World) submit(ctx context.Context, fn func() error) error {
	req := request{fn: fn, reply: make(chan error, 1)}

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
}

var tracer = otel.Tracer("voxel-engine/app")

// Step выполняет один тик. Вызывается только из горутины, владеющей миром.
func (w *World) Step(ctx context.Context, dt float64) {
	w.tick++

	ctx, span := tracer.Start(ctx, "world.Tick", trace.WithAttributes(attribute.Int64("tick", int64(w.tick))))
	defer func() {
		span.SetAttributes(attribute.Int("resident", w.manager.Len()))
		span.End()
	}()

	w.loadWanted(ctx)
	w.attachLoaders()
	w.unloadUnwanted(ctx)
	w.updateMeshes()

	if err := w.manager.Tick(dt); err != nil && !errors.Is(err, world.ErrNilSource) {
		w.logger.Warn("⚠️ Тик источника: %v", err)
	}

	if time.Since(w.lastAutosave) >= w.autosaveInterval {
		w.saveLoaders(ctx)
		w.lastAutosave = time.Now()
	}

	w.publish()
}

// wanted объединение позиций в радиусе всех сущностей, от ближних к дальним
func (w *World) wanted() ([]world.ChunkPosition, map[world.ChunkPosition]struct{}) {
	var ordered []world.ChunkPosition
	set := make(map[world.ChunkPosition]struct{})

	for _, id := range w.loaderIDs() {
		center := world.ChunkPositionFromVec(w.loaders[id].pos)
		for _, pos := range world.PositionsInRadius(center, w.radius) {
			if _, dup := set[pos]; dup {
				continue
			}
			set[pos] = struct{}{}
			ordered = append(ordered, pos)
		}
	}
	return ordered, set
}

// loadWanted загружает недостающие чанки, не больше maxLoadsPerTick за тик
func (w *World) loadWanted(ctx context.Context) {
	ordered, _ := w.wanted()

	var missing []world.ChunkPosition
	for _, pos := range ordered {
		if _, ok := w.manager.Get(pos); ok {
			continue
		}
		missing = append(missing, pos)
		if len(missing) == maxLoadsPerTick {
			break
		}
	}
	if len(missing) == 0 {
		return
	}

	free := w.manager.Budget() - w.manager.Len()
	if free < len(missing) {
		// Освобождаем место от никем не удерживаемых чанков
		w.evict(ctx, w.manager.Evictable())
		free = w.manager.Budget() - w.manager.Len()
	}
	if free <= 0 {
		w.logger.Debug("Бюджет чанков исчерпан (%d), ждут загрузки: %d", w.manager.Budget(), len(missing))
		return
	}
	if len(missing) > free {
		// Радиус больше бюджета: берём ближайшие, остальные остаются незагруженными
		missing = missing[:free]
	}

	created, _, err := w.manager.Acquire(missing)
	if err != nil {
		w.logger.Warn("⚠️ Не удалось выделить %d чанков: %v", len(missing), err)
		return
	}

	report, err := w.manager.PopulateNew(ctx, created)
	if err != nil {
		w.logger.Error("❌ Загрузка партии: %v", err)
		return
	}
	if len(report.Failed) > 0 {
		w.logger.Warn("⚠️ Не загружены: %v", report.Failed)
	}
	for _, pos := range report.Loaded {
		w.emit(ctx, eventbus.TypeChunkLoaded, eventbus.PriorityLow, eventbus.ChunkEvent{Position: pos})
	}
	for _, pos := range report.Failed {
		w.emit(ctx, eventbus.TypeChunkFailed, eventbus.PriorityHigh, eventbus.ChunkEvent{Position: pos, Reason: "populate"})
	}
}

// attachLoaders приводит удерживаемые чанки каждой сущности к её радиусу
func (w *World) attachLoaders() {
	for _, id := range w.loaderIDs() {
		l := w.loaders[id]
		center := world.ChunkPositionFromVec(l.pos)

		want := make(map[world.ChunkPosition]struct{})
		for _, pos := range world.PositionsInRadius(center, w.radius) {
			want[pos] = struct{}{}
		}

		for pos := range l.held {
			if _, keep := want[pos]; keep {
				continue
			}
			if c, ok := w.manager.Get(pos); ok {
				c.RemoveLoader(id)
			}
			delete(l.held, pos)
		}
		for pos := range want {
			if _, has := l.held[pos]; has {
				continue
			}
			if err := w.manager.AddLoader(pos, id); err != nil {
				continue // чанк ещё не загружен
			}
			l.held[pos] = struct{}{}
		}
	}
}

// unloadUnwanted выгружает чанки, которые никто не держит
func (w *World) unloadUnwanted(ctx context.Context) {
	victims := w.manager.Evictable()
	if len(victims) == 0 {
		return
	}
	w.evict(ctx, victims)
}

func (w *World) evict(ctx context.Context, victims []world.ChunkPosition) {
	unloaded, err := w.manager.Unload(ctx, victims)
	if err != nil {
		w.logger.Warn("⚠️ Выгрузка: %v", err)
	}
	for _, pos := range unloaded {
		delete(w.faces, pos)
		w.emit(ctx, eventbus.TypeChunkUnloaded, eventbus.PriorityLow, eventbus.ChunkEvent{Position: pos})
	}
}

// neighborsReady – все шесть соседей загружены и готовы к мешингу
func (w *World) neighborsReady(pos world.ChunkPosition) bool {
	for _, n := range w.manager.Neighbors(pos) {
		if n == nil || !n.Meshable() {
			return false
		}
	}
	return true
}

// updateMeshes строит меши чанков с полным окружением и освобождает
// меши чанков, потерявших соседа
func (w *World) updateMeshes() {
	built := 0
	for _, c := range w.manager.Chunks() {
		pos := c.Position()
		ready := w.neighborsReady(pos)

		switch c.State() {
		case world.StateCPUGPU:
			if !ready {
				if err := w.manager.DetachMesh(pos); err != nil {
					w.logger.Error("❌ Освобождение меша %s: %v", pos, err)
				}
				delete(w.faces, pos)
				continue
			}
			if !c.NeedsRemesh() {
				continue
			}
		case world.StateCPUOnly:
			if !ready {
				continue
			}
		default:
			continue
		}

		if built == maxMeshesPerTick {
			continue
		}
		if err := w.buildMesh(c); err != nil {
			w.logger.Error("❌ Мешинг %s: %v", pos, err)
			continue
		}
		built++
	}
}

// buildMesh извлекает видимые грани, загружает их в рендер и привязывает к чанку
func (w *World) buildMesh(c *world.Chunk) error {
	pos := c.Position()
	m, err := w.extractor.Extract(c)
	if err != nil {
		return err
	}

	handle, err := w.backend.Upload(pos, m, pos.ModelMatrix())
	if err != nil {
		return err
	}
	if err := w.manager.AttachMesh(pos, handle); err != nil {
		// Меш не привязан: рендер не должен держать его
		if derr := w.backend.DestroyMesh(handle); derr != nil {
			w.logger.Error("❌ Освобождение непривязанного меша %s: %v", pos, derr)
		}
		return err
	}
	w.faces[pos] = m.Len()
	w.logger.Trace("🔷 %s: %d граней", pos, m.Len())
	return nil
}

// MoveLoader регистрирует сущность или переносит её в новую позицию (в блоках)
func (w *World) MoveLoader(ctx context.Context, id uuid.UUID, pos vec.Vec3) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: uuid.Nil", ErrUnknownLoader)
	}
	return w.submit(ctx, func() error {
		w.placeLoader(id, pos)
		w.emit(ctx, eventbus.TypeLoaderMoved, eventbus.PriorityLow, eventbus.LoaderEvent{ID: id, Position: pos})
		return nil
	})
}

func (w *World) placeLoader(id uuid.UUID, pos vec.Vec3) {
	if l, ok := w.loaders[id]; ok {
		l.pos = pos
		return
	}
	w.loaders[id] = &loader{pos: pos, held: make(map[world.ChunkPosition]struct{})}
	w.logger.Info("👤 Сущность %s добавлена в %v", id, pos)
}

// RemoveLoader снимает сущность; её чанки выгрузятся на следующем тике
func (w *World) RemoveLoader(ctx context.Context, id uuid.UUID) error {
	return w.submit(ctx, func() error {
		l, ok := w.loaders[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownLoader, id)
		}
		w.manager.RemoveLoader(id)
		w.emit(ctx, eventbus.TypeLoaderRemoved, eventbus.PriorityHigh, eventbus.LoaderEvent{ID: id, Position: l.pos})
		delete(w.loaders, id)

		if w.repo != nil {
			if err := w.repo.Delete(ctx, id); err != nil {
				w.logger.Debug("Позиция %s не удалена из хранилища: %v", id, err)
			}
		}
		w.logger.Info("👋 Сущность %s удалена", id)
		return nil
	})
}

// SetBlock меняет блок в загруженном чанке. Правка на границе чанка
// помечает соседа на перестроение меша.
func (w *World) SetBlock(ctx context.Context, pos vec.Vec3, id block.BlockID) error {
	return w.submit(ctx, func() error {
		c, err := w.residentChunk(pos)
		if err != nil {
			return err
		}
		def, ok := c.Table().Get(id)
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownBlock, id)
		}

		local := pos.FloorMod(blockpos.AxisLength)
		c.SetBlock(local.X, local.Y, local.Z, def)

		for _, d := range borderDirections(local) {
			if n, ok := w.manager.Neighbor(c.Position(), d); ok {
				n.MarkRemesh()
			}
		}
		w.emit(ctx, eventbus.TypeBlockChanged, eventbus.PriorityHigh, eventbus.BlockChanged{
			Position: pos,
			Block:    uint16(def.ID),
			Name:     def.Name,
		})
		return nil
	})
}

// GetBlock возвращает ID блока в загруженном чанке
func (w *World) GetBlock(ctx context.Context, pos vec.Vec3) (block.BlockID, error) {
	var id block.BlockID
	err := w.submit(ctx, func() error {
		c, err := w.residentChunk(pos)
		if err != nil {
			return err
		}
		local := pos.FloorMod(blockpos.AxisLength)
		id = c.Block(local.X, local.Y, local.Z).ID
		return nil
	})
	return id, err
}

// ChunkInfo подробности о загруженном чанке
func (w *World) ChunkInfo(ctx context.Context, pos world.ChunkPosition) (ChunkDetails, error) {
	var details ChunkDetails
	err := w.submit(ctx, func() error {
		c, ok := w.manager.Get(pos)
		if !ok {
			return fmt.Errorf("%s: %w", pos, world.ErrNotResident)
		}
		details = ChunkDetails{
			ChunkSummary: w.summarize(c),
			Solid:        c.SolidCount(),
			Dirty:        c.Dirty(),
			LoadedAt:     c.LoadedAt(),
			Materials:    make(map[string]int),
		}
		for id, n := range c.MaterialHistogram() {
			def, _ := c.Table().Get(id)
			details.Materials[def.Name] = n
		}
		return nil
	})
	return details, err
}

func (w *World) residentChunk(pos vec.Vec3) (*world.Chunk, error) {
	cp := world.ChunkPositionFromVec(pos)
	c, ok := w.manager.Get(cp)
	if !ok || !c.State().Resident() {
		return nil, fmt.Errorf("%s: %w", cp, world.ErrNotResident)
	}
	return c, nil
}

// emit публикует событие мира, если шина подключена. Ошибка шины не
// останавливает тик.
func (w *World) emit(ctx context.Context, eventType string, priority int, payload any) {
	if w.events == nil {
		return
	}
	ev, err := eventbus.NewEnvelope("world", eventType, w.tick, priority, payload)
	if err == nil {
		err = w.events.Publish(ctx, ev)
	}
	if err != nil {
		w.logger.Debug("Событие %s не опубликовано: %v", eventType, err)
	}
}

// borderDirections направления, в которых локальная позиция лежит на грани чанка
func borderDirections(local vec.Vec3) []vec.Direction {
	var dirs []vec.Direction
	last := blockpos.AxisLength - 1
	if local.X == last {
		dirs = append(dirs, vec.East)
	}
	if local.X == 0 {
		dirs = append(dirs, vec.West)
	}
	if local.Y == last {
		dirs = append(dirs, vec.Up)
	}
	if local.Y == 0 {
		dirs = append(dirs, vec.Down)
	}
	if local.Z == last {
		dirs = append(dirs, vec.South)
	}
	if local.Z == 0 {
		dirs = append(dirs, vec.North)
	}
	return dirs
}
