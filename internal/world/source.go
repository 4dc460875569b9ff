package world

import (
	"context"
	"fmt"
)

// ChunkSource подключаемый источник содержимого чанков
type ChunkSource interface {
	// LoadChunks заполняет чанки и возвращает те, что заполнить не удалось.
	// Ошибка означает сбой всей партии, а не отдельных чанков.
	LoadChunks(ctx context.Context, chunks []*Chunk) (failed []*Chunk, err error)
	// UnloadChunks вызывается перед выгрузкой (точка сохранения)
	UnloadChunks(ctx context.Context, chunks []*Chunk)
	// Close освобождает ресурсы источника
	Close() error
}

// Ticker необязательное периодическое обслуживание источника (опрос I/O)
type Ticker interface {
	Tick(dt float64)
}

// SourceKind вид источника
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceNetwork
)

// String возвращает строковое представление вида источника
func (k SourceKind) String() string {
	switch k {
	case SourceLocal:
		return "local"
	case SourceNetwork:
		return "network"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// ParseSourceKind разбирает вид источника из конфигурации
func ParseSourceKind(s string) (SourceKind, error) {
	switch s {
	case "", "local":
		return SourceLocal, nil
	case "network":
		return SourceNetwork, nil
	default:
		return SourceLocal, fmt.Errorf("неизвестный источник чанков %q", s)
	}
}

// SourceOptions параметры создания источника
type SourceOptions struct {
	Generator *Generator
	Store     ChunkStore // может быть nil: без сохранения
	Metrics   *Metrics   // может быть nil
}

// NewSource создаёт источник указанного вида.
// Сетевой источник пока не реализован.
func NewSource(kind SourceKind, opts SourceOptions) (ChunkSource, error) {
	switch kind {
	case SourceLocal:
		return NewLocalSource(opts.Generator, opts.Store, opts.Metrics)
	case SourceNetwork:
		return nil, fmt.Errorf("%s: %w", kind, ErrSourceNotImplemented)
	default:
		return nil, fmt.Errorf("%s: %w", kind, ErrSourceNotImplemented)
	}
}

// LoadChunks вызывает источник с проверкой аргументов.
// Пустая партия – успех без обращения к источнику.
func LoadChunks(ctx context.Context, source ChunkSource, chunks []*Chunk) ([]*Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if source == nil {
		return nil, ErrNilSource
	}
	if err := checkChunks(chunks); err != nil {
		return nil, err
	}
	return source.LoadChunks(ctx, chunks)
}

// UnloadChunks передаёт источнику чанки перед выгрузкой
func UnloadChunks(ctx context.Context, source ChunkSource, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if source == nil {
		return ErrNilSource
	}
	if err := checkChunks(chunks); err != nil {
		return err
	}
	source.UnloadChunks(ctx, chunks)
	return nil
}

// TickSource обслуживает источник, если он это поддерживает
func TickSource(source ChunkSource, dt float64) error {
	if source == nil {
		return ErrNilSource
	}
	if t, ok := source.(Ticker); ok {
		t.Tick(dt)
	}
	return nil
}

// CloseSource закрывает источник
func CloseSource(source ChunkSource) error {
	if source == nil {
		return ErrNilSource
	}
	return source.Close()
}

func checkChunks(chunks []*Chunk) error {
	for i, c := range chunks {
		if c == nil {
			return fmt.Errorf("позиция %d в партии: %w", i, ErrNilChunk)
		}
	}
	return nil
}
