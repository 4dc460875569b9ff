package world

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LocalSource генерирует чанки процедурно. Если задано хранилище, сначала
// пытается восстановить сохранённый чанк и сохраняет изменённые при выгрузке.
type LocalSource struct {
	generator *Generator
	store     ChunkStore
	metrics   *Metrics

	pendingSaves int
}

// NewLocalSource создаёт локальный источник
func NewLocalSource(generator *Generator, store ChunkStore, metrics *Metrics) (*LocalSource, error) {
	if generator == nil {
		return nil, fmt.Errorf("локальному источнику нужен генератор")
	}
	return &LocalSource{
		generator: generator,
		store:     store,
		metrics:   metrics,
	}, nil
}

// LoadChunks восстанавливает или генерирует каждый чанк партии.
// Отмена контекста прерывает оставшиеся чанки: они помечаются неудачными.
func (s *LocalSource) LoadChunks(ctx context.Context, chunks []*Chunk) ([]*Chunk, error) {
	var failed []*Chunk

	for _, c := range chunks {
		start := time.Now()
		restored, err := s.restore(ctx, c)
		if err == nil && !restored {
			err = s.generator.Generate(ctx, c)
		}
		if err != nil {
			worldLogger().Warn("⚠️ Не удалось загрузить %s: %v", c.pos, err)
			c.Clear()
			failed = append(failed, c)
			continue
		}
		c.loadedAt = time.Now()
		if s.metrics != nil && !restored {
			s.metrics.ObserveGeneration(time.Since(start))
		}
	}

	return failed, nil
}

// restore пытается поднять чанк из хранилища
func (s *LocalSource) restore(ctx context.Context, c *Chunk) (bool, error) {
	if s.store == nil {
		return false, nil
	}

	materials, err := s.store.LoadChunk(ctx, c.pos)
	if errors.Is(err, ErrChunkNotStored) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("чтение из хранилища: %w", err)
	}
	if err := c.ApplyMaterials(materials); err != nil {
		return false, fmt.Errorf("восстановление снимка: %w", err)
	}

	c.needsRemesh = true
	worldLogger().Debug("💾 %s восстановлен из хранилища", c.pos)
	return true, nil
}

// UnloadChunks сохраняет изменённые чанки
func (s *LocalSource) UnloadChunks(ctx context.Context, chunks []*Chunk) {
	if s.store == nil {
		return
	}

	for _, c := range chunks {
		if !c.Dirty() {
			continue
		}
		if err := s.store.SaveChunk(ctx, c.pos, c.Materials()); err != nil {
			worldLogger().Error("❌ Не удалось сохранить %s: %v", c.pos, err)
			s.pendingSaves++
			continue
		}
		c.MarkClean()
	}
}

// Tick периодическое обслуживание: сообщает о накопившихся ошибках сохранения
func (s *LocalSource) Tick(dt float64) {
	if s.pendingSaves > 0 {
		worldLogger().Warn("⚠️ Несохранённых при выгрузке чанков: %d", s.pendingSaves)
		s.pendingSaves = 0
	}
}

// Close закрывает хранилище, если оно есть
func (s *LocalSource) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
