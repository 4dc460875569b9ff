package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/annel0/voxel-engine/internal/logging"
	"github.com/annel0/voxel-engine/internal/vec"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr     string // Адрес Redis сервера
	Password string // Пароль (пустой если не требуется)
	DB       int    // Номер базы данных
	Key      string // Ключ хэша с позициями
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr: "localhost:6379",
		DB:   0,
		Key:  "voxel:loaders",
	}
}

// loaderRecord запись в хэше Redis
type loaderRecord struct {
	Position  vec.Vec3  `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisLoaderRepo хранит позиции сущностей в одном хэше Redis
type RedisLoaderRepo struct {
	client *redis.Client
	key    string
}

// NewRedisLoaderRepo подключается к Redis
func NewRedisLoaderRepo(ctx context.Context, config *RedisConfig) (*RedisLoaderRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🔴 Connected to Redis at %s", config.Addr)
	return &RedisLoaderRepo{client: client, key: config.Key}, nil
}

func encodeLoaderRecord(pos vec.Vec3) (string, error) {
	data, err := json.Marshal(loaderRecord{Position: pos, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeLoaderRecord(data string) (vec.Vec3, error) {
	var rec loaderRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return vec.Vec3{}, err
	}
	return rec.Position, nil
}

// Save сохраняет позицию сущности
func (r *RedisLoaderRepo) Save(ctx context.Context, id uuid.UUID, pos vec.Vec3) error {
	if err := validateLoaderID(id); err != nil {
		return err
	}
	value, err := encodeLoaderRecord(pos)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, id.String(), value).Err(); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Load загружает позицию сущности
func (r *RedisLoaderRepo) Load(ctx context.Context, id uuid.UUID) (vec.Vec3, bool, error) {
	if err := validateLoaderID(id); err != nil {
		return vec.Vec3{}, false, err
	}

	data, err := r.client.HGet(ctx, r.key, id.String()).Result()
	if err == redis.Nil {
		return vec.Vec3{}, false, nil // Позиция не найдена
	} else if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("failed to get position: %w", err)
	}

	pos, err := decodeLoaderRecord(data)
	if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return pos, true, nil
}

// Delete удаляет позицию сущности
func (r *RedisLoaderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := validateLoaderID(id); err != nil {
		return err
	}
	removed, err := r.client.HDel(ctx, r.key, id.String()).Result()
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("позиция сущности %s не найдена", id)
	}
	return nil
}

// BatchSave сохраняет позиции одним конвейером
func (r *RedisLoaderRepo) BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3) error {
	if len(positions) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(positions))
	for id, pos := range positions {
		if err := validateLoaderID(id); err != nil {
			return err
		}
		value, err := encodeLoaderRecord(pos)
		if err != nil {
			return fmt.Errorf("failed to marshal position: %w", err)
		}
		values[id.String()] = value
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, r.key, values)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to flush batch: %w", err)
	}
	return nil
}

// All возвращает все сохранённые позиции. Повреждённые записи пропускаются.
func (r *RedisLoaderRepo) All(ctx context.Context) (map[uuid.UUID]vec.Vec3, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	result := make(map[uuid.UUID]vec.Vec3, len(raw))
	for field, data := range raw {
		id, err := uuid.Parse(field)
		if err != nil {
			logging.Warn("⚠️ Некорректный ключ сущности в Redis: %q", field)
			continue
		}
		pos, err := decodeLoaderRecord(data)
		if err != nil {
			logging.Warn("⚠️ Повреждённая запись сущности %s: %v", id, err)
			continue
		}
		result[id] = pos
	}
	return result, nil
}

// Close закрывает соединение
func (r *RedisLoaderRepo) Close() error {
	return r.client.Close()
}
