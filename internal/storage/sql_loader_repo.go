package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/annel0/voxel-engine/internal/vec"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// sqlDialect различия MariaDB и SQLite: драйвер, схема и upsert
type sqlDialect struct {
	name   string
	driver string
	schema string
	upsert string
}

var mariaDialect = sqlDialect{
	name:   "MariaDB",
	driver: "mysql",
	schema: `
		CREATE TABLE IF NOT EXISTS chunk_loaders (
			loader_id  CHAR(36)    PRIMARY KEY,
			x          INT         NOT NULL,
			y          INT         NOT NULL,
			z          INT         NOT NULL,
			updated_at TIMESTAMP   DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE   CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`,
	upsert: `
		INSERT INTO chunk_loaders (loader_id, x, y, z)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			x = VALUES(x),
			y = VALUES(y),
			z = VALUES(z),
			updated_at = CURRENT_TIMESTAMP
	`,
}

var sqliteDialect = sqlDialect{
	name:   "SQLite",
	driver: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS chunk_loaders (
			loader_id  TEXT    PRIMARY KEY,
			x          INTEGER NOT NULL,
			y          INTEGER NOT NULL,
			z          INTEGER NOT NULL,
			updated_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`,
	upsert: `
		INSERT INTO chunk_loaders (loader_id, x, y, z)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(loader_id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			z = excluded.z,
			updated_at = CURRENT_TIMESTAMP
	`,
}

// SQLLoaderRepo реализует LoaderRepo поверх database/sql.
// Использует таблицу chunk_loaders; MariaDB для кластера, SQLite для
// одиночного сервера без внешних зависимостей.
type SQLLoaderRepo struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewMariaLoaderRepo подключается к MariaDB и создает таблицу, если её нет.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaLoaderRepo(ctx context.Context, dsn string) (*SQLLoaderRepo, error) {
	return openSQLLoaderRepo(ctx, mariaDialect, dsn)
}

// NewSQLiteLoaderRepo открывает файл SQLite (создаёт каталог при необходимости)
func NewSQLiteLoaderRepo(ctx context.Context, path string) (*SQLLoaderRepo, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к базе SQLite")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог %s: %w", dir, err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	repo, err := openSQLLoaderRepo(ctx, sqliteDialect, dsn)
	if err != nil {
		return nil, err
	}
	// Один писатель на файл
	repo.db.SetMaxOpenConns(1)
	return repo, nil
}

func openSQLLoaderRepo(ctx context.Context, dialect sqlDialect, dsn string) (*SQLLoaderRepo, error) {
	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к %s: %w", dialect.name, err)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с %s: %w", dialect.name, err)
	}

	repo := &SQLLoaderRepo{db: db, dialect: dialect}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу chunk_loaders, если она не существует
func (r *SQLLoaderRepo) createTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.schema); err != nil {
		return fmt.Errorf("ошибка создания таблицы chunk_loaders: %w", err)
	}
	return nil
}

// Save сохраняет позицию сущности
func (r *SQLLoaderRepo) Save(ctx context.Context, id uuid.UUID, pos vec.Vec3) error {
	if err := validateLoaderID(id); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, r.dialect.upsert, id.String(), pos.X, pos.Y, pos.Z); err != nil {
		return fmt.Errorf("ошибка сохранения позиции сущности %s: %w", id, err)
	}
	return nil
}

// Load загружает позицию сущности
func (r *SQLLoaderRepo) Load(ctx context.Context, id uuid.UUID) (vec.Vec3, bool, error) {
	if err := validateLoaderID(id); err != nil {
		return vec.Vec3{}, false, err
	}

	var pos vec.Vec3
	err := r.db.QueryRowContext(ctx, `SELECT x, y, z FROM chunk_loaders WHERE loader_id = ?`, id.String()).
		Scan(&pos.X, &pos.Y, &pos.Z)

	if err == sql.ErrNoRows {
		return vec.Vec3{}, false, nil
	}
	if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("ошибка загрузки позиции сущности %s: %w", id, err)
	}
	return pos, true, nil
}

// Delete удаляет сохраненную позицию
func (r *SQLLoaderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := validateLoaderID(id); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM chunk_loaders WHERE loader_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("ошибка удаления позиции сущности %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("позиция сущности %s не найдена", id)
	}
	return nil
}

// BatchSave сохраняет позиции в одной транзакции
func (r *SQLLoaderRepo) BatchSave(ctx context.Context, positions map[uuid.UUID]vec.Vec3) error {
	if len(positions) == 0 {
		return nil // Нечего сохранять
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback() // Откат в случае ошибки

	stmt, err := tx.PrepareContext(ctx, r.dialect.upsert)
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for id, pos := range positions {
		if err := validateLoaderID(id); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, id.String(), pos.X, pos.Y, pos.Z); err != nil {
			return fmt.Errorf("ошибка сохранения позиции сущности %s в batch: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// All возвращает все сохранённые позиции
func (r *SQLLoaderRepo) All(ctx context.Context) (map[uuid.UUID]vec.Vec3, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT loader_id, x, y, z FROM chunk_loaders`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения позиций: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]vec.Vec3)
	for rows.Next() {
		var (
			rawID string
			pos   vec.Vec3
		)
		if err := rows.Scan(&rawID, &pos.X, &pos.Y, &pos.Z); err != nil {
			return nil, fmt.Errorf("ошибка разбора строки: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("некорректный loader_id %q: %w", rawID, err)
		}
		result[id] = pos
	}
	return result, rows.Err()
}

// Close закрывает соединение с базой данных
func (r *SQLLoaderRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
