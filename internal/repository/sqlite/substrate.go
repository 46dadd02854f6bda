package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"hermes/internal/logger"
	repo "hermes/internal/repository"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Substrate хранит разделы в файле SQLite, одна строка на ключ
type Substrate struct {
	db *sql.DB
}

// New открывает (или создаёт) базу по пути и применяет схему
func New(path string) (*Substrate, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("создание каталога базы: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err)
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	// sqlite3 не любит параллельных писателей
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		logger.Error("Repository: Не удалось применить схему SQLite", err)
		return nil, fmt.Errorf("применение схемы: %w", err)
	}

	logger.Info("Repository: SQLite открыт")
	return &Substrate{db: db}, nil
}

func (s *Substrate) Close() error {
	return s.db.Close()
}

func (s *Substrate) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Substrate) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("чтение ключа %s: %w", key, err)
	}
	return value, nil
}

func (s *Substrate) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertQuery, key, value); err != nil {
		return fmt.Errorf("запись ключа %s: %w", key, err)
	}
	return nil
}

func (s *Substrate) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("удаление ключа %s: %w", key, err)
	}
	return nil
}

func (s *Substrate) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM kv
		WHERE substr(key, 1, ?) = ?
		ORDER BY rowid
	`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("получение ключей: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("сканирование ключа: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Apply выполняет все записи в одной транзакции
func (s *Substrate) Apply(ctx context.Context, writes []repo.Write) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		if w.Delete {
			_, err = tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", w.Key)
		} else {
			_, err = tx.ExecContext(ctx, upsertQuery, w.Key, w.Value)
		}
		if err != nil {
			return fmt.Errorf("пакетная запись %s: %w", w.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("фиксация транзакции: %w", err)
	}
	return nil
}

const upsertQuery = `
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`
