package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"hermes/internal/config"
)

var (
	ErrNotFound   = errors.New("файл не найден")
	ErrInvalidKey = errors.New("некорректный ключ файла")
)

// Store хранит бинарные объекты по ключу вида "documents/<owner>/<id>/report.pdf"
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New выбирает реализацию по конфигурации
func New(ctx context.Context, cfg config.FilesConfig) (Store, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocal(cfg.Dir)
	case "s3":
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("неизвестный тип файлового хранилища: %s", cfg.Type)
}

// cleanKey запрещает выход за пределы хранилища
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
