package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("запись не найдена")
	ErrVersionConflict = errors.New("конфликт версий")
)

// Substrate - строковое хранилище ключ-значение, на котором лежат разделы записей.
// Get возвращает ErrNotFound, если ключа нет. Keys возвращает ключи в порядке добавления.
type Substrate interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// Write - одна операция в пакете записей. Delete=true удаляет ключ.
type Write struct {
	Key    string
	Value  string
	Delete bool
}

// Batcher реализуют хранилища, умеющие применить несколько записей атомарно.
type Batcher interface {
	Apply(ctx context.Context, writes []Write) error
}
