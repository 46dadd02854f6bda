package inmemory

import (
	"context"
	"strings"
	"sync"

	"hermes/internal/logger"
	repo "hermes/internal/repository"
)

// Substrate хранит значения в памяти процесса, сохраняя порядок добавления ключей.
type Substrate struct {
	storage map[string]string
	mtx     *sync.RWMutex
	keys    []string
}

func NewSubstrate() *Substrate {
	return &Substrate{
		storage: make(map[string]string),
		mtx:     &sync.RWMutex{},
		keys:    []string{},
	}
}

func (s *Substrate) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Хранилище в памяти доступно")
	return nil
}

func (s *Substrate) Get(ctx context.Context, key string) (string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	value, ok := s.storage[key]
	if !ok {
		return "", repo.ErrNotFound
	}
	return value, nil
}

func (s *Substrate) Set(ctx context.Context, key, value string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.set(key, value)
	return nil
}

func (s *Substrate) Remove(ctx context.Context, key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.remove(key)
	return nil
}

func (s *Substrate) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []string{}
	for _, key := range s.keys {
		if strings.HasPrefix(key, prefix) {
			res = append(res, key)
		}
	}
	return res, nil
}

// Apply применяет все записи под одной блокировкой
func (s *Substrate) Apply(ctx context.Context, writes []repo.Write) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, w := range writes {
		if w.Delete {
			s.remove(w.Key)
			continue
		}
		s.set(w.Key, w.Value)
	}
	return nil
}

func (s *Substrate) set(key, value string) {
	if _, ok := s.storage[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.storage[key] = value
}

func (s *Substrate) remove(key string) {
	if _, ok := s.storage[key]; !ok {
		return
	}
	delete(s.storage, key)
	for ind, val := range s.keys {
		if val == key {
			s.keys = append(s.keys[:ind], s.keys[ind+1:]...)
			break
		}
	}
}
