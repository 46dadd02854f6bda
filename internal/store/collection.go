package store

import (
	"context"
	"fmt"

	"hermes/internal/logger"
	"hermes/internal/models"
	"hermes/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type entity[T any] interface {
	*T
	models.Record
}

// Collection - CRUD над разделами одного типа записей
type Collection[T any, P entity[T]] struct {
	s      *Store
	table  string
	kind   models.EntityType
	global bool
	logged bool

	// prepare проставляет значения по умолчанию и валидирует запись перед записью
	prepare func(ctx context.Context, u *unit, owner uuid.UUID, rec P) error
	// freeze восстанавливает неизменяемые поля после обновления
	freeze func(prev, next P)
	// cascade удаляет зависимые записи в том же юните
	cascade func(ctx context.Context, u *unit, owner uuid.UUID, removed P) error
	// scope - проект, к которому относится запись в журнале активности
	scope func(ctx context.Context, u *unit, owner uuid.UUID, rec P) *uuid.UUID
	// describe - детали для журнала активности
	describe func(rec P) map[string]any
}

func newCollection[T any, P entity[T]](s *Store, table string, kind models.EntityType) *Collection[T, P] {
	return &Collection[T, P]{s: s, table: table, kind: kind}
}

func (c *Collection[T, P]) key(owner uuid.UUID) string {
	if c.global {
		return c.s.globalKey(c.table)
	}
	return c.s.key(c.table, owner)
}

func (c *Collection[T, P]) load(ctx context.Context, owner uuid.UUID) ([]P, error) {
	items := []P{}
	if _, err := c.s.read(ctx, c.key(owner), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []P{}
	}
	return items, nil
}

// staged возвращает раздел с учётом изменений, уже сделанных в юните
func (c *Collection[T, P]) staged(ctx context.Context, u *unit, owner uuid.UUID) ([]P, error) {
	key := c.key(owner)
	if u.removed[key] {
		return []P{}, nil
	}
	if v, ok := u.staged[key]; ok {
		return v.([]P), nil
	}
	items, err := c.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	u.staged[key] = items
	return items, nil
}

func (c *Collection[T, P]) stage(u *unit, owner uuid.UUID, items []P) {
	u.stage(c.key(owner), items)
}

// List возвращает записи владельца в порядке добавления. Несуществующий раздел - пустой список.
func (c *Collection[T, P]) List(ctx context.Context, owner uuid.UUID) ([]P, error) {
	return c.load(ctx, owner)
}

// Filter возвращает записи владельца, удовлетворяющие условию
func (c *Collection[T, P]) Filter(ctx context.Context, owner uuid.UUID, keep func(P) bool) ([]P, error) {
	items, err := c.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	res := []P{}
	for _, item := range items {
		if keep(item) {
			res = append(res, item)
		}
	}
	return res, nil
}

// Get возвращает repository.ErrNotFound, если записи нет
func (c *Collection[T, P]) Get(ctx context.Context, owner, id uuid.UUID) (P, error) {
	items, err := c.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if idx := indexOf(items, id); idx >= 0 {
		return items[idx], nil
	}
	return nil, repository.ErrNotFound
}

// Create сохраняет копию rec; overrides применяются к копии, rec не меняется
func (c *Collection[T, P]) Create(ctx context.Context, owner uuid.UUID, rec P, overrides ...func(P)) (P, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	u := c.s.begin(owner)
	created, err := c.insert(ctx, u, owner, rec, c.logged, overrides...)
	if err != nil {
		return nil, err
	}
	if err := c.s.commit(ctx, u); err != nil {
		return nil, err
	}

	logger.Debug("Store: Запись создана",
		zap.String("entity", string(c.kind)),
		zap.String("id", created.Base().ID.String()))
	return created, nil
}

// Update применяет изменения к записи. Отсутствующая запись даёт repository.ErrNotFound,
// раздел при этом не меняется.
func (c *Collection[T, P]) Update(ctx context.Context, owner, id uuid.UUID, changes ...func(P)) (P, error) {
	return c.UpdateVersioned(ctx, owner, id, 0, changes...)
}

// UpdateVersioned как Update, но отклоняет изменение, если текущая версия записи
// не равна expected (repository.ErrVersionConflict). expected <= 0 отключает проверку.
func (c *Collection[T, P]) UpdateVersioned(ctx context.Context, owner, id uuid.UUID, expected int, changes ...func(P)) (P, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	u := c.s.begin(owner)
	updated, err := c.modify(ctx, u, owner, id, expected, changes)
	if err != nil {
		return nil, err
	}
	if err := c.s.commit(ctx, u); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete возвращает false, если удалять было нечего
func (c *Collection[T, P]) Delete(ctx context.Context, owner, id uuid.UUID) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	u := c.s.begin(owner)
	removed, err := c.remove(ctx, u, owner, id, c.logged)
	if err != nil || removed == nil {
		return false, err
	}
	if err := c.s.commit(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[T, P]) insert(ctx context.Context, u *unit, owner uuid.UUID, rec P, log bool, overrides ...func(P)) (P, error) {
	var copied T = *rec
	created := P(&copied)
	for _, override := range overrides {
		override(created)
	}

	if c.prepare != nil {
		if err := c.prepare(ctx, u, owner, created); err != nil {
			return nil, err
		}
	}

	items, err := c.staged(ctx, u, owner)
	if err != nil {
		return nil, err
	}

	now := c.s.clock()
	meta := created.Base()
	meta.ID = c.s.newID()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.Version = 1

	next := make([]P, len(items), len(items)+1)
	copy(next, items)
	c.stage(u, owner, append(next, created))

	if log {
		c.record(ctx, u, owner, models.ActionCreate, created)
	}
	return created, nil
}

func (c *Collection[T, P]) modify(ctx context.Context, u *unit, owner, id uuid.UUID, expected int, changes []func(P)) (P, error) {
	items, err := c.staged(ctx, u, owner)
	if err != nil {
		return nil, err
	}

	idx := indexOf(items, id)
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	prev := items[idx]
	prevMeta := *prev.Base()
	if expected > 0 && prevMeta.Version != expected {
		logger.Warn("Store: Конфликт версий при обновлении",
			zap.String("entity", string(c.kind)),
			zap.String("id", id.String()),
			zap.Int("expected_version", expected),
			zap.Int("actual_version", prevMeta.Version))
		return nil, fmt.Errorf("%s %s: %w", c.kind, id, repository.ErrVersionConflict)
	}

	var copied T = *prev
	updated := P(&copied)
	for _, change := range changes {
		if change != nil {
			change(updated)
		}
	}

	meta := updated.Base()
	meta.ID = prevMeta.ID
	meta.CreatedAt = prevMeta.CreatedAt
	meta.Version = prevMeta.Version + 1
	meta.UpdatedAt = c.s.tick(prevMeta.UpdatedAt)
	if c.freeze != nil {
		c.freeze(prev, updated)
	}

	if c.prepare != nil {
		if err := c.prepare(ctx, u, owner, updated); err != nil {
			return nil, err
		}
	}

	next := make([]P, len(items))
	copy(next, items)
	next[idx] = updated
	c.stage(u, owner, next)

	if c.logged {
		c.record(ctx, u, owner, models.ActionUpdate, updated)
	}
	return updated, nil
}

// remove возвращает nil, если записи нет
func (c *Collection[T, P]) remove(ctx context.Context, u *unit, owner, id uuid.UUID, log bool) (P, error) {
	items, err := c.staged(ctx, u, owner)
	if err != nil {
		return nil, err
	}

	idx := indexOf(items, id)
	if idx < 0 {
		return nil, nil
	}
	removed := items[idx]

	// журнал пишем до каскада: scope задачи ищет её в разделе
	if log {
		c.record(ctx, u, owner, models.ActionDelete, removed)
	}

	next := make([]P, 0, len(items)-1)
	next = append(next, items[:idx]...)
	next = append(next, items[idx+1:]...)
	c.stage(u, owner, next)

	if c.cascade != nil {
		if err := c.cascade(ctx, u, owner, removed); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

// removeWhere удаляет записи по условию без журнала, каскады выполняются
func (c *Collection[T, P]) removeWhere(ctx context.Context, u *unit, owner uuid.UUID, match func(P) bool) (int, error) {
	items, err := c.staged(ctx, u, owner)
	if err != nil {
		return 0, err
	}

	kept := make([]P, 0, len(items))
	removed := []P{}
	for _, item := range items {
		if match(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) == 0 {
		return 0, nil
	}
	c.stage(u, owner, kept)

	if c.cascade != nil {
		for _, item := range removed {
			if err := c.cascade(ctx, u, owner, item); err != nil {
				return 0, err
			}
		}
	}
	return len(removed), nil
}

func (c *Collection[T, P]) record(ctx context.Context, u *unit, owner uuid.UUID, action models.Action, rec P) {
	var project *uuid.UUID
	if c.scope != nil {
		project = c.scope(ctx, u, owner, rec)
	}
	var details map[string]any
	if c.describe != nil {
		details = c.describe(rec)
	}

	now := c.s.clock()
	u.log(&models.ActivityLog{
		Meta:       models.Meta{ID: c.s.newID(), CreatedAt: now, UpdatedAt: now, Version: 1},
		ProjectID:  project,
		ActorID:    owner,
		Action:     action,
		EntityType: c.kind,
		EntityID:   rec.Base().ID,
		Details:    details,
	})
}

func indexOf[T any, P entity[T]](items []P, id uuid.UUID) int {
	for i, item := range items {
		if item.Base().ID == id {
			return i
		}
	}
	return -1
}
