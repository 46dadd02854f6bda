package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hermes/internal/logger"
	"hermes/internal/models"
	"hermes/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tableProjects    = "projects"
	tableMembers     = "project_members"
	tableInvitations = "project_invitations"
	tableTasks       = "tasks"
	tableComments    = "task_comments"
	tableDocuments   = "documents"
	tableTemplates   = "document_templates"
	tableSettings    = "user_settings"
	tableActivity    = "activity_logs"
	tableProfiles    = "profiles"
)

// таблицы, разделённые по владельцу
var ownerTables = []string{
	tableProjects, tableMembers, tableInvitations, tableTasks,
	tableComments, tableDocuments, tableSettings,
}

// Store - хранилище записей поверх Substrate. Каждый раздел
// (<prefix>_<table>_<owner>) хранится как JSON-массив в порядке добавления.
// Все изменения внутри процесса сериализуются одним мьютексом.
type Store struct {
	kv     repository.Substrate
	prefix string
	now    func() time.Time
	newID  func() uuid.UUID
	mu     sync.Mutex

	Projects    *Collection[models.Project, *models.Project]
	Members     *Collection[models.ProjectMember, *models.ProjectMember]
	Invitations *Collection[models.ProjectInvitation, *models.ProjectInvitation]
	Tasks       *Collection[models.Task, *models.Task]
	Comments    *Collection[models.TaskComment, *models.TaskComment]
	Documents   *Collection[models.Document, *models.Document]
	Templates   *Collection[models.DocumentTemplate, *models.DocumentTemplate]
	Profiles    *Collection[models.Profile, *models.Profile]
	Activity    *Collection[models.ActivityLog, *models.ActivityLog]
}

type Option func(*Store)

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(kv repository.Substrate, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		prefix: "hermes",
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.wire()
	return s
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.kv.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка хранилища: %w", err)
	}
	return nil
}

func (s *Store) key(table string, owner uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s", s.prefix, table, owner)
}

func (s *Store) globalKey(table string) string {
	return fmt.Sprintf("%s_%s", s.prefix, table)
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

// tick возвращает метку времени строго позже prev
func (s *Store) tick(prev time.Time) time.Time {
	now := s.clock()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		logger.Error("Store: Не удалось прочитать раздел", err, zap.String("key", key))
		return false, fmt.Errorf("чтение раздела %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logger.Error("Store: Повреждённый раздел", err, zap.String("key", key))
		return false, fmt.Errorf("разбор раздела %s: %w", key, err)
	}
	return true, nil
}

// unit - единица работы: изменённые разделы копятся и фиксируются вместе
type unit struct {
	owner    uuid.UUID
	staged   map[string]any
	dirty    map[string]bool
	removed  map[string]bool
	order    []string
	activity []*models.ActivityLog
}

func (s *Store) begin(owner uuid.UUID) *unit {
	return &unit{
		owner:   owner,
		staged:  make(map[string]any),
		dirty:   make(map[string]bool),
		removed: make(map[string]bool),
	}
}

func (u *unit) stage(key string, value any) {
	if !u.dirty[key] {
		u.dirty[key] = true
		u.order = append(u.order, key)
	}
	u.staged[key] = value
	delete(u.removed, key)
}

func (u *unit) drop(key string) {
	u.stage(key, nil)
	u.removed[key] = true
}

func (u *unit) log(entry *models.ActivityLog) {
	u.activity = append(u.activity, entry)
}

// commit записывает все изменения юнита. Если хранилище умеет пакетную запись,
// она атомарна; иначе записи применяются по очереди, а при ошибке уже
// применённые ключи восстанавливаются из снимка.
func (s *Store) commit(ctx context.Context, u *unit) error {
	if len(u.activity) > 0 {
		entries, err := s.Activity.staged(ctx, u, uuid.Nil)
		if err != nil {
			return err
		}
		entries = append(entries, u.activity...)
		s.Activity.stage(u, uuid.Nil, entries)
		u.activity = nil
	}

	writes := make([]repository.Write, 0, len(u.order))
	for _, key := range u.order {
		if u.removed[key] {
			writes = append(writes, repository.Write{Key: key, Delete: true})
			continue
		}
		raw, err := json.Marshal(u.staged[key])
		if err != nil {
			return fmt.Errorf("сериализация раздела %s: %w", key, err)
		}
		writes = append(writes, repository.Write{Key: key, Value: string(raw)})
	}
	if len(writes) == 0 {
		return nil
	}

	if batcher, ok := s.kv.(repository.Batcher); ok {
		if err := batcher.Apply(ctx, writes); err != nil {
			logger.Error("Store: Пакетная запись не удалась", err, zap.Int("writes", len(writes)))
			return fmt.Errorf("фиксация изменений: %w", err)
		}
		return nil
	}
	return s.applyWithCompensation(ctx, writes)
}

type snapshot struct {
	value   string
	present bool
}

func (s *Store) applyWithCompensation(ctx context.Context, writes []repository.Write) error {
	before := make([]snapshot, len(writes))
	for i, w := range writes {
		raw, err := s.kv.Get(ctx, w.Key)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return fmt.Errorf("снимок раздела %s: %w", w.Key, err)
		default:
			before[i] = snapshot{value: raw, present: true}
		}
	}

	for i, w := range writes {
		var err error
		if w.Delete {
			err = s.kv.Remove(ctx, w.Key)
		} else {
			err = s.kv.Set(ctx, w.Key, w.Value)
		}
		if err == nil {
			continue
		}

		logger.Error("Store: Запись не удалась, откатываем применённые ключи", err,
			zap.String("key", w.Key), zap.Int("applied", i))
		for j := i - 1; j >= 0; j-- {
			s.restore(ctx, writes[j].Key, before[j])
		}
		return fmt.Errorf("запись раздела %s: %w", w.Key, err)
	}
	return nil
}

func (s *Store) restore(ctx context.Context, key string, snap snapshot) {
	var err error
	if snap.present {
		err = s.kv.Set(ctx, key, snap.value)
	} else {
		err = s.kv.Remove(ctx, key)
	}
	if err != nil {
		logger.Error("Store: Компенсация не удалась", err, zap.String("key", key))
	}
}

// Owners возвращает владельцев, у которых есть хотя бы один раздел
func (s *Store) Owners(ctx context.Context) ([]uuid.UUID, error) {
	keys, err := s.kv.Keys(ctx, s.prefix+"_")
	if err != nil {
		return nil, fmt.Errorf("получение ключей: %w", err)
	}

	seen := map[uuid.UUID]bool{}
	owners := []uuid.UUID{}
	for _, key := range keys {
		for _, table := range ownerTables {
			tablePrefix := s.prefix + "_" + table + "_"
			if !strings.HasPrefix(key, tablePrefix) {
				continue
			}
			id, err := uuid.Parse(strings.TrimPrefix(key, tablePrefix))
			if err != nil || seen[id] {
				continue
			}
			seen[id] = true
			owners = append(owners, id)
		}
	}
	return owners, nil
}

// ClearAll удаляет все разделы владельца и его записи в журнале активности.
// Операция необратима.
func (s *Store) ClearAll(ctx context.Context, owner uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.begin(owner)
	for _, table := range ownerTables {
		u.drop(s.key(table, owner))
	}

	entries, err := s.Activity.staged(ctx, u, uuid.Nil)
	if err != nil {
		return err
	}
	kept := make([]*models.ActivityLog, 0, len(entries))
	for _, e := range entries {
		if e.ActorID != owner {
			kept = append(kept, e)
		}
	}
	s.Activity.stage(u, uuid.Nil, kept)

	if err := s.commit(ctx, u); err != nil {
		return err
	}
	logger.Info("Store: Данные пользователя удалены", zap.String("owner", owner.String()))
	return nil
}
