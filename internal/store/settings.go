package store

import (
	"context"
	"strings"

	"hermes/internal/models"

	"github.com/google/uuid"
)

// Settings возвращает настройки пользователя; если их ещё не сохраняли - значения по умолчанию
func (s *Store) Settings(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error) {
	settings := models.DefaultSettings(owner)
	if _, err := s.read(ctx, s.key(tableSettings, owner), &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings применяет изменения к текущим настройкам. Первое сохранение создаёт запись.
func (s *Store) SaveSettings(ctx context.Context, owner uuid.UUID, changes ...func(*models.UserSettings)) (*models.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(tableSettings, owner)
	current := models.DefaultSettings(owner)
	found, err := s.read(ctx, key, &current)
	if err != nil {
		return nil, err
	}

	next := current
	for _, change := range changes {
		if change != nil {
			change(&next)
		}
	}
	next.UserID = owner

	now := s.clock()
	if found {
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.Version = current.Version + 1
		next.UpdatedAt = s.tick(current.UpdatedAt)
	} else {
		next.ID = s.newID()
		next.CreatedAt = now
		next.UpdatedAt = now
		next.Version = 1
	}

	u := s.begin(owner)
	u.stage(key, &next)
	if err := s.commit(ctx, u); err != nil {
		return nil, err
	}
	return &next, nil
}

// ActivityFor - записи журнала, сделанные owner, от новых к старым.
// projectID ограничивает выборку одним проектом, limit <= 0 - без ограничения.
func (s *Store) ActivityFor(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID, limit int) ([]*models.ActivityLog, error) {
	entries, err := s.Activity.List(ctx, uuid.Nil)
	if err != nil {
		return nil, err
	}

	res := []*models.ActivityLog{}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.ActorID != owner {
			continue
		}
		if projectID != nil && (e.ProjectID == nil || *e.ProjectID != *projectID) {
			continue
		}
		res = append(res, e)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res, nil
}

// UpsertProfile создаёт или обновляет запись справочника с id == userID
func (s *Store) UpsertProfile(ctx context.Context, userID uuid.UUID, displayName, email string) (*models.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, invalid("display_name", "пустое имя")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.begin(userID)
	profiles, err := s.Profiles.staged(ctx, u, uuid.Nil)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	next := make([]*models.Profile, len(profiles), len(profiles)+1)
	copy(next, profiles)

	var saved *models.Profile
	if idx := indexOf(profiles, userID); idx >= 0 {
		prev := profiles[idx]
		updated := *prev
		updated.DisplayName = displayName
		updated.Email = email
		updated.Version = prev.Version + 1
		updated.UpdatedAt = s.tick(prev.UpdatedAt)
		next[idx] = &updated
		saved = &updated
	} else {
		saved = &models.Profile{
			Meta:        models.Meta{ID: userID, CreatedAt: now, UpdatedAt: now, Version: 1},
			DisplayName: displayName,
			Email:       email,
		}
		next = append(next, saved)
	}

	s.Profiles.stage(u, uuid.Nil, next)
	if err := s.commit(ctx, u); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Store) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.Profiles.Get(ctx, uuid.Nil, userID)
}
