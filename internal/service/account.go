package service

import (
	"context"

	"hermes/internal/logger"
	"hermes/internal/models"
	"hermes/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (w *Workspace) Settings(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error) {
	settings, err := w.store.Settings(ctx, owner)
	if err != nil {
		return nil, translate(err, models.EntitySettings, owner.String(), "получение настроек")
	}
	return settings, nil
}

func (w *Workspace) SaveSettings(ctx context.Context, owner uuid.UUID, changes ...func(*models.UserSettings)) (*models.UserSettings, error) {
	settings, err := w.store.SaveSettings(ctx, owner, changes...)
	if err != nil {
		return nil, translate(err, models.EntitySettings, owner.String(), "сохранение настроек")
	}
	return settings, nil
}

func (w *Workspace) Activity(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID, limit int) ([]*models.ActivityLog, error) {
	entries, err := w.store.ActivityFor(ctx, owner, projectID, limit)
	if err != nil {
		return nil, translate(err, models.EntityActivity, "", "получение журнала")
	}
	return entries, nil
}

func (w *Workspace) UpsertProfile(ctx context.Context, userID uuid.UUID, displayName, email string) (*models.Profile, error) {
	profile, err := w.store.UpsertProfile(ctx, userID, displayName, email)
	if err != nil {
		return nil, translate(err, models.EntityProfile, userID.String(), "сохранение профиля")
	}
	return profile, nil
}

func (w *Workspace) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	profile, err := w.store.Profile(ctx, userID)
	if err != nil {
		return nil, translate(err, models.EntityProfile, userID.String(), "получение профиля")
	}
	return profile, nil
}

func (w *Workspace) Export(ctx context.Context, owner uuid.UUID) (*store.Snapshot, error) {
	snap, err := w.store.ExportAll(ctx, owner)
	if err != nil {
		return nil, translate(err, "", owner.String(), "экспорт данных")
	}
	return snap, nil
}

// Import создаёт копии записей снимка. Открытые доски владельца закрываются
// и откроются заново при следующем обращении.
func (w *Workspace) Import(ctx context.Context, owner uuid.UUID, snap *store.Snapshot) (*store.ImportReport, error) {
	report, err := w.store.ImportAll(ctx, owner, snap)
	if err != nil {
		return nil, translate(err, "", owner.String(), "импорт данных")
	}
	w.closeOwnerBoards(owner)
	return report, nil
}

// Clear необратимо удаляет все данные владельца
func (w *Workspace) Clear(ctx context.Context, owner uuid.UUID) error {
	w.closeOwnerBoards(owner)
	if err := w.store.ClearAll(ctx, owner); err != nil {
		return translate(err, "", owner.String(), "удаление данных")
	}
	logger.Warn("Service: Все данные пользователя удалены", zap.String("owner", owner.String()))
	return nil
}
