package store

import (
	"context"
	"errors"

	"hermes/internal/models"
	"hermes/internal/repository"

	"github.com/google/uuid"
)

// OwnerView - данные одного пользователя в форме, которую ждёт доска
type OwnerView struct {
	store *Store
	owner uuid.UUID
}

func (s *Store) For(owner uuid.UUID) *OwnerView {
	return &OwnerView{store: s, owner: owner}
}

func (v *OwnerView) Owner() uuid.UUID {
	return v.owner
}

func (v *OwnerView) ListTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	return v.store.ProjectTasks(ctx, v.owner, projectID)
}

func (v *OwnerView) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	return v.store.Tasks.Create(ctx, v.owner, task)
}

func (v *OwnerView) UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	return v.store.Tasks.Update(ctx, v.owner, id, patch.Options()...)
}

func (v *OwnerView) DeleteTask(ctx context.Context, id uuid.UUID) (bool, error) {
	return v.store.Tasks.Delete(ctx, v.owner, id)
}

func (v *OwnerView) AddComment(ctx context.Context, taskID uuid.UUID, content string) (*models.TaskComment, error) {
	return v.store.AddComment(ctx, v.owner, taskID, v.owner, content)
}

func (v *OwnerView) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	return v.store.TaskComments(ctx, v.owner, taskID)
}

// DisplayName возвращает пустую строку для пользователя без профиля
func (v *OwnerView) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := v.store.Profile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}
