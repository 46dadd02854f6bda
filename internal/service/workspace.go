package service

import (
	"context"
	"fmt"
	"sync"

	"hermes/internal/board"
	"hermes/internal/filestore"
	"hermes/internal/logger"
	"hermes/internal/models"
	"hermes/internal/realtime"
	"hermes/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type boardKey struct {
	owner   uuid.UUID
	project uuid.UUID
}

// Workspace - бизнес-операции поверх хранилища. Доски проектов живут в памяти
// и создаются при первом обращении; их изменения рассылаются через hub.
type Workspace struct {
	store *store.Store
	files filestore.Store
	hub   *realtime.Hub

	mu     sync.Mutex
	boards map[boardKey]*board.Board
}

// NewWorkspace: files и hub могут быть nil
func NewWorkspace(st *store.Store, files filestore.Store, hub *realtime.Hub) *Workspace {
	return &Workspace{
		store:  st,
		files:  files,
		hub:    hub,
		boards: make(map[boardKey]*board.Board),
	}
}

func (w *Workspace) HealthCheck(ctx context.Context) error {
	if err := w.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (w *Workspace) Hub() *realtime.Hub {
	return w.hub
}

// Board возвращает загруженную доску проекта
func (w *Workspace) Board(ctx context.Context, owner, projectID uuid.UUID) (*board.Board, error) {
	key := boardKey{owner: owner, project: projectID}

	w.mu.Lock()
	b, ok := w.boards[key]
	w.mu.Unlock()
	if ok {
		return b, nil
	}

	if _, err := w.store.Projects.Get(ctx, owner, projectID); err != nil {
		return nil, translate(err, models.EntityProject, projectID.String(), "получение проекта")
	}

	view := w.store.For(owner)
	fresh := board.New(projectID, view, view)
	if err := fresh.Load(ctx); err != nil {
		fresh.Close()
		return nil, fmt.Errorf("загрузка доски: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.boards[key]; ok {
		fresh.Close()
		return existing, nil
	}
	if w.hub != nil {
		hub := w.hub
		fresh.OnChange(func(v board.View) {
			hub.Broadcast(projectID, realtime.Message{Type: "board", Data: v})
		})
	}
	w.boards[key] = fresh
	logger.Debug("Service: Доска открыта",
		zap.String("owner", owner.String()),
		zap.String("project_id", projectID.String()))
	return fresh, nil
}

// loadedBoard возвращает доску, только если она уже открыта
func (w *Workspace) loadedBoard(owner, projectID uuid.UUID) *board.Board {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.boards[boardKey{owner: owner, project: projectID}]
}

func (w *Workspace) closeBoard(owner, projectID uuid.UUID) {
	w.mu.Lock()
	key := boardKey{owner: owner, project: projectID}
	b, ok := w.boards[key]
	delete(w.boards, key)
	w.mu.Unlock()
	if ok {
		b.Close()
	}
}

func (w *Workspace) closeOwnerBoards(owner uuid.UUID) {
	w.mu.Lock()
	closing := []*board.Board{}
	for key, b := range w.boards {
		if key.owner == owner {
			closing = append(closing, b)
			delete(w.boards, key)
		}
	}
	w.mu.Unlock()
	for _, b := range closing {
		b.Close()
	}
}

func (w *Workspace) BoardView(ctx context.Context, owner, projectID uuid.UUID) (board.View, error) {
	b, err := w.Board(ctx, owner, projectID)
	if err != nil {
		return board.View{}, err
	}
	return b.Snapshot(), nil
}

// MoveTask переносит карточку и сразу возвращает новое состояние доски
func (w *Workspace) MoveTask(ctx context.Context, owner, projectID, taskID uuid.UUID, dest models.Status, index int) (board.View, error) {
	b, err := w.Board(ctx, owner, projectID)
	if err != nil {
		return board.View{}, err
	}
	if err := b.MoveTask(taskID, dest, index); err != nil {
		return board.View{}, translate(err, models.EntityTask, taskID.String(), "перенос задачи")
	}
	return b.Snapshot(), nil
}

// Close закрывает доски и ждёт фоновые записи
func (w *Workspace) Close() {
	w.mu.Lock()
	boards := w.boards
	w.boards = make(map[boardKey]*board.Board)
	w.mu.Unlock()

	for _, b := range boards {
		b.Close()
	}
	for _, b := range boards {
		b.Wait()
	}
	if w.hub != nil {
		w.hub.Close()
	}
}

func (w *Workspace) ListTasks(ctx context.Context, owner, projectID uuid.UUID) ([]*models.Task, error) {
	tasks, err := w.store.ProjectTasks(ctx, owner, projectID)
	if err != nil {
		return nil, translate(err, models.EntityTask, "", "получение задач")
	}
	return tasks, nil
}

func (w *Workspace) GetTask(ctx context.Context, owner, id uuid.UUID) (*models.Task, error) {
	task, err := w.store.Tasks.Get(ctx, owner, id)
	if err != nil {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		return nil, translate(err, models.EntityTask, id.String(), "получение задачи")
	}
	return task, nil
}

func (w *Workspace) SearchTasks(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID, query string) ([]store.TaskMatch, error) {
	matches, err := w.store.SearchTasks(ctx, owner, projectID, query, 0)
	if err != nil {
		return nil, translate(err, models.EntityTask, "", "поиск задач")
	}
	return matches, nil
}

// CreateTask создаёт задачу через доску проекта
func (w *Workspace) CreateTask(ctx context.Context, owner uuid.UUID, task *models.Task) (*models.Task, error) {
	b, err := w.Board(ctx, owner, task.ProjectID)
	if err != nil {
		return nil, err
	}
	task.CreatorID = owner
	created, err := b.AddTask(ctx, task)
	if err != nil {
		return nil, translate(err, models.EntityTask, "", "создание задачи")
	}
	return created, nil
}

// UpdateTask применяет патч. При expectedVersion > 0 изменение проверяется по версии
// и доска перечитывается, иначе изменение идёт через доску.
func (w *Workspace) UpdateTask(ctx context.Context, owner, id uuid.UUID, expectedVersion int, patch models.TaskPatch) (*models.Task, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", *patch.Status))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, NewValidationError("priority", fmt.Sprintf("неизвестный приоритет %q", *patch.Priority))
	}

	current, err := w.GetTask(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if expectedVersion > 0 {
		updated, err := w.store.Tasks.UpdateVersioned(ctx, owner, id, expectedVersion, patch.Options()...)
		if err != nil {
			return nil, translate(err, models.EntityTask, id.String(), "обновление задачи")
		}
		if b := w.loadedBoard(owner, current.ProjectID); b != nil {
			_ = b.Load(ctx)
		}
		return updated, nil
	}

	b, err := w.Board(ctx, owner, current.ProjectID)
	if err != nil {
		return nil, err
	}
	updated, err := b.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, translate(err, models.EntityTask, id.String(), "обновление задачи")
	}
	return updated, nil
}

func (w *Workspace) DeleteTask(ctx context.Context, owner, id uuid.UUID) error {
	current, err := w.GetTask(ctx, owner, id)
	if err != nil {
		return err
	}
	b, err := w.Board(ctx, owner, current.ProjectID)
	if err != nil {
		return err
	}
	removed, err := b.DeleteTask(ctx, id)
	if err != nil {
		return translate(err, models.EntityTask, id.String(), "удаление задачи")
	}
	if !removed {
		return NewNotFound(models.EntityTask, id.String())
	}
	return nil
}

func (w *Workspace) AddComment(ctx context.Context, owner, taskID uuid.UUID, content string) (*models.TaskComment, error) {
	comment, err := w.store.AddComment(ctx, owner, taskID, owner, content)
	if err != nil {
		return nil, translate(err, models.EntityTask, taskID.String(), "добавление комментария")
	}
	return comment, nil
}

func (w *Workspace) ListComments(ctx context.Context, owner, taskID uuid.UUID) ([]*models.TaskComment, error) {
	if _, err := w.GetTask(ctx, owner, taskID); err != nil {
		return nil, err
	}
	comments, err := w.store.TaskComments(ctx, owner, taskID)
	if err != nil {
		return nil, translate(err, models.EntityComment, "", "получение комментариев")
	}
	return comments, nil
}

func (w *Workspace) DeleteComment(ctx context.Context, owner, id uuid.UUID) error {
	removed, err := w.store.Comments.Delete(ctx, owner, id)
	if err != nil {
		return translate(err, models.EntityComment, id.String(), "удаление комментария")
	}
	if !removed {
		return NewNotFound(models.EntityComment, id.String())
	}
	return nil
}
