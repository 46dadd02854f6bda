package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"hermes/internal/logger"
	"hermes/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownColumn  = errors.New("неизвестная колонка")
	ErrTaskNotOnBoard = errors.New("задачи нет на доске")
)

// Backend - источник задач доски: локальное хранилище или удалённый API
type Backend interface {
	ListTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) (bool, error)
	AddComment(ctx context.Context, taskID uuid.UUID, content string) (*models.TaskComment, error)
	ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error)
}

// Directory разрешает имена исполнителей
type Directory interface {
	DisplayName(ctx context.Context, userID uuid.UUID) (string, error)
}

var columnTitles = map[models.Status]string{
	models.StatusTodo:        "To do",
	models.StatusInProgress:  "In progress",
	models.StatusInProgress2: "Review",
	models.StatusDone:        "Done",
}

type Card struct {
	models.Task
	AssigneeName string `json:"assignee_name,omitempty"`
}

type Column struct {
	ID    models.Status `json:"id"`
	Title string        `json:"title"`
	Tasks []Card        `json:"tasks"`
}

// View - копия состояния доски, её можно отдавать наружу
type View struct {
	ProjectID uuid.UUID `json:"project_id"`
	Columns   []Column  `json:"columns"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
}

// Board - доска одного проекта. Перемещение карточки сразу меняет состояние,
// а запись в Backend идёт в фоне; при ошибке доска перечитывается целиком.
// Очереди записей нет: последняя завершившаяся запись побеждает.
type Board struct {
	projectID uuid.UUID
	backend   Backend
	directory Directory

	mu       sync.Mutex
	columns  map[models.Status][]Card
	loading  bool
	err      error
	closed   bool
	onChange func(View)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New создаёт пустую доску; directory может быть nil
func New(projectID uuid.UUID, backend Backend, directory Directory) *Board {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Board{
		projectID: projectID,
		backend:   backend,
		directory: directory,
		columns:   map[models.Status][]Card{},
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, status := range models.Statuses {
		b.columns[status] = []Card{}
	}
	return b
}

func (b *Board) ProjectID() uuid.UUID {
	return b.projectID
}

// OnChange задаёт обработчик, который получает копию доски после каждого изменения
func (b *Board) OnChange(fn func(View)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Load перечитывает задачи проекта и заменяет состояние целиком
func (b *Board) Load(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.loading = true
	b.mu.Unlock()
	b.changed()

	tasks, err := b.backend.ListTasks(ctx, b.projectID)
	if err != nil {
		logger.Error("Board: Не удалось загрузить задачи", err, zap.String("project_id", b.projectID.String()))
		b.mu.Lock()
		if !b.closed {
			b.loading = false
			b.err = fmt.Errorf("загрузка доски: %w", err)
		}
		b.mu.Unlock()
		b.changed()
		return err
	}

	names := map[uuid.UUID]string{}
	columns := map[models.Status][]Card{}
	for _, status := range models.Statuses {
		columns[status] = []Card{}
	}
	for _, task := range tasks {
		if _, ok := columns[task.Status]; !ok {
			logger.Warn("Board: Задача с неизвестным статусом пропущена",
				zap.String("task_id", task.ID.String()),
				zap.String("status", string(task.Status)))
			continue
		}
		columns[task.Status] = append(columns[task.Status], b.card(ctx, task, names))
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.columns = columns
	b.loading = false
	b.err = nil
	b.mu.Unlock()
	b.changed()
	return nil
}

func (b *Board) card(ctx context.Context, task *models.Task, names map[uuid.UUID]string) Card {
	c := Card{Task: *task}
	if task.AssigneeID == nil || b.directory == nil {
		return c
	}
	if name, ok := names[*task.AssigneeID]; ok {
		c.AssigneeName = name
		return c
	}
	name, err := b.directory.DisplayName(ctx, *task.AssigneeID)
	if err != nil {
		logger.Warn("Board: Не удалось получить имя исполнителя",
			zap.String("assignee_id", task.AssigneeID.String()), zap.Error(err))
	}
	if names != nil {
		names[*task.AssigneeID] = name
	}
	c.AssigneeName = name
	return c
}

// ParseColumnID разбирает строковый идентификатор колонки вида "column-inprogress2".
// inprogress2 проверяется раньше inprogress, иначе он бы совпал с обоими.
func ParseColumnID(id string) (models.Status, error) {
	switch {
	case strings.Contains(id, string(models.StatusInProgress2)):
		return models.StatusInProgress2, nil
	case strings.Contains(id, string(models.StatusInProgress)):
		return models.StatusInProgress, nil
	case strings.Contains(id, string(models.StatusDone)):
		return models.StatusDone, nil
	case strings.Contains(id, string(models.StatusTodo)):
		return models.StatusTodo, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownColumn, id)
}

// MoveTask переносит карточку в колонку dest на позицию index (с ограничением
// границами колонки) и сразу обновляет состояние. Статус записывается в фоне;
// ошибка записи сохраняется в Err, после чего доска перечитывается.
func (b *Board) MoveTask(taskID uuid.UUID, dest models.Status, index int) error {
	if !dest.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, dest)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	card, ok := b.take(taskID)
	if !ok {
		b.mu.Unlock()
		return ErrTaskNotOnBoard
	}
	card.Status = dest
	target := b.columns[dest]
	if index < 0 {
		index = 0
	}
	if index > len(target) {
		index = len(target)
	}
	next := make([]Card, 0, len(target)+1)
	next = append(next, target[:index]...)
	next = append(next, card)
	next = append(next, target[index:]...)
	b.columns[dest] = next

	b.wg.Add(1)
	b.mu.Unlock()
	b.changed()

	go b.persistStatus(taskID, dest)
	return nil
}

func (b *Board) persistStatus(taskID uuid.UUID, dest models.Status) {
	defer b.wg.Done()

	_, err := b.backend.UpdateTask(b.ctx, taskID, models.StatusPatch(dest))
	if err == nil {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.err = fmt.Errorf("перенос задачи %s: %w", taskID, err)
	b.mu.Unlock()

	logger.Warn("Board: Перенос не сохранён, перечитываем доску",
		zap.String("task_id", taskID.String()),
		zap.String("status", string(dest)),
		zap.Error(err))

	reloadErr := b.Load(b.ctx)

	// Load сбрасывает ошибку при успехе; ошибку переноса оставляем видимой
	b.mu.Lock()
	if !b.closed && reloadErr == nil {
		b.err = fmt.Errorf("перенос задачи %s: %w", taskID, err)
	}
	b.mu.Unlock()
	b.changed()
}

// take убирает карточку из её колонки; вызывается под b.mu
func (b *Board) take(taskID uuid.UUID) (Card, bool) {
	for status, cards := range b.columns {
		for i, c := range cards {
			if c.ID != taskID {
				continue
			}
			next := make([]Card, 0, len(cards)-1)
			next = append(next, cards[:i]...)
			next = append(next, cards[i+1:]...)
			b.columns[status] = next
			return c, true
		}
	}
	return Card{}, false
}

// AddTask создаёт задачу в Backend и добавляет её в начало колонки
func (b *Board) AddTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.ProjectID = b.projectID
	created, err := b.backend.CreateTask(ctx, task)
	if err != nil {
		b.fail(fmt.Errorf("создание задачи: %w", err))
		return nil, err
	}

	card := b.card(ctx, created, nil)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return created, nil
	}
	b.columns[created.Status] = append([]Card{card}, b.columns[created.Status]...)
	b.err = nil
	b.mu.Unlock()
	b.changed()
	return created, nil
}

// UpdateTask сохраняет изменения и заменяет карточку. Если сменился статус,
// карточка переезжает в начало новой колонки.
func (b *Board) UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	updated, err := b.backend.UpdateTask(ctx, id, patch)
	if err != nil {
		b.fail(fmt.Errorf("обновление задачи %s: %w", id, err))
		return nil, err
	}

	card := b.card(ctx, updated, nil)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return updated, nil
	}
	replaced := false
	if cards, ok := b.columns[updated.Status]; ok {
		for i := range cards {
			if cards[i].ID == id {
				next := make([]Card, len(cards))
				copy(next, cards)
				next[i] = card
				b.columns[updated.Status] = next
				replaced = true
				break
			}
		}
	}
	if !replaced {
		b.take(id)
		b.columns[updated.Status] = append([]Card{card}, b.columns[updated.Status]...)
	}
	b.err = nil
	b.mu.Unlock()
	b.changed()
	return updated, nil
}

// DeleteTask удаляет задачу в Backend, затем с доски
func (b *Board) DeleteTask(ctx context.Context, id uuid.UUID) (bool, error) {
	removed, err := b.backend.DeleteTask(ctx, id)
	if err != nil {
		b.fail(fmt.Errorf("удаление задачи %s: %w", id, err))
		return false, err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return removed, nil
	}
	b.take(id)
	b.err = nil
	b.mu.Unlock()
	b.changed()
	return removed, nil
}

func (b *Board) AddComment(ctx context.Context, taskID uuid.UUID, content string) (*models.TaskComment, error) {
	return b.backend.AddComment(ctx, taskID, content)
}

func (b *Board) Comments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	return b.backend.ListComments(ctx, taskID)
}

// Err - последняя ошибка операции доски
func (b *Board) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Board) fail(err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.err = err
	b.mu.Unlock()
	b.changed()
}

// Snapshot возвращает глубокую копию состояния
func (b *Board) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view()
}

func (b *Board) view() View {
	v := View{
		ProjectID: b.projectID,
		Columns:   make([]Column, 0, len(models.Statuses)),
		Loading:   b.loading,
	}
	if b.err != nil {
		v.Error = b.err.Error()
	}
	for _, status := range models.Statuses {
		cards := make([]Card, len(b.columns[status]))
		copy(cards, b.columns[status])
		v.Columns = append(v.Columns, Column{ID: status, Title: columnTitles[status], Tasks: cards})
	}
	return v
}

func (b *Board) changed() {
	b.mu.Lock()
	fn := b.onChange
	if fn == nil || b.closed {
		b.mu.Unlock()
		return
	}
	v := b.view()
	b.mu.Unlock()
	fn(v)
}

// Close отменяет фоновые записи. Завершившиеся после закрытия записи
// состояние не меняют.
func (b *Board) Close() {
	b.mu.Lock()
	b.closed = true
	b.onChange = nil
	b.mu.Unlock()
	b.cancel()
}

// Wait ждёт завершения фоновых записей
func (b *Board) Wait() {
	b.wg.Wait()
}
