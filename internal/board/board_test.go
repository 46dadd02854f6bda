package board_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hermes/internal/board"
	"hermes/internal/models"
	"hermes/internal/repository/inmemory"
	"hermes/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBackend - мок источника задач
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Task), args.Error(1)
}

func (m *MockBackend) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockBackend) UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockBackend) DeleteTask(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackend) AddComment(ctx context.Context, taskID uuid.UUID, content string) (*models.TaskComment, error) {
	args := m.Called(ctx, taskID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskComment), args.Error(1)
}

func (m *MockBackend) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TaskComment), args.Error(1)
}

var _ board.Backend = (*MockBackend)(nil)

type staticDirectory map[uuid.UUID]string

func (d staticDirectory) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	return d[userID], nil
}

func newTask(projectID uuid.UUID, title string, status models.Status) *models.Task {
	return &models.Task{
		Meta:      models.Meta{ID: uuid.New(), Version: 1},
		Title:     title,
		Status:    status,
		Priority:  models.PriorityMedium,
		ProjectID: projectID,
	}
}

func column(v board.View, status models.Status) board.Column {
	for _, c := range v.Columns {
		if c.ID == status {
			return c
		}
	}
	return board.Column{}
}

func titles(c board.Column) []string {
	res := []string{}
	for _, card := range c.Tasks {
		res = append(res, card.Title)
	}
	return res
}

// TestBoard_Load тестирует раскладку задач по колонкам
func TestBoard_Load(t *testing.T) {
	projectID := uuid.New()
	anna := uuid.New()
	t1 := newTask(projectID, "T1", models.StatusTodo)
	t1.AssigneeID = &anna
	t2 := newTask(projectID, "T2", models.StatusInProgress2)
	t3 := newTask(projectID, "T3", models.StatusTodo)

	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{t1, t2, t3}, nil)

	b := board.New(projectID, backend, staticDirectory{anna: "Anna"})
	require.NoError(t, b.Load(context.Background()))

	v := b.Snapshot()
	require.Len(t, v.Columns, 4)
	assert.Equal(t, "To do", v.Columns[0].Title)
	assert.Equal(t, "In progress", v.Columns[1].Title)
	assert.Equal(t, "Review", v.Columns[2].Title)
	assert.Equal(t, "Done", v.Columns[3].Title)

	todo := column(v, models.StatusTodo)
	assert.Equal(t, []string{"T1", "T3"}, titles(todo))
	assert.Equal(t, "Anna", todo.Tasks[0].AssigneeName)
	assert.Equal(t, []string{"T2"}, titles(column(v, models.StatusInProgress2)))
	assert.False(t, v.Loading)
	assert.Empty(t, v.Error)

	backend.AssertExpectations(t)
}

// TestBoard_LoadError тестирует ошибку загрузки
func TestBoard_LoadError(t *testing.T) {
	projectID := uuid.New()
	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return(nil, errors.New("offline"))

	b := board.New(projectID, backend, nil)
	err := b.Load(context.Background())
	require.Error(t, err)
	assert.Error(t, b.Err())

	v := b.Snapshot()
	assert.False(t, v.Loading)
	assert.Contains(t, v.Error, "offline")
}

// TestBoard_MoveTask тестирует оптимистичный перенос
func TestBoard_MoveTask(t *testing.T) {
	projectID := uuid.New()
	t1 := newTask(projectID, "T1", models.StatusTodo)
	t2 := newTask(projectID, "T2", models.StatusDone)

	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{t1, t2}, nil).Once()

	release := make(chan struct{})
	backend.On("UpdateTask", mock.Anything, t1.ID, models.StatusPatch(models.StatusDone)).
		Run(func(args mock.Arguments) { <-release }).
		Return(t1, nil).Once()

	b := board.New(projectID, backend, nil)
	require.NoError(t, b.Load(context.Background()))

	require.NoError(t, b.MoveTask(t1.ID, models.StatusDone, 0))

	// состояние обновлено до подтверждения записи
	v := b.Snapshot()
	assert.Empty(t, column(v, models.StatusTodo).Tasks)
	done := column(v, models.StatusDone)
	assert.Equal(t, []string{"T1", "T2"}, titles(done))
	assert.Equal(t, models.StatusDone, done.Tasks[0].Status)

	close(release)
	b.Wait()
	assert.NoError(t, b.Err())
	backend.AssertExpectations(t)
}

// TestBoard_MoveTaskClampsIndex тестирует ограничение позиции
func TestBoard_MoveTaskClampsIndex(t *testing.T) {
	projectID := uuid.New()
	t1 := newTask(projectID, "T1", models.StatusTodo)
	t2 := newTask(projectID, "T2", models.StatusInProgress)
	t3 := newTask(projectID, "T3", models.StatusInProgress)

	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{t1, t2, t3}, nil)
	backend.On("UpdateTask", mock.Anything, mock.Anything, mock.Anything).Return(t1, nil)

	b := board.New(projectID, backend, nil)
	require.NoError(t, b.Load(context.Background()))

	require.NoError(t, b.MoveTask(t1.ID, models.StatusInProgress, 99))
	assert.Equal(t, []string{"T2", "T3", "T1"}, titles(column(b.Snapshot(), models.StatusInProgress)))

	require.NoError(t, b.MoveTask(t1.ID, models.StatusInProgress, -5))
	assert.Equal(t, []string{"T1", "T2", "T3"}, titles(column(b.Snapshot(), models.StatusInProgress)))

	b.Wait()
}

// TestBoard_MoveTaskErrors тестирует синхронные ошибки переноса
func TestBoard_MoveTaskErrors(t *testing.T) {
	projectID := uuid.New()
	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{}, nil)

	b := board.New(projectID, backend, nil)
	require.NoError(t, b.Load(context.Background()))

	assert.ErrorIs(t, b.MoveTask(uuid.New(), "blocked", 0), board.ErrUnknownColumn)
	assert.ErrorIs(t, b.MoveTask(uuid.New(), models.StatusDone, 0), board.ErrTaskNotOnBoard)
	backend.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
}

// TestBoard_MoveTaskFailureReloads тестирует перечитывание доски после ошибки записи
func TestBoard_MoveTaskFailureReloads(t *testing.T) {
	projectID := uuid.New()
	t1 := newTask(projectID, "T1", models.StatusTodo)

	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{t1}, nil).Twice()
	backend.On("UpdateTask", mock.Anything, t1.ID, mock.Anything).Return(nil, errors.New("timeout")).Once()

	b := board.New(projectID, backend, nil)
	require.NoError(t, b.Load(context.Background()))
	require.NoError(t, b.MoveTask(t1.ID, models.StatusDone, 0))
	b.Wait()

	v := b.Snapshot()
	assert.Equal(t, []string{"T1"}, titles(column(v, models.StatusTodo)))
	assert.Empty(t, column(v, models.StatusDone).Tasks)
	require.Error(t, b.Err())
	assert.Contains(t, b.Err().Error(), "timeout")

	backend.AssertExpectations(t)
}

// TestBoard_CloseIgnoresLateCompletion тестирует закрытую доску
func TestBoard_CloseIgnoresLateCompletion(t *testing.T) {
	projectID := uuid.New()
	t1 := newTask(projectID, "T1", models.StatusTodo)

	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{t1}, nil).Once()

	release := make(chan struct{})
	backend.On("UpdateTask", mock.Anything, t1.ID, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(nil, errors.New("late failure")).Once()

	b := board.New(projectID, backend, nil)
	require.NoError(t, b.Load(context.Background()))

	var mu sync.Mutex
	notified := 0
	b.OnChange(func(board.View) {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	require.NoError(t, b.MoveTask(t1.ID, models.StatusDone, 0))
	b.Close()
	close(release)
	b.Wait()

	assert.NoError(t, b.Err())
	assert.Equal(t, []string{"T1"}, titles(column(b.Snapshot(), models.StatusDone)))
	mu.Lock()
	assert.Equal(t, 1, notified)
	mu.Unlock()
	backend.AssertNumberOfCalls(t, "ListTasks", 1)
}

// TestBoard_AddUpdateDelete тестирует изменения через Backend
func TestBoard_AddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.New()
	existing := newTask(projectID, "Old", models.StatusTodo)
	created := newTask(projectID, "New", models.StatusTodo)

	backend := new(MockBackend)
	backend.On("ListTasks", mock.Anything, projectID).Return([]*models.Task{existing}, nil)
	backend.On("CreateTask", mock.Anything, mock.MatchedBy(func(t *models.Task) bool {
		return t.ProjectID == projectID && t.Title == "New"
	})).Return(created, nil)

	b := board.New(projectID, backend, nil)
	require.NoError(t, b.Load(ctx))

	_, err := b.AddTask(ctx, &models.Task{Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, []string{"New", "Old"}, titles(column(b.Snapshot(), models.StatusTodo)))

	renamed := *created
	renamed.Title = "Renamed"
	title := "Renamed"
	backend.On("UpdateTask", mock.Anything, created.ID, models.TaskPatch{Title: &title}).Return(&renamed, nil)
	_, err = b.UpdateTask(ctx, created.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, []string{"Renamed", "Old"}, titles(column(b.Snapshot(), models.StatusTodo)))

	moved := *existing
	moved.Status = models.StatusInProgress
	backend.On("UpdateTask", mock.Anything, existing.ID, models.StatusPatch(models.StatusInProgress)).Return(&moved, nil)
	_, err = b.UpdateTask(ctx, existing.ID, models.StatusPatch(models.StatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, []string{"Renamed"}, titles(column(b.Snapshot(), models.StatusTodo)))
	assert.Equal(t, []string{"Old"}, titles(column(b.Snapshot(), models.StatusInProgress)))

	backend.On("DeleteTask", mock.Anything, created.ID).Return(true, nil)
	removed, err := b.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, column(b.Snapshot(), models.StatusTodo).Tasks)

	backend.On("DeleteTask", mock.Anything, existing.ID).Return(false, errors.New("forbidden"))
	_, err = b.DeleteTask(ctx, existing.ID)
	require.Error(t, err)
	assert.Error(t, b.Err())
	assert.Equal(t, []string{"Old"}, titles(column(b.Snapshot(), models.StatusInProgress)))

	backend.AssertExpectations(t)
}

// TestParseColumnID тестирует разбор строковых идентификаторов колонок
func TestParseColumnID(t *testing.T) {
	tests := []struct {
		id       string
		expected models.Status
	}{
		{id: "column-todo", expected: models.StatusTodo},
		{id: "column-inprogress", expected: models.StatusInProgress},
		{id: "column-inprogress2", expected: models.StatusInProgress2},
		{id: "done", expected: models.StatusDone},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			status, err := board.ParseColumnID(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}

	_, err := board.ParseColumnID("column-archive")
	assert.ErrorIs(t, err, board.ErrUnknownColumn)
}

// TestBoard_LocalScenario тестирует доску поверх хранилища
func TestBoard_LocalScenario(t *testing.T) {
	ctx := context.Background()
	s := store.New(inmemory.NewSubstrate())
	owner := uuid.New()
	view := s.For(owner)

	p, _, err := s.CreateProject(ctx, owner, &models.Project{Title: "Alpha"})
	require.NoError(t, err)

	b := board.New(p.ID, view, view)
	require.NoError(t, b.Load(ctx))
	t1, err := b.AddTask(ctx, &models.Task{Title: "T1", Status: models.StatusTodo})
	require.NoError(t, err)

	require.NoError(t, b.MoveTask(t1.ID, models.StatusDone, 0))
	b.Wait()
	require.NoError(t, b.Err())

	tasks, err := s.Tasks.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StatusDone, tasks[0].Status)

	removed, err := s.Projects.Delete(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	tasks, err = s.Tasks.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	projects, err := s.Projects.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, projects)

	require.NoError(t, b.Load(ctx))
	assert.Empty(t, column(b.Snapshot(), models.StatusDone).Tasks)
}
