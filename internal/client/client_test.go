package client_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"hermes/internal/board"
	"hermes/internal/client"
	"hermes/internal/handlers"
	"hermes/internal/models"
	"hermes/internal/repository"
	"hermes/internal/repository/inmemory"
	"hermes/internal/service"
	"hermes/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*service.Workspace, *httptest.Server) {
	t.Helper()
	ws := service.NewWorkspace(store.New(inmemory.NewSubstrate()), nil, nil)
	router := chi.NewRouter()
	handler := handlers.NewHandler(ws)
	handler.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		ws.Close()
	})
	return ws, server
}

// TestClient_Tasks тестирует операции с задачами через API
func TestClient_Tasks(t *testing.T) {
	ctx := context.Background()
	ws, server := newServer(t)
	owner := uuid.New()
	project, err := ws.CreateProject(ctx, owner, &models.Project{Title: "Alpha"})
	require.NoError(t, err)

	c := client.New(server.URL+"/", owner)

	created, err := c.CreateTask(ctx, &models.Task{Title: "Remote", ProjectID: project.ID, Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, created.Priority)
	assert.Equal(t, owner, created.CreatorID)

	tasks, err := c.ListTasks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	title := "Remote renamed"
	updated, err := c.UpdateTask(ctx, created.ID, models.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	comment, err := c.AddComment(ctx, created.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", comment.Content)
	comments, err := c.ListComments(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	removed, err := c.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = c.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = c.UpdateTask(ctx, created.ID, models.TaskPatch{Title: &title})
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = c.CreateTask(ctx, &models.Task{Title: " ", ProjectID: project.ID})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
}

// TestClient_DisplayName тестирует справочник имён
func TestClient_DisplayName(t *testing.T) {
	ctx := context.Background()
	ws, server := newServer(t)
	owner := uuid.New()
	_, err := ws.UpsertProfile(ctx, owner, "Anna", "anna@example.com")
	require.NoError(t, err)

	c := client.New(server.URL, owner)

	name, err := c.DisplayName(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "Anna", name)

	name, err = c.DisplayName(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, name)
}

// TestClient_RemoteBoard тестирует доску поверх удалённого API
func TestClient_RemoteBoard(t *testing.T) {
	ctx := context.Background()
	ws, server := newServer(t)
	owner := uuid.New()
	project, err := ws.CreateProject(ctx, owner, &models.Project{Title: "Alpha"})
	require.NoError(t, err)
	assignee := uuid.New()
	_, err = ws.UpsertProfile(ctx, assignee, "Boris", "")
	require.NoError(t, err)
	task, err := ws.CreateTask(ctx, owner, &models.Task{Title: "T1", ProjectID: project.ID, AssigneeID: &assignee})
	require.NoError(t, err)

	c := client.New(server.URL, owner)
	b := board.New(project.ID, c, c)
	defer b.Close()

	require.NoError(t, b.Load(ctx))
	view := b.Snapshot()
	require.Len(t, view.Columns[0].Tasks, 1)
	assert.Equal(t, "Boris", view.Columns[0].Tasks[0].AssigneeName)

	require.NoError(t, b.MoveTask(task.ID, models.StatusInProgress, 0))
	b.Wait()
	require.NoError(t, b.Err())

	stored, err := ws.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)
}
