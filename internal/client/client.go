package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hermes/internal/handlers/dto"
	"hermes/internal/models"
	"hermes/internal/repository"

	"github.com/google/uuid"
)

// Client ходит в HTTP API hermes от имени одного пользователя.
// Реализует board.Backend и board.Directory, поэтому доска может работать
// поверх удалённого сервера так же, как поверх локального хранилища.
type Client struct {
	owner   uuid.UUID
	baseURL string
	http    *http.Client
}

func New(baseURL string, owner uuid.UUID) *Client {
	return &Client{
		owner:   owner,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError - ответ сервера с кодом ошибки
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("hermes api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("hermes api %d: %s", e.Status, e.Message)
}

// Unwrap позволяет проверять ответы через errors.Is с ошибками хранилища
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return repository.ErrNotFound
	case e.Code == "VERSION_CONFLICT":
		return repository.ErrVersionConflict
	}
	return nil
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) ListTasks(ctx context.Context, projectID uuid.UUID) ([]*models.Task, error) {
	var res envelope[[]*models.Task]
	if err := c.call(ctx, http.MethodGet, "/api/projects/"+projectID.String()+"/tasks", nil, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	payload := dto.CreateTaskRequest{
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		Category:    task.Category,
		AssigneeID:  task.AssigneeID,
		DueDate:     task.DueDate,
	}
	var res envelope[*models.Task]
	if err := c.call(ctx, http.MethodPost, "/api/projects/"+task.ProjectID.String()+"/tasks", payload, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	var res envelope[*models.Task]
	if err := c.call(ctx, http.MethodPatch, "/api/tasks/"+id.String(), dto.UpdateTaskRequest{TaskPatch: patch}, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// DeleteTask возвращает false, если задачи на сервере уже нет
func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) (bool, error) {
	err := c.call(ctx, http.MethodDelete, "/api/tasks/"+id.String(), nil, nil)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) AddComment(ctx context.Context, taskID uuid.UUID, content string) (*models.TaskComment, error) {
	var res envelope[*models.TaskComment]
	if err := c.call(ctx, http.MethodPost, "/api/tasks/"+taskID.String()+"/comments", dto.CommentRequest{Content: content}, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (c *Client) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.TaskComment, error) {
	var res envelope[[]*models.TaskComment]
	if err := c.call(ctx, http.MethodGet, "/api/tasks/"+taskID.String()+"/comments", nil, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// DisplayName возвращает "" для пользователя без профиля
func (c *Client) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var res envelope[*models.Profile]
	err := c.call(ctx, http.MethodGet, "/api/profiles/"+userID.String(), nil, &res)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return res.Data.DisplayName, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-User-ID", c.owner.String())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		var res errorBody
		if err := json.NewDecoder(resp.Body).Decode(&res); err == nil {
			// у бизнес-ошибок есть и код, и сообщение; у остальных только текст в error
			if res.Message != "" {
				apiErr.Code = res.Error
				apiErr.Message = res.Message
			} else if res.Error != "" {
				apiErr.Message = res.Error
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
