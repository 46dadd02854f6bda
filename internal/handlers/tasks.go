package handlers

import (
	"net/http"
	"strings"
	"time"

	"hermes/internal/handlers/dto"
	"hermes/internal/logger"
	"hermes/internal/middleware"

	"go.uber.org/zap"
)

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tasks, err := h.Workspace.ListTasks(r.Context(), middleware.GetOwner(r.Context()), projectID)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить задачи")
		return
	}

	logOut("Задачи получены", start, http.StatusOK, zap.Int("count", len(tasks)))
	responseWithData(w, http.StatusOK, tasks)
}

func (h *Handler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("querry", "q"),
			zap.String("error", "empty_value"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "параметр q не может быть пустым")
		return
	}
	projectID, err := queryID(r, "project_id")
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	matches, err := h.Workspace.SearchTasks(r.Context(), middleware.GetOwner(r.Context()), projectID, query)
	if err != nil {
		handleServiceError(w, r, err, "не удалось выполнить поиск")
		return
	}

	logOut("Поиск выполнен", start, http.StatusOK, zap.Int("count", len(matches)))
	responseWithData(w, http.StatusOK, matches)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.Workspace.GetTask(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить задачу")
		return
	}

	logOut("Задача получена", start, http.StatusOK)
	responseWithData(w, http.StatusOK, task)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	if strings.TrimSpace(request.Title) == "" {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "title"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "название не может быть пустым")
		return
	}

	task, err := h.Workspace.CreateTask(r.Context(), middleware.GetOwner(r.Context()), request.Task(projectID))
	if err != nil {
		handleServiceError(w, r, err, "не удалось создать задачу")
		return
	}

	logOut("Задача создана", start, http.StatusCreated, zap.String("task_id", task.ID.String()))
	responseWithData(w, http.StatusCreated, task)
}

// UpdateTask: с версией (If-Match или version) изменение проверяется на конфликт
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	version, err := expectedVersion(r, request.Version)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.Workspace.UpdateTask(r.Context(), middleware.GetOwner(r.Context()), id, version, request.TaskPatch)
	if err != nil {
		handleServiceError(w, r, err, "не удалось обновить задачу")
		return
	}

	logOut("Задача обновлена", start, http.StatusOK, zap.Int("version", task.Version))
	responseWithData(w, http.StatusOK, task)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Workspace.DeleteTask(r.Context(), middleware.GetOwner(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "не удалось удалить задачу")
		return
	}

	logOut("Задача удалена", start, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.Workspace.ListComments(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить комментарии")
		return
	}

	logOut("Комментарии получены", start, http.StatusOK, zap.Int("count", len(comments)))
	responseWithData(w, http.StatusOK, comments)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.CommentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	comment, err := h.Workspace.AddComment(r.Context(), middleware.GetOwner(r.Context()), id, request.Content)
	if err != nil {
		handleServiceError(w, r, err, "не удалось добавить комментарий")
		return
	}

	logOut("Комментарий добавлен", start, http.StatusCreated)
	responseWithData(w, http.StatusCreated, comment)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Workspace.DeleteComment(r.Context(), middleware.GetOwner(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "не удалось удалить комментарий")
		return
	}

	logOut("Комментарий удалён", start, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}
