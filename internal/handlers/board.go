package handlers

import (
	"net/http"
	"time"

	"hermes/internal/board"
	"hermes/internal/handlers/dto"
	"hermes/internal/logger"
	"hermes/internal/middleware"
	"hermes/internal/models"
	"hermes/internal/realtime"

	"go.uber.org/zap"
)

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.Workspace.BoardView(r.Context(), middleware.GetOwner(r.Context()), projectID)
	if err != nil {
		handleServiceError(w, r, err, "не удалось загрузить доску")
		return
	}

	logOut("Доска получена", start, http.StatusOK)
	responseWithData(w, http.StatusOK, view)
}

// MoveTask переносит карточку. Ответ содержит доску сразу после переноса,
// запись в хранилище завершается в фоне.
func (h *Handler) MoveTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.MoveTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	var dest models.Status
	switch {
	case request.Status != nil:
		dest = *request.Status
	case request.ColumnID != "":
		parsed, err := board.ParseColumnID(request.ColumnID)
		if err != nil {
			logger.Warn("HTTP: Ошибка валидации",
				zap.String("field", "column_id"),
				zap.String("value", request.ColumnID),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		dest = parsed
	default:
		responseWithError(w, http.StatusBadRequest, "нужно указать status или column_id")
		return
	}

	view, err := h.Workspace.MoveTask(r.Context(), middleware.GetOwner(r.Context()), projectID, request.TaskID, dest, request.Index)
	if err != nil {
		handleServiceError(w, r, err, "не удалось перенести задачу")
		return
	}

	logOut("Задача перенесена", start, http.StatusOK,
		zap.String("task_id", request.TaskID.String()),
		zap.String("status", string(dest)))
	responseWithData(w, http.StatusOK, view)
}

// SubscribeBoard держит websocket с обновлениями доски проекта
func (h *Handler) SubscribeBoard(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	hub := h.Workspace.Hub()
	if hub == nil {
		responseWithError(w, http.StatusNotImplemented, "подписки на доску отключены")
		return
	}

	view, err := h.Workspace.BoardView(r.Context(), middleware.GetOwner(r.Context()), projectID)
	if err != nil {
		handleServiceError(w, r, err, "не удалось загрузить доску")
		return
	}

	if err := hub.Serve(w, r, projectID, realtime.Message{Type: "board", Data: view}); err != nil {
		logger.Warn("HTTP: Не удалось открыть websocket",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
	}
}
