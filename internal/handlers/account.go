package handlers

import (
	"net/http"
	"strconv"
	"time"

	"hermes/internal/handlers/dto"
	"hermes/internal/logger"
	"hermes/internal/middleware"
	"hermes/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultActivityLimit = 50

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	settings, err := h.Workspace.Settings(r.Context(), middleware.GetOwner(r.Context()))
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить настройки")
		return
	}

	logOut("Настройки получены", start, http.StatusOK)
	responseWithData(w, http.StatusOK, settings)
}

func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SettingsRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	settings, err := h.Workspace.SaveSettings(r.Context(), middleware.GetOwner(r.Context()), request.Apply)
	if err != nil {
		handleServiceError(w, r, err, "не удалось сохранить настройки")
		return
	}

	logOut("Настройки сохранены", start, http.StatusOK, zap.Int("version", settings.Version))
	responseWithData(w, http.StatusOK, settings)
}

func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	h.activity(w, r, nil)
}

func (h *Handler) ProjectActivity(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.activity(w, r, &projectID)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request, projectID *uuid.UUID) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("querry", "limit"),
				zap.String("value", raw),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "неверное значение limit")
			return
		}
		limit = parsed
	}

	entries, err := h.Workspace.Activity(r.Context(), middleware.GetOwner(r.Context()), projectID, limit)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить журнал")
		return
	}

	logOut("Журнал получен", start, http.StatusOK, zap.Int("count", len(entries)))
	responseWithData(w, http.StatusOK, entries)
}

func (h *Handler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	h.profile(w, r, middleware.GetOwner(r.Context()))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.profile(w, r, id)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	profile, err := h.Workspace.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить профиль")
		return
	}

	logOut("Профиль получен", start, http.StatusOK)
	responseWithData(w, http.StatusOK, profile)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.ProfileRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	profile, err := h.Workspace.UpsertProfile(r.Context(), middleware.GetOwner(r.Context()), request.DisplayName, request.Email)
	if err != nil {
		handleServiceError(w, r, err, "не удалось сохранить профиль")
		return
	}

	logOut("Профиль сохранён", start, http.StatusOK)
	responseWithData(w, http.StatusOK, profile)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	snap, err := h.Workspace.Export(r.Context(), middleware.GetOwner(r.Context()))
	if err != nil {
		handleServiceError(w, r, err, "не удалось выгрузить данные")
		return
	}

	logOut("Данные выгружены", start, http.StatusOK,
		zap.Int("projects", len(snap.Projects)),
		zap.Int("tasks", len(snap.Tasks)))
	responseWithData(w, http.StatusOK, snap)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var snap store.Snapshot
	if !decodeJSON(w, r, &snap) {
		return
	}

	report, err := h.Workspace.Import(r.Context(), middleware.GetOwner(r.Context()), &snap)
	if err != nil {
		handleServiceError(w, r, err, "не удалось загрузить данные")
		return
	}

	logOut("Данные загружены", start, http.StatusOK, zap.Int("skipped", report.Skipped))
	responseWithData(w, http.StatusOK, report)
}

// Clear необратимо удаляет все данные пользователя. Нужен параметр confirm=true.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if r.URL.Query().Get("confirm") != "true" {
		responseWithError(w, http.StatusBadRequest, "для удаления всех данных передайте confirm=true")
		return
	}

	if err := h.Workspace.Clear(r.Context(), middleware.GetOwner(r.Context())); err != nil {
		handleServiceError(w, r, err, "не удалось удалить данные")
		return
	}

	logOut("Данные удалены", start, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}
