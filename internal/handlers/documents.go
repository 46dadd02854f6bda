package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"hermes/internal/handlers/dto"
	"hermes/internal/logger"
	"hermes/internal/middleware"

	"go.uber.org/zap"
)

const maxFileSize = 20 << 20

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	documents, err := h.Workspace.ListDocuments(r.Context(), middleware.GetOwner(r.Context()), projectID)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить документы")
		return
	}

	logOut("Документы получены", start, http.StatusOK, zap.Int("count", len(documents)))
	responseWithData(w, http.StatusOK, documents)
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	projectID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.CreateDocumentRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	doc, err := h.Workspace.CreateDocument(r.Context(), middleware.GetOwner(r.Context()), request.Document(projectID))
	if err != nil {
		handleServiceError(w, r, err, "не удалось создать документ")
		return
	}

	logOut("Документ создан", start, http.StatusCreated, zap.String("document_id", doc.ID.String()))
	responseWithData(w, http.StatusCreated, doc)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.Workspace.GetDocument(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить документ")
		return
	}

	logOut("Документ получен", start, http.StatusOK)
	responseWithData(w, http.StatusOK, doc)
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var request dto.UpdateDocumentRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	version, err := expectedVersion(r, request.Version)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.Workspace.UpdateDocument(r.Context(), middleware.GetOwner(r.Context()), id, version, request.Apply)
	if err != nil {
		handleServiceError(w, r, err, "не удалось обновить документ")
		return
	}

	logOut("Документ обновлён", start, http.StatusOK, zap.Int("version", doc.Version))
	responseWithData(w, http.StatusOK, doc)
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Workspace.DeleteDocument(r.Context(), middleware.GetOwner(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "не удалось удалить документ")
		return
	}

	logOut("Документ удалён", start, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RenderDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	content, err := h.Workspace.RenderDocument(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось заполнить документ")
		return
	}

	logOut("Документ заполнен", start, http.StatusOK)
	responseWithData(w, http.StatusOK, dto.RenderResponse{DocumentID: id, Content: content})
}

// UploadFile принимает тело запроса как есть, имя файла - параметр name
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		responseWithError(w, http.StatusBadRequest, "параметр name обязателен")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFileSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responseWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("файл больше %d байт", maxFileSize))
			return
		}
		responseWithError(w, http.StatusBadRequest, "не удалось прочитать файл: "+err.Error())
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	doc, err := h.Workspace.UploadFile(r.Context(), middleware.GetOwner(r.Context()), id, name, data, contentType)
	if err != nil {
		handleServiceError(w, r, err, "не удалось сохранить файл")
		return
	}

	logOut("Файл загружен", start, http.StatusOK,
		zap.String("file_key", doc.FileKey),
		zap.Int("size", len(data)))
	responseWithData(w, http.StatusOK, doc)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	data, name, err := h.Workspace.DownloadFile(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось прочитать файл")
		return
	}

	logOut("Файл отдан", start, http.StatusOK, zap.Int("size", len(data)))
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	templates, err := h.Workspace.ListTemplates(r.Context())
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить шаблоны")
		return
	}

	logOut("Шаблоны получены", start, http.StatusOK, zap.Int("count", len(templates)))
	responseWithData(w, http.StatusOK, templates)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tmpl, err := h.Workspace.GetTemplate(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "не удалось получить шаблон")
		return
	}

	logOut("Шаблон получен", start, http.StatusOK)
	responseWithData(w, http.StatusOK, tmpl)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.TemplateRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	tmpl, err := h.Workspace.CreateTemplate(r.Context(), request.Template())
	if err != nil {
		handleServiceError(w, r, err, "не удалось создать шаблон")
		return
	}

	logOut("Шаблон создан", start, http.StatusCreated, zap.String("template_id", tmpl.ID.String()))
	responseWithData(w, http.StatusCreated, tmpl)
}
