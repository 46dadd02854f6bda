package handlers

import (
	"errors"
	"net/http"

	"hermes/internal/logger"
	"hermes/internal/service"

	"go.uber.org/zap"
)

// handleBusinessError отвечает клиенту, если err - бизнес-ошибка, и возвращает true
func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
		toPayload("details", businessErr.Details),
	)
	return true
}

// handleServiceError: бизнес-ошибки уходят клиенту с кодом, остальные - как 500
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, defaultMessage string) {
	if handleBusinessError(w, err) {
		return
	}
	logger.Error("HTTP: Ошибка Service", err,
		zap.String("path", r.URL.Path),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, defaultMessage)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict, service.CodeAlreadyMember, service.CodeInvitationClosed:
		return http.StatusConflict
	case service.CodeInvitationExpired:
		return http.StatusGone
	case service.CodeMissingFields, service.CodeNoTemplate:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
