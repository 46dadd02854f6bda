package service

import (
	"errors"
	"fmt"

	"hermes/internal/board"
	"hermes/internal/filestore"
	"hermes/internal/models"
	"hermes/internal/repository"
	"hermes/internal/store"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeVersionConflict   = "VERSION_CONFLICT"
	CodeMissingFields     = "MISSING_FIELDS"
	CodeNoTemplate        = "NO_TEMPLATE"
	CodeAlreadyMember     = "ALREADY_MEMBER"
	CodeInvitationClosed  = "INVITATION_CLOSED"
	CodeInvitationExpired = "INVITATION_EXPIRED"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource models.EntityType, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

// translate переводит ошибки хранилища и доски в BusinessError.
// Остальные ошибки возвращаются обёрнутыми как есть.
func translate(err error, resource models.EntityType, id string, op string) error {
	if err == nil {
		return nil
	}

	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr
	}

	var validation *store.ValidationError
	if errors.As(err, &validation) {
		return NewValidationError(validation.Field, validation.Reason)
	}

	var missing *models.MissingFieldsError
	if errors.As(err, &missing) {
		return NewBusinessError(CodeMissingFields, "не заполнены обязательные поля шаблона",
			ToDetail("fields", missing.Fields))
	}

	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, board.ErrTaskNotOnBoard):
		notFound := NewNotFound(resource, id)
		notFound.Err = err
		return notFound
	case errors.Is(err, filestore.ErrNotFound):
		return NewNotFound("file", id)
	case errors.Is(err, repository.ErrVersionConflict):
		return NewBusinessError(CodeVersionConflict, "запись изменена другим запросом, перечитайте её",
			ToDetail("resource", resource), ToDetail("id", id))
	case errors.Is(err, board.ErrUnknownColumn):
		return NewValidationError("status", err.Error())
	case errors.Is(err, filestore.ErrInvalidKey):
		return NewValidationError("file", err.Error())
	case errors.Is(err, store.ErrNoTemplate):
		return NewBusinessError(CodeNoTemplate, err.Error(), ToDetail("id", id))
	case errors.Is(err, store.ErrAlreadyMember):
		return NewBusinessError(CodeAlreadyMember, err.Error())
	case errors.Is(err, store.ErrInvitationClosed):
		return NewBusinessError(CodeInvitationClosed, err.Error(), ToDetail("id", id))
	case errors.Is(err, store.ErrInvitationExpired):
		return NewBusinessError(CodeInvitationExpired, err.Error(), ToDetail("id", id))
	}
	return fmt.Errorf("%s: %w", op, err)
}
