package store

import (
	"errors"
	"fmt"
)

var (
	ErrNoTemplate        = errors.New("у документа нет шаблона")
	ErrAlreadyMember     = errors.New("пользователь уже участник проекта")
	ErrInvitationClosed  = errors.New("приглашение уже обработано")
	ErrInvitationExpired = errors.New("срок приглашения истёк")
)

// ValidationError - некорректное значение поля во входных данных
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
