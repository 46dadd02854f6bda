package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskOption - частичное обновление задачи. nil-опции пропускаются.
type TaskOption = func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithStatus(status Status) TaskOption {
	if !status.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

func WithPriority(priority Priority) TaskOption {
	if !priority.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithCategory(category string) TaskOption {
	return func(task *Task) {
		task.Category = category
	}
}

// WithAssignee с nil снимает исполнителя
func WithAssignee(assignee *uuid.UUID) TaskOption {
	return func(task *Task) {
		task.AssigneeID = assignee
	}
}

// WithDueDate с nil убирает срок
func WithDueDate(due *time.Time) TaskOption {
	return func(task *Task) {
		task.DueDate = due
	}
}

// TaskPatch - сериализуемая форма частичного обновления, её передают по сети.
// Заданы только ненулевые поля; ClearAssignee и ClearDueDate сбрасывают значения.
type TaskPatch struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	Priority      *Priority  `json:"priority,omitempty"`
	Category      *string    `json:"category,omitempty"`
	AssigneeID    *uuid.UUID `json:"assignee_id,omitempty"`
	ClearAssignee bool       `json:"clear_assignee,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ClearDueDate  bool       `json:"clear_due_date,omitempty"`
}

func (p TaskPatch) Options() []TaskOption {
	opts := []TaskOption{}
	if p.Title != nil {
		opts = append(opts, WithTitle(*p.Title))
	}
	if p.Description != nil {
		opts = append(opts, WithDescription(*p.Description))
	}
	if p.Status != nil {
		opts = append(opts, WithStatus(*p.Status))
	}
	if p.Priority != nil {
		opts = append(opts, WithPriority(*p.Priority))
	}
	if p.Category != nil {
		opts = append(opts, WithCategory(*p.Category))
	}
	if p.AssigneeID != nil {
		opts = append(opts, WithAssignee(p.AssigneeID))
	} else if p.ClearAssignee {
		opts = append(opts, WithAssignee(nil))
	}
	if p.DueDate != nil {
		opts = append(opts, WithDueDate(p.DueDate))
	} else if p.ClearDueDate {
		opts = append(opts, WithDueDate(nil))
	}
	return opts
}

// Apply применяет патч к копии задачи
func (p TaskPatch) Apply(task Task) Task {
	for _, opt := range p.Options() {
		if opt != nil {
			opt(&task)
		}
	}
	return task
}

func StatusPatch(status Status) TaskPatch {
	return TaskPatch{Status: &status}
}
