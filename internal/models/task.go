package models

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusTodo        Status = "todo"
	StatusInProgress  Status = "inprogress"
	StatusInProgress2 Status = "inprogress2"
	StatusDone        Status = "done"
)

// Statuses в порядке колонок доски
var Statuses = []Status{StatusTodo, StatusInProgress, StatusInProgress2, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInProgress2, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	Meta
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category"`
	ProjectID   uuid.UUID  `json:"project_id"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	CreatorID   uuid.UUID  `json:"creator_id"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type TaskComment struct {
	Meta
	TaskID   uuid.UUID `json:"task_id"`
	AuthorID uuid.UUID `json:"author_id"`
	Content  string    `json:"content"`
}
