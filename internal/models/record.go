package models

import (
	"time"

	"github.com/google/uuid"
)

// Meta - общие поля всех записей. Version растёт на каждом обновлении.
type Meta struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

func (m *Meta) Base() *Meta { return m }

// Record реализуют указатели на сущности, встраивающие Meta
type Record interface {
	Base() *Meta
}

type EntityType string

const (
	EntityProject    EntityType = "project"
	EntityMember     EntityType = "project_member"
	EntityInvitation EntityType = "project_invitation"
	EntityTask       EntityType = "task"
	EntityComment    EntityType = "task_comment"
	EntityDocument   EntityType = "document"
	EntityTemplate   EntityType = "document_template"
	EntitySettings   EntityType = "user_settings"
	EntityActivity   EntityType = "activity_log"
	EntityProfile    EntityType = "profile"
)
