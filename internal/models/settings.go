package models

import "github.com/google/uuid"

type NotificationSettings struct {
	Email          bool `json:"email"`
	Push           bool `json:"push"`
	TaskAssigned   bool `json:"task_assigned"`
	TaskDue        bool `json:"task_due"`
	ProjectUpdates bool `json:"project_updates"`
}

type AppearanceSettings struct {
	Theme       string `json:"theme"`
	Language    string `json:"language"`
	CompactView bool   `json:"compact_view"`
}

type BotSettings struct {
	Username  string `json:"username,omitempty"`
	Connected bool   `json:"connected"`
}

// UserSettings - единственная запись на пользователя
type UserSettings struct {
	Meta
	UserID        uuid.UUID            `json:"user_id"`
	Notifications NotificationSettings `json:"notifications"`
	Appearance    AppearanceSettings   `json:"appearance"`
	Bot           BotSettings          `json:"bot"`
}

func DefaultSettings(userID uuid.UUID) UserSettings {
	return UserSettings{
		UserID: userID,
		Notifications: NotificationSettings{
			Email:          true,
			Push:           true,
			TaskAssigned:   true,
			TaskDue:        true,
			ProjectUpdates: true,
		},
		Appearance: AppearanceSettings{Theme: "light", Language: "ru"},
	}
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ActivityLog только добавляется; удаляется целиком вместе с данными пользователя
type ActivityLog struct {
	Meta
	ProjectID  *uuid.UUID     `json:"project_id,omitempty"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Action     Action         `json:"action"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
}
