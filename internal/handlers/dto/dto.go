package dto

import (
	"time"

	"hermes/internal/models"

	"github.com/google/uuid"
)

type CreateProjectRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       string               `json:"color"`
	Status      models.ProjectStatus `json:"status"`
}

func (r CreateProjectRequest) Project() *models.Project {
	return &models.Project{
		Title:       r.Title,
		Description: r.Description,
		Color:       r.Color,
		Status:      r.Status,
	}
}

type UpdateProjectRequest struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Color       *string               `json:"color,omitempty"`
	Status      *models.ProjectStatus `json:"status,omitempty"`
	Version     int                   `json:"version,omitempty"`
}

func (r UpdateProjectRequest) Apply(p *models.Project) {
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Color != nil {
		p.Color = *r.Color
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
}

type AddMemberRequest struct {
	UserID uuid.UUID         `json:"user_id"`
	Role   models.MemberRole `json:"role"`
}

type UpdateMemberRequest struct {
	Role models.MemberRole `json:"role"`
}

type InviteRequest struct {
	Email   string            `json:"email"`
	Role    models.MemberRole `json:"role"`
	Message string            `json:"message,omitempty"`
}

// RespondInvitationRequest: без user_id участником становится сам пользователь запроса
type RespondInvitationRequest struct {
	Accept bool       `json:"accept"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

type RespondInvitationResponse struct {
	Invitation *models.ProjectInvitation `json:"invitation"`
	Member     *models.ProjectMember     `json:"member,omitempty"`
}

type CreateTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status,omitempty"`
	Priority    models.Priority `json:"priority,omitempty"`
	Category    string          `json:"category,omitempty"`
	AssigneeID  *uuid.UUID      `json:"assignee_id,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
}

func (r CreateTaskRequest) Task(projectID uuid.UUID) *models.Task {
	return &models.Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Category:    r.Category,
		ProjectID:   projectID,
		AssigneeID:  r.AssigneeID,
		DueDate:     r.DueDate,
	}
}

type UpdateTaskRequest struct {
	models.TaskPatch
	Version int `json:"version,omitempty"`
}

// MoveTaskRequest: колонку можно задать статусом или идентификатором колонки доски
type MoveTaskRequest struct {
	TaskID   uuid.UUID      `json:"task_id"`
	Status   *models.Status `json:"status,omitempty"`
	ColumnID string         `json:"column_id,omitempty"`
	Index    int            `json:"index"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type CreateDocumentRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	TemplateID   *uuid.UUID            `json:"template_id,omitempty"`
	Status       models.DocumentStatus `json:"status,omitempty"`
	Counterparty *models.Counterparty  `json:"counterparty,omitempty"`
	FieldValues  map[string]string     `json:"field_values,omitempty"`
}

func (r CreateDocumentRequest) Document(projectID uuid.UUID) *models.Document {
	return &models.Document{
		Title:        r.Title,
		Description:  r.Description,
		TemplateID:   r.TemplateID,
		ProjectID:    projectID,
		Status:       r.Status,
		Counterparty: r.Counterparty,
		FieldValues:  r.FieldValues,
	}
}

type UpdateDocumentRequest struct {
	Title        *string                `json:"title,omitempty"`
	Description  *string                `json:"description,omitempty"`
	Status       *models.DocumentStatus `json:"status,omitempty"`
	Counterparty *models.Counterparty   `json:"counterparty,omitempty"`
	FieldValues  map[string]string      `json:"field_values,omitempty"`
	Version      int                    `json:"version,omitempty"`
}

// Apply: field_values сливаются с текущими значениями
func (r UpdateDocumentRequest) Apply(d *models.Document) {
	if r.Title != nil {
		d.Title = *r.Title
	}
	if r.Description != nil {
		d.Description = *r.Description
	}
	if r.Status != nil {
		d.Status = *r.Status
	}
	if r.Counterparty != nil {
		d.Counterparty = r.Counterparty
	}
	if len(r.FieldValues) > 0 {
		merged := make(map[string]string, len(d.FieldValues)+len(r.FieldValues))
		for k, v := range d.FieldValues {
			merged[k] = v
		}
		for k, v := range r.FieldValues {
			merged[k] = v
		}
		d.FieldValues = merged
	}
}

type RenderResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
}

type TemplateRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Content     string                 `json:"content"`
	Fields      []models.TemplateField `json:"fields"`
}

func (r TemplateRequest) Template() *models.DocumentTemplate {
	return &models.DocumentTemplate{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Content:     r.Content,
		Fields:      r.Fields,
	}
}

type SettingsRequest struct {
	Notifications *models.NotificationSettings `json:"notifications,omitempty"`
	Appearance    *models.AppearanceSettings   `json:"appearance,omitempty"`
	Bot           *models.BotSettings          `json:"bot,omitempty"`
}

func (r SettingsRequest) Apply(s *models.UserSettings) {
	if r.Notifications != nil {
		s.Notifications = *r.Notifications
	}
	if r.Appearance != nil {
		s.Appearance = *r.Appearance
	}
	if r.Bot != nil {
		s.Bot = *r.Bot
	}
}

type ProfileRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}
