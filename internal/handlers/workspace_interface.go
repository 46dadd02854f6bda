package handlers

import (
	"context"

	"hermes/internal/board"
	"hermes/internal/models"
	"hermes/internal/realtime"
	"hermes/internal/service"
	"hermes/internal/store"

	"github.com/google/uuid"
)

type ProjectService interface {
	ListProjects(ctx context.Context, owner uuid.UUID) ([]*models.Project, error)
	GetProject(ctx context.Context, owner, id uuid.UUID) (*models.Project, error)
	CreateProject(ctx context.Context, owner uuid.UUID, p *models.Project) (*models.Project, error)
	UpdateProject(ctx context.Context, owner, id uuid.UUID, expectedVersion int, changes ...func(*models.Project)) (*models.Project, error)
	DeleteProject(ctx context.Context, owner, id uuid.UUID) error

	ListMembers(ctx context.Context, owner, projectID uuid.UUID) ([]*models.ProjectMember, error)
	AddMember(ctx context.Context, owner, projectID, userID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error)
	UpdateMemberRole(ctx context.Context, owner, memberID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error)
	RemoveMember(ctx context.Context, owner, memberID uuid.UUID) error

	Invite(ctx context.Context, owner uuid.UUID, inv *models.ProjectInvitation) (*models.ProjectInvitation, error)
	PendingInvitations(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID) ([]*models.ProjectInvitation, error)
	RespondInvitation(ctx context.Context, owner, invitationID, userID uuid.UUID, accept bool) (*models.ProjectInvitation, *models.ProjectMember, error)
}

type TaskService interface {
	ListTasks(ctx context.Context, owner, projectID uuid.UUID) ([]*models.Task, error)
	GetTask(ctx context.Context, owner, id uuid.UUID) (*models.Task, error)
	CreateTask(ctx context.Context, owner uuid.UUID, task *models.Task) (*models.Task, error)
	UpdateTask(ctx context.Context, owner, id uuid.UUID, expectedVersion int, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, owner, id uuid.UUID) error
	SearchTasks(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID, query string) ([]store.TaskMatch, error)

	ListComments(ctx context.Context, owner, taskID uuid.UUID) ([]*models.TaskComment, error)
	AddComment(ctx context.Context, owner, taskID uuid.UUID, content string) (*models.TaskComment, error)
	DeleteComment(ctx context.Context, owner, id uuid.UUID) error

	BoardView(ctx context.Context, owner, projectID uuid.UUID) (board.View, error)
	MoveTask(ctx context.Context, owner, projectID, taskID uuid.UUID, dest models.Status, index int) (board.View, error)
	Hub() *realtime.Hub
}

type DocumentService interface {
	ListDocuments(ctx context.Context, owner, projectID uuid.UUID) ([]*models.Document, error)
	GetDocument(ctx context.Context, owner, id uuid.UUID) (*models.Document, error)
	CreateDocument(ctx context.Context, owner uuid.UUID, doc *models.Document) (*models.Document, error)
	UpdateDocument(ctx context.Context, owner, id uuid.UUID, expectedVersion int, changes ...func(*models.Document)) (*models.Document, error)
	DeleteDocument(ctx context.Context, owner, id uuid.UUID) error
	RenderDocument(ctx context.Context, owner, id uuid.UUID) (string, error)
	UploadFile(ctx context.Context, owner, id uuid.UUID, name string, data []byte, contentType string) (*models.Document, error)
	DownloadFile(ctx context.Context, owner, id uuid.UUID) ([]byte, string, error)

	ListTemplates(ctx context.Context) ([]*models.DocumentTemplate, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.DocumentTemplate, error)
	CreateTemplate(ctx context.Context, tmpl *models.DocumentTemplate) (*models.DocumentTemplate, error)
}

type AccountService interface {
	Settings(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error)
	SaveSettings(ctx context.Context, owner uuid.UUID, changes ...func(*models.UserSettings)) (*models.UserSettings, error)
	Activity(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID, limit int) ([]*models.ActivityLog, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, displayName, email string) (*models.Profile, error)

	Export(ctx context.Context, owner uuid.UUID) (*store.Snapshot, error)
	Import(ctx context.Context, owner uuid.UUID, snap *store.Snapshot) (*store.ImportReport, error)
	Clear(ctx context.Context, owner uuid.UUID) error
}

// WorkspaceService - всё, что API требует от сервисного слоя
type WorkspaceService interface {
	ProjectService
	TaskService
	DocumentService
	AccountService
	HealthCheck(ctx context.Context) error
}

var _ WorkspaceService = (*service.Workspace)(nil)
