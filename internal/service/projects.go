package service

import (
	"context"

	"hermes/internal/logger"
	"hermes/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (w *Workspace) ListProjects(ctx context.Context, owner uuid.UUID) ([]*models.Project, error) {
	projects, err := w.store.Projects.List(ctx, owner)
	if err != nil {
		return nil, translate(err, models.EntityProject, "", "получение проектов")
	}
	return projects, nil
}

func (w *Workspace) GetProject(ctx context.Context, owner, id uuid.UUID) (*models.Project, error) {
	project, err := w.store.Projects.Get(ctx, owner, id)
	if err != nil {
		return nil, translate(err, models.EntityProject, id.String(), "получение проекта")
	}
	return project, nil
}

func (w *Workspace) CreateProject(ctx context.Context, owner uuid.UUID, p *models.Project) (*models.Project, error) {
	project, _, err := w.store.CreateProject(ctx, owner, p)
	if err != nil {
		return nil, translate(err, models.EntityProject, "", "создание проекта")
	}
	logger.Info("Service: Проект создан",
		zap.String("owner", owner.String()),
		zap.String("project_id", project.ID.String()))
	return project, nil
}

func (w *Workspace) UpdateProject(ctx context.Context, owner, id uuid.UUID, expectedVersion int, changes ...func(*models.Project)) (*models.Project, error) {
	project, err := w.store.Projects.UpdateVersioned(ctx, owner, id, expectedVersion, changes...)
	if err != nil {
		return nil, translate(err, models.EntityProject, id.String(), "обновление проекта")
	}
	return project, nil
}

// DeleteProject удаляет проект со всеми задачами, документами и участниками и закрывает его доску
func (w *Workspace) DeleteProject(ctx context.Context, owner, id uuid.UUID) error {
	removed, err := w.store.Projects.Delete(ctx, owner, id)
	if err != nil {
		return translate(err, models.EntityProject, id.String(), "удаление проекта")
	}
	if !removed {
		return NewNotFound(models.EntityProject, id.String())
	}
	w.closeBoard(owner, id)
	logger.Info("Service: Проект удалён",
		zap.String("owner", owner.String()),
		zap.String("project_id", id.String()))
	return nil
}

func (w *Workspace) ListMembers(ctx context.Context, owner, projectID uuid.UUID) ([]*models.ProjectMember, error) {
	if _, err := w.GetProject(ctx, owner, projectID); err != nil {
		return nil, err
	}
	members, err := w.store.ProjectMembers(ctx, owner, projectID)
	if err != nil {
		return nil, translate(err, models.EntityMember, "", "получение участников")
	}
	return members, nil
}

func (w *Workspace) AddMember(ctx context.Context, owner, projectID, userID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error) {
	member, err := w.store.AddMember(ctx, owner, projectID, userID, role)
	if err != nil {
		return nil, translate(err, models.EntityProject, projectID.String(), "добавление участника")
	}
	return member, nil
}

func (w *Workspace) UpdateMemberRole(ctx context.Context, owner, memberID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error) {
	member, err := w.store.UpdateMemberRole(ctx, owner, memberID, role)
	if err != nil {
		return nil, translate(err, models.EntityMember, memberID.String(), "изменение роли")
	}
	return member, nil
}

func (w *Workspace) RemoveMember(ctx context.Context, owner, memberID uuid.UUID) error {
	removed, err := w.store.Members.Delete(ctx, owner, memberID)
	if err != nil {
		return translate(err, models.EntityMember, memberID.String(), "удаление участника")
	}
	if !removed {
		return NewNotFound(models.EntityMember, memberID.String())
	}
	return nil
}

func (w *Workspace) Invite(ctx context.Context, owner uuid.UUID, inv *models.ProjectInvitation) (*models.ProjectInvitation, error) {
	invitation, err := w.store.InviteMember(ctx, owner, inv)
	if err != nil {
		return nil, translate(err, models.EntityProject, inv.ProjectID.String(), "приглашение участника")
	}
	return invitation, nil
}

func (w *Workspace) PendingInvitations(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID) ([]*models.ProjectInvitation, error) {
	invitations, err := w.store.PendingInvitations(ctx, owner, projectID)
	if err != nil {
		return nil, translate(err, models.EntityInvitation, "", "получение приглашений")
	}
	return invitations, nil
}

func (w *Workspace) RespondInvitation(ctx context.Context, owner, invitationID, userID uuid.UUID, accept bool) (*models.ProjectInvitation, *models.ProjectMember, error) {
	invitation, member, err := w.store.RespondInvitation(ctx, owner, invitationID, userID, accept)
	if err != nil {
		return nil, nil, translate(err, models.EntityInvitation, invitationID.String(), "ответ на приглашение")
	}
	return invitation, member, nil
}
