package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hermes/internal/models"
	"hermes/internal/repository"

	"github.com/google/uuid"
)

const defaultProjectColor = "#3b82f6"

func (s *Store) wire() {
	s.Projects = newCollection[models.Project](s, tableProjects, models.EntityProject)
	s.Projects.logged = true
	s.Projects.prepare = func(ctx context.Context, u *unit, owner uuid.UUID, p *models.Project) error {
		p.Title = strings.TrimSpace(p.Title)
		if p.Title == "" {
			return invalid("title", "пустое название")
		}
		if p.Status == "" {
			p.Status = models.ProjectActive
		}
		if !p.Status.Valid() {
			return invalid("status", fmt.Sprintf("неизвестный статус %q", p.Status))
		}
		if p.Color == "" {
			p.Color = defaultProjectColor
		}
		if p.OwnerID == uuid.Nil {
			p.OwnerID = owner
		}
		p.ActivityAt = s.clock()
		return nil
	}
	s.Projects.freeze = func(prev, next *models.Project) {
		next.OwnerID = prev.OwnerID
	}
	s.Projects.scope = func(_ context.Context, _ *unit, _ uuid.UUID, p *models.Project) *uuid.UUID {
		id := p.ID
		return &id
	}
	s.Projects.describe = func(p *models.Project) map[string]any {
		return map[string]any{"title": p.Title, "status": p.Status}
	}
	s.Projects.cascade = func(ctx context.Context, u *unit, owner uuid.UUID, p *models.Project) error {
		inProject := p.ID
		if _, err := s.Members.removeWhere(ctx, u, owner, func(m *models.ProjectMember) bool { return m.ProjectID == inProject }); err != nil {
			return err
		}
		if _, err := s.Invitations.removeWhere(ctx, u, owner, func(i *models.ProjectInvitation) bool { return i.ProjectID == inProject }); err != nil {
			return err
		}
		if _, err := s.Tasks.removeWhere(ctx, u, owner, func(t *models.Task) bool { return t.ProjectID == inProject }); err != nil {
			return err
		}
		_, err := s.Documents.removeWhere(ctx, u, owner, func(d *models.Document) bool { return d.ProjectID == inProject })
		return err
	}

	s.Members = newCollection[models.ProjectMember](s, tableMembers, models.EntityMember)
	s.Members.logged = true
	s.Members.prepare = func(ctx context.Context, u *unit, owner uuid.UUID, m *models.ProjectMember) error {
		if !m.Role.Valid() {
			return invalid("role", fmt.Sprintf("неизвестная роль %q", m.Role))
		}
		if m.JoinedAt.IsZero() {
			m.JoinedAt = s.clock()
		}
		return s.requireProject(ctx, u, owner, m.ProjectID)
	}
	s.Members.scope = func(_ context.Context, _ *unit, _ uuid.UUID, m *models.ProjectMember) *uuid.UUID {
		id := m.ProjectID
		return &id
	}
	s.Members.describe = func(m *models.ProjectMember) map[string]any {
		return map[string]any{"user_id": m.UserID.String(), "role": m.Role}
	}

	s.Invitations = newCollection[models.ProjectInvitation](s, tableInvitations, models.EntityInvitation)
	s.Invitations.logged = true
	s.Invitations.prepare = func(ctx context.Context, u *unit, owner uuid.UUID, i *models.ProjectInvitation) error {
		i.Email = strings.TrimSpace(strings.ToLower(i.Email))
		if !strings.Contains(i.Email, "@") {
			return invalid("email", "некорректный адрес")
		}
		if i.Role != models.RoleMember && i.Role != models.RoleObserver {
			return invalid("role", "пригласить можно только участника или наблюдателя")
		}
		if i.Status == "" {
			i.Status = models.InvitationPending
		}
		if i.ExpiresAt.IsZero() {
			i.ExpiresAt = s.clock().Add(models.InvitationTTL)
		}
		if i.InviterID == uuid.Nil {
			i.InviterID = owner
		}
		return s.requireProject(ctx, u, owner, i.ProjectID)
	}
	s.Invitations.scope = func(_ context.Context, _ *unit, _ uuid.UUID, i *models.ProjectInvitation) *uuid.UUID {
		id := i.ProjectID
		return &id
	}
	s.Invitations.describe = func(i *models.ProjectInvitation) map[string]any {
		return map[string]any{"email": i.Email, "status": i.Status}
	}

	s.Tasks = newCollection[models.Task](s, tableTasks, models.EntityTask)
	s.Tasks.logged = true
	s.Tasks.prepare = func(ctx context.Context, u *unit, owner uuid.UUID, t *models.Task) error {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			return invalid("title", "пустое название")
		}
		if t.Status == "" {
			t.Status = models.StatusTodo
		}
		if !t.Status.Valid() {
			return invalid("status", fmt.Sprintf("неизвестный статус %q", t.Status))
		}
		if t.Priority == "" {
			t.Priority = models.PriorityMedium
		}
		if !t.Priority.Valid() {
			return invalid("priority", fmt.Sprintf("неизвестный приоритет %q", t.Priority))
		}
		if t.CreatorID == uuid.Nil {
			t.CreatorID = owner
		}
		return s.requireProject(ctx, u, owner, t.ProjectID)
	}
	s.Tasks.scope = func(_ context.Context, _ *unit, _ uuid.UUID, t *models.Task) *uuid.UUID {
		id := t.ProjectID
		return &id
	}
	s.Tasks.describe = func(t *models.Task) map[string]any {
		return map[string]any{"title": t.Title, "status": t.Status}
	}
	s.Tasks.cascade = func(ctx context.Context, u *unit, owner uuid.UUID, t *models.Task) error {
		taskID := t.ID
		_, err := s.Comments.removeWhere(ctx, u, owner, func(c *models.TaskComment) bool { return c.TaskID == taskID })
		return err
	}

	s.Comments = newCollection[models.TaskComment](s, tableComments, models.EntityComment)
	s.Comments.logged = true
	s.Comments.prepare = func(ctx context.Context, u *unit, owner uuid.UUID, c *models.TaskComment) error {
		c.Content = strings.TrimSpace(c.Content)
		if c.Content == "" {
			return invalid("content", "пустой комментарий")
		}
		if c.AuthorID == uuid.Nil {
			c.AuthorID = owner
		}
		if _, err := s.stagedTask(ctx, u, owner, c.TaskID); err != nil {
			return err
		}
		return nil
	}
	// комментарий попадает в журнал проекта своей задачи
	s.Comments.scope = func(ctx context.Context, u *unit, owner uuid.UUID, c *models.TaskComment) *uuid.UUID {
		task, err := s.stagedTask(ctx, u, owner, c.TaskID)
		if err != nil {
			return nil
		}
		id := task.ProjectID
		return &id
	}
	s.Comments.describe = func(c *models.TaskComment) map[string]any {
		return map[string]any{"task_id": c.TaskID.String()}
	}

	s.Documents = newCollection[models.Document](s, tableDocuments, models.EntityDocument)
	s.Documents.logged = true
	s.Documents.prepare = func(ctx context.Context, u *unit, owner uuid.UUID, d *models.Document) error {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" {
			return invalid("title", "пустое название")
		}
		if d.Status == "" {
			d.Status = models.DocumentDraft
		}
		if !d.Status.Valid() {
			return invalid("status", fmt.Sprintf("неизвестный статус %q", d.Status))
		}
		if d.CreatorID == uuid.Nil {
			d.CreatorID = owner
		}
		return s.requireProject(ctx, u, owner, d.ProjectID)
	}
	s.Documents.scope = func(_ context.Context, _ *unit, _ uuid.UUID, d *models.Document) *uuid.UUID {
		id := d.ProjectID
		return &id
	}
	s.Documents.describe = func(d *models.Document) map[string]any {
		return map[string]any{"title": d.Title, "status": d.Status}
	}

	s.Templates = newCollection[models.DocumentTemplate](s, tableTemplates, models.EntityTemplate)
	s.Templates.global = true
	s.Templates.prepare = func(_ context.Context, _ *unit, _ uuid.UUID, t *models.DocumentTemplate) error {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			return invalid("title", "пустое название")
		}
		for _, f := range t.Fields {
			if f.Name == "" {
				return invalid("fields", "у поля нет имени")
			}
			if f.Type == models.FieldSelect && len(f.Options) == 0 {
				return invalid("fields", fmt.Sprintf("у поля %s нет вариантов выбора", f.Name))
			}
		}
		return nil
	}

	s.Profiles = newCollection[models.Profile](s, tableProfiles, models.EntityProfile)
	s.Profiles.global = true

	s.Activity = newCollection[models.ActivityLog](s, tableActivity, models.EntityActivity)
	s.Activity.global = true
}

func (s *Store) requireProject(ctx context.Context, u *unit, owner, projectID uuid.UUID) error {
	projects, err := s.Projects.staged(ctx, u, owner)
	if err != nil {
		return err
	}
	if indexOf(projects, projectID) < 0 {
		return fmt.Errorf("проект %s: %w", projectID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) stagedTask(ctx context.Context, u *unit, owner, taskID uuid.UUID) (*models.Task, error) {
	tasks, err := s.Tasks.staged(ctx, u, owner)
	if err != nil {
		return nil, err
	}
	idx := indexOf(tasks, taskID)
	if idx < 0 {
		return nil, fmt.Errorf("задача %s: %w", taskID, repository.ErrNotFound)
	}
	return tasks[idx], nil
}

// CreateProject создаёт проект и членство владельца в одной единице работы:
// либо появляются обе записи, либо ни одной.
func (s *Store) CreateProject(ctx context.Context, owner uuid.UUID, p *models.Project) (*models.Project, *models.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.begin(owner)
	project, err := s.Projects.insert(ctx, u, owner, p, true, func(rec *models.Project) {
		rec.OwnerID = owner
	})
	if err != nil {
		return nil, nil, err
	}

	member, err := s.Members.insert(ctx, u, owner, &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    owner,
		Role:      models.RoleOwner,
	}, false)
	if err != nil {
		return nil, nil, err
	}

	if err := s.commit(ctx, u); err != nil {
		return nil, nil, err
	}
	return project, member, nil
}

func (s *Store) ProjectTasks(ctx context.Context, owner, projectID uuid.UUID) ([]*models.Task, error) {
	return s.Tasks.Filter(ctx, owner, func(t *models.Task) bool { return t.ProjectID == projectID })
}

func (s *Store) ProjectMembers(ctx context.Context, owner, projectID uuid.UUID) ([]*models.ProjectMember, error) {
	return s.Members.Filter(ctx, owner, func(m *models.ProjectMember) bool { return m.ProjectID == projectID })
}

func (s *Store) ProjectDocuments(ctx context.Context, owner, projectID uuid.UUID) ([]*models.Document, error) {
	return s.Documents.Filter(ctx, owner, func(d *models.Document) bool { return d.ProjectID == projectID })
}

// AddMember отклоняет повторное членство того же пользователя в проекте
func (s *Store) AddMember(ctx context.Context, owner, projectID, userID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.begin(owner)
	member, err := s.addMember(ctx, u, owner, projectID, userID, role)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, u); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Store) addMember(ctx context.Context, u *unit, owner, projectID, userID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error) {
	members, err := s.Members.staged(ctx, u, owner)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.ProjectID == projectID && m.UserID == userID {
			return nil, ErrAlreadyMember
		}
	}
	return s.Members.insert(ctx, u, owner, &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}, true)
}

// UpdateMemberRole меняет роль без проверки, что у проекта остаётся владелец:
// управление ролями полностью на вызывающей стороне.
func (s *Store) UpdateMemberRole(ctx context.Context, owner, memberID uuid.UUID, role models.MemberRole) (*models.ProjectMember, error) {
	return s.Members.Update(ctx, owner, memberID, func(m *models.ProjectMember) {
		m.Role = role
	})
}

func (s *Store) InviteMember(ctx context.Context, owner uuid.UUID, inv *models.ProjectInvitation) (*models.ProjectInvitation, error) {
	return s.Invitations.Create(ctx, owner, inv, func(i *models.ProjectInvitation) {
		i.Status = models.InvitationPending
		i.InviterID = owner
		i.ExpiresAt = s.clock().Add(models.InvitationTTL)
	})
}

// PendingInvitations - ожидающие и не просроченные на момент now приглашения
func (s *Store) PendingInvitations(ctx context.Context, owner uuid.UUID, projectID *uuid.UUID) ([]*models.ProjectInvitation, error) {
	now := s.clock()
	return s.Invitations.Filter(ctx, owner, func(i *models.ProjectInvitation) bool {
		if projectID != nil && i.ProjectID != *projectID {
			return false
		}
		return i.Status == models.InvitationPending && !i.Expired(now)
	})
}

// RespondInvitation принимает или отклоняет приглашение. При принятии членство
// userID создаётся в той же единице работы.
func (s *Store) RespondInvitation(ctx context.Context, owner, invitationID, userID uuid.UUID, accept bool) (*models.ProjectInvitation, *models.ProjectMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.begin(owner)
	invitations, err := s.Invitations.staged(ctx, u, owner)
	if err != nil {
		return nil, nil, err
	}
	idx := indexOf(invitations, invitationID)
	if idx < 0 {
		return nil, nil, repository.ErrNotFound
	}
	current := invitations[idx]
	if current.Status != models.InvitationPending {
		return nil, nil, ErrInvitationClosed
	}
	if current.Expired(s.clock()) {
		return nil, nil, ErrInvitationExpired
	}

	status := models.InvitationRejected
	if accept {
		status = models.InvitationAccepted
	}
	invitation, err := s.Invitations.modify(ctx, u, owner, invitationID, 0, []func(*models.ProjectInvitation){
		func(i *models.ProjectInvitation) { i.Status = status },
	})
	if err != nil {
		return nil, nil, err
	}

	var member *models.ProjectMember
	if accept {
		member, err = s.addMember(ctx, u, owner, invitation.ProjectID, userID, invitation.Role)
		if err != nil && !errors.Is(err, ErrAlreadyMember) {
			return nil, nil, err
		}
	}

	if err := s.commit(ctx, u); err != nil {
		return nil, nil, err
	}
	return invitation, member, nil
}

// AddComment пишет в журнал проекта, которому принадлежит задача
func (s *Store) AddComment(ctx context.Context, owner, taskID, authorID uuid.UUID, content string) (*models.TaskComment, error) {
	return s.Comments.Create(ctx, owner, &models.TaskComment{
		TaskID:   taskID,
		AuthorID: authorID,
		Content:  content,
	})
}

// TaskComments - комментарии задачи от старых к новым
func (s *Store) TaskComments(ctx context.Context, owner, taskID uuid.UUID) ([]*models.TaskComment, error) {
	return s.Comments.Filter(ctx, owner, func(c *models.TaskComment) bool { return c.TaskID == taskID })
}
