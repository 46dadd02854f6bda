package store

import (
	"context"
	"fmt"

	"hermes/internal/logger"
	"hermes/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Snapshot - все данные одного пользователя
type Snapshot struct {
	OwnerID     uuid.UUID                   `json:"owner_id"`
	ExportedAt  string                      `json:"exported_at"`
	Projects    []*models.Project           `json:"projects"`
	Members     []*models.ProjectMember     `json:"project_members"`
	Invitations []*models.ProjectInvitation `json:"project_invitations"`
	Tasks       []*models.Task              `json:"tasks"`
	Comments    []*models.TaskComment       `json:"task_comments"`
	Documents   []*models.Document          `json:"documents"`
	Templates   []*models.DocumentTemplate  `json:"custom_templates"`
	Settings    *models.UserSettings        `json:"user_settings"`
	Activity    []*models.ActivityLog       `json:"activity_logs"`
}

// ImportReport - сколько записей создано и сколько пропущено из-за битых ссылок
type ImportReport struct {
	Created map[string]int `json:"created"`
	Skipped int            `json:"skipped"`
}

// ExportAll читает разделы владельца параллельно
func (s *Store) ExportAll(ctx context.Context, owner uuid.UUID) (*Snapshot, error) {
	snap := &Snapshot{
		OwnerID:    owner,
		ExportedAt: s.clock().Format("2006-01-02T15:04:05.000Z07:00"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Projects, err = s.Projects.List(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.Members, err = s.Members.List(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.Invitations, err = s.Invitations.List(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.Tasks, err = s.Tasks.List(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.Comments, err = s.Comments.List(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.Documents, err = s.Documents.List(gctx, owner)
		return err
	})
	var templates []*models.DocumentTemplate
	g.Go(func() (err error) {
		templates, err = s.Templates.Filter(gctx, uuid.Nil, func(t *models.DocumentTemplate) bool { return t.Custom })
		return err
	})
	g.Go(func() (err error) {
		snap.Settings, err = s.Settings(gctx, owner)
		return err
	})
	g.Go(func() (err error) {
		snap.Activity, err = s.ActivityFor(gctx, owner, nil, 0)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Store: Экспорт не удался", err, zap.String("owner", owner.String()))
		return nil, fmt.Errorf("экспорт данных %s: %w", owner, err)
	}

	// в снимок попадают только шаблоны, на которые ссылаются документы владельца
	used := map[uuid.UUID]bool{}
	for _, d := range snap.Documents {
		if d.TemplateID != nil {
			used[*d.TemplateID] = true
		}
	}
	snap.Templates = []*models.DocumentTemplate{}
	for _, t := range templates {
		if used[t.ID] {
			snap.Templates = append(snap.Templates, t)
		}
	}
	return snap, nil
}

// ImportAll создаёт записи снимка под owner с новыми идентификаторами. Ссылки внутри
// снимка переназначаются, ссылки на владельца снимка заменяются на owner.
// Проверки на повтор нет: два импорта одного снимка дают дубликаты.
// Исключение - шаблоны: уже существующий шаблон (тот же id или то же название
// и содержимое) переиспользуется. Пустые записи и записи с битыми ссылками
// пропускаются и учитываются в Skipped. Журнал активности не импортируется.
func (s *Store) ImportAll(ctx context.Context, owner uuid.UUID, snap *Snapshot) (*ImportReport, error) {
	if snap == nil {
		return nil, invalid("snapshot", "пустой снимок")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &ImportReport{Created: map[string]int{}}
	u := s.begin(owner)

	user := func(id uuid.UUID) uuid.UUID {
		if id == snap.OwnerID {
			return owner
		}
		return id
	}
	optionalUser := func(id *uuid.UUID) *uuid.UUID {
		if id == nil {
			return nil
		}
		mapped := user(*id)
		return &mapped
	}

	existing, err := s.Templates.staged(ctx, u, uuid.Nil)
	if err != nil {
		return nil, err
	}
	templates := map[uuid.UUID]uuid.UUID{}
	for _, t := range snap.Templates {
		if t == nil {
			report.Skipped++
			continue
		}
		if same := matchTemplate(existing, t); same != nil {
			templates[t.ID] = same.ID
			continue
		}
		created, err := s.Templates.insert(ctx, u, uuid.Nil, t, false)
		if err != nil {
			return nil, err
		}
		templates[t.ID] = created.ID
		report.Created[tableTemplates]++
	}

	projects := map[uuid.UUID]uuid.UUID{}
	for _, p := range snap.Projects {
		if p == nil {
			report.Skipped++
			continue
		}
		next := *p
		next.OwnerID = owner
		created, err := s.Projects.insert(ctx, u, owner, &next, false)
		if err != nil {
			return nil, err
		}
		// prepare ставит текущее время, при импорте сохраняем исходное
		if !p.ActivityAt.IsZero() {
			created.ActivityAt = p.ActivityAt
		}
		projects[p.ID] = created.ID
		report.Created[tableProjects]++
	}

	for _, m := range snap.Members {
		if m == nil {
			report.Skipped++
			continue
		}
		projectID, ok := projects[m.ProjectID]
		if !ok {
			report.Skipped++
			continue
		}
		next := *m
		next.ProjectID = projectID
		next.UserID = user(m.UserID)
		if _, err := s.Members.insert(ctx, u, owner, &next, false); err != nil {
			return nil, err
		}
		report.Created[tableMembers]++
	}

	for _, inv := range snap.Invitations {
		if inv == nil {
			report.Skipped++
			continue
		}
		projectID, ok := projects[inv.ProjectID]
		if !ok {
			report.Skipped++
			continue
		}
		next := *inv
		next.ProjectID = projectID
		next.InviterID = user(inv.InviterID)
		if _, err := s.Invitations.insert(ctx, u, owner, &next, false); err != nil {
			return nil, err
		}
		report.Created[tableInvitations]++
	}

	tasks := map[uuid.UUID]uuid.UUID{}
	for _, t := range snap.Tasks {
		if t == nil {
			report.Skipped++
			continue
		}
		projectID, ok := projects[t.ProjectID]
		if !ok {
			report.Skipped++
			continue
		}
		next := *t
		next.ProjectID = projectID
		next.CreatorID = user(t.CreatorID)
		next.AssigneeID = optionalUser(t.AssigneeID)
		created, err := s.Tasks.insert(ctx, u, owner, &next, false)
		if err != nil {
			return nil, err
		}
		tasks[t.ID] = created.ID
		report.Created[tableTasks]++
	}

	for _, c := range snap.Comments {
		if c == nil {
			report.Skipped++
			continue
		}
		taskID, ok := tasks[c.TaskID]
		if !ok {
			report.Skipped++
			continue
		}
		next := *c
		next.TaskID = taskID
		next.AuthorID = user(c.AuthorID)
		if _, err := s.Comments.insert(ctx, u, owner, &next, false); err != nil {
			return nil, err
		}
		report.Created[tableComments]++
	}

	for _, d := range snap.Documents {
		if d == nil {
			report.Skipped++
			continue
		}
		projectID, ok := projects[d.ProjectID]
		if !ok {
			report.Skipped++
			continue
		}
		next := *d
		next.ProjectID = projectID
		next.CreatorID = user(d.CreatorID)
		if d.TemplateID != nil {
			if mapped, ok := templates[*d.TemplateID]; ok {
				next.TemplateID = &mapped
			}
		}
		if _, err := s.Documents.insert(ctx, u, owner, &next, false); err != nil {
			return nil, err
		}
		report.Created[tableDocuments]++
	}

	if snap.Settings != nil {
		settings := *snap.Settings
		now := s.clock()
		settings.Meta = models.Meta{ID: s.newID(), CreatedAt: now, UpdatedAt: now, Version: 1}
		settings.UserID = owner
		u.stage(s.key(tableSettings, owner), &settings)
		report.Created[tableSettings]++
	}

	if err := s.commit(ctx, u); err != nil {
		return nil, err
	}

	logger.Info("Store: Данные импортированы",
		zap.String("owner", owner.String()),
		zap.Any("created", report.Created),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func matchTemplate(existing []*models.DocumentTemplate, t *models.DocumentTemplate) *models.DocumentTemplate {
	for _, e := range existing {
		if e.ID == t.ID || (e.Custom == t.Custom && e.Title == t.Title && e.Content == t.Content) {
			return e
		}
	}
	return nil
}
