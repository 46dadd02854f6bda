package service

import (
	"context"
	"errors"
	"fmt"
	"path"

	"hermes/internal/logger"
	"hermes/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNoFileStore = errors.New("файловое хранилище не настроено")

func (w *Workspace) ListDocuments(ctx context.Context, owner, projectID uuid.UUID) ([]*models.Document, error) {
	documents, err := w.store.ProjectDocuments(ctx, owner, projectID)
	if err != nil {
		return nil, translate(err, models.EntityDocument, "", "получение документов")
	}
	return documents, nil
}

func (w *Workspace) GetDocument(ctx context.Context, owner, id uuid.UUID) (*models.Document, error) {
	doc, err := w.store.Documents.Get(ctx, owner, id)
	if err != nil {
		return nil, translate(err, models.EntityDocument, id.String(), "получение документа")
	}
	return doc, nil
}

func (w *Workspace) CreateDocument(ctx context.Context, owner uuid.UUID, doc *models.Document) (*models.Document, error) {
	if doc.TemplateID != nil {
		if _, err := w.GetTemplate(ctx, *doc.TemplateID); err != nil {
			return nil, err
		}
	}
	doc.CreatorID = owner
	created, err := w.store.Documents.Create(ctx, owner, doc)
	if err != nil {
		return nil, translate(err, models.EntityProject, doc.ProjectID.String(), "создание документа")
	}
	return created, nil
}

func (w *Workspace) UpdateDocument(ctx context.Context, owner, id uuid.UUID, expectedVersion int, changes ...func(*models.Document)) (*models.Document, error) {
	doc, err := w.store.Documents.UpdateVersioned(ctx, owner, id, expectedVersion, changes...)
	if err != nil {
		return nil, translate(err, models.EntityDocument, id.String(), "обновление документа")
	}
	return doc, nil
}

// DeleteDocument удаляет документ и его файл. Ошибка удаления файла только логируется.
func (w *Workspace) DeleteDocument(ctx context.Context, owner, id uuid.UUID) error {
	doc, err := w.GetDocument(ctx, owner, id)
	if err != nil {
		return err
	}
	removed, err := w.store.Documents.Delete(ctx, owner, id)
	if err != nil {
		return translate(err, models.EntityDocument, id.String(), "удаление документа")
	}
	if !removed {
		return NewNotFound(models.EntityDocument, id.String())
	}
	if doc.FileKey != "" && w.files != nil {
		if err := w.files.Delete(ctx, doc.FileKey); err != nil {
			logger.Warn("Service: Файл документа не удалён",
				zap.String("file_key", doc.FileKey), zap.Error(err))
		}
	}
	return nil
}

func (w *Workspace) RenderDocument(ctx context.Context, owner, id uuid.UUID) (string, error) {
	text, err := w.store.RenderDocument(ctx, owner, id)
	if err != nil {
		return "", translate(err, models.EntityDocument, id.String(), "заполнение документа")
	}
	return text, nil
}

// UploadFile сохраняет файл документа под documents/<owner>/<id>/<name> и запоминает ключ
func (w *Workspace) UploadFile(ctx context.Context, owner, id uuid.UUID, name string, data []byte, contentType string) (*models.Document, error) {
	if w.files == nil {
		return nil, errNoFileStore
	}
	doc, err := w.GetDocument(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	name = path.Base(name)
	if name == "." || name == "/" || name == "" {
		return nil, NewValidationError("file", "не указано имя файла")
	}
	key := fmt.Sprintf("documents/%s/%s/%s", owner, id, name)
	if err := w.files.Put(ctx, key, data, contentType); err != nil {
		return nil, translate(err, models.EntityDocument, id.String(), "загрузка файла")
	}

	updated, err := w.store.AttachFile(ctx, owner, id, key)
	if err != nil {
		_ = w.files.Delete(ctx, key)
		return nil, translate(err, models.EntityDocument, id.String(), "привязка файла")
	}
	if doc.FileKey != "" && doc.FileKey != key {
		if err := w.files.Delete(ctx, doc.FileKey); err != nil {
			logger.Warn("Service: Старый файл документа не удалён",
				zap.String("file_key", doc.FileKey), zap.Error(err))
		}
	}
	return updated, nil
}

func (w *Workspace) DownloadFile(ctx context.Context, owner, id uuid.UUID) ([]byte, string, error) {
	if w.files == nil {
		return nil, "", errNoFileStore
	}
	doc, err := w.GetDocument(ctx, owner, id)
	if err != nil {
		return nil, "", err
	}
	if doc.FileKey == "" {
		return nil, "", NewNotFound("file", id.String())
	}
	data, err := w.files.Get(ctx, doc.FileKey)
	if err != nil {
		return nil, "", translate(err, models.EntityDocument, id.String(), "чтение файла")
	}
	return data, path.Base(doc.FileKey), nil
}

func (w *Workspace) ListTemplates(ctx context.Context) ([]*models.DocumentTemplate, error) {
	templates, err := w.store.Templates.List(ctx, uuid.Nil)
	if err != nil {
		return nil, translate(err, models.EntityTemplate, "", "получение шаблонов")
	}
	return templates, nil
}

func (w *Workspace) GetTemplate(ctx context.Context, id uuid.UUID) (*models.DocumentTemplate, error) {
	tmpl, err := w.store.Templates.Get(ctx, uuid.Nil, id)
	if err != nil {
		return nil, translate(err, models.EntityTemplate, id.String(), "получение шаблона")
	}
	return tmpl, nil
}

func (w *Workspace) CreateTemplate(ctx context.Context, tmpl *models.DocumentTemplate) (*models.DocumentTemplate, error) {
	created, err := w.store.CreateTemplate(ctx, tmpl)
	if err != nil {
		return nil, translate(err, models.EntityTemplate, "", "создание шаблона")
	}
	return created, nil
}
