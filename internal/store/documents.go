package store

import (
	"context"
	"fmt"

	"hermes/internal/logger"
	"hermes/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func defaultTemplates() []models.DocumentTemplate {
	return []models.DocumentTemplate{
		{
			Title:       "Договор оказания услуг",
			Description: "Типовой договор с контрагентом",
			Category:    "contracts",
			Content: "ДОГОВОР № {{contract_number}} от {{contract_date}}\n\n" +
				"{{counterparty.name}} (ИНН {{counterparty.tax_id}}), в лице {{counterparty.director}}, " +
				"обязуется оказать услуги: {{subject}}.\n" +
				"Стоимость услуг: {{amount}} руб.\n" +
				"Адрес контрагента: {{counterparty.address}}",
			Fields: []models.TemplateField{
				{Name: "contract_number", Label: "Номер договора", Type: models.FieldText, Required: true},
				{Name: "contract_date", Label: "Дата договора", Type: models.FieldDate, Required: true},
				{Name: "subject", Label: "Предмет договора", Type: models.FieldTextarea, Required: true},
				{Name: "amount", Label: "Сумма", Type: models.FieldNumber, Required: true},
			},
		},
		{
			Title:       "Акт выполненных работ",
			Description: "Подтверждение выполнения работ по договору",
			Category:    "acts",
			Content: "АКТ № {{act_number}} от {{act_date}}\n\n" +
				"Исполнитель выполнил, а {{counterparty.name}} принял работы: {{works}}.\n" +
				"Итого: {{amount}} руб. Претензий по качеству нет.",
			Fields: []models.TemplateField{
				{Name: "act_number", Label: "Номер акта", Type: models.FieldText, Required: true},
				{Name: "act_date", Label: "Дата акта", Type: models.FieldDate, Required: true},
				{Name: "works", Label: "Перечень работ", Type: models.FieldTextarea, Required: true},
				{Name: "amount", Label: "Сумма", Type: models.FieldNumber, Required: true},
			},
		},
		{
			Title:       "Счёт на оплату",
			Description: "Счёт для контрагента",
			Category:    "invoices",
			Content: "СЧЁТ № {{invoice_number}} от {{invoice_date}}\n\n" +
				"Плательщик: {{counterparty.name}}, {{counterparty.email}}\n" +
				"К оплате: {{amount}} руб. НДС: {{vat}}\n" +
				"{{comment}}",
			Fields: []models.TemplateField{
				{Name: "invoice_number", Label: "Номер счёта", Type: models.FieldText, Required: true},
				{Name: "invoice_date", Label: "Дата счёта", Type: models.FieldDate, Required: true},
				{Name: "amount", Label: "Сумма", Type: models.FieldNumber, Required: true},
				{Name: "vat", Label: "НДС", Type: models.FieldSelect, Options: []string{"без НДС", "20%"}, Required: true},
				{Name: "comment", Label: "Комментарий", Type: models.FieldTextarea},
			},
		},
	}
}

// EnsureDefaults добавляет недостающие стандартные шаблоны. Повторный вызов ничего
// не меняет: шаблон считается существующим, если уже есть стандартный с тем же названием.
func (s *Store) EnsureDefaults(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.begin(uuid.Nil)
	existing, err := s.Templates.staged(ctx, u, uuid.Nil)
	if err != nil {
		return 0, err
	}
	titles := map[string]bool{}
	for _, t := range existing {
		if !t.Custom {
			titles[t.Title] = true
		}
	}

	added := 0
	for _, tmpl := range defaultTemplates() {
		if titles[tmpl.Title] {
			continue
		}
		if _, err := s.Templates.insert(ctx, u, uuid.Nil, &tmpl, false); err != nil {
			return 0, err
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.commit(ctx, u); err != nil {
		return 0, err
	}

	logger.Info("Store: Стандартные шаблоны добавлены", zap.Int("count", added))
	return added, nil
}

// CreateTemplate добавляет пользовательский шаблон
func (s *Store) CreateTemplate(ctx context.Context, t *models.DocumentTemplate) (*models.DocumentTemplate, error) {
	return s.Templates.Create(ctx, uuid.Nil, t, func(rec *models.DocumentTemplate) {
		rec.Custom = true
	})
}

// RenderDocument заполняет шаблон документа его значениями полей и реквизитами
// контрагента. Значения полей перекрывают counterparty.*.
func (s *Store) RenderDocument(ctx context.Context, owner, documentID uuid.UUID) (string, error) {
	doc, err := s.Documents.Get(ctx, owner, documentID)
	if err != nil {
		return "", err
	}
	if doc.TemplateID == nil {
		return "", ErrNoTemplate
	}
	tmpl, err := s.Templates.Get(ctx, uuid.Nil, *doc.TemplateID)
	if err != nil {
		return "", fmt.Errorf("шаблон %s: %w", *doc.TemplateID, err)
	}

	values := doc.Counterparty.Values()
	for k, v := range doc.FieldValues {
		values[k] = v
	}
	return tmpl.Render(values)
}

// AttachFile запоминает ключ загруженного файла в документе
func (s *Store) AttachFile(ctx context.Context, owner, documentID uuid.UUID, fileKey string) (*models.Document, error) {
	return s.Documents.Update(ctx, owner, documentID, func(d *models.Document) {
		d.FileKey = fileKey
	})
}
