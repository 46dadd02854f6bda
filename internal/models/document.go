package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentCompleted DocumentStatus = "completed"
	DocumentSent      DocumentStatus = "sent"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentDraft, DocumentCompleted, DocumentSent:
		return true
	}
	return false
}

type Counterparty struct {
	Name     string `json:"name"`
	TaxID    string `json:"tax_id,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Director string `json:"director,omitempty"`
}

type Document struct {
	Meta
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	TemplateID   *uuid.UUID        `json:"template_id,omitempty"`
	ProjectID    uuid.UUID         `json:"project_id"`
	CreatorID    uuid.UUID         `json:"creator_id"`
	Status       DocumentStatus    `json:"status"`
	Counterparty *Counterparty     `json:"counterparty,omitempty"`
	FieldValues  map[string]string `json:"field_values,omitempty"`
	FileKey      string            `json:"file_key,omitempty"`
}

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
)

type TemplateField struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

type DocumentTemplate struct {
	Meta
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Content     string          `json:"content"`
	Fields      []TemplateField `json:"fields"`
	Custom      bool            `json:"custom"`
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// MissingFieldsError перечисляет обязательные поля без значений
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("не заполнены обязательные поля: %s", strings.Join(e.Fields, ", "))
}

// Placeholders возвращает имена плейсхолдеров в порядке первого появления
func (t *DocumentTemplate) Placeholders() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, m := range placeholder.FindAllStringSubmatch(t.Content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Render подставляет значения в {{плейсхолдеры}}. Незаполненные обязательные поля
// дают *MissingFieldsError, необязательные заменяются пустой строкой.
// Плейсхолдеры без описания поля остаются как есть, если значения нет.
func (t *DocumentTemplate) Render(values map[string]string) (string, error) {
	missing := []string{}
	for _, f := range t.Fields {
		if f.Required && strings.TrimSpace(values[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingFieldsError{Fields: missing}
	}

	declared := map[string]bool{}
	for _, f := range t.Fields {
		declared[f.Name] = true
	}

	out := placeholder.ReplaceAllStringFunc(t.Content, func(token string) string {
		name := placeholder.FindStringSubmatch(token)[1]
		if v, ok := values[name]; ok {
			return v
		}
		if declared[name] {
			return ""
		}
		return token
	})
	return out, nil
}

// Values раскладывает реквизиты контрагента в значения counterparty.*
func (c *Counterparty) Values() map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return map[string]string{
		"counterparty.name":     c.Name,
		"counterparty.tax_id":   c.TaxID,
		"counterparty.address":  c.Address,
		"counterparty.phone":    c.Phone,
		"counterparty.email":    c.Email,
		"counterparty.director": c.Director,
	}
}
