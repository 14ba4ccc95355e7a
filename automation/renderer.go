package automation

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"gorm.io/gorm"

	"ascentcrm/models"
)

// RenderData carries the client and trip fields available to templates.
type RenderData struct {
	ClientName   string
	Destinations []string
	Budget       string
	TravelDates  string
}

// Renderer turns a step's template into deliverable content. Pure: the same
// template and data always produce the same output.
type Renderer interface {
	Render(templateID uint, data RenderData) (subject, body string, err error)
}

// TemplateRenderer renders stored EmailTemplate rows with html/template.
type TemplateRenderer struct {
	db *gorm.DB
}

func NewTemplateRenderer(db *gorm.DB) *TemplateRenderer {
	return &TemplateRenderer{db: db}
}

func (tr *TemplateRenderer) Render(templateID uint, data RenderData) (string, string, error) {
	var tmpl models.EmailTemplate
	if err := tr.db.First(&tmpl, templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", fmt.Errorf("email template %d not found", templateID)
		}
		return "", "", err
	}

	subject, err := renderText(tmpl.Subject, data)
	if err != nil {
		return "", "", fmt.Errorf("render subject of template %d: %w", templateID, err)
	}
	body, err := renderText(tmpl.HTMLContent, data)
	if err != nil {
		return "", "", fmt.Errorf("render body of template %d: %w", templateID, err)
	}
	return subject, body, nil
}

func renderText(source string, data RenderData) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(source)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
