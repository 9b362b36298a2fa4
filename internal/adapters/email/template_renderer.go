package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"eventflow/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Every notification is three files under templates/: <name>_subject.txt,
// <name>.html and <name>.txt. They are parsed once when the renderer is built.
var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

type templateRenderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewTemplateRenderer returns a renderer over the embedded notification templates.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{html: htmlTemplates, text: textTemplates}
}

func (r *templateRenderer) Render(name string, data any) (subject, htmlBody, textBody string, err error) {
	if subject, err = r.execText(name+"_subject.txt", data); err != nil {
		return "", "", "", err
	}
	if htmlBody, err = r.execHTML(name+".html", data); err != nil {
		return "", "", "", err
	}
	if textBody, err = r.execText(name+".txt", data); err != nil {
		return "", "", "", err
	}
	// Subjects are a single header line.
	return strings.Join(strings.Fields(subject), " "), htmlBody, textBody, nil
}

func (r *templateRenderer) execHTML(file string, data any) (string, error) {
	t := r.html.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("email template %q not found", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", file, err)
	}
	return buf.String(), nil
}

func (r *templateRenderer) execText(file string, data any) (string, error) {
	t := r.text.Lookup(file)
	if t == nil {
		return "", fmt.Errorf("email template %q not found", file)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", file, err)
	}
	return buf.String(), nil
}
