package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"join": strings.Join,
}).ParseFS(templateFS, "templates/*.html"))

// Template names
const (
	TemplateBetaTeam        = "beta_team.html"
	TemplateBetaWelcome     = "beta_welcome.html"
	TemplateIntakeLink      = "intake_link.html"
	TemplateDenial          = "denial.html"
	TemplateCredentials     = "credentials.html"
	TemplateWorkflow        = "workflow.html"
	TemplateWorkflowSkipped = "workflow_skipped.html"
)

// Render executes a named template. Values are HTML-escaped.
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
