package mailer

import (
	"errors"
	"strings"

	"github.com/Aciila/go-ddd-boilerplate/pkg/mailer/templates"
)

// EmailJob is one email to send. Either Template (with Data) or the literal
// Subject/Text/HTML fields provide the content.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome"
	Data     map[string]any `json:"data,omitempty"`
}

// Content returns the rendered subject and bodies.
func (j EmailJob) Content() (subject, text, html string, err error) {
	if strings.TrimSpace(j.To) == "" {
		return "", "", "", errors.New("email job has no recipient")
	}
	if j.Template == "" {
		if j.Subject == "" || (j.Text == "" && j.HTML == "") {
			return "", "", "", errors.New("email job has no content")
		}
		return j.Subject, j.Text, j.HTML, nil
	}
	return templates.Render(j.Template, j.Data)
}
