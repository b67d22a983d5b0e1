package mail

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// Template names understood by RenderTemplate.
const (
	TemplateMembershipReminder = "membership_reminder"
	TemplateBoardDigest        = "board_digest"
	TemplateMembershipDecision = "membership_decision"
)

// RenderTemplate renders the named body template with the given data.
func RenderTemplate(name string, data map[string]string) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return sb.String(), nil
}

// renderBody renders the message body, appending the carbon-copy footer when
// the message asks for it.
func renderBody(msg *Message) (string, error) {
	body, err := RenderTemplate(msg.Template, msg.Data)
	if err != nil {
		return "", err
	}

	if msg.CCInfo && len(msg.CC) > 0 {
		body += "\n--\nCopied to: " + strings.Join(msg.CC, ", ") + "\n"
	}

	return body, nil
}
