package dispatch

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"datenbriefd/internal/recipient"
)

const defaultSubject = `Request for access to personal data (Art. 15 GDPR){{if gt .Number 1}}, reminder {{.Number}}{{end}}`

const defaultBody = `Dear Sir or Madam,

under Art. 15 of the General Data Protection Regulation I request access to
the personal data you process about me, including the purposes of the
processing, the recipients, the storage period and the source of the data.
{{- if .Alias}}

You may know me under the address {{.Alias}}.
{{- end}}
{{- if gt .Number 1}}

This is my request number {{.Number}}; I repeat it every {{.IntervalDays}} days.
{{- end}}

Please reply within one month.

Kind regards
{{if .SenderName}}{{.SenderName}}{{else}}{{.Alias}}{{end}}
`

// Template renders the subject and body of a reminder mail.
type Template struct {
	subject *template.Template
	body    *template.Template
}

// TemplateData is what subject and body templates see.
type TemplateData struct {
	Name         string
	Mail         string
	Alias        string
	SenderName   string
	IntervalDays int
	// Number is the ordinal of the reminder being sent, starting at 1.
	Number  uint64
	NextDue time.Time
}

// NewTemplate parses subject and body. Empty sources select the built-in
// data access request.
func NewTemplate(subject, body string) (*Template, error) {
	if strings.TrimSpace(subject) == "" {
		subject = defaultSubject
	}
	if strings.TrimSpace(body) == "" {
		body = defaultBody
	}
	st, err := template.New("subject").Option("missingkey=error").Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject template: %w", err)
	}
	bt, err := template.New("body").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body template: %w", err)
	}
	return &Template{subject: st, body: bt}, nil
}

// DefaultTemplate returns the built-in template.
func DefaultTemplate() *Template {
	t, err := NewTemplate("", "")
	if err != nil {
		panic(err)
	}
	return t
}

// Message is a rendered reminder.
type Message struct {
	To       string
	From     string
	FromName string
	Subject  string
	Body     string
}

// FormatBody renders the reminder for r. It performs no I/O.
func FormatBody(t *Template, r recipient.Recipient) (Message, error) {
	if t == nil {
		t = DefaultTemplate()
	}
	if strings.TrimSpace(r.Mail) == "" {
		return Message{}, fmt.Errorf("%w: %s", ErrNoRecipientAddress, r.Name)
	}

	data := TemplateData{
		Name:         r.Name,
		Mail:         r.Mail,
		Alias:        r.Alias,
		SenderName:   r.SenderName,
		IntervalDays: r.IntervalDays,
		Number:       r.Reminder + 1,
		NextDue:      r.NextDue,
	}

	var subject, body strings.Builder
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject for %s: %w", r.Name, err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body for %s: %w", r.Name, err)
	}

	return Message{
		To:       strings.TrimSpace(r.Mail),
		From:     strings.TrimSpace(r.Alias),
		FromName: strings.TrimSpace(r.SenderName),
		// Header values must stay on one line.
		Subject: strings.Join(strings.Fields(subject.String()), " "),
		Body:    body.String(),
	}, nil
}
