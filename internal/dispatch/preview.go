package dispatch

import (
	"context"
	"fmt"
	"io"
	"sync"

	"datenbriefd/internal/recipient"
)

// Preview renders reminders to a writer instead of sending them. It is the
// dispatcher used in dry-run mode.
type Preview struct {
	tmpl *Template

	mu sync.Mutex
	w  io.Writer
}

func NewPreview(w io.Writer, tmpl *Template) *Preview {
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}
	return &Preview{w: w, tmpl: tmpl}
}

func (p *Preview) Send(ctx context.Context, r recipient.Recipient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := FormatBody(p.tmpl, r)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}
	_, err = fmt.Fprintf(p.w, "--- dry-run: reminder %d for %s ---\nTo: %s\nFrom: %s\nSubject: %s\n\n%s\n",
		r.Reminder+1, r.Name, msg.To, from, msg.Subject, msg.Body)
	return err
}
