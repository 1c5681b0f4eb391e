package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"datenbriefd/internal/dispatch/dispatchtest"
	"datenbriefd/internal/recipient"
	logx "datenbriefd/pkg/logx"
)

func testRecipient() recipient.Recipient {
	r := recipient.New("acme", 180, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	r.Mail = "privacy@acme.example"
	r.Alias = "me+acme@example.org"
	r.SenderName = "Jane Doe"
	return r
}

func TestFormatBodyDefault(t *testing.T) {
	t.Parallel()
	r := testRecipient()

	msg, err := FormatBody(nil, r)
	if err != nil {
		t.Fatalf("FormatBody error: %v", err)
	}
	if msg.To != "privacy@acme.example" || msg.From != "me+acme@example.org" || msg.FromName != "Jane Doe" {
		t.Fatalf("unexpected addressing: %+v", msg)
	}
	if strings.Contains(msg.Subject, "reminder") {
		t.Fatalf("first mail must not be labelled a reminder: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "me+acme@example.org") || !strings.HasSuffix(msg.Body, "Jane Doe\n") {
		t.Fatalf("unexpected body:\n%s", msg.Body)
	}

	r.Reminder = 2
	msg, err = FormatBody(nil, r)
	if err != nil {
		t.Fatalf("FormatBody error: %v", err)
	}
	if !strings.HasSuffix(msg.Subject, "reminder 3") {
		t.Fatalf("Subject = %q, want reminder 3", msg.Subject)
	}
	if !strings.Contains(msg.Body, "every 180 days") {
		t.Fatalf("body must mention the interval:\n%s", msg.Body)
	}
}

func TestFormatBodyCustomTemplate(t *testing.T) {
	t.Parallel()
	tmpl, err := NewTemplate("Hello\n{{.Name}}", "#{{.Number}} to {{.Mail}}")
	if err != nil {
		t.Fatalf("NewTemplate error: %v", err)
	}
	msg, err := FormatBody(tmpl, testRecipient())
	if err != nil {
		t.Fatalf("FormatBody error: %v", err)
	}
	if msg.Subject != "Hello acme" {
		t.Fatalf("Subject = %q, want single line", msg.Subject)
	}
	if msg.Body != "#1 to privacy@acme.example" {
		t.Fatalf("Body = %q", msg.Body)
	}
}

func TestFormatBodyErrors(t *testing.T) {
	t.Parallel()
	r := testRecipient()
	r.Mail = ""
	if _, err := FormatBody(nil, r); !errors.Is(err, ErrNoRecipientAddress) {
		t.Fatalf("FormatBody error = %v, want ErrNoRecipientAddress", err)
	}

	if _, err := NewTemplate("{{.Name", ""); err == nil {
		t.Fatal("expected parse error")
	}
	tmpl, err := NewTemplate("", "{{.Unknown}}")
	if err != nil {
		t.Fatalf("NewTemplate error: %v", err)
	}
	if _, err := FormatBody(tmpl, testRecipient()); err == nil {
		t.Fatal("expected error for unknown template field")
	}
}

func TestPreviewWritesMessage(t *testing.T) {
	t.Parallel()
	var buf strings.Builder
	p := NewPreview(&buf, nil)
	if err := p.Send(context.Background(), testRecipient()); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"--- dry-run: reminder 1 for acme ---",
		"To: privacy@acme.example",
		"From: Jane Doe <me+acme@example.org>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
}

func TestLimitedHonorsContext(t *testing.T) {
	t.Parallel()
	rec := &dispatchtest.Recorder{}
	d := NewLimited(rec, 1)

	ctx := context.Background()
	if err := d.Send(ctx, testRecipient()); err != nil {
		t.Fatalf("first Send error: %v", err)
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := d.Send(cctx, testRecipient()); err == nil {
		t.Fatal("second Send must fail on a cancelled context while throttled")
	}
	if n := len(rec.Sent()); n != 1 {
		t.Fatalf("sent %d, want 1", n)
	}
	if NewLimited(rec, 0) != Dispatcher(rec) {
		t.Fatal("non-positive rate must return the inner dispatcher")
	}
}

func TestNewSMTP(t *testing.T) {
	t.Parallel()
	if _, err := NewSMTP(SMTPConfig{}, nil, logx.Nop()); err == nil {
		t.Fatal("expected error without server")
	}

	s, err := NewSMTP(SMTPConfig{Server: "mail.example.org", Encryption: "tls"}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("NewSMTP error: %v", err)
	}
	if s.cfg.Port != 465 {
		t.Fatalf("tls port = %d, want 465", s.cfg.Port)
	}

	s, err = NewSMTP(SMTPConfig{Server: "mail.example.org", Encryption: "bogus"}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("NewSMTP error: %v", err)
	}
	if s.cfg.Encryption != EncryptionStartTLS || s.cfg.Port != 587 {
		t.Fatalf("fallback = %s:%d, want starttls:587", s.cfg.Encryption, s.cfg.Port)
	}
}

func TestSMTPBuildRequiresSender(t *testing.T) {
	t.Parallel()
	s, err := NewSMTP(SMTPConfig{Server: "mail.example.org"}, nil, logx.Nop())
	if err != nil {
		t.Fatalf("NewSMTP error: %v", err)
	}
	if _, err := s.build(Message{To: "a@example.org"}); err == nil {
		t.Fatal("expected error without any sender address")
	}
	if _, err := s.build(Message{To: "a@example.org", From: "me@example.org", FromName: "Me", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("build error: %v", err)
	}
}
