package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"

	"datenbriefd/internal/recipient"
	logx "datenbriefd/pkg/logx"
)

const (
	EncryptionTLS      = "tls"
	EncryptionStartTLS = "starttls"

	defaultSMTPTimeout = 30 * time.Second
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Server     string
	Port       int
	Encryption string // "tls" or "starttls"
	User       string
	Password   string
	// From is used when a recipient has no alias.
	From    string
	Timeout time.Duration
}

// SMTP sends reminders through an SMTP server. Every Send opens its own
// connection, so concurrent sends are safe.
type SMTP struct {
	cfg  SMTPConfig
	opts []mail.Option
	tmpl *Template
	log  logx.Logger
}

// NewSMTP validates cfg and prepares the client options. Unknown encryption
// values fall back to STARTTLS.
func NewSMTP(cfg SMTPConfig, tmpl *Template, log logx.Logger) (*SMTP, error) {
	cfg.Server = strings.TrimSpace(cfg.Server)
	if cfg.Server == "" {
		return nil, errors.New("smtp: server is required")
	}
	if tmpl == nil {
		tmpl = DefaultTemplate()
	}

	enc := strings.ToLower(strings.TrimSpace(cfg.Encryption))
	switch enc {
	case EncryptionTLS, EncryptionStartTLS:
	default:
		if enc != "" {
			log.Warn("unknown smtp encryption; using starttls", logx.String("encryption", cfg.Encryption))
		}
		enc = EncryptionStartTLS
	}
	cfg.Encryption = enc

	if cfg.Port <= 0 {
		cfg.Port = 587
		if enc == EncryptionTLS {
			cfg.Port = 465
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if enc == EncryptionTLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	// Fail at startup rather than on the first send.
	if _, err := mail.NewClient(cfg.Server, opts...); err != nil {
		return nil, fmt.Errorf("smtp: %w", err)
	}

	return &SMTP{cfg: cfg, opts: opts, tmpl: tmpl, log: log}, nil
}

func (s *SMTP) Send(ctx context.Context, r recipient.Recipient) error {
	msg, err := FormatBody(s.tmpl, r)
	if err != nil {
		return err
	}
	m, err := s.build(msg)
	if err != nil {
		return fmt.Errorf("smtp: build message for %s: %w", r.Name, err)
	}

	c, err := mail.NewClient(s.cfg.Server, s.opts...)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", msg.To, err)
	}
	s.log.Debug("mail sent",
		logx.String("recipient", r.Name),
		logx.String("to", msg.To),
		logx.String("server", s.cfg.Server),
	)
	return nil
}

func (s *SMTP) build(msg Message) (*mail.Msg, error) {
	from := msg.From
	if from == "" {
		from = strings.TrimSpace(s.cfg.From)
	}
	if from == "" {
		from = strings.TrimSpace(s.cfg.User)
	}
	if from == "" {
		return nil, errors.New("no sender address")
	}

	m := mail.NewMsg()
	var err error
	if msg.FromName != "" {
		err = m.FromFormat(msg.FromName, from)
	} else {
		err = m.From(from)
	}
	if err != nil {
		return nil, err
	}
	if err := m.To(msg.To); err != nil {
		return nil, err
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
