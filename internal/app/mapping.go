package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"datenbriefd/internal/config"
	"datenbriefd/internal/dispatch"
	"datenbriefd/internal/recipient"
	"datenbriefd/internal/storage"
	logx "datenbriefd/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "file":
		return storage.Config{Driver: "file", Path: cfg.TimetablePath()}, nil
	case "sqlite", "sqlite3":
		busy, err := config.Timeout("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: cfg.TimetablePath(), BusyTimeout: busy}, nil
	case "postgres", "postgresql":
		if strings.TrimSpace(sc.DSN) == "" {
			return storage.Config{}, fmt.Errorf("storage.dsn is required when storage.driver=%s", driver)
		}
		return storage.Config{Driver: "postgres", DSN: sc.DSN}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Alert: logx.AlertConfig{
			Enabled:    cfg.Logging.Alert.Enabled,
			MinLevel:   cfg.Logging.Alert.MinLevel,
			RatePerSec: cfg.Logging.Alert.RatePerSec,
		},
	}
}

func mapSMTPConfig(cfg *config.Config) (dispatch.SMTPConfig, error) {
	timeout, err := config.Timeout("smtp.timeout", cfg.SMTP.Timeout, 0)
	if err != nil {
		return dispatch.SMTPConfig{}, err
	}
	return dispatch.SMTPConfig{
		Server:     cfg.SMTP.Server,
		Port:       cfg.SMTP.Port,
		Encryption: cfg.SMTP.Encryption,
		User:       cfg.SMTP.User,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		Timeout:    timeout,
	}, nil
}

// buildRecipients turns the configured companies into a registry. first,
// when set, is placed ahead of the others, which follow in name order.
// Every recipient starts due at now; the timetable merge adjusts that.
func buildRecipients(cfg *config.Config, first string, now time.Time) (*recipient.Registry, error) {
	names := cfg.CompanyNames()
	if first != "" {
		if _, ok := cfg.Companies[first]; ok {
			sort.SliceStable(names, func(i, j int) bool { return names[i] == first && names[j] != first })
		}
	}

	recs := make([]recipient.Recipient, 0, len(names))
	for _, name := range names {
		c := cfg.Companies[name]
		interval := c.Interval
		if interval <= 0 {
			interval = cfg.IntervalDays()
		}
		r := recipient.New(name, interval, now)
		r.Mail = c.Mail
		r.Alias = c.Alias
		r.SenderName = c.Name
		recs = append(recs, r)
	}
	return recipient.NewRegistry(recs...)
}

// buildDispatcher returns the preview writer in dry-run mode and the rate
// limited SMTP sender otherwise.
func buildDispatcher(cfg *config.Config, out io.Writer, log logx.Logger) (dispatch.Dispatcher, error) {
	tmpl, err := dispatch.NewTemplate(cfg.Template.Subject, cfg.Template.Body)
	if err != nil {
		return nil, err
	}
	if cfg.DryRun {
		return dispatch.NewPreview(out, tmpl), nil
	}
	sc, err := mapSMTPConfig(cfg)
	if err != nil {
		return nil, err
	}
	smtp, err := dispatch.NewSMTP(sc, tmpl, log)
	if err != nil {
		return nil, err
	}
	return dispatch.NewLimited(smtp, cfg.SMTP.RatePerSec), nil
}
