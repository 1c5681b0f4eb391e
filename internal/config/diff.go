package config

import (
	"reflect"
	"sort"
	"strings"

	logx "datenbriefd/pkg/logx"
)

// Change summarizes the difference between two configs.
type Change struct {
	// Sections lists every changed top-level section, sorted.
	Sections []string
	// Attrs are safe to log: secrets are reduced to "is set" flags.
	Attrs []logx.Field
	// RestartRequired lists the changed sections that only take effect
	// after a restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool { return len(c.Sections) == 0 }

// SummarizeChange compares oldCfg and newCfg. Logging, tick and workers
// apply live; everything else needs a restart.
func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	var ch Change
	mark := func(section string, restart bool, attrs ...logx.Field) {
		ch.Sections = append(ch.Sections, section)
		ch.Attrs = append(ch.Attrs, attrs...)
		if restart {
			ch.RestartRequired = append(ch.RestartRequired, section)
		}
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		mark("logging", false,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.alert_enabled", newCfg.Logging.Alert.Enabled),
		)
	}
	if oldCfg.DryRun != newCfg.DryRun {
		mark("dry-run", true, logx.Bool("dry_run", newCfg.DryRun))
	}
	if oldCfg.TickSpec() != newCfg.TickSpec() || oldCfg.WorkerCount() != newCfg.WorkerCount() {
		mark("schedule", false,
			logx.String("tick", newCfg.TickSpec()),
			logx.Int("workers", newCfg.WorkerCount()),
		)
	}
	if oldCfg.IntervalDays() != newCfg.IntervalDays() {
		mark("interval", true, logx.Int("interval_days", newCfg.IntervalDays()))
	}
	if oldCfg.TimetablePath() != newCfg.TimetablePath() || !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		mark("storage", true,
			logx.String("storage.driver", strings.TrimSpace(newCfg.Storage.Driver)),
			logx.String("storage.path", newCfg.TimetablePath()),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.SMTP, newCfg.SMTP) {
		mark("smtp", true,
			logx.String("smtp.server", newCfg.SMTP.Server),
			logx.Int("smtp.port", newCfg.SMTP.Port),
			logx.String("smtp.encryption", newCfg.SMTP.Encryption),
			logx.Bool("smtp.password_set", newCfg.SMTP.Password != ""),
		)
	}
	if oldCfg.Telegram.ChatID != newCfg.Telegram.ChatID ||
		oldCfg.Telegram.ThreadID != newCfg.Telegram.ThreadID ||
		oldCfg.Telegram.Token != newCfg.Telegram.Token {
		mark("telegram", true, logx.Bool("telegram.token_set", newCfg.Telegram.Token != ""))
	}
	if oldCfg.Template != newCfg.Template {
		mark("template", true)
	}
	if changed := diffCompanies(oldCfg.Companies, newCfg.Companies); len(changed) > 0 {
		mark("companies", true,
			logx.Int("companies.changed_count", len(changed)),
			logx.String("companies.changed", strings.Join(changed, ",")),
		)
	}

	sort.Strings(ch.Sections)
	sort.Strings(ch.RestartRequired)
	return ch
}

func diffCompanies(oldM, newM map[string]CompanyConfig) []string {
	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, inOld := oldM[name]
		n, inNew := newM[name]
		if inOld != inNew || o != n {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
