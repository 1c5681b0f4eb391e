package config

// Config is the on-disk configuration. TOML and YAML files are coerced to
// JSON before decoding, so the json tags are the canonical key names.
//
// Key names follow the historical config.toml layout: "time" is the
// timetable path, "interval" the global reminder interval in days and
// "dry-run" disables real sending and persistence.
type Config struct {
	// Interval is the global default reminder interval in days (0 = 365).
	Interval int    `json:"interval,omitempty"`
	Time     string `json:"time,omitempty"`
	DryRun   bool   `json:"dry-run,omitempty"`

	// Tick is a Go duration ("100s"), an "HH:MM" interval or a cron
	// expression. Empty means DefaultTick.
	Tick string `json:"tick,omitempty"`
	// Workers bounds concurrent sends within one tick (0 = 1).
	Workers int `json:"workers,omitempty"`

	SMTP     SMTPConfig     `json:"smtp"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`
	Template TemplateConfig `json:"template"`

	Companies map[string]CompanyConfig `json:"companies,omitempty"`
}

// SMTPConfig describes the outgoing mail server.
//
// Encryption is "tls" (implicit TLS) or "starttls". Timeout is a Go
// duration string.
type SMTPConfig struct {
	Server     string `json:"server,omitempty"`
	Port       int    `json:"port,omitempty"`
	Encryption string `json:"encryption,omitempty"`
	User       string `json:"user,omitempty"`
	Password   string `json:"password,omitempty"`
	From       string `json:"from,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// StorageConfig selects the timetable backend.
//
// Driver is "file" (default), "sqlite" or "postgres". Path is used by the
// file and sqlite drivers and defaults to Config.Time; DSN is used by the
// postgres driver.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string           `json:"level"`
	Console bool             `json:"console"`
	File    LoggingFile      `json:"file"`
	Alert   LoggingAlertSink `json:"alert"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingAlertSink forwards log lines at or above MinLevel to the Telegram
// chat configured in TelegramConfig.
type LoggingAlertSink struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TelegramConfig is the operator chat used by the alert log sink.
type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// TemplateConfig overrides the reminder mail. Both fields are text/template
// sources; empty fields use the built-in template.
type TemplateConfig struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// CompanyConfig is one recipient. The map key in Config.Companies is the
// recipient name.
type CompanyConfig struct {
	Mail     string `json:"mail,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Name     string `json:"name,omitempty"`
	Interval int    `json:"interval,omitempty"`
}
