package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "DATENBRIEFD"

// Overrides carries values from the command line or the environment.
// Nil fields are unset and leave the file value alone.
type Overrides struct {
	TimeFile *string `envconfig:"TIME_FILE"`
	Interval *int    `envconfig:"INTERVAL"`
	DryRun   *bool   `envconfig:"DRY_RUN"`
	Tick     *string `envconfig:"TICK"`
	Workers  *int    `envconfig:"WORKERS"`
	LogLevel *string `envconfig:"LOG_LEVEL"`

	SMTPServer     *string `envconfig:"SMTP_SERVER"`
	SMTPPort       *int    `envconfig:"SMTP_PORT"`
	SMTPEncryption *string `envconfig:"SMTP_ENCRYPTION"`
	SMTPUser       *string `envconfig:"SMTP_USER"`
	SMTPPassword   *string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       *string `envconfig:"SMTP_FROM"`

	StorageDriver *string `envconfig:"STORAGE_DRIVER"`
	StorageDSN    *string `envconfig:"STORAGE_DSN"`
	TelegramToken *string `envconfig:"TELEGRAM_TOKEN"`

	// Company only comes from flags.
	Company *CompanyOverride `ignored:"true"`
}

// CompanyOverride is a recipient given on the command line.
type CompanyOverride struct {
	Name     string
	Mail     string
	Alias    string
	OwnName  string
	Interval int
}

// FromEnv reads the DATENBRIEFD_* variables. A variable that is set but
// does not parse is an error, so a mistyped DATENBRIEFD_DRY_RUN never
// turns into real sends.
func FromEnv() (Overrides, error) {
	var o Overrides
	if err := envconfig.Process(EnvPrefix, &o); err != nil {
		return Overrides{}, fmt.Errorf("environment: %w", err)
	}
	return o, nil
}

// Apply returns a copy of cfg with every set field of o applied. The
// Companies map is copied, never shared with cfg.
func (o Overrides) Apply(cfg *Config) *Config {
	out := Config{}
	if cfg != nil {
		out = *cfg
	}
	out.Companies = make(map[string]CompanyConfig, len(out.Companies)+1)
	if cfg != nil {
		for k, v := range cfg.Companies {
			out.Companies[k] = v
		}
	}

	if o.TimeFile != nil {
		// The override names the timetable whichever key the file used.
		out.Time = *o.TimeFile
		out.Storage.Path = *o.TimeFile
	}
	setInt(&out.Interval, o.Interval)
	if o.DryRun != nil {
		out.DryRun = *o.DryRun
	}
	setStr(&out.Tick, o.Tick)
	setInt(&out.Workers, o.Workers)
	setStr(&out.Logging.Level, o.LogLevel)

	setStr(&out.SMTP.Server, o.SMTPServer)
	setInt(&out.SMTP.Port, o.SMTPPort)
	setStr(&out.SMTP.Encryption, o.SMTPEncryption)
	setStr(&out.SMTP.User, o.SMTPUser)
	setStr(&out.SMTP.Password, o.SMTPPassword)
	setStr(&out.SMTP.From, o.SMTPFrom)

	setStr(&out.Storage.Driver, o.StorageDriver)
	setStr(&out.Storage.DSN, o.StorageDSN)
	setStr(&out.Telegram.Token, o.TelegramToken)

	if c := o.Company; c != nil && strings.TrimSpace(c.Name) != "" {
		cc := out.Companies[c.Name]
		if c.Mail != "" {
			cc.Mail = c.Mail
		}
		if c.Alias != "" {
			cc.Alias = c.Alias
		}
		if c.OwnName != "" {
			cc.Name = c.OwnName
		}
		if c.Interval > 0 {
			cc.Interval = c.Interval
		}
		out.Companies[c.Name] = cc
	}
	return &out
}

// Merge layers next over o: fields set in next win.
func (o Overrides) Merge(next Overrides) Overrides {
	pick := func(dst **string, src *string) {
		if src != nil {
			*dst = src
		}
	}
	pickInt := func(dst **int, src *int) {
		if src != nil {
			*dst = src
		}
	}
	out := o
	pick(&out.TimeFile, next.TimeFile)
	pickInt(&out.Interval, next.Interval)
	if next.DryRun != nil {
		out.DryRun = next.DryRun
	}
	pick(&out.Tick, next.Tick)
	pickInt(&out.Workers, next.Workers)
	pick(&out.LogLevel, next.LogLevel)
	pick(&out.SMTPServer, next.SMTPServer)
	pickInt(&out.SMTPPort, next.SMTPPort)
	pick(&out.SMTPEncryption, next.SMTPEncryption)
	pick(&out.SMTPUser, next.SMTPUser)
	pick(&out.SMTPPassword, next.SMTPPassword)
	pick(&out.SMTPFrom, next.SMTPFrom)
	pick(&out.StorageDriver, next.StorageDriver)
	pick(&out.StorageDSN, next.StorageDSN)
	pick(&out.TelegramToken, next.TelegramToken)
	if next.Company != nil {
		out.Company = next.Company
	}
	return out
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
