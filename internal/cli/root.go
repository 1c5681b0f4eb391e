// Package cli is the command-line front end of the daemon.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"datenbriefd/internal/app"
	"datenbriefd/internal/config"
)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	ConfigPath string

	timeFile string
	interval int
	dryRun   bool
	tick     string
	workers  int
	logLevel string

	smtpServer     string
	smtpPort       int
	smtpEncryption string
	smtpUser       string
	smtpPassword   string
	smtpFrom       string

	companyName     string
	companyMail     string
	companyAlias    string
	companyOwnName  string
	companyInterval int
}

// NewRootCommand creates the root command. Without a subcommand it runs
// the daemon.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datenbriefd",
		Short: "Periodic data access request reminders",
		Long: `datenbriefd mails every configured company a reminder to disclose the
personal data it stores, once per company interval. When each company is
next due and how many reminders were sent is kept in a timetable that
survives restarts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; existing variables are not overridden.
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, opts)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.ConfigPath, "config", "c", config.DefaultConfigPath, "config file (.toml, .yaml or .json)")
	f.StringVarP(&opts.timeFile, "time-file", "t", "", "timetable file")
	f.IntVarP(&opts.interval, "interval", "i", 0, "default reminder interval in days")
	f.BoolVarP(&opts.dryRun, "dry-run", "d", false, "print reminders instead of sending them and never write the timetable")
	f.StringVar(&opts.tick, "tick", "", "scan schedule: duration, HH:MM or cron expression")
	f.IntVar(&opts.workers, "workers", 0, "concurrent sends per tick")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	f.StringVar(&opts.smtpServer, "smtp-server", "", "SMTP server host")
	f.IntVar(&opts.smtpPort, "smtp-port", 0, "SMTP server port")
	f.StringVar(&opts.smtpEncryption, "smtp-encryption", "", "tls or starttls")
	f.StringVar(&opts.smtpUser, "smtp-user", "", "SMTP user")
	f.StringVar(&opts.smtpPassword, "smtp-password", "", "SMTP password")
	f.StringVar(&opts.smtpFrom, "smtp-from", "", "sender address for companies without an alias")

	f.StringVar(&opts.companyName, "company-name", "", "add or override one company")
	f.StringVar(&opts.companyMail, "company-mail", "", "mail address of --company-name")
	f.StringVar(&opts.companyAlias, "company-alias", "", "sender alias used for --company-name")
	f.StringVar(&opts.companyOwnName, "company-own-name", "", "your name as shown to --company-name")
	f.IntVar(&opts.companyInterval, "company-interval", 0, "reminder interval in days for --company-name")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	return cmd
}

// appOptions layers the environment and the changed flags over the config
// file.
func appOptions(cmd *cobra.Command, opts *RootOptions) (app.Options, error) {
	env, err := config.FromEnv()
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{
		ConfigPath: opts.ConfigPath,
		Overrides:  env.Merge(opts.overrides(cmd)),
		Out:        cmd.OutOrStdout(),
	}, nil
}

func (o *RootOptions) overrides(cmd *cobra.Command) config.Overrides {
	changed := cmd.Flags().Changed
	var ov config.Overrides
	if changed("time-file") {
		ov.TimeFile = &o.timeFile
	}
	if changed("interval") {
		ov.Interval = &o.interval
	}
	if changed("dry-run") {
		ov.DryRun = &o.dryRun
	}
	if changed("tick") {
		ov.Tick = &o.tick
	}
	if changed("workers") {
		ov.Workers = &o.workers
	}
	if changed("log-level") {
		ov.LogLevel = &o.logLevel
	}
	if changed("smtp-server") {
		ov.SMTPServer = &o.smtpServer
	}
	if changed("smtp-port") {
		ov.SMTPPort = &o.smtpPort
	}
	if changed("smtp-encryption") {
		ov.SMTPEncryption = &o.smtpEncryption
	}
	if changed("smtp-user") {
		ov.SMTPUser = &o.smtpUser
	}
	if changed("smtp-password") {
		ov.SMTPPassword = &o.smtpPassword
	}
	if changed("smtp-from") {
		ov.SMTPFrom = &o.smtpFrom
	}
	if o.companyName != "" {
		ov.Company = &config.CompanyOverride{
			Name:     o.companyName,
			Mail:     o.companyMail,
			Alias:    o.companyAlias,
			OwnName:  o.companyOwnName,
			Interval: o.companyInterval,
		}
	}
	return ov
}
