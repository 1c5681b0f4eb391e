package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"datenbriefd/internal/config"
	"datenbriefd/internal/eventbus"
	"datenbriefd/internal/reconcile"
	"datenbriefd/internal/recipient"
	"datenbriefd/internal/runtime/supervisor"
	"datenbriefd/internal/scheduler"
	"datenbriefd/internal/storage"
	"datenbriefd/internal/transport/telegram"
	logx "datenbriefd/pkg/logx"
	"datenbriefd/pkg/sdnotify"
)

// Options are the process-level inputs of the daemon.
type Options struct {
	ConfigPath string
	// Overrides come from flags and the environment; they are re-applied
	// to every reloaded config file.
	Overrides config.Overrides
	// Out receives dry-run previews; nil means stdout.
	Out io.Writer
	// Now is the startup clock; nil means time.Now.
	Now func() time.Time
}

type App struct {
	opts Options

	cfgm *config.ConfigManager
	cfg  *config.Config
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	engine *scheduler.Engine
	notify *sdnotify.Notifier

	restoreOnce sync.Once
	restored    reconcile.Report
}

// New loads the configuration and builds every component. A missing
// config file is not an error: the daemon then runs with defaults and the
// recipients given on the command line.
func New(opts Options) (*App, error) {
	if strings.TrimSpace(opts.ConfigPath) == "" {
		opts.ConfigPath = config.DefaultConfigPath
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cfgm := config.NewConfigManager(opts.ConfigPath)
	fileCfg, err := cfgm.Load()
	missing := false
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", opts.ConfigPath, err)
		}
		missing = true
		fileCfg = &config.Config{}
		cfgm.Commit(fileCfg)
	}

	cfg := opts.Overrides.Apply(fileCfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var sender logx.AlertSender
	if strings.TrimSpace(cfg.Telegram.Token) != "" {
		tg, err := telegram.New(telegram.Config{
			Token:    cfg.Telegram.Token,
			ChatID:   cfg.Telegram.ChatID,
			ThreadID: cfg.Telegram.ThreadID,
		})
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sender = tg
	}
	logSvc, log := logx.New(mapLogConfig(cfg), sender)
	appLog := log.With(logx.String("comp", "app"))

	if missing {
		appLog.Info("config file not found; using defaults", logx.String("path", opts.ConfigPath))
	}

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open timetable: %w", err)
	}

	first := ""
	if opts.Overrides.Company != nil {
		first = opts.Overrides.Company.Name
	}
	reg, err := buildRecipients(cfg, first, opts.Now())
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	if reg.Len() == 0 {
		appLog.Warn("no recipients configured")
	}

	disp, err := buildDispatcher(cfg, opts.Out, log.With(logx.String("comp", "dispatch")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	bus := eventbus.New()
	eng := scheduler.New(scheduler.Config{
		Tick:    cfg.TickSpec(),
		Workers: cfg.WorkerCount(),
		DryRun:  cfg.DryRun,
	}, reg, disp, store, bus, log.With(logx.String("comp", "scheduler")))

	return &App{
		opts:   opts,
		cfgm:   cfgm,
		cfg:    cfg,
		log:    appLog,
		logs:   logSvc,
		bus:    bus,
		store:  store,
		engine: eng,
		notify: &sdnotify.Notifier{Log: log.With(logx.String("comp", "sdnotify"))},
	}, nil
}

func validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := scheduler.ParseTick(cfg.TickSpec()); err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}

// Config returns the effective configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Registry exposes the recipients. It must not be used while the app runs.
func (a *App) Registry() *recipient.Registry { return a.engine.Registry() }

// Restore merges the persisted timetable into the registry. Only the first
// call loads; later calls return the same report.
func (a *App) Restore(ctx context.Context) reconcile.Report {
	a.restoreOnce.Do(func() {
		a.restored = reconcile.Run(ctx, a.store, a.engine.Registry(), a.log.With(logx.String("comp", "reconcile")))
	})
	return a.restored
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfg
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	rep := a.Restore(a.sup.Context())
	a.log.Debug("timetable restore finished", logx.String("status", string(rep.Status)))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, fileCfg *config.Config) error {
		return validate(a.opts.Overrides.Apply(fileCfg))
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Trace("event",
					logx.String("type", e.Type),
					logx.String("recipient", e.Recipient),
					logx.Time("time", e.Time),
				)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.applyConfig(newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})
	// A panicking tick must not take the daemon down; the next run picks
	// up the same registry.
	a.sup.GoRestart("scheduler", time.Second, time.Minute, func(c context.Context) error {
		return a.engine.Run(c)
	})
	a.sup.GoRestart("sdnotify.watchdog", time.Second, time.Minute, func(c context.Context) error {
		return a.notify.Watchdog(c)
	})

	if _, err := a.notify.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	}
	_, _ = a.notify.Status(fmt.Sprintf("%d recipients, tick %s", a.engine.Registry().Len(), cfg.TickSpec()))

	a.log.Info("app started",
		logx.String("config", a.cfgm.Path()),
		logx.Int("recipients", a.engine.Registry().Len()),
		logx.Bool("dry_run", cfg.DryRun),
	)
	return nil
}

// applyConfig takes a reloaded config file live. Only logging and the tick
// schedule change at runtime; everything else is reported as needing a
// restart.
func (a *App) applyConfig(fileCfg *config.Config) {
	newCfg := a.opts.Overrides.Apply(fileCfg)
	ch := config.SummarizeChange(a.cfg, newCfg)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Attrs...)
	a.log.Debug("config change summary", fields...)

	a.logs.Apply(mapLogConfig(newCfg))
	if err := a.engine.Apply(newCfg.TickSpec(), newCfg.WorkerCount()); err != nil {
		a.log.Warn("invalid tick; keeping previous schedule", logx.Err(err))
	}
	if len(ch.RestartRequired) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(ch.RestartRequired, ",")),
		)
	}
	a.cfg = newCfg
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = a.notify.Stopping()

	// The scheduler finishes an in-flight tick and saves once more while
	// the supervisor drains.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		if err := fn(stepCtx); err != nil && !errors.Is(err, a.sup.Err()) {
			a.log.Warn("stop step error",
				logx.String("name", name),
				logx.Int64("still_running", a.sup.Active()),
				logx.Err(err),
			)
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}
	step("supervisor", 45*time.Second, a.sup.Stop)
	a.log.Info("stopped")

	err := a.close()
	return errors.Join(err, a.sup.Err())
}

func (a *App) close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close timetable: %w", err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}
