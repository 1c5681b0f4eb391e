package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"datenbriefd/internal/dispatch"
	"datenbriefd/internal/eventbus"
	"datenbriefd/internal/recipient"
	"datenbriefd/internal/storage"
	logx "datenbriefd/pkg/logx"
)

const defaultSaveTimeout = 30 * time.Second

// Engine owns the registry and runs ticks over it.
type Engine struct {
	reg   *recipient.Registry
	disp  dispatch.Dispatcher
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger
	now   func() time.Time

	// tickMu serializes ticks; it also guards every recipient in reg.
	tickMu sync.Mutex

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	entryID cron.EntryID
	tickCtx context.Context
}

// New builds an engine. store may be nil only in dry-run mode.
func New(cfg Config, reg *recipient.Registry, d dispatch.Dispatcher, st storage.Store, bus eventbus.Bus, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = defaultSaveTimeout
	}
	return &Engine{
		cfg:   cfg,
		reg:   reg,
		disp:  d,
		store: st,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// Registry returns the registry the engine mutates. Callers must not touch
// it while the engine is running.
func (e *Engine) Registry() *recipient.Registry { return e.reg }

func (e *Engine) config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Tick runs one scan at now. Every due recipient is dispatched once and
// rescheduled to now plus its interval regardless of the dispatch result.
// Unless dry-run is set, the whole registry is saved afterwards.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickReport {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	cfg := e.config()
	now = now.UTC()
	rep := TickReport{ID: uuid.NewString(), Now: now, Persist: !cfg.DryRun}
	log := e.log.With(logx.String("tick", rep.ID))
	started := time.Now()

	due := e.reg.Due(now)
	rep.Results = make([]Result, len(due))

	var g errgroup.Group
	g.SetLimit(max(1, cfg.Workers))
	for i, r := range due {
		g.Go(func() error {
			rep.Results[i] = e.handle(ctx, r, now, cfg.DryRun, log)
			return nil
		})
	}
	_ = g.Wait()

	if rep.Persist {
		rep.SaveErr = e.save(ctx, cfg.SaveTimeout)
		if rep.SaveErr != nil {
			log.Error("timetable save failed", logx.Err(rep.SaveErr))
			e.bus.Publish(eventbus.Event{Type: eventbus.TimetableSaveFailed, Data: rep.SaveErr.Error()})
		} else {
			e.bus.Publish(eventbus.Event{Type: eventbus.TimetableSaved, Data: e.reg.Len()})
		}
	}

	rep.Duration = time.Since(started)
	lvl := log.Debug
	if len(due) > 0 {
		lvl = log.Info
	}
	lvl("tick finished",
		logx.Int("due", len(due)),
		logx.Int("sent", rep.Sent()),
		logx.Int("failed", rep.Failed()),
		logx.Bool("persisted", rep.Persist && rep.SaveErr == nil),
		logx.Duration("took", rep.Duration),
	)
	e.bus.Publish(eventbus.Event{Type: eventbus.TickDone, Data: rep})
	return rep
}

// handle dispatches to r and reschedules it. It runs on at most one
// goroutine per recipient per tick.
func (e *Engine) handle(ctx context.Context, r *recipient.Recipient, now time.Time, dryRun bool, log logx.Logger) Result {
	log = log.With(logx.String("recipient", r.Name))
	res := Result{Name: r.Name}

	if err := e.disp.Send(ctx, *r); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		log.Warn("reminder not sent", logx.Err(err))
		e.bus.Publish(eventbus.Event{Type: eventbus.ReminderFailed, Recipient: r.Name, Data: err.Error()})
	} else {
		r.Reminder++
		res.Outcome = OutcomeSent
		evType := eventbus.ReminderSent
		if dryRun {
			res.Outcome = OutcomePreviewed
			evType = eventbus.ReminderPreviewed
		}
		log.Info("reminder sent", logx.Uint64("reminder", r.Reminder), logx.Bool("dry_run", dryRun))
		e.bus.Publish(eventbus.Event{Type: evType, Recipient: r.Name, Data: r.Reminder})
	}
	res.Reminder = r.Reminder

	next, ok := NextDue(now, r.IntervalDays)
	if !ok {
		log.Error("next due time out of range; keeping previous value",
			logx.Int("interval_days", r.IntervalDays),
			logx.Time("next_due", r.NextDue),
		)
		e.bus.Publish(eventbus.Event{Type: eventbus.ReminderOverflow, Recipient: r.Name, Data: r.IntervalDays})
		res.NextDue = r.NextDue
		return res
	}
	r.NextDue = next
	res.Rescheduled, res.NextDue = true, next
	log.Debug("reminder rescheduled", logx.Time("next_due", next))
	e.bus.Publish(eventbus.Event{Type: eventbus.ReminderRescheduled, Recipient: r.Name, Data: next})
	return res
}

func (e *Engine) save(ctx context.Context, timeout time.Duration) error {
	if e.store == nil {
		return fmt.Errorf("no timetable store configured")
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.store.Save(sctx, storage.SnapshotOf(e.reg))
}

// Run ticks immediately, then on every tick of the configured schedule
// until ctx is done. It waits for an in-flight tick and, unless dry-run is
// set, saves the timetable once more before returning.
func (e *Engine) Run(ctx context.Context) error {
	spec, err := ParseTick(e.config().Tick)
	if err != nil {
		return err
	}
	sched, err := spec.Schedule()
	if err != nil {
		return err
	}

	// Ticks must finish even when shutdown starts mid-send.
	tickCtx := context.WithoutCancel(ctx)

	loc := e.config().Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{log: e.log}), cron.SkipIfStillRunning(cronLogger{log: e.log})),
	)

	e.mu.Lock()
	e.c = c
	e.tickCtx = tickCtx
	e.entryID = c.Schedule(sched, e.job())
	e.mu.Unlock()

	e.log.Info("scheduler started",
		logx.String("tick", spec.String()),
		logx.Int("recipients", e.reg.Len()),
		logx.Bool("dry_run", e.config().DryRun),
	)

	e.Tick(tickCtx, e.now())
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	e.mu.Lock()
	e.c = nil
	e.mu.Unlock()

	cfg := e.config()
	if !cfg.DryRun {
		e.tickMu.Lock()
		err := e.save(tickCtx, cfg.SaveTimeout)
		e.tickMu.Unlock()
		if err != nil {
			e.log.Error("final timetable save failed", logx.Err(err))
		}
	}
	e.log.Info("scheduler stopped")
	return nil
}

func (e *Engine) job() cron.Job {
	return cron.FuncJob(func() {
		e.mu.Lock()
		ctx := e.tickCtx
		e.mu.Unlock()
		e.Tick(ctx, e.now())
	})
}

// Apply updates the tick schedule and worker count at runtime. DryRun and
// Location changes are ignored.
func (e *Engine) Apply(tick string, workers int) error {
	spec, err := ParseTick(tick)
	if err != nil {
		return err
	}
	sched, err := spec.Schedule()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	oldTick := e.cfg.Tick
	e.cfg.Tick = tick
	e.cfg.Workers = workers
	if e.c != nil && oldTick != tick {
		e.c.Remove(e.entryID)
		e.entryID = e.c.Schedule(sched, e.job())
		e.log.Info("tick schedule updated", logx.String("tick", spec.String()))
	}
	return nil
}
