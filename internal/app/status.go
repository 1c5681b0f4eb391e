package app

import (
	"context"
	"time"

	"datenbriefd/internal/reconcile"
)

// StatusEntry is the persisted state of one recipient as seen at startup.
type StatusEntry struct {
	Name     string
	Mail     string
	NextDue  time.Time
	Reminder uint64
	Due      bool
}

type StatusReport struct {
	Timetable reconcile.Status
	Entries   []StatusEntry
}

// Status loads the config and the timetable and reports every recipient
// without sending anything or writing the timetable. Dry-run is forced so
// no mail server needs to be configured.
func Status(ctx context.Context, opts Options) (StatusReport, error) {
	dry := true
	opts.Overrides.DryRun = &dry
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a, err := New(opts)
	if err != nil {
		return StatusReport{}, err
	}
	defer func() { _ = a.close() }()

	rep := a.Restore(ctx)
	now := opts.Now().UTC()
	out := StatusReport{Timetable: rep.Status}
	for _, r := range a.Registry().All() {
		out.Entries = append(out.Entries, StatusEntry{
			Name:     r.Name,
			Mail:     r.Mail,
			NextDue:  r.NextDue,
			Reminder: r.Reminder,
			Due:      r.Due(now),
		})
	}
	return out, nil
}
