// Package reconcile restores persisted scheduling state into a freshly
// built registry at startup.
package reconcile

import (
	"context"
	"errors"

	"datenbriefd/internal/recipient"
	"datenbriefd/internal/storage"
	logx "datenbriefd/pkg/logx"
)

// Status classifies the load step.
type Status string

const (
	StatusLoaded     Status = "loaded"
	StatusNotFound   Status = "not_found"
	StatusParseError Status = "parse_error"
	StatusLoadError  Status = "load_error"
)

// Report is the outcome of Run.
type Report struct {
	Status Status
	Err    error
	Merge  storage.MergeReport
}

// Run loads the timetable from st and merges it into reg. It never fails:
// a missing or unreadable timetable leaves every recipient at its defaults
// (due now, no reminders sent).
func Run(ctx context.Context, st storage.Store, reg *recipient.Registry, log logx.Logger) Report {
	snap, err := st.Load(ctx)

	var pe *storage.ParseError
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		log.Info("timetable not found; starting with defaults", logx.Err(err))
		return Report{Status: StatusNotFound, Err: err}
	case errors.As(err, &pe):
		log.Warn("timetable is not valid; starting with defaults", logx.Err(err))
		return Report{Status: StatusParseError, Err: err}
	default:
		log.Error("timetable could not be read; starting with defaults", logx.Err(err))
		return Report{Status: StatusLoadError, Err: err}
	}

	rep := Report{Status: StatusLoaded, Merge: storage.Merge(reg, snap, log)}
	log.Info("timetable loaded",
		logx.Int("entries", len(snap)),
		logx.Int("merged", len(rep.Merge.Merged)),
		logx.Int("missing", len(rep.Merge.Missing)),
		logx.Int("unknown", len(rep.Merge.Unknown)),
		logx.Int("field_errors", len(rep.Merge.Errors)),
	)
	return rep
}
