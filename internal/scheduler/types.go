package scheduler

import (
	"time"
)

// Config controls the engine. Tick and Workers may change at runtime via
// Engine.Apply; DryRun is fixed for the lifetime of the engine.
type Config struct {
	Tick    string
	Workers int
	DryRun  bool
	// Location is used for cron expressions; nil means time.Local.
	Location *time.Location
	// SaveTimeout bounds one timetable save; 0 means 30s.
	SaveTimeout time.Duration
}

// Outcome is the result of handling one due recipient.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomePreviewed Outcome = "previewed"
	OutcomeFailed    Outcome = "failed"
)

// Result describes one due recipient handled by a tick.
type Result struct {
	Name    string
	Outcome Outcome
	Err     error
	// Rescheduled is false when the next due time would overflow; NextDue
	// then holds the unchanged value.
	Rescheduled bool
	NextDue     time.Time
	Reminder    uint64
}

// TickReport summarizes one tick.
type TickReport struct {
	ID       string
	Now      time.Time
	Results  []Result
	Persist  bool
	SaveErr  error
	Duration time.Duration
}

func (r TickReport) count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

func (r TickReport) Sent() int      { return r.count(OutcomeSent) + r.count(OutcomePreviewed) }
func (r TickReport) Failed() int    { return r.count(OutcomeFailed) }
func (r TickReport) Overflows() int {
	n := 0
	for _, res := range r.Results {
		if !res.Rescheduled {
			n++
		}
	}
	return n
}
