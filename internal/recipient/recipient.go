// Package recipient holds the recipients the daemon sends reminders to and
// their scheduling state.
package recipient

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultIntervalDays applies when neither the recipient nor the global
// configuration sets an interval.
const DefaultIntervalDays = 365

var (
	ErrEmptyName       = errors.New("recipient: empty name")
	ErrDuplicateName   = errors.New("recipient: duplicate name")
	ErrInvalidInterval = errors.New("recipient: interval must be positive")
)

// Recipient is one addressee ("company") with its reminder schedule.
//
// Name is the stable key shared with the persisted timetable. Mail, Alias
// and SenderName are passed to the dispatcher as-is.
type Recipient struct {
	Name         string
	Mail         string
	Alias        string
	SenderName   string
	IntervalDays int

	Reminder uint64
	NextDue  time.Time
}

// New returns a recipient due at now with no reminders sent. A non-positive
// intervalDays selects DefaultIntervalDays.
func New(name string, intervalDays int, now time.Time) Recipient {
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}
	return Recipient{
		Name:         name,
		IntervalDays: intervalDays,
		NextDue:      now.UTC(),
	}
}

// Due reports whether a reminder is owed at now.
func (r *Recipient) Due(now time.Time) bool {
	return !r.NextDue.After(now)
}

func (r *Recipient) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.IntervalDays <= 0 {
		return fmt.Errorf("%w: %s has %d", ErrInvalidInterval, r.Name, r.IntervalDays)
	}
	return nil
}
