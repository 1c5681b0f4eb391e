package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

var (
	// ErrNotFound means no timetable has been written yet. It wraps
	// fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("timetable not found: %w", fs.ErrNotExist)
	ErrClosed   = errors.New("storage closed")
)

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is the persisted state of one recipient.
type Entry struct {
	Next     time.Time
	Reminder uint64
}

// Snapshot maps recipient names to their undecoded entries.
type Snapshot map[string]json.RawMessage

// ParseError reports a timetable document that is not a JSON object.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timetable %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
