package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"datenbriefd/internal/recipient"
	logx "datenbriefd/pkg/logx"
)

// FieldError describes one persisted field that could not be applied.
type FieldError struct {
	Name  string
	Field string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Name, e.Field, e.Err)
}

// MergeReport lists what Merge did. Every slice is sorted.
type MergeReport struct {
	// Merged holds recipients that received at least one persisted field.
	Merged []string
	// Missing holds recipients without an entry; they keep their defaults.
	Missing []string
	// Unknown holds entries that match no recipient. They are dropped by
	// the next Save.
	Unknown []string
	Errors  []FieldError
}

// Merge applies snap to reg. Malformed entries and fields are logged and
// skipped one at a time; they never abort the merge.
func Merge(reg *recipient.Registry, snap Snapshot, log logx.Logger) MergeReport {
	var rep MergeReport

	for _, r := range reg.All() {
		raw, ok := snap[r.Name]
		if !ok {
			log.Debug("recipient has no entry in the timetable", logx.String("recipient", r.Name))
			rep.Missing = append(rep.Missing, r.Name)
			continue
		}
		applied, errs := mergeEntry(r, raw)
		for _, fe := range errs {
			lvl := log.Warn
			if fe.Field == "next" {
				lvl = log.Error
			}
			lvl("timetable entry ignored",
				logx.String("recipient", fe.Name),
				logx.String("field", fe.Field),
				logx.Err(fe.Err),
			)
		}
		rep.Errors = append(rep.Errors, errs...)
		if applied {
			rep.Merged = append(rep.Merged, r.Name)
		}
	}

	for name := range snap {
		if _, ok := reg.Lookup(name); !ok {
			rep.Unknown = append(rep.Unknown, name)
		}
	}
	if len(rep.Unknown) > 0 {
		log.Debug("timetable has entries for unknown recipients",
			logx.String("names", strings.Join(sortedCopy(rep.Unknown), ",")),
		)
	}

	sort.Strings(rep.Merged)
	sort.Strings(rep.Missing)
	sort.Strings(rep.Unknown)
	return rep
}

// mergeEntry applies the "next" and "reminder" fields of raw to r. It
// reports whether any field was applied.
func mergeEntry(r *recipient.Recipient, raw json.RawMessage) (bool, []FieldError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		if err == nil {
			err = errors.New("entry is null")
		}
		return false, []FieldError{{Name: r.Name, Field: "entry", Err: fmt.Errorf("not an object: %w", err)}}
	}

	var (
		applied bool
		errs    []FieldError
	)
	if v, ok := fields["next"]; ok {
		next, err := decodeNext(v)
		if err != nil {
			errs = append(errs, FieldError{Name: r.Name, Field: "next", Err: err})
		} else {
			r.NextDue = next
			applied = true
		}
	}
	if v, ok := fields["reminder"]; ok {
		n, err := decodeReminder(v)
		if err != nil {
			errs = append(errs, FieldError{Name: r.Name, Field: "reminder", Err: err})
		} else {
			r.Reminder = n
			applied = true
		}
	}
	return applied, errs
}

func decodeNext(raw json.RawMessage) (time.Time, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("not a string: %s", truncateRaw(raw))
	}
	return ParseTimestamp(s)
}

func decodeReminder(raw json.RawMessage) (uint64, error) {
	s := strings.TrimSpace(string(raw))
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a non-negative integer: %s", truncateRaw(raw))
	}
	return n, nil
}

// SnapshotOf returns the persisted form of every recipient in reg.
func SnapshotOf(reg *recipient.Registry) map[string]Entry {
	out := make(map[string]Entry, reg.Len())
	for _, r := range reg.All() {
		out[r.Name] = Entry{Next: r.NextDue, Reminder: r.Reminder}
	}
	return out
}

func truncateRaw(raw json.RawMessage) string {
	const maxN = 64
	s := string(raw)
	if len(s) > maxN {
		return s[:maxN] + "..."
	}
	return s
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
