package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timestampLayout writes UTC as "+00:00" rather than "Z", matching
// timetables produced by earlier releases. Parsing accepts both.
const timestampLayout = "2006-01-02T15:04:05.999999999-07:00"

// FormatTimestamp renders t in UTC as RFC 3339 with an explicit offset.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses an RFC 3339 timestamp and converts it to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type wireEntry struct {
	Next     string `json:"next"`
	Reminder uint64 `json:"reminder"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{Next: FormatTimestamp(e.Next), Reminder: e.Reminder})
}

// encodeDocument renders entries as an indented JSON object with sorted
// keys and a trailing newline.
func encodeDocument(entries map[string]Entry) ([]byte, error) {
	if entries == nil {
		entries = map[string]Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// decodeDocument parses a timetable document. Only the top level must be a
// JSON object; entries are left undecoded.
func decodeDocument(source string, b []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &ParseError{Source: source, Err: errors.New("document is not a JSON object")}
	}
	var snap Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	return snap, nil
}

// rawEntry builds the undecoded form of a row loaded from a SQL backend.
func rawEntry(next string, reminder int64) (json.RawMessage, error) {
	b, err := json.Marshal(struct {
		Next     string `json:"next"`
		Reminder int64  `json:"reminder"`
	}{Next: next, Reminder: reminder})
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return b, nil
}
