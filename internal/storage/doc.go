// Package storage persists the timetable: the next due time and reminder
// count of every recipient.
//
// A Store always saves the whole timetable, never a patch. Loading returns
// the raw per-recipient entries; Merge applies them to a registry and
// tolerates malformed entries one field at a time.
//
// Drivers:
//   - "file": a pretty-printed JSON document, replaced atomically
//   - "sqlite": a single table in a SQLite database (modernc, no cgo)
//   - "postgres": the same table in PostgreSQL
package storage
