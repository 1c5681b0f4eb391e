package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"sort"
	"sync"

	logx "datenbriefd/pkg/logx"
)

//go:embed schema.sql
var schemaSQL string

// dialect holds the statements that differ between SQL backends.
type dialect struct {
	name     string
	insert   string
	hasTable string
}

// sqlStore keeps one row per recipient. Save replaces all rows inside a
// single transaction. The schema is created by the first Save; Load never
// writes.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	log     logx.Logger

	// present reports whether the database exists without touching it;
	// nil means it always does.
	present func() bool
	// prepare runs once before the schema is created.
	prepare func(ctx context.Context, db *sql.DB) error

	mu     sync.Mutex
	ready  bool
	closed bool
}

func newSQLStore(db *sql.DB, d dialect, log logx.Logger) *sqlStore {
	return &sqlStore{db: db, dialect: d, log: log}
}

func (s *sqlStore) migrate(ctx context.Context) error {
	if s.ready {
		return nil
	}
	if s.prepare != nil {
		if err := s.prepare(ctx, s.db); err != nil {
			return fmt.Errorf("%s: prepare: %w", s.dialect.name, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%s: migrate: %w", s.dialect.name, err)
	}
	s.ready = true
	return nil
}

// tableExists reports whether there is a timetable to read.
func (s *sqlStore) tableExists(ctx context.Context) (bool, error) {
	if s.ready {
		return true, nil
	}
	if s.present != nil && !s.present() {
		return false, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.hasTable).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: inspect schema: %w", s.dialect.name, err)
	}
	return n > 0, nil
}

func (s *sqlStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if ok, err := s.tableExists(ctx); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, next, reminder FROM timetable ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%s: query timetable: %w", s.dialect.name, err)
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var (
			name     string
			next     string
			reminder int64
		)
		if err := rows.Scan(&name, &next, &reminder); err != nil {
			return nil, fmt.Errorf("%s: scan timetable: %w", s.dialect.name, err)
		}
		raw, err := rawEntry(next, reminder)
		if err != nil {
			return nil, err
		}
		snap[name] = raw
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: read timetable: %w", s.dialect.name, err)
	}
	if len(snap) == 0 {
		return nil, ErrNotFound
	}
	return snap, nil
}

func (s *sqlStore) Save(ctx context.Context, entries map[string]Entry) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.migrate(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable`); err != nil {
		return fmt.Errorf("%s: clear timetable: %w", s.dialect.name, err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		e := entries[name]
		if _, err = tx.ExecContext(ctx, s.dialect.insert, name, FormatTimestamp(e.Next), clampInt64(e.Reminder)); err != nil {
			return fmt.Errorf("%s: insert %s: %w", s.dialect.name, name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.name, err)
	}
	s.log.Trace("timetable written", logx.Int("entries", len(entries)))
	return nil
}

func (s *sqlStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// clampInt64 saturates counters that do not fit a signed BIGINT column.
func clampInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
