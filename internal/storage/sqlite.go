package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logx "datenbriefd/pkg/logx"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name:     "sqlite",
	insert:   `INSERT INTO timetable(name, next, reminder) VALUES(?, ?, ?)`,
	hasTable: `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'timetable'`,
}

// openSQLite opens the database lazily. Nothing is created on disk until
// the first Save, so dry runs and status leave no file behind.
func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := newSQLStore(db, sqliteDialect, log)
	st.present = func() bool {
		_, err := os.Stat(path)
		return err == nil
	}
	st.prepare = func(ctx context.Context, db *sql.DB) error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if cfg.BusyTimeout > 0 {
			_, _ = db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
		}
		_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
		_, _ = db.ExecContext(ctx, "PRAGMA synchronous = NORMAL")
		return nil
	}
	return st, nil
}
