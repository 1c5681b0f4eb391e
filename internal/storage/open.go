package storage

import (
	"context"
	"errors"
	"strings"

	logx "datenbriefd/pkg/logx"
)

// Store persists the timetable.
//
// Load returns ErrNotFound (wrapping fs.ErrNotExist) when nothing has been
// saved yet and a *ParseError when the stored document is not an object.
// Save replaces the whole timetable with entries.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, entries map[string]Entry) error
	Close() error
}

// Open initializes the configured store. An empty driver selects "file".
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("driver", driverName(driver)))

	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "postgres", "postgresql":
		return openPostgres(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func driverName(d string) string {
	if d == "" {
		return "file"
	}
	return d
}
