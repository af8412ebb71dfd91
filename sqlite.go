package sqlkit

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// sqlitePragmas is appended to every SQLite DSN: a busy timeout so lock
// contention waits instead of failing immediately, and foreign key
// enforcement, which SQLite leaves off per connection by default.
const sqlitePragmas = "_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)"

// openSQLite opens a handle through the pure-Go sqlite driver. In-memory
// databases are capped to a single connection because every in-memory
// connection is a private database.
func openSQLite(cfg *Config) (*sql.DB, error) {
	dsn, memory := sqliteDSN(cfg.URL)
	if memory {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to open sqlite database",
			Op:      "Open",
			Cause:   err,
		}
	}
	return db, nil
}

// sqliteDSN translates a sqlite URL into a driver DSN, preserving caller
// query parameters: "sqlite://app.db" names a file, "sqlite::memory:" an
// in-memory database.
func sqliteDSN(rawURL string) (string, bool) {
	path := rawURL
	switch {
	case strings.HasPrefix(path, "sqlite3://"):
		path = path[len("sqlite3://"):]
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "sqlite3:"):
		path = path[len("sqlite3:"):]
	case strings.HasPrefix(path, "sqlite:"):
		path = path[len("sqlite:"):]
	}
	if path == "" {
		path = ":memory:"
	}

	memory := strings.HasPrefix(path, ":memory:") || strings.Contains(path, "mode=memory")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqlitePragmas, memory
}
