package sqlkit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/varaslab/sqlkit/hooks"
)

// Querier is the execution surface shared by *DB and *Tx, so helpers and
// generated code can run against either.
type Querier interface {
	Dialect() Dialect
	QueryBuilder() *QueryBuilder
	Exec(ctx context.Context, query string, params ...Value) (int64, error)
	FetchAll(ctx context.Context, query string, params ...Value) ([]Record, error)
	FetchOne(ctx context.Context, query string, params ...Value) (*Record, error)
}

// DB is a long-lived backend handle: a bounded session pool over one
// store, with a fixed dialect, capability set and hook chain. It is safe
// for concurrent use.
type DB struct {
	pool    *pool
	dialect Dialect
	name    string
	url     string
	config  Config
	hooks   []hooks.QueryHook
}

// Open connects to the store named by the configuration URL's scheme and
// verifies the connection before returning.
func Open(cfg Config) (*DB, error) {
	cfg.applyDefaults()

	if cfg.URL == "" {
		return nil, &Error{
			Code:    CodeConfig,
			Message: "database URL is required",
			Op:      "Open",
		}
	}

	dialect, err := DialectFromURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	var sqlDB *sql.DB
	switch dialect {
	case SQLite:
		sqlDB, err = openSQLite(&cfg)
	case MySQL:
		sqlDB, err = openMySQL(cfg)
	case Postgres:
		sqlDB, err = openPostgres(cfg)
	}
	if err != nil {
		return nil, err
	}

	db, err := newDB(dialect, sqlDB, cfg)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		db.Close()
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to connect to database",
			Op:      "Open",
			Cause:   err,
		}
	}

	return db, nil
}

// OpenDB wraps an existing database handle with the given dialect, for
// custom drivers and tests. The returned DB takes ownership of the handle;
// Close closes it.
func OpenDB(dialect Dialect, sqlDB *sql.DB, cfg Config) (*DB, error) {
	cfg.applyDefaults()
	return newDB(dialect, sqlDB, cfg)
}

func newDB(dialect Dialect, sqlDB *sql.DB, cfg Config) (*DB, error) {
	switch dialect {
	case SQLite, MySQL, Postgres:
	default:
		return nil, &Error{
			Code:    CodeConfig,
			Message: fmt.Sprintf("unsupported dialect %q", dialect),
			Op:      "OpenDB",
		}
	}

	name := cfg.Name
	if name == "" {
		name = dialect.String()
	}

	db := &DB{
		pool:    newPool(sqlDB, cfg),
		dialect: dialect,
		name:    name,
		url:     cfg.URL,
		config:  cfg,
	}

	// Add observability hooks
	if cfg.Logger != nil && (cfg.LogQueries || cfg.LogSlowQueries > 0) {
		db.hooks = append(db.hooks, hooks.NewLoggerHook(cfg.Logger, cfg.LogQueries, cfg.LogSlowQueries))
	}
	if cfg.MetricsRegistry != nil {
		hook, err := hooks.NewMetricsHook(cfg.MetricsRegistry)
		if err != nil {
			return nil, fmt.Errorf("sqlkit: failed to create metrics hook: %w", err)
		}
		db.hooks = append(db.hooks, hook)
	}
	if cfg.Tracer != nil {
		db.hooks = append(db.hooks, hooks.NewTracingHook(cfg.Tracer, dbSystem(dialect)))
	}

	return db, nil
}

// dbSystem maps a dialect to its OpenTelemetry db.system value.
func dbSystem(d Dialect) string {
	if d == Postgres {
		return "postgresql"
	}
	return d.String()
}

// Name returns the backend display name.
func (db *DB) Name() string {
	return db.name
}

// URL returns the connection URL the backend was opened with.
func (db *DB) URL() string {
	return db.url
}

// Dialect returns the backend's SQL dialect.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Config returns the current configuration
func (db *DB) Config() Config {
	return db.config
}

// Supports reports whether the backend's dialect implements the feature.
func (db *DB) Supports(f Feature) bool {
	return db.dialect.Supports(f)
}

// Features returns the backend's capability table.
func (db *DB) Features() map[Feature]bool {
	return db.dialect.Features()
}

// QueryBuilder returns an empty builder preset to the backend's dialect.
func (db *DB) QueryBuilder() *QueryBuilder {
	return NewQueryBuilder(db.dialect)
}

// AddQueryHook appends a hook to the backend's chain. Add hooks before
// issuing queries; the chain is not guarded against concurrent mutation.
func (db *DB) AddQueryHook(hook hooks.QueryHook) {
	db.hooks = append(db.hooks, hook)
}

func (db *DB) beforeQuery(ctx context.Context, query string) (context.Context, *hooks.QueryEvent) {
	event := &hooks.QueryEvent{Query: query, StartTime: time.Now()}
	for _, h := range db.hooks {
		ctx = h.BeforeQuery(ctx, event)
	}
	return ctx, event
}

func (db *DB) afterQuery(ctx context.Context, event *hooks.QueryEvent, err error) {
	event.Err = err
	for _, h := range db.hooks {
		h.AfterQuery(ctx, event)
	}
}

// contextExecutor abstracts sql.DB, sql.Conn and sql.Tx execution.
type contextExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// exec runs a statement through the hook chain and returns affected rows.
func (db *DB) exec(ctx context.Context, ex contextExecutor, op, query string, params []Value) (int64, error) {
	hctx, event := db.beforeQuery(ctx, query)
	res, err := ex.ExecContext(hctx, query, valueArgs(params)...)
	db.afterQuery(hctx, event, err)
	if err != nil {
		return 0, wrapError(err, op)
	}

	rows, _ := res.RowsAffected()
	return rows, nil
}

// fetch runs a query through the hook chain and materializes the rows.
func (db *DB) fetch(ctx context.Context, ex contextExecutor, op, query string, params []Value) ([]Record, error) {
	hctx, event := db.beforeQuery(ctx, query)
	rows, err := ex.QueryContext(hctx, query, valueArgs(params)...)
	if err != nil {
		db.afterQuery(hctx, event, err)
		return nil, wrapError(err, op)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	db.afterQuery(hctx, event, err)
	if err != nil {
		return nil, wrapError(err, op)
	}
	return records, nil
}

// Exec runs a statement with bound parameters and returns the number of
// affected rows.
func (db *DB) Exec(ctx context.Context, query string, params ...Value) (int64, error) {
	if err := db.pool.acquire(ctx); err != nil {
		return 0, err
	}
	defer db.pool.release()

	return db.exec(ctx, db.pool.db, "Exec", query, params)
}

// ExecRaw runs a statement without parameters. It exists for trusted DDL
// and maintenance SQL; application data must go through Exec's bound
// parameters instead.
func (db *DB) ExecRaw(ctx context.Context, query string) (int64, error) {
	return db.Exec(ctx, query)
}

// FetchAll runs a query and returns every row.
func (db *DB) FetchAll(ctx context.Context, query string, params ...Value) ([]Record, error) {
	if err := db.pool.acquire(ctx); err != nil {
		return nil, err
	}
	defer db.pool.release()

	return db.fetch(ctx, db.pool.db, "FetchAll", query, params)
}

// FetchOne runs a query and returns the first row, or nil when the result
// is empty.
func (db *DB) FetchOne(ctx context.Context, query string, params ...Value) (*Record, error) {
	if err := db.pool.acquire(ctx); err != nil {
		return nil, err
	}
	defer db.pool.release()

	records, err := db.fetch(ctx, db.pool.db, "FetchOne", query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Ping verifies the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.db.PingContext(ctx); err != nil {
		return wrapError(err, "Ping")
	}
	return nil
}

// Stats returns connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.pool.stats()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.pool.close()
}

// Ensure DB implements Querier
var _ Querier = (*DB)(nil)
