/*
Package sqlkit provides a dialect-aware SQL data access layer for Go
applications.

sqlkit speaks SQLite, MySQL and PostgreSQL through one surface:
  - Query builder producing SQL plus an ordered parameter list
  - Dialect capability flags (RETURNING, savepoints, upserts, ...)
  - Transactions with auto commit/rollback, savepoints and a safe
    deferred-rollback idiom
  - Bounded connection pool with an acquire timeout
  - Explicit model mapping with generic CRUD helpers
  - Migration execution with checksum verification
  - Declarative schema DDL rendered per dialect
  - Rich error handling with per-driver error parsing
  - Configurable observability (logging, metrics, tracing)
  - Health check utilities

# Basic Usage

	cfg := sqlkit.DefaultConfig(os.Getenv("DATABASE_URL"))
	cfg.Logger = slog.Default()
	cfg.LogSlowQueries = 100 * time.Millisecond

	db, err := sqlkit.Open(cfg)
	if err != nil {
	    log.Fatal(err)
	}
	defer db.Close()

# Building Queries

The builder renders SQL for the connection's dialect and keeps parameter
order aligned with placeholder order:

	qb := db.QueryBuilder().
	    Select("id", "name").
	    From("users").
	    WhereEq("age", sqlkit.Int64(18)).
	    OrderBy("name", sqlkit.Asc)

	query, err := qb.Build()
	// SQLite/MySQL: SELECT id, name FROM users WHERE age = ? ORDER BY name ASC
	// Postgres:     SELECT id, name FROM users WHERE age = $1 ORDER BY name ASC

	rows, err := db.FetchAll(ctx, query, qb.Params()...)

# Models

Models implement the Model and RecordScanner interfaces explicitly; there
is no struct-tag reflection:

	user, err := sqlkit.Find[User](ctx, db, sqlkit.Int64(1))

	users, err := sqlkit.Query[User](db).
	    WhereEq("active", sqlkit.Bool(true)).
	    OrderBy("created_at", sqlkit.Desc).
	    All(ctx)

	err := sqlkit.Create(ctx, db, &user)
	err := sqlkit.UpdateModel(ctx, db, &user)
	err := sqlkit.DeleteModel(ctx, db, &user)

# Transactions

Callback-based (auto commit/rollback):

	err := db.Transaction(ctx, func(tx *sqlkit.Tx) error {
	    if _, err := tx.Exec(ctx, query, params...); err != nil {
	        return err // rollback
	    }
	    return nil // commit
	})

Manual control:

	tx, err := db.Begin(ctx)
	if err != nil {
	    return err
	}
	defer tx.Rollback()

	// ... operations ...

	return tx.Commit()

Nested transactions (savepoints):

	err := db.Transaction(ctx, func(tx *sqlkit.Tx) error {
	    tx.Exec(ctx, outerQuery)

	    err := tx.Transaction(ctx, func(tx2 *sqlkit.Tx) error {
	        return errors.New("fail") // only rolls back inner
	    })

	    return nil // outer commits
	})

# Migrations

	migrations := []sqlkit.Migration{
	    {ID: "001", Description: "Create users", SQL: "CREATE TABLE users (...)"},
	    {ID: "002", Description: "Add index", SQL: "CREATE INDEX ..."},
	}

	result, err := db.Migrate(ctx, migrations)

# Error Handling

sqlkit classifies driver errors into portable codes:

	if err := sqlkit.Create(ctx, db, &user); err != nil {
	    if sqlkit.IsDuplicate(err) {
	        // Handle duplicate key
	    }

	    var dbErr *sqlkit.Error
	    if errors.As(err, &dbErr) {
	        fmt.Println(dbErr.Code)       // DUPLICATE
	        fmt.Println(dbErr.Constraint) // users_email_key
	        fmt.Println(dbErr.Detail)     // Key (email)=(test@example.com) already exists
	    }
	}
*/
package sqlkit
