package sqlkit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
)

// Tx is a transaction pinned to a dedicated pool session. Exactly one of
// Commit or Rollback consumes it; after that the transaction is done and
// further statements fail with ErrTxDone. Rollback on a done transaction
// is a no-op returning nil, so `defer tx.Rollback()` is always safe.
type Tx struct {
	tx           *sql.Tx
	db           *DB
	sess         *session
	done         *atomic.Bool
	savepointID  int64
	savepointSeq *int64 // Shared across nested transactions
}

// Ensure Tx implements Querier
var _ Querier = (*Tx)(nil)

// TxOptions configures transaction behavior
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// DefaultTxOptions returns default transaction options
func DefaultTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  false,
	}
}

// ReadOnlyTxOptions returns options for read-only transactions
func ReadOnlyTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  true,
	}
}

// SerializableTxOptions returns options for serializable transactions
func SerializableTxOptions() TxOptions {
	return TxOptions{
		Isolation: sql.LevelSerializable,
		ReadOnly:  false,
	}
}

// TxFunc is a function executed within a transaction
type TxFunc func(tx *Tx) error

// Transaction executes fn within a transaction with automatic commit/rollback
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	return db.TransactionWithOptions(ctx, DefaultTxOptions(), fn)
}

// TransactionWithOptions executes fn within a transaction with custom options:
// commit on nil, rollback on error, rollback and re-panic on panic.
func (db *DB) TransactionWithOptions(ctx context.Context, opts TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqlkit: rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// ReadOnlyTransaction executes fn within a read-only transaction
func (db *DB) ReadOnlyTransaction(ctx context.Context, fn TxFunc) error {
	return db.TransactionWithOptions(ctx, ReadOnlyTxOptions(), fn)
}

// Begin starts a new transaction (manual control)
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, DefaultTxOptions())
}

// BeginTx starts a new transaction with custom options. The transaction
// checks out a dedicated connection and owns it until Commit or Rollback
// returns it to the pool.
func (db *DB) BeginTx(ctx context.Context, opts TxOptions) (*Tx, error) {
	sess, err := db.pool.checkout(ctx)
	if err != nil {
		return nil, err
	}

	hctx, event := db.beforeQuery(ctx, "BEGIN")
	sqlTx, err := sess.conn.BeginTx(hctx, &sql.TxOptions{
		Isolation: opts.Isolation,
		ReadOnly:  opts.ReadOnly,
	})
	db.afterQuery(hctx, event, err)
	if err != nil {
		_ = sess.close()
		return nil, wrapError(err, "Begin")
	}

	seq := int64(0)
	return &Tx{
		tx:           sqlTx,
		db:           db,
		sess:         sess,
		done:         new(atomic.Bool),
		savepointSeq: &seq,
	}, nil
}

func txDoneError(op string) error {
	return &Error{
		Code:    CodeTxDone,
		Message: "transaction already completed",
		Op:      op,
	}
}

// Commit commits the transaction and returns its connection to the pool
func (tx *Tx) Commit() error {
	if !tx.done.CompareAndSwap(false, true) {
		return txDoneError("Commit")
	}

	hctx, event := tx.db.beforeQuery(context.Background(), "COMMIT")
	commitErr := tx.tx.Commit()
	tx.db.afterQuery(hctx, event, commitErr)
	closeErr := tx.sess.close()
	if commitErr != nil {
		return wrapError(commitErr, "Commit")
	}
	if closeErr != nil {
		return wrapError(closeErr, "Commit")
	}
	return nil
}

// Rollback aborts the transaction and returns its connection to the pool.
// Rolling back a transaction that already committed or rolled back is a
// no-op.
func (tx *Tx) Rollback() error {
	if !tx.done.CompareAndSwap(false, true) {
		return nil
	}

	hctx, event := tx.db.beforeQuery(context.Background(), "ROLLBACK")
	rbErr := tx.tx.Rollback()
	if errors.Is(rbErr, sql.ErrTxDone) {
		rbErr = nil
	}
	tx.db.afterQuery(hctx, event, rbErr)
	closeErr := tx.sess.close()
	if rbErr != nil {
		return wrapError(rbErr, "Rollback")
	}
	if closeErr != nil {
		return wrapError(closeErr, "Rollback")
	}
	return nil
}

// Dialect returns the parent database's dialect.
func (tx *Tx) Dialect() Dialect {
	return tx.db.Dialect()
}

// QueryBuilder returns a new query builder for the parent database's dialect.
func (tx *Tx) QueryBuilder() *QueryBuilder {
	return tx.db.QueryBuilder()
}

// Exec runs a statement inside the transaction and returns the number of
// affected rows.
func (tx *Tx) Exec(ctx context.Context, query string, params ...Value) (int64, error) {
	if tx.done.Load() {
		return 0, txDoneError("Exec")
	}
	return tx.db.exec(ctx, tx.tx, "Exec", query, params)
}

// FetchAll runs a query inside the transaction and returns every row.
func (tx *Tx) FetchAll(ctx context.Context, query string, params ...Value) ([]Record, error) {
	if tx.done.Load() {
		return nil, txDoneError("FetchAll")
	}
	return tx.db.fetch(ctx, tx.tx, "FetchAll", query, params)
}

// FetchOne runs a query inside the transaction and returns the first row,
// or nil when the result is empty.
func (tx *Tx) FetchOne(ctx context.Context, query string, params ...Value) (*Record, error) {
	if tx.done.Load() {
		return nil, txDoneError("FetchOne")
	}

	records, err := tx.db.fetch(ctx, tx.tx, "FetchOne", query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Transaction creates a savepoint for nested transaction support
func (tx *Tx) Transaction(ctx context.Context, fn TxFunc) error {
	if tx.done.Load() {
		return txDoneError("Transaction")
	}

	// Generate unique savepoint name
	id := atomic.AddInt64(tx.savepointSeq, 1)
	savepoint := fmt.Sprintf("sp_%d", id)

	if _, err := tx.db.exec(ctx, tx.tx, "Transaction.Savepoint", "SAVEPOINT "+savepoint, nil); err != nil {
		return err
	}

	nestedTx := &Tx{
		tx:           tx.tx,
		db:           tx.db,
		sess:         tx.sess,
		done:         tx.done,
		savepointID:  id,
		savepointSeq: tx.savepointSeq,
	}

	if err := fn(nestedTx); err != nil {
		// Rollback to savepoint
		if _, rbErr := tx.db.exec(ctx, tx.tx, "Transaction.RollbackTo", "ROLLBACK TO SAVEPOINT "+savepoint, nil); rbErr != nil {
			return fmt.Errorf("sqlkit: savepoint rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	// Release savepoint (commit)
	if _, err := tx.db.exec(ctx, tx.tx, "Transaction.ReleaseSavepoint", "RELEASE SAVEPOINT "+savepoint, nil); err != nil {
		return err
	}

	return nil
}

// Savepoint creates a named savepoint for manual control. The name is a
// trusted identifier and is interpolated into the statement as-is.
func (tx *Tx) Savepoint(ctx context.Context, name string) error {
	if tx.done.Load() {
		return txDoneError("Savepoint")
	}
	_, err := tx.db.exec(ctx, tx.tx, "Savepoint", "SAVEPOINT "+name, nil)
	return err
}

// RollbackTo rolls back to a named savepoint
func (tx *Tx) RollbackTo(ctx context.Context, name string) error {
	if tx.done.Load() {
		return txDoneError("RollbackTo")
	}
	_, err := tx.db.exec(ctx, tx.tx, "RollbackTo", "ROLLBACK TO SAVEPOINT "+name, nil)
	return err
}

// ReleaseSavepoint releases a named savepoint
func (tx *Tx) ReleaseSavepoint(ctx context.Context, name string) error {
	if tx.done.Load() {
		return txDoneError("ReleaseSavepoint")
	}
	_, err := tx.db.exec(ctx, tx.tx, "ReleaseSavepoint", "RELEASE SAVEPOINT "+name, nil)
	return err
}

// DB returns the parent database
func (tx *Tx) DB() *DB {
	return tx.db
}
