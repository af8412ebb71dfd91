package sqlkit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrorCode represents a database error classification
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeForeignKey       ErrorCode = "FOREIGN_KEY"
	CodeCheckViolation   ErrorCode = "CHECK_VIOLATION"
	CodeNotNullViolation ErrorCode = "NOT_NULL"
	CodeInvalidQuery     ErrorCode = "INVALID_QUERY"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeSerialization    ErrorCode = "SERIALIZATION"
	CodeDeadlock         ErrorCode = "DEADLOCK"
	CodeTxDone           ErrorCode = "TX_DONE"
	CodeConfig           ErrorCode = "CONFIG"
	CodeMigration        ErrorCode = "MIGRATION"
	CodeUnknown          ErrorCode = "UNKNOWN"
)

// Sentinel errors for quick checks
var (
	ErrNotFound         = errors.New("sqlkit: record not found")
	ErrDuplicate        = errors.New("sqlkit: duplicate key violation")
	ErrForeignKey       = errors.New("sqlkit: foreign key violation")
	ErrCheckViolation   = errors.New("sqlkit: check constraint violation")
	ErrNotNullViolation = errors.New("sqlkit: not null violation")
	ErrInvalidQuery     = errors.New("sqlkit: invalid query")
	ErrConnection       = errors.New("sqlkit: connection failed")
	ErrTimeout          = errors.New("sqlkit: operation timeout")
	ErrSerialization    = errors.New("sqlkit: serialization failure")
	ErrDeadlock         = errors.New("sqlkit: deadlock detected")
	ErrTxDone           = errors.New("sqlkit: transaction already completed")
	ErrConfig           = errors.New("sqlkit: invalid configuration")
	ErrMigration        = errors.New("sqlkit: migration failed")
)

// Error is a rich database error with context
type Error struct {
	Code       ErrorCode // Error classification
	Message    string    // Human-readable message
	Op         string    // Operation that failed (e.g., "Exec", "FetchOne")
	Table      string    // Table name if known
	Column     string    // Column name if known
	Constraint string    // Constraint name if applicable
	Detail     string    // Additional detail from the server
	Hint       string    // Hint from the server
	Query      string    // Query that failed (may be empty for security)
	Cause      error     // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("sqlkit: %s", e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("sqlkit.%s: %s", e.Op, e.Message)
	}
	if e.Table != "" {
		msg += fmt.Sprintf(" (table: %s)", e.Table)
	}
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (constraint: %s)", e.Constraint)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == ErrNotFound
	case CodeDuplicate:
		return target == ErrDuplicate
	case CodeForeignKey:
		return target == ErrForeignKey
	case CodeCheckViolation:
		return target == ErrCheckViolation
	case CodeNotNullViolation:
		return target == ErrNotNullViolation
	case CodeInvalidQuery:
		return target == ErrInvalidQuery
	case CodeConnectionFailed:
		return target == ErrConnection
	case CodeTimeout:
		return target == ErrTimeout
	case CodeSerialization:
		return target == ErrSerialization
	case CodeDeadlock:
		return target == ErrDeadlock
	case CodeTxDone:
		return target == ErrTxDone
	case CodeConfig:
		return target == ErrConfig
	case CodeMigration:
		return target == ErrMigration
	}
	return false
}

// wrapError converts a raw error to a rich Error
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}

	// Already wrapped
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return &Error{
			Code:    CodeNotFound,
			Message: "record not found",
			Op:      op,
			Cause:   err,
		}
	}

	if errors.Is(err, sql.ErrTxDone) {
		return &Error{
			Code:    CodeTxDone,
			Message: "transaction already completed",
			Op:      op,
			Cause:   err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Code:    CodeTimeout,
			Message: "operation timed out",
			Op:      op,
			Cause:   err,
		}
	}

	// Driver-specific errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return wrapPgError(pgErr, op)
	}

	var pgdErr pgdriver.Error
	if errors.As(err, &pgdErr) {
		return wrapPgDriverError(pgdErr, op)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return wrapMySQLError(myErr, op)
	}

	if e := wrapSQLiteError(err, op); e != nil {
		return e
	}

	// Generic wrapping
	return &Error{
		Code:    CodeUnknown,
		Message: err.Error(),
		Op:      op,
		Cause:   err,
	}
}

// mapSQLState classifies a PostgreSQL SQLSTATE code.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
func mapSQLState(code, message string) (ErrorCode, string) {
	switch code {
	case "23505": // unique_violation
		return CodeDuplicate, "duplicate key value violates unique constraint"
	case "23503": // foreign_key_violation
		return CodeForeignKey, "foreign key constraint violation"
	case "23502": // not_null_violation
		return CodeNotNullViolation, "null value in column violates not-null constraint"
	case "23514": // check_violation
		return CodeCheckViolation, "check constraint violation"
	case "40001": // serialization_failure
		return CodeSerialization, "serialization failure, retry transaction"
	case "40P01": // deadlock_detected
		return CodeDeadlock, "deadlock detected"
	case "42601", "42703", "42P01": // syntax_error, undefined_column, undefined_table
		return CodeInvalidQuery, message
	case "57014": // query_canceled (timeout)
		return CodeTimeout, "query was cancelled due to timeout"
	case "08000", "08003", "08006": // connection errors
		return CodeConnectionFailed, "database connection failed"
	}
	return CodeUnknown, message
}

// wrapPgError converts pgx errors to rich errors
func wrapPgError(pgErr *pgconn.PgError, op string) *Error {
	e := &Error{
		Op:         op,
		Table:      pgErr.TableName,
		Column:     pgErr.ColumnName,
		Constraint: pgErr.ConstraintName,
		Detail:     pgErr.Detail,
		Hint:       pgErr.Hint,
		Cause:      pgErr,
	}
	e.Code, e.Message = mapSQLState(pgErr.Code, pgErr.Message)
	return e
}

// wrapPgDriverError converts pgdriver wire-protocol errors to rich errors.
// Field keys follow the PostgreSQL ErrorResponse message format.
func wrapPgDriverError(pgErr pgdriver.Error, op string) *Error {
	e := &Error{
		Op:         op,
		Table:      pgErr.Field('t'),
		Column:     pgErr.Field('c'),
		Constraint: pgErr.Field('n'),
		Detail:     pgErr.Field('D'),
		Hint:       pgErr.Field('H'),
		Cause:      pgErr,
	}
	e.Code, e.Message = mapSQLState(pgErr.Field('C'), pgErr.Field('M'))
	return e
}

// wrapMySQLError converts MySQL server errors to rich errors.
// See: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
func wrapMySQLError(myErr *mysql.MySQLError, op string) *Error {
	e := &Error{
		Op:     op,
		Detail: myErr.Message,
		Cause:  myErr,
	}

	switch myErr.Number {
	case 1062, 1169: // ER_DUP_ENTRY, ER_DUP_UNIQUE
		e.Code = CodeDuplicate
		e.Message = "duplicate key value violates unique constraint"
	case 1451, 1452: // ER_ROW_IS_REFERENCED_2, ER_NO_REFERENCED_ROW_2
		e.Code = CodeForeignKey
		e.Message = "foreign key constraint violation"
	case 1048: // ER_BAD_NULL_ERROR
		e.Code = CodeNotNullViolation
		e.Message = "null value in column violates not-null constraint"
	case 3819: // ER_CHECK_CONSTRAINT_VIOLATED
		e.Code = CodeCheckViolation
		e.Message = "check constraint violation"
	case 1213: // ER_LOCK_DEADLOCK
		e.Code = CodeDeadlock
		e.Message = "deadlock detected"
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		e.Code = CodeTimeout
		e.Message = "lock wait timeout exceeded"
	case 1064, 1054, 1146: // ER_PARSE_ERROR, ER_BAD_FIELD_ERROR, ER_NO_SUCH_TABLE
		e.Code = CodeInvalidQuery
		e.Message = myErr.Message
	case 1040, 1044, 1045: // ER_CON_COUNT_ERROR, access denied
		e.Code = CodeConnectionFailed
		e.Message = "database connection failed"
	default:
		e.Code = CodeUnknown
		e.Message = myErr.Message
	}

	return e
}

// wrapSQLiteError classifies SQLite errors by message. The pure-Go driver
// surfaces the C library's error text without structured fields, so the
// classification keys on the stable constraint message prefixes.
// Returns nil when the message matches no known class.
func wrapSQLiteError(err error, op string) *Error {
	msg := err.Error()
	e := &Error{Op: op, Cause: err}

	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		e.Code = CodeDuplicate
		e.Message = "duplicate key value violates unique constraint"
		e.Table, e.Column = sqliteConstraintTarget(msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		e.Code = CodeForeignKey
		e.Message = "foreign key constraint violation"
	case strings.Contains(msg, "NOT NULL constraint failed"):
		e.Code = CodeNotNullViolation
		e.Message = "null value in column violates not-null constraint"
		e.Table, e.Column = sqliteConstraintTarget(msg)
	case strings.Contains(msg, "CHECK constraint failed"):
		e.Code = CodeCheckViolation
		e.Message = "check constraint violation"
		e.Constraint, _ = sqliteConstraintTarget(msg)
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"):
		e.Code = CodeSerialization
		e.Message = "database is locked, retry transaction"
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "syntax error"):
		e.Code = CodeInvalidQuery
		e.Message = msg
	case strings.Contains(msg, "unable to open database"):
		e.Code = CodeConnectionFailed
		e.Message = "database connection failed"
	case strings.Contains(msg, "interrupted"):
		e.Code = CodeTimeout
		e.Message = "query was interrupted"
	default:
		return nil
	}

	return e
}

// sqliteConstraintTarget extracts the target from messages like
// "UNIQUE constraint failed: users.email (2067)". For column constraints
// the target is "table.column"; for CHECK it is the constraint name.
func sqliteConstraintTarget(msg string) (string, string) {
	_, after, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return "", ""
	}
	target := after
	if i := strings.IndexByte(target, ' '); i >= 0 {
		target = target[:i]
	}
	table, column, _ := strings.Cut(target, ".")
	return table, column
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if error is a duplicate key error
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsForeignKey checks if error is a foreign key error
func IsForeignKey(err error) bool {
	return errors.Is(err, ErrForeignKey)
}

// IsCheckViolation checks if error is a check constraint error
func IsCheckViolation(err error) bool {
	return errors.Is(err, ErrCheckViolation)
}

// IsNotNullViolation checks if error is a not null violation error
func IsNotNullViolation(err error) bool {
	return errors.Is(err, ErrNotNullViolation)
}

// IsInvalidQuery checks if error is a query construction error
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

// IsConnection checks if error is a connection error
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsTimeout checks if error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsTxDone checks if error is a completed-transaction error
func IsTxDone(err error) bool {
	return errors.Is(err, ErrTxDone)
}

// IsConfig checks if error is a configuration error
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}

// IsRetryable checks if the error is retryable (serialization, deadlock)
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrDeadlock)
}

// GetErrorCode extracts the error code if it's a sqlkit error
func GetErrorCode(err error) (ErrorCode, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code, true
	}
	return "", false
}

// GetConstraint extracts the constraint name if available
func GetConstraint(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Constraint != "" {
		return dbErr.Constraint, true
	}
	return "", false
}

// GetTable extracts the table name if available
func GetTable(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Table != "" {
		return dbErr.Table, true
	}
	return "", false
}

// GetColumn extracts the column name if available
func GetColumn(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Column != "" {
		return dbErr.Column, true
	}
	return "", false
}

// GetDetail extracts the error detail if available
func GetDetail(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Detail != "" {
		return dbErr.Detail, true
	}
	return "", false
}

// GetHint extracts the error hint if available
func GetHint(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Hint != "" {
		return dbErr.Hint, true
	}
	return "", false
}
