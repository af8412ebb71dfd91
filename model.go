package sqlkit

import (
	"context"
)

// Model describes how a type maps onto its table. PrimaryKeyValue returns
// Null for records that have not been assigned a key yet; Columns and
// Values list the non-key columns in matching order.
type Model interface {
	Table() string
	PrimaryKey() string
	PrimaryKeyValue() Value
	Columns() []string
	Values() []Value
}

// RecordScanner loads a fetched record into the receiver
type RecordScanner interface {
	ScanRecord(Record) error
}

// modelScanner is the combined surface the helpers need
type modelScanner interface {
	Model
	RecordScanner
}

// ModelScanner constrains a model type parameter to pointers that
// implement both Model and RecordScanner.
type ModelScanner[T any] interface {
	*T
	Model
	RecordScanner
}

// allColumns returns the primary key followed by the model's columns
func allColumns(m Model) []string {
	cols := make([]string, 0, len(m.Columns())+1)
	cols = append(cols, m.PrimaryKey())
	cols = append(cols, m.Columns()...)
	return cols
}

func scanInto(m RecordScanner, rec Record, op string) error {
	if err := m.ScanRecord(rec); err != nil {
		return &Error{
			Code:    CodeUnknown,
			Message: "failed to scan record into model",
			Op:      op,
			Cause:   err,
		}
	}
	return nil
}

// Find fetches a record by primary key. It returns nil without error when
// no record matches.
func Find[T any, PT ModelScanner[T]](ctx context.Context, q Querier, id Value) (*T, error) {
	model := PT(new(T))

	qb := q.QueryBuilder().
		Select(allColumns(model)...).
		From(model.Table()).
		WhereEq(model.PrimaryKey(), id).
		Limit(1)

	query, err := qb.Build()
	if err != nil {
		return nil, err
	}

	rec, err := q.FetchOne(ctx, query, qb.Params()...)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if err := scanInto(model, *rec, "Find"); err != nil {
		return nil, err
	}
	return model, nil
}

// All fetches every record of the model's table
func All[T any, PT ModelScanner[T]](ctx context.Context, q Querier) ([]T, error) {
	return Query[T, PT](q).All(ctx)
}

// First fetches the first record of the model's table, or nil when the
// table is empty.
func First[T any, PT ModelScanner[T]](ctx context.Context, q Querier) (*T, error) {
	return Query[T, PT](q).First(ctx)
}

// Count counts all records in the model's table
func Count[T any, PT ModelScanner[T]](ctx context.Context, q Querier) (int64, error) {
	return Query[T, PT](q).Count(ctx)
}

// Exists checks whether a record with the given primary key exists
func Exists[T any, PT ModelScanner[T]](ctx context.Context, q Querier, id Value) (bool, error) {
	model := PT(new(T))

	qb := q.QueryBuilder().
		Select("1").
		From(model.Table()).
		WhereEq(model.PrimaryKey(), id).
		Limit(1)

	query, err := qb.Build()
	if err != nil {
		return false, err
	}

	rec, err := q.FetchOne(ctx, query, qb.Params()...)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Create inserts a new record and loads the stored row back into the
// model, so generated keys and column defaults are visible to the caller.
// Dialects with RETURNING do it in one round trip; MySQL runs the insert
// and the read-back on one connection so LAST_INSERT_ID() is reliable.
func Create[T any, PT ModelScanner[T]](ctx context.Context, q Querier, model PT) error {
	cols := model.Columns()
	vals := model.Values()
	if len(cols) != len(vals) {
		return &Error{
			Code:    CodeInvalidQuery,
			Message: "model columns and values differ in length",
			Op:      "Create",
		}
	}

	insertCols := cols
	insertVals := vals
	if pkVal := model.PrimaryKeyValue(); !pkVal.IsNull() {
		insertCols = append([]string{model.PrimaryKey()}, cols...)
		insertVals = append([]Value{pkVal}, vals...)
	}

	if q.Dialect().Supports(FeatureReturning) {
		qb := q.QueryBuilder().
			InsertInto(model.Table(), insertCols...).
			Values(insertVals...).
			Returning(allColumns(model)...)

		query, err := qb.Build()
		if err != nil {
			return err
		}

		rec, err := q.FetchOne(ctx, query, qb.Params()...)
		if err != nil {
			return err
		}
		if rec == nil {
			return &Error{
				Code:    CodeUnknown,
				Message: "insert returned no row",
				Op:      "Create",
			}
		}
		return scanInto(model, *rec, "Create")
	}

	if db, ok := q.(*DB); ok {
		return db.Transaction(ctx, func(tx *Tx) error {
			return createReadback(ctx, tx, model, insertCols, insertVals)
		})
	}
	return createReadback(ctx, q, model, insertCols, insertVals)
}

// createReadback inserts without RETURNING and reads the stored row back
// by primary key. When the model has no key value the key comes from
// LAST_INSERT_ID(), which is connection-scoped, so the querier must pin
// one connection (a transaction does).
func createReadback(ctx context.Context, q Querier, model modelScanner, cols []string, vals []Value) error {
	qb := q.QueryBuilder().
		InsertInto(model.Table(), cols...).
		Values(vals...)

	query, err := qb.Build()
	if err != nil {
		return err
	}

	if _, err := q.Exec(ctx, query, qb.Params()...); err != nil {
		return err
	}

	pkVal := model.PrimaryKeyValue()
	if pkVal.IsNull() {
		rec, err := q.FetchOne(ctx, "SELECT LAST_INSERT_ID() AS id")
		if err != nil {
			return err
		}
		if rec == nil {
			return &Error{
				Code:    CodeUnknown,
				Message: "failed to read generated key",
				Op:      "Create",
			}
		}
		id, ok := rec.Int64("id")
		if !ok {
			return &Error{
				Code:    CodeUnknown,
				Message: "generated key is not an integer",
				Op:      "Create",
			}
		}
		pkVal = Int64(id)
	}

	readback := q.QueryBuilder().
		Select(allColumns(model)...).
		From(model.Table()).
		WhereEq(model.PrimaryKey(), pkVal).
		Limit(1)

	query, err = readback.Build()
	if err != nil {
		return err
	}

	rec, err := q.FetchOne(ctx, query, readback.Params()...)
	if err != nil {
		return err
	}
	if rec == nil {
		return &Error{
			Code:    CodeUnknown,
			Message: "failed to read back created record",
			Op:      "Create",
		}
	}
	return scanInto(model, *rec, "Create")
}

// execModelUpdate writes every model column by primary key and returns
// the affected row count.
func execModelUpdate(ctx context.Context, q Querier, model Model, op string) (int64, error) {
	pkVal := model.PrimaryKeyValue()
	if pkVal.IsNull() {
		return 0, &Error{
			Code:    CodeInvalidQuery,
			Message: "cannot update a record without a primary key value",
			Op:      op,
		}
	}

	cols := model.Columns()
	vals := model.Values()
	if len(cols) != len(vals) {
		return 0, &Error{
			Code:    CodeInvalidQuery,
			Message: "model columns and values differ in length",
			Op:      op,
		}
	}

	qb := q.QueryBuilder().Update(model.Table())
	for i, col := range cols {
		qb.Set(col, vals[i])
	}
	qb.WhereEq(model.PrimaryKey(), pkVal)

	query, err := qb.Build()
	if err != nil {
		return 0, err
	}

	return q.Exec(ctx, query, qb.Params()...)
}

// UpdateModel updates a record by primary key, writing every model column
func UpdateModel(ctx context.Context, q Querier, model Model) error {
	rows, err := execModelUpdate(ctx, q, model, "UpdateModel")
	if err != nil {
		return err
	}
	if rows == 0 {
		return &Error{
			Code:    CodeNotFound,
			Message: "record not found for update",
			Op:      "UpdateModel",
		}
	}
	return nil
}

// DeleteModel deletes a record by primary key
func DeleteModel(ctx context.Context, q Querier, model Model) error {
	pkVal := model.PrimaryKeyValue()
	if pkVal.IsNull() {
		return &Error{
			Code:    CodeInvalidQuery,
			Message: "cannot delete a record without a primary key value",
			Op:      "DeleteModel",
		}
	}

	qb := q.QueryBuilder().
		DeleteFrom(model.Table()).
		WhereEq(model.PrimaryKey(), pkVal)

	query, err := qb.Build()
	if err != nil {
		return err
	}

	rows, err := q.Exec(ctx, query, qb.Params()...)
	if err != nil {
		return err
	}
	if rows == 0 {
		return &Error{
			Code:    CodeNotFound,
			Message: "record not found for deletion",
			Op:      "DeleteModel",
		}
	}
	return nil
}

// ModelQuery is a fluent SELECT over one model's table
type ModelQuery[T any, PT ModelScanner[T]] struct {
	q  Querier
	qb *QueryBuilder
}

// Query starts a fluent SELECT for the model's table with all model
// columns selected.
func Query[T any, PT ModelScanner[T]](q Querier) *ModelQuery[T, PT] {
	model := PT(new(T))
	qb := q.QueryBuilder().
		Select(allColumns(model)...).
		From(model.Table())
	return &ModelQuery[T, PT]{q: q, qb: qb}
}

// WhereEq adds an equality condition with a bound parameter
func (mq *ModelQuery[T, PT]) WhereEq(column string, value Value) *ModelQuery[T, PT] {
	mq.qb.WhereEq(column, value)
	return mq
}

// Where adds a raw condition. The condition is a trusted SQL fragment;
// never build it from user input.
func (mq *ModelQuery[T, PT]) Where(cond string) *ModelQuery[T, PT] {
	mq.qb.Where(cond)
	return mq
}

// OrderBy adds a sort column
func (mq *ModelQuery[T, PT]) OrderBy(column string, dir Direction) *ModelQuery[T, PT] {
	mq.qb.OrderBy(column, dir)
	return mq
}

// Limit caps the number of rows
func (mq *ModelQuery[T, PT]) Limit(n int) *ModelQuery[T, PT] {
	mq.qb.Limit(n)
	return mq
}

// Offset skips rows
func (mq *ModelQuery[T, PT]) Offset(n int) *ModelQuery[T, PT] {
	mq.qb.Offset(n)
	return mq
}

// Join adds a join clause
func (mq *ModelQuery[T, PT]) Join(kind JoinKind, table, on string) *ModelQuery[T, PT] {
	mq.qb.Join(kind, table, on)
	return mq
}

// InnerJoin adds an INNER JOIN clause
func (mq *ModelQuery[T, PT]) InnerJoin(table, on string) *ModelQuery[T, PT] {
	mq.qb.InnerJoin(table, on)
	return mq
}

// LeftJoin adds a LEFT JOIN clause
func (mq *ModelQuery[T, PT]) LeftJoin(table, on string) *ModelQuery[T, PT] {
	mq.qb.LeftJoin(table, on)
	return mq
}

// GroupBy adds grouping columns
func (mq *ModelQuery[T, PT]) GroupBy(columns ...string) *ModelQuery[T, PT] {
	mq.qb.GroupBy(columns...)
	return mq
}

// Having adds a raw HAVING condition
func (mq *ModelQuery[T, PT]) Having(cond string) *ModelQuery[T, PT] {
	mq.qb.Having(cond)
	return mq
}

// Distinct makes the query select distinct rows
func (mq *ModelQuery[T, PT]) Distinct() *ModelQuery[T, PT] {
	mq.qb.Distinct()
	return mq
}

// ToSQL renders the query without executing it
func (mq *ModelQuery[T, PT]) ToSQL() (string, error) {
	return mq.qb.Build()
}

// All executes the query and scans every row
func (mq *ModelQuery[T, PT]) All(ctx context.Context) ([]T, error) {
	query, err := mq.qb.Build()
	if err != nil {
		return nil, err
	}

	records, err := mq.q.FetchAll(ctx, query, mq.qb.Params()...)
	if err != nil {
		return nil, err
	}

	out := make([]T, len(records))
	for i, rec := range records {
		if err := scanInto(PT(&out[i]), rec, "ModelQuery.All"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// First executes the query limited to one row, or nil when nothing
// matches.
func (mq *ModelQuery[T, PT]) First(ctx context.Context) (*T, error) {
	mq.qb.Limit(1)

	query, err := mq.qb.Build()
	if err != nil {
		return nil, err
	}

	rec, err := mq.q.FetchOne(ctx, query, mq.qb.Params()...)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	model := PT(new(T))
	if err := scanInto(model, *rec, "ModelQuery.First"); err != nil {
		return nil, err
	}
	return model, nil
}

// Count executes the query as SELECT COUNT(*), dropping ordering and
// paging.
func (mq *ModelQuery[T, PT]) Count(ctx context.Context) (int64, error) {
	mq.qb.selectCols = []string{"COUNT(*) AS cnt"}
	mq.qb.distinct = false
	mq.qb.orderBys = nil
	mq.qb.limit = -1
	mq.qb.offset = -1

	query, err := mq.qb.Build()
	if err != nil {
		return 0, err
	}

	rec, err := mq.q.FetchOne(ctx, query, mq.qb.Params()...)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}

	count, _ := rec.Int64("cnt")
	return count, nil
}

// Exists reports whether any row matches the query
func (mq *ModelQuery[T, PT]) Exists(ctx context.Context) (bool, error) {
	mq.qb.selectCols = []string{"1"}
	mq.qb.distinct = false
	mq.qb.orderBys = nil
	mq.qb.offset = -1
	mq.qb.Limit(1)

	query, err := mq.qb.Build()
	if err != nil {
		return false, err
	}

	rec, err := mq.q.FetchOne(ctx, query, mq.qb.Params()...)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}
