package sqlkit

import (
	"context"
	"strings"
)

// BatchSize is the default batch size for batch operations.
const BatchSize = 100

// BatchInsert inserts records in chunks of batchSize, each chunk as one
// multi-row INSERT. Returns the total number of rows affected. Rows must
// be uniform: either every record carries a primary key value or none
// does.
//
// Usage:
//
//	users := []User{{Name: "A"}, {Name: "B"}, ...}
//	count, err := sqlkit.BatchInsert(ctx, db, users, 100)
func BatchInsert[T any, PT ModelScanner[T]](ctx context.Context, q Querier, items []T, batchSize int) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = BatchSize
	}

	first := PT(&items[0])
	withPK := !first.PrimaryKeyValue().IsNull()

	insertCols := first.Columns()
	if withPK {
		insertCols = append([]string{first.PrimaryKey()}, insertCols...)
	}

	var totalRows int64

	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}

		qb := q.QueryBuilder().InsertInto(first.Table(), insertCols...)
		for j := i; j < end; j++ {
			model := PT(&items[j])
			pkVal := model.PrimaryKeyValue()
			if pkVal.IsNull() == withPK {
				return totalRows, &Error{
					Code:    CodeInvalidQuery,
					Message: "mixed primary key presence in batch",
					Op:      "BatchInsert",
				}
			}

			row := model.Values()
			if withPK {
				row = append([]Value{pkVal}, row...)
			}
			qb.Values(row...)
		}

		query, err := qb.Build()
		if err != nil {
			return totalRows, err
		}

		rows, err := q.Exec(ctx, query, qb.Params()...)
		if err != nil {
			return totalRows, err
		}
		totalRows += rows
	}

	return totalRows, nil
}

// BatchUpdate updates records one by one in batches. Records without a
// matching row count zero instead of failing. Returns the total number of
// rows affected.
//
// Usage:
//
//	users := []User{{ID: 1, Name: "Updated1"}, {ID: 2, Name: "Updated2"}}
//	count, err := sqlkit.BatchUpdate(ctx, db, users, 100)
func BatchUpdate[T any, PT ModelScanner[T]](ctx context.Context, q Querier, items []T, batchSize int) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = BatchSize
	}

	var totalRows int64

	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}

		for j := i; j < end; j++ {
			rows, err := execModelUpdate(ctx, q, PT(&items[j]), "BatchUpdate")
			if err != nil {
				return totalRows, err
			}
			totalRows += rows
		}
	}

	return totalRows, nil
}

// BatchDelete deletes records in chunks by their primary key values.
// Returns the total number of rows affected.
//
// Usage:
//
//	ids := []sqlkit.Value{sqlkit.Int64(1), sqlkit.Int64(2)}
//	count, err := sqlkit.BatchDelete[User](ctx, db, ids, 100)
func BatchDelete[T any, PT ModelScanner[T]](ctx context.Context, q Querier, ids []Value, batchSize int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = BatchSize
	}

	model := PT(new(T))
	dialect := q.Dialect()

	var totalRows int64

	for i := 0; i < len(ids); i += batchSize {
		end := i + batchSize
		if end > len(ids) {
			end = len(ids)
		}

		chunk := ids[i:end]
		placeholders := make([]string, len(chunk))
		for j := range chunk {
			placeholders[j] = dialect.Placeholder(j + 1)
		}

		query := "DELETE FROM " + model.Table() +
			" WHERE " + model.PrimaryKey() +
			" IN (" + strings.Join(placeholders, ", ") + ")"

		rows, err := q.Exec(ctx, query, chunk...)
		if err != nil {
			return totalRows, err
		}
		totalRows += rows
	}

	return totalRows, nil
}

// Upsert inserts a record or updates it on conflict. conflictColumns
// names the conflict target, updateColumns the columns rewritten from the
// incoming row; with no updateColumns the conflict is ignored. Requires a
// dialect with ON CONFLICT support.
//
// Usage:
//
//	user := User{Email: "a@example.com", Name: "A"}
//	err := sqlkit.Upsert(ctx, db, &user, []string{"email"}, []string{"name"})
func Upsert[T any, PT ModelScanner[T]](ctx context.Context, q Querier, model PT, conflictColumns, updateColumns []string) error {
	_, err := upsertOne(ctx, q, model, conflictColumns, updateColumns, "Upsert")
	return err
}

// BatchUpsert upserts records in batches. Returns the total number of
// rows affected.
//
// Usage:
//
//	users := []User{{Email: "a@example.com", Name: "A"}, ...}
//	count, err := sqlkit.BatchUpsert(ctx, db, users, []string{"email"}, []string{"name"}, 100)
func BatchUpsert[T any, PT ModelScanner[T]](ctx context.Context, q Querier, items []T, conflictColumns, updateColumns []string, batchSize int) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = BatchSize
	}

	var totalRows int64

	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}

		for j := i; j < end; j++ {
			rows, err := upsertOne(ctx, q, PT(&items[j]), conflictColumns, updateColumns, "BatchUpsert")
			if err != nil {
				return totalRows, err
			}
			totalRows += rows
		}
	}

	return totalRows, nil
}

func upsertOne(ctx context.Context, q Querier, model modelScanner, conflictColumns, updateColumns []string, op string) (int64, error) {
	if !q.Dialect().Supports(FeatureUpsert) {
		return 0, &Error{
			Code:    CodeInvalidQuery,
			Message: "dialect does not support ON CONFLICT upserts",
			Op:      op,
		}
	}
	if len(conflictColumns) == 0 {
		return 0, &Error{
			Code:    CodeInvalidQuery,
			Message: "upsert requires at least one conflict column",
			Op:      op,
		}
	}

	cols := model.Columns()
	vals := model.Values()
	if pkVal := model.PrimaryKeyValue(); !pkVal.IsNull() {
		cols = append([]string{model.PrimaryKey()}, cols...)
		vals = append([]Value{pkVal}, vals...)
	}

	qb := q.QueryBuilder().
		InsertInto(model.Table(), cols...).
		Values(vals...)

	query, err := qb.Build()
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	sb.WriteString(query)
	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(strings.Join(conflictColumns, ", "))
	sb.WriteString(")")
	if len(updateColumns) == 0 {
		sb.WriteString(" DO NOTHING")
	} else {
		sb.WriteString(" DO UPDATE SET ")
		for i, col := range updateColumns {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col + " = EXCLUDED." + col)
		}
	}

	return q.Exec(ctx, sb.String(), qb.Params()...)
}
