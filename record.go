package sqlkit

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Record is one result row: column names in result-set order plus their
// decoded values. When a result set repeats a column name the last
// occurrence wins.
type Record struct {
	columns []string
	values  map[string]Value
}

// Columns returns the column names in result-set order.
func (r *Record) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r *Record) Len() int {
	return len(r.columns)
}

// Get returns the value for a column and whether the column exists.
func (r *Record) Get(column string) (Value, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the value for a column, or Null when the column is absent.
func (r *Record) Value(column string) Value {
	return r.values[column]
}

// Int64 returns the integer content of a column.
func (r *Record) Int64(column string) (int64, bool) {
	return r.values[column].AsInt64()
}

// Float64 returns the numeric content of a column.
func (r *Record) Float64(column string) (float64, bool) {
	return r.values[column].AsFloat64()
}

// Bool returns the boolean content of a column.
func (r *Record) Bool(column string) (bool, bool) {
	return r.values[column].AsBool()
}

// String returns the text content of a column.
func (r *Record) String(column string) (string, bool) {
	return r.values[column].AsString()
}

// scanRecords drains a result set into records. Decoding is driven by the
// driver's native value types plus the declared column type, so an INTEGER
// cell under a BOOLEAN declaration comes back as a Bool instead of an Int64.
func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	declared := make([]string, len(types))
	for i, t := range types {
		declared[i] = strings.ToUpper(t.DatabaseTypeName())
	}

	var records []Record
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		values := make(map[string]Value, len(cols))
		for i, c := range cols {
			values[c] = decodeCell(raw[i], declared[i])
		}
		records = append(records, Record{columns: cols, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// decodeCell maps a driver value to a Value. declType is the uppercased
// declared column type, used to recover booleans that drivers surface as
// integers.
func decodeCell(raw any, declType string) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(v)
	case int64:
		if strings.Contains(declType, "BOOL") {
			switch v {
			case 0:
				return Bool(false)
			case 1:
				return Bool(true)
			}
		}
		return Int64(v)
	case float64:
		return Float64(v)
	case []byte:
		return Text(string(v))
	case string:
		return Text(v)
	case time.Time:
		return Text(v.Format(time.RFC3339Nano))
	}
	return Text(fmt.Sprint(raw))
}
