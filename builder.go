package sqlkit

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction orders a sort column.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// JoinKind selects the join flavour rendered between FROM and WHERE.
type JoinKind string

const (
	JoinInner JoinKind = "INNER JOIN"
	JoinLeft  JoinKind = "LEFT JOIN"
	JoinRight JoinKind = "RIGHT JOIN"
)

type stmtKind uint8

const (
	stmtNone stmtKind = iota
	stmtSelect
	stmtInsert
	stmtUpdate
	stmtDelete
)

// condition is one WHERE fragment. Bound conditions carry a parameter and
// render a placeholder; raw conditions are spliced verbatim.
type condition struct {
	expr   string
	column string
	value  Value
	bound  bool
}

// assignment is one SET fragment of an UPDATE statement.
type assignment struct {
	column string
	expr   string
	value  Value
	bound  bool
}

// insertCell is one cell of an INSERT row.
type insertCell struct {
	expr  string
	value Value
	bound bool
}

type joinClause struct {
	kind  JoinKind
	table string
	on    string
}

type orderClause struct {
	column string
	dir    Direction
}

// QueryBuilder assembles one SQL statement plus its ordered parameter list.
// It is mutable and resettable: entry points (Select, InsertInto, Update,
// DeleteFrom) switch the statement kind last-writer-wins, Build renders
// without consuming state, and Reset returns the builder to its initial
// empty state.
//
// Column and table names passed to builder methods are trusted identifiers.
// Only Where-equality values, SET values and INSERT values are bound as
// parameters; never splice user input into the identifier arguments or the
// raw-SQL methods.
//
// A QueryBuilder is not safe for concurrent use.
type QueryBuilder struct {
	dialect    Dialect
	kind       stmtKind
	table      string
	selectCols []string
	distinct   bool
	joins      []joinClause
	wheres     []condition
	groupBys   []string
	havings    []string
	orderBys   []orderClause
	limit      int
	offset     int
	insertCols []string
	insertRows [][]insertCell
	sets       []assignment
	returning  []string
}

// NewQueryBuilder returns an empty builder that renders SQL for the given
// dialect.
func NewQueryBuilder(d Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: d, limit: -1, offset: -1}
}

// Dialect returns the dialect the builder renders for.
func (qb *QueryBuilder) Dialect() Dialect {
	return qb.dialect
}

// Reset clears all builder state except the dialect.
func (qb *QueryBuilder) Reset() *QueryBuilder {
	*qb = QueryBuilder{dialect: qb.dialect, limit: -1, offset: -1}
	return qb
}

// switchKind changes the statement kind. Fragments that belong exclusively
// to the previous kind do not survive the switch.
func (qb *QueryBuilder) switchKind(k stmtKind) {
	if qb.kind == k {
		return
	}
	qb.kind = k
	qb.selectCols = nil
	qb.distinct = false
	qb.insertCols = nil
	qb.insertRows = nil
	qb.sets = nil
}

// Select starts a SELECT statement. With no columns it selects "*".
func (qb *QueryBuilder) Select(columns ...string) *QueryBuilder {
	qb.switchKind(stmtSelect)
	qb.selectCols = columns
	return qb
}

// Distinct adds DISTINCT to a SELECT statement.
func (qb *QueryBuilder) Distinct() *QueryBuilder {
	qb.distinct = true
	return qb
}

// From sets the table for SELECT statements.
func (qb *QueryBuilder) From(table string) *QueryBuilder {
	qb.table = table
	return qb
}

// InsertInto starts an INSERT statement for the given table and column list.
func (qb *QueryBuilder) InsertInto(table string, columns ...string) *QueryBuilder {
	qb.switchKind(stmtInsert)
	qb.table = table
	qb.insertCols = columns
	return qb
}

// Values appends one row of bound values to an INSERT statement. Call it
// repeatedly for multi-row inserts. Each row must match the declared column
// list; Build reports a mismatch.
func (qb *QueryBuilder) Values(values ...Value) *QueryBuilder {
	row := make([]insertCell, len(values))
	for i, v := range values {
		row[i] = insertCell{value: v, bound: true}
	}
	qb.insertRows = append(qb.insertRows, row)
	return qb
}

// ValuesRaw appends one row of raw SQL expressions (for example "DEFAULT"
// or "CURRENT_TIMESTAMP") to an INSERT statement. The expressions are
// spliced verbatim; never build them from user input.
func (qb *QueryBuilder) ValuesRaw(exprs ...string) *QueryBuilder {
	row := make([]insertCell, len(exprs))
	for i, e := range exprs {
		row[i] = insertCell{expr: e}
	}
	qb.insertRows = append(qb.insertRows, row)
	return qb
}

// Update starts an UPDATE statement for the given table.
func (qb *QueryBuilder) Update(table string) *QueryBuilder {
	qb.switchKind(stmtUpdate)
	qb.table = table
	return qb
}

// Set adds a bound column assignment to an UPDATE statement.
func (qb *QueryBuilder) Set(column string, value Value) *QueryBuilder {
	qb.sets = append(qb.sets, assignment{column: column, value: value, bound: true})
	return qb
}

// SetExpr adds a raw column assignment to an UPDATE statement, for example
// SetExpr("counter", "counter + 1"). The expression is spliced verbatim;
// never build it from user input.
func (qb *QueryBuilder) SetExpr(column, expr string) *QueryBuilder {
	qb.sets = append(qb.sets, assignment{column: column, expr: expr})
	return qb
}

// DeleteFrom starts a DELETE statement for the given table.
func (qb *QueryBuilder) DeleteFrom(table string) *QueryBuilder {
	qb.switchKind(stmtDelete)
	qb.table = table
	return qb
}

// WhereEq adds an equality condition bound to a parameter. Multiple
// conditions are joined with AND.
func (qb *QueryBuilder) WhereEq(column string, value Value) *QueryBuilder {
	qb.wheres = append(qb.wheres, condition{column: column, value: value, bound: true})
	return qb
}

// Where adds a raw condition joined with AND. The condition is spliced
// into the SQL verbatim; never build it from user input.
func (qb *QueryBuilder) Where(cond string) *QueryBuilder {
	qb.wheres = append(qb.wheres, condition{expr: cond})
	return qb
}

// Join adds a join clause. Clauses render between FROM and WHERE in call
// order. The ON condition is raw SQL.
func (qb *QueryBuilder) Join(kind JoinKind, table, on string) *QueryBuilder {
	qb.joins = append(qb.joins, joinClause{kind: kind, table: table, on: on})
	return qb
}

// InnerJoin adds an INNER JOIN clause.
func (qb *QueryBuilder) InnerJoin(table, on string) *QueryBuilder {
	return qb.Join(JoinInner, table, on)
}

// LeftJoin adds a LEFT JOIN clause.
func (qb *QueryBuilder) LeftJoin(table, on string) *QueryBuilder {
	return qb.Join(JoinLeft, table, on)
}

// GroupBy appends grouping columns.
func (qb *QueryBuilder) GroupBy(columns ...string) *QueryBuilder {
	qb.groupBys = append(qb.groupBys, columns...)
	return qb
}

// Having adds a raw HAVING condition joined with AND. The condition is
// spliced verbatim; never build it from user input.
func (qb *QueryBuilder) Having(cond string) *QueryBuilder {
	qb.havings = append(qb.havings, cond)
	return qb
}

// OrderBy appends a sort column.
func (qb *QueryBuilder) OrderBy(column string, dir Direction) *QueryBuilder {
	qb.orderBys = append(qb.orderBys, orderClause{column: column, dir: dir})
	return qb
}

// Limit caps the number of returned rows. Negative clears the limit.
func (qb *QueryBuilder) Limit(n int) *QueryBuilder {
	qb.limit = n
	return qb
}

// Offset skips the first n rows. Negative clears the offset. MySQL only
// renders OFFSET together with LIMIT.
func (qb *QueryBuilder) Offset(n int) *QueryBuilder {
	qb.offset = n
	return qb
}

// Returning requests returned columns from INSERT, UPDATE or DELETE. The
// clause renders only on dialects that support it and is silently dropped
// elsewhere; probe Supports(FeatureReturning) when the result is required.
func (qb *QueryBuilder) Returning(columns ...string) *QueryBuilder {
	qb.returning = columns
	return qb
}

// Build renders the statement for the builder's dialect. It is pure: it
// never mutates builder state and can be called repeatedly. On structural
// errors (missing table, missing INSERT columns or values, row arity
// mismatch, missing SET assignments) it returns an INVALID_QUERY error and
// no partial SQL.
func (qb *QueryBuilder) Build() (string, error) {
	sql, _, err := qb.build()
	return sql, err
}

// Params returns the bound parameter values in placeholder order.
func (qb *QueryBuilder) Params() []Value {
	_, params, _ := qb.build()
	return params
}

// Args returns the bound parameters projected to driver arguments, in
// placeholder order.
func (qb *QueryBuilder) Args() []any {
	return valueArgs(qb.Params())
}

func (qb *QueryBuilder) build() (string, []Value, error) {
	if qb.table == "" {
		return "", nil, buildErr("no table specified")
	}

	var sb strings.Builder
	var params []Value
	n := 0
	placeholder := func(v Value) string {
		n++
		params = append(params, v)
		return qb.dialect.Placeholder(n)
	}

	switch qb.kind {
	case stmtSelect:
		sb.WriteString("SELECT ")
		if qb.distinct {
			sb.WriteString("DISTINCT ")
		}
		if len(qb.selectCols) == 0 {
			sb.WriteString("*")
		} else {
			sb.WriteString(strings.Join(qb.selectCols, ", "))
		}
		sb.WriteString(" FROM ")
		sb.WriteString(qb.table)
		qb.writeJoins(&sb)
		qb.writeWheres(&sb, placeholder)
		if len(qb.groupBys) > 0 {
			sb.WriteString(" GROUP BY ")
			sb.WriteString(strings.Join(qb.groupBys, ", "))
		}
		if len(qb.havings) > 0 {
			sb.WriteString(" HAVING ")
			sb.WriteString(strings.Join(qb.havings, " AND "))
		}
		if len(qb.orderBys) > 0 {
			sb.WriteString(" ORDER BY ")
			for i, o := range qb.orderBys {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(o.column)
				if o.dir != "" {
					sb.WriteString(" ")
					sb.WriteString(string(o.dir))
				}
			}
		}
		if qb.limit >= 0 {
			sb.WriteString(" LIMIT ")
			sb.WriteString(strconv.Itoa(qb.limit))
		}
		if qb.offset >= 0 {
			sb.WriteString(" OFFSET ")
			sb.WriteString(strconv.Itoa(qb.offset))
		}

	case stmtInsert:
		if len(qb.insertCols) == 0 {
			return "", nil, buildErr("insert requires a column list")
		}
		if len(qb.insertRows) == 0 {
			return "", nil, buildErr("insert requires at least one row of values")
		}
		for i, row := range qb.insertRows {
			if len(row) != len(qb.insertCols) {
				return "", nil, buildErr(fmt.Sprintf(
					"insert row %d has %d values, expected %d", i+1, len(row), len(qb.insertCols)))
			}
		}
		sb.WriteString("INSERT INTO ")
		sb.WriteString(qb.table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(qb.insertCols, ", "))
		sb.WriteString(") VALUES ")
		for i, row := range qb.insertRows {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(")
			for j, cell := range row {
				if j > 0 {
					sb.WriteString(", ")
				}
				if cell.bound {
					sb.WriteString(placeholder(cell.value))
				} else {
					sb.WriteString(cell.expr)
				}
			}
			sb.WriteString(")")
		}
		qb.writeReturning(&sb)

	case stmtUpdate:
		if len(qb.sets) == 0 {
			return "", nil, buildErr("update requires at least one set assignment")
		}
		sb.WriteString("UPDATE ")
		sb.WriteString(qb.table)
		sb.WriteString(" SET ")
		for i, a := range qb.sets {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.column)
			sb.WriteString(" = ")
			if a.bound {
				sb.WriteString(placeholder(a.value))
			} else {
				sb.WriteString(a.expr)
			}
		}
		qb.writeWheres(&sb, placeholder)
		qb.writeReturning(&sb)

	case stmtDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(qb.table)
		qb.writeWheres(&sb, placeholder)
		qb.writeReturning(&sb)

	default:
		return "", nil, buildErr("no statement specified")
	}

	return sb.String(), params, nil
}

func (qb *QueryBuilder) writeJoins(sb *strings.Builder) {
	for _, j := range qb.joins {
		sb.WriteString(" ")
		sb.WriteString(string(j.kind))
		sb.WriteString(" ")
		sb.WriteString(j.table)
		sb.WriteString(" ON ")
		sb.WriteString(j.on)
	}
}

func (qb *QueryBuilder) writeWheres(sb *strings.Builder, placeholder func(Value) string) {
	if len(qb.wheres) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	for i, c := range qb.wheres {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		if c.bound {
			sb.WriteString(c.column)
			sb.WriteString(" = ")
			sb.WriteString(placeholder(c.value))
		} else {
			sb.WriteString(c.expr)
		}
	}
}

func (qb *QueryBuilder) writeReturning(sb *strings.Builder) {
	if len(qb.returning) == 0 || !qb.dialect.Supports(FeatureReturning) {
		return
	}
	sb.WriteString(" RETURNING ")
	sb.WriteString(strings.Join(qb.returning, ", "))
}

func buildErr(msg string) *Error {
	return &Error{Code: CodeInvalidQuery, Message: msg, Op: "Build"}
}
