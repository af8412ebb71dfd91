package sqlkit

import (
	"context"
	"fmt"
	"strings"
)

// ColumnType is a portable column type that each dialect spells its own way
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeBigInt    ColumnType = "bigint"
	TypeText      ColumnType = "text"
	TypeVarchar   ColumnType = "varchar"
	TypeBoolean   ColumnType = "boolean"
	TypeFloat     ColumnType = "float"
	TypeDouble    ColumnType = "double"
	TypeDecimal   ColumnType = "decimal"
	TypeDate      ColumnType = "date"
	TypeDateTime  ColumnType = "datetime"
	TypeTimestamp ColumnType = "timestamp"
	TypeJSON      ColumnType = "json"
	TypeUUID      ColumnType = "uuid"
	TypeBinary    ColumnType = "binary"
)

// Column describes one table column for DDL emission
type Column struct {
	Name          string
	Type          ColumnType
	Length        int // Varchar length
	Precision     int // Decimal precision
	Scale         int // Decimal scale
	IsNullable    bool
	Default       string // Raw SQL expression, rendered as-is
	IsUnique      bool
	IsPrimaryKey  bool
	AutoIncrement bool
}

// NewColumn creates a column of the given type. Columns are NOT NULL
// unless Nullable is applied.
func NewColumn(name string, typ ColumnType) Column {
	return Column{Name: name, Type: typ}
}

// IDColumn creates a 64-bit auto-incrementing primary key column
func IDColumn(name string) Column {
	return Column{Name: name, Type: TypeBigInt, IsPrimaryKey: true, AutoIncrement: true}
}

// IntegerColumn creates a 32-bit integer column
func IntegerColumn(name string) Column {
	return NewColumn(name, TypeInteger)
}

// BigIntColumn creates a 64-bit integer column
func BigIntColumn(name string) Column {
	return NewColumn(name, TypeBigInt)
}

// TextColumn creates an unbounded text column
func TextColumn(name string) Column {
	return NewColumn(name, TypeText)
}

// VarcharColumn creates a bounded string column
func VarcharColumn(name string, length int) Column {
	return Column{Name: name, Type: TypeVarchar, Length: length}
}

// BooleanColumn creates a boolean column
func BooleanColumn(name string) Column {
	return NewColumn(name, TypeBoolean)
}

// FloatColumn creates a single-precision float column
func FloatColumn(name string) Column {
	return NewColumn(name, TypeFloat)
}

// DoubleColumn creates a double-precision float column
func DoubleColumn(name string) Column {
	return NewColumn(name, TypeDouble)
}

// DecimalColumn creates a fixed-point numeric column
func DecimalColumn(name string, precision, scale int) Column {
	return Column{Name: name, Type: TypeDecimal, Precision: precision, Scale: scale}
}

// DateColumn creates a date column
func DateColumn(name string) Column {
	return NewColumn(name, TypeDate)
}

// DateTimeColumn creates a date-and-time column
func DateTimeColumn(name string) Column {
	return NewColumn(name, TypeDateTime)
}

// TimestampColumn creates a timestamp column
func TimestampColumn(name string) Column {
	return NewColumn(name, TypeTimestamp)
}

// JSONColumn creates a JSON document column
func JSONColumn(name string) Column {
	return NewColumn(name, TypeJSON)
}

// UUIDColumn creates a UUID column
func UUIDColumn(name string) Column {
	return NewColumn(name, TypeUUID)
}

// BinaryColumn creates a binary blob column
func BinaryColumn(name string) Column {
	return NewColumn(name, TypeBinary)
}

// Nullable marks the column as accepting NULL
func (c Column) Nullable() Column {
	c.IsNullable = true
	return c
}

// WithDefault sets the column default. The expression is a trusted SQL
// fragment rendered verbatim, so string literals need their own quotes.
func (c Column) WithDefault(expr string) Column {
	c.Default = expr
	return c
}

// Unique adds a UNIQUE constraint
func (c Column) Unique() Column {
	c.IsUnique = true
	return c
}

// PrimaryKey marks the column as the table's primary key
func (c Column) PrimaryKey() Column {
	c.IsPrimaryKey = true
	return c
}

// WithAutoIncrement makes the column auto-incrementing
func (c Column) WithAutoIncrement() Column {
	c.AutoIncrement = true
	return c
}

// DefinitionSQL renders the column definition for a CREATE TABLE or
// ALTER TABLE ... ADD COLUMN statement.
func (c Column) DefinitionSQL(d Dialect) string {
	var sb strings.Builder
	sb.WriteString(d.QuoteIdent(c.Name))
	sb.WriteByte(' ')
	sb.WriteString(c.typeSQL(d))

	if c.IsPrimaryKey {
		sb.WriteString(" PRIMARY KEY")
	}

	if c.AutoIncrement {
		// Postgres spells auto-increment in the type (SERIAL/BIGSERIAL)
		switch d {
		case SQLite:
			sb.WriteString(" AUTOINCREMENT")
		case MySQL:
			sb.WriteString(" AUTO_INCREMENT")
		}
	}

	if !c.IsNullable && !c.IsPrimaryKey {
		sb.WriteString(" NOT NULL")
	}

	if c.IsUnique && !c.IsPrimaryKey {
		sb.WriteString(" UNIQUE")
	}

	if c.Default != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(c.Default)
	}

	return sb.String()
}

// typeSQL renders the dialect-specific type spelling. Booleans are
// declared BOOLEAN everywhere, SQLite included, so that row decoding can
// recognize them from the declared column type.
func (c Column) typeSQL(d Dialect) string {
	switch c.Type {
	case TypeInteger:
		switch d {
		case MySQL:
			return "INT"
		case Postgres:
			if c.AutoIncrement {
				return "SERIAL"
			}
			return "INTEGER"
		default:
			return "INTEGER"
		}
	case TypeBigInt:
		switch d {
		case SQLite:
			// SQLite auto-increment requires the INTEGER spelling
			if c.AutoIncrement {
				return "INTEGER"
			}
			return "BIGINT"
		case Postgres:
			if c.AutoIncrement {
				return "BIGSERIAL"
			}
			return "BIGINT"
		default:
			return "BIGINT"
		}
	case TypeText:
		return "TEXT"
	case TypeVarchar:
		return fmt.Sprintf("VARCHAR(%d)", c.Length)
	case TypeBoolean:
		return "BOOLEAN"
	case TypeFloat:
		if d == Postgres {
			return "REAL"
		}
		return "FLOAT"
	case TypeDouble:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	case TypeDecimal:
		return fmt.Sprintf("DECIMAL(%d, %d)", c.Precision, c.Scale)
	case TypeDate:
		return "DATE"
	case TypeDateTime:
		switch d {
		case SQLite:
			return "TEXT"
		case Postgres:
			return "TIMESTAMP"
		default:
			return "DATETIME"
		}
	case TypeTimestamp:
		if d == Postgres {
			return "TIMESTAMPTZ"
		}
		return "TIMESTAMP"
	case TypeJSON:
		switch d {
		case SQLite:
			return "TEXT"
		case Postgres:
			return "JSONB"
		default:
			return "JSON"
		}
	case TypeUUID:
		switch d {
		case SQLite:
			return "TEXT"
		case Postgres:
			return "UUID"
		default:
			return "CHAR(36)"
		}
	case TypeBinary:
		if d == Postgres {
			return "BYTEA"
		}
		return "BLOB"
	}
	return strings.ToUpper(string(c.Type))
}

// ForeignKeyAction is a referential action for ON DELETE / ON UPDATE
type ForeignKeyAction string

const (
	FKNoAction ForeignKeyAction = "NO ACTION"
	FKRestrict ForeignKeyAction = "RESTRICT"
	FKCascade  ForeignKeyAction = "CASCADE"
	FKSetNull  ForeignKeyAction = "SET NULL"
)

// ForeignKey describes a single-column foreign key constraint
type ForeignKey struct {
	Column           string
	ReferencesTable  string
	ReferencesColumn string
	OnDelete         ForeignKeyAction // empty omits the clause
	OnUpdate         ForeignKeyAction // empty omits the clause
}

// DefinitionSQL renders the table-level FOREIGN KEY constraint
func (fk ForeignKey) DefinitionSQL(d Dialect) string {
	var sb strings.Builder
	sb.WriteString("FOREIGN KEY (")
	sb.WriteString(d.QuoteIdent(fk.Column))
	sb.WriteString(") REFERENCES ")
	sb.WriteString(d.QuoteIdent(fk.ReferencesTable))
	sb.WriteString(" (")
	sb.WriteString(d.QuoteIdent(fk.ReferencesColumn))
	sb.WriteString(")")

	if fk.OnDelete != "" {
		sb.WriteString(" ON DELETE ")
		sb.WriteString(string(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		sb.WriteString(" ON UPDATE ")
		sb.WriteString(string(fk.OnUpdate))
	}

	return sb.String()
}

// Index describes a secondary index
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// CreateSQL renders the CREATE INDEX statement
func (ix Index) CreateSQL(d Dialect) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if ix.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(d.QuoteIdent(ix.Name))
	sb.WriteString(" ON ")
	sb.WriteString(d.QuoteIdent(ix.Table))
	sb.WriteString(" (")
	for i, col := range ix.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdent(col))
	}
	sb.WriteString(")")
	return sb.String()
}

// DropSQL renders the DROP INDEX statement. MySQL scopes index names to
// their table and has no IF EXISTS form.
func (ix Index) DropSQL(d Dialect) string {
	if d == MySQL {
		return "DROP INDEX " + d.QuoteIdent(ix.Name) + " ON " + d.QuoteIdent(ix.Table)
	}
	return "DROP INDEX IF EXISTS " + d.QuoteIdent(ix.Name)
}

// Table describes a table for DDL emission
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKeys []string // Table-level (composite) primary key
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// NewTable creates an empty table definition
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// AddColumn appends a column
func (t *Table) AddColumn(col Column) *Table {
	t.Columns = append(t.Columns, col)
	return t
}

// SetPrimaryKey sets a table-level primary key, for composite keys or
// when no column carries PrimaryKey itself.
func (t *Table) SetPrimaryKey(columns ...string) *Table {
	t.PrimaryKeys = columns
	return t
}

// AddForeignKey appends a foreign key constraint
func (t *Table) AddForeignKey(fk ForeignKey) *Table {
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return t
}

// AddIndex appends a secondary index on this table
func (t *Table) AddIndex(name string, columns []string, unique bool) *Table {
	t.Indexes = append(t.Indexes, Index{
		Name:    name,
		Table:   t.Name,
		Columns: columns,
		Unique:  unique,
	})
	return t
}

// CreateSQL renders the CREATE TABLE statement. Indexes are separate
// statements; see Index.CreateSQL.
func (t *Table) CreateSQL(d Dialect) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(d.QuoteIdent(t.Name))
	sb.WriteString(" (")

	for i, col := range t.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.DefinitionSQL(d))
	}

	if len(t.PrimaryKeys) > 0 {
		sb.WriteString(", PRIMARY KEY (")
		for i, col := range t.PrimaryKeys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.QuoteIdent(col))
		}
		sb.WriteString(")")
	}

	for _, fk := range t.ForeignKeys {
		sb.WriteString(", ")
		sb.WriteString(fk.DefinitionSQL(d))
	}

	sb.WriteString(")")
	return sb.String()
}

// DropSQL renders the DROP TABLE statement
func (t *Table) DropSQL(d Dialect) string {
	return "DROP TABLE IF EXISTS " + d.QuoteIdent(t.Name)
}

// Schema accumulates DDL operations and applies them in order through the
// backend's trusted-DDL path. Statements are rendered for the dialect
// given at construction.
type Schema struct {
	dialect    Dialect
	statements []string
}

// NewSchema creates an empty schema change set for the given dialect
func NewSchema(d Dialect) *Schema {
	return &Schema{dialect: d}
}

// CreateTable queues the table's CREATE TABLE statement plus one CREATE
// INDEX statement per declared index.
func (s *Schema) CreateTable(t *Table) *Schema {
	s.statements = append(s.statements, t.CreateSQL(s.dialect))
	for _, ix := range t.Indexes {
		s.statements = append(s.statements, ix.CreateSQL(s.dialect))
	}
	return s
}

// DropTable queues a DROP TABLE statement
func (s *Schema) DropTable(name string) *Schema {
	s.statements = append(s.statements, "DROP TABLE IF EXISTS "+s.dialect.QuoteIdent(name))
	return s
}

// AddColumn queues an ALTER TABLE ... ADD COLUMN statement
func (s *Schema) AddColumn(table string, col Column) *Schema {
	s.statements = append(s.statements,
		"ALTER TABLE "+s.dialect.QuoteIdent(table)+" ADD COLUMN "+col.DefinitionSQL(s.dialect))
	return s
}

// DropColumn queues an ALTER TABLE ... DROP COLUMN statement
func (s *Schema) DropColumn(table, column string) *Schema {
	s.statements = append(s.statements,
		"ALTER TABLE "+s.dialect.QuoteIdent(table)+" DROP COLUMN "+s.dialect.QuoteIdent(column))
	return s
}

// CreateIndex queues a CREATE INDEX statement
func (s *Schema) CreateIndex(ix Index) *Schema {
	s.statements = append(s.statements, ix.CreateSQL(s.dialect))
	return s
}

// DropIndex queues a DROP INDEX statement
func (s *Schema) DropIndex(table, name string) *Schema {
	s.statements = append(s.statements, Index{Name: name, Table: table}.DropSQL(s.dialect))
	return s
}

// Statements returns the queued statements in application order
func (s *Schema) Statements() []string {
	out := make([]string, len(s.statements))
	copy(out, s.statements)
	return out
}

// Apply executes the queued statements in order through ExecRaw. It stops
// at the first failure.
func (s *Schema) Apply(ctx context.Context, db *DB) error {
	for _, stmt := range s.statements {
		if _, err := db.ExecRaw(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
