package sqlkit

import (
	"context"
	"testing"
	"time"
)

func TestDecodeCell(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		declType string
		expected Value
	}{
		{"nil", nil, "TEXT", Null()},
		{"bool", true, "BOOLEAN", Bool(true)},
		{"int64", int64(42), "INTEGER", Int64(42)},
		{"int64 under boolean decl", int64(1), "BOOLEAN", Bool(true)},
		{"int64 zero under boolean decl", int64(0), "BOOLEAN", Bool(false)},
		{"out-of-range int under boolean decl", int64(2), "BOOLEAN", Int64(2)},
		{"float64", 2.5, "REAL", Float64(2.5)},
		{"bytes", []byte("hi"), "TEXT", Text("hi")},
		{"string", "hi", "TEXT", Text("hi")},
		{"time", time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), "DATETIME", Text("2024-05-01T12:30:00Z")},
		{"unknown type falls back to text", uint8(7), "", Text("7")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeCell(tt.raw, tt.declType)
			if got != tt.expected {
				t.Errorf("Expected %s (%s), got %s (%s)", tt.expected, tt.expected.Kind(), got, got.Kind())
			}
		})
	}
}

func TestRecord_Accessors(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := createUsersTable(t, db)

	qb := db.QueryBuilder().
		InsertInto("test_users", "name", "email", "age", "active").
		Values(Text("Rita"), Text("rita@example.com"), Int64(40), Bool(true))
	query, err := qb.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := db.Exec(ctx, query, qb.Params()...); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := db.FetchOne(ctx, "SELECT id, name, email, age, active FROM test_users")
	if err != nil {
		t.Fatalf("FetchOne failed: %v", err)
	}
	if rec == nil {
		t.Fatal("Expected a record")
	}

	cols := rec.Columns()
	expected := []string{"id", "name", "email", "age", "active"}
	if len(cols) != len(expected) {
		t.Fatalf("Expected %d columns, got %d", len(expected), len(cols))
	}
	for i, c := range expected {
		if cols[i] != c {
			t.Errorf("Expected column %d to be %s, got %s", i, c, cols[i])
		}
	}
	if rec.Len() != 5 {
		t.Errorf("Expected Len 5, got %d", rec.Len())
	}

	if name, ok := rec.String("name"); !ok || name != "Rita" {
		t.Errorf("Expected name Rita, got %q (ok=%v)", name, ok)
	}
	if age, ok := rec.Int64("age"); !ok || age != 40 {
		t.Errorf("Expected age 40, got %d (ok=%v)", age, ok)
	}
	if f, ok := rec.Float64("age"); !ok || f != 40 {
		t.Errorf("Expected age as float 40, got %v (ok=%v)", f, ok)
	}

	// The active column is declared BOOLEAN, so the integer the driver
	// returns decodes as a Bool
	v, ok := rec.Get("active")
	if !ok {
		t.Fatal("Expected active column to exist")
	}
	if v.Kind() != KindBool {
		t.Errorf("Expected active to decode as bool, got %s", v.Kind())
	}
	if active, ok := rec.Bool("active"); !ok || !active {
		t.Errorf("Expected active true, got %v (ok=%v)", active, ok)
	}

	if _, ok := rec.Get("missing"); ok {
		t.Error("Expected missing column lookup to report absence")
	}
	if !rec.Value("missing").IsNull() {
		t.Error("Expected Value on a missing column to be NULL")
	}
	if _, ok := rec.Int64("missing"); ok {
		t.Error("Expected Int64 on a missing column to fail")
	}
}

func TestRecord_NullColumn(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecRaw(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"); err != nil {
		t.Fatalf("Failed to create notes table: %v", err)
	}

	if _, err := db.Exec(ctx, "INSERT INTO notes (id, body) VALUES (?, ?)", Int64(1), Null()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := db.FetchOne(ctx, "SELECT body FROM notes WHERE id = ?", Int64(1))
	if err != nil {
		t.Fatalf("FetchOne failed: %v", err)
	}

	if !rec.Value("body").IsNull() {
		t.Errorf("Expected NULL body, got %s", rec.Value("body"))
	}
	if _, ok := rec.String("body"); ok {
		t.Error("Expected String on a NULL column to fail")
	}
}
