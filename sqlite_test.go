package sqlkit

import (
	"context"
	"strings"
	"testing"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
		memory   bool
	}{
		{"memory", "sqlite::memory:", ":memory:?" + sqlitePragmas, true},
		{"empty path", "sqlite:", ":memory:?" + sqlitePragmas, true},
		{"file", "sqlite:app.db", "app.db?" + sqlitePragmas, false},
		{"double slash", "sqlite://app.db", "app.db?" + sqlitePragmas, false},
		{"sqlite3 scheme", "sqlite3:app.db", "app.db?" + sqlitePragmas, false},
		{"sqlite3 double slash", "sqlite3://app.db", "app.db?" + sqlitePragmas, false},
		{"existing params", "sqlite:app.db?cache=shared", "app.db?cache=shared&" + sqlitePragmas, false},
		{"shared memory", "sqlite:file::memory:?mode=memory&cache=shared", "file::memory:?mode=memory&cache=shared&" + sqlitePragmas, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, memory := sqliteDSN(tt.url)
			if dsn != tt.expected {
				t.Errorf("Expected DSN %q, got %q", tt.expected, dsn)
			}
			if memory != tt.memory {
				t.Errorf("Expected memory=%v, got %v", tt.memory, memory)
			}
		})
	}
}

func TestSQLiteDSN_Pragmas(t *testing.T) {
	dsn, _ := sqliteDSN("sqlite:app.db")
	if !strings.Contains(dsn, "_pragma=busy_timeout(10000)") {
		t.Error("Expected a busy timeout pragma")
	}
	if !strings.Contains(dsn, "_pragma=foreign_keys(1)") {
		t.Error("Expected foreign key enforcement")
	}
}

func TestSQLite_MemoryPoolCap(t *testing.T) {
	db, err := Open(DefaultConfig("sqlite::memory:"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	// Each in-memory connection is a private database, so the pool is
	// capped to one connection
	if db.Stats().MaxOpenConnections != 1 {
		t.Errorf("Expected MaxOpenConnections 1, got %d", db.Stats().MaxOpenConnections)
	}

	ctx := context.Background()
	if _, err := db.ExecRaw(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if _, err := db.Exec(ctx, "INSERT INTO t (id) VALUES (?)", Int64(1)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := db.FetchOne(ctx, "SELECT id FROM t")
	if err != nil {
		t.Fatalf("FetchOne failed: %v", err)
	}
	if id, _ := rec.Int64("id"); id != 1 {
		t.Errorf("Expected id 1, got %d", id)
	}
}

func TestSQLite_ForeignKeysEnforced(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecRaw(ctx, "CREATE TABLE owners (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := db.ExecRaw(ctx, "CREATE TABLE pets (id INTEGER PRIMARY KEY, owner_id INTEGER REFERENCES owners(id))"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The DSN pragma turns foreign key enforcement on for every connection
	_, err := db.Exec(ctx, "INSERT INTO pets (id, owner_id) VALUES (?, ?)", Int64(1), Int64(999))
	if err == nil {
		t.Fatal("Expected foreign key violation")
	}
	if !IsForeignKey(err) {
		t.Errorf("Expected IsForeignKey, got %v", err)
	}
}
