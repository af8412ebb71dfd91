package sqlkit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMigration_Basic(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	migrations := []Migration{
		{
			ID:          "001_create_posts",
			Description: "Create posts table",
			SQL:         "CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT NOT NULL)",
		},
		{
			ID:          "002_add_posts_body",
			Description: "Add body column",
			SQL:         "ALTER TABLE posts ADD COLUMN body TEXT",
		},
	}

	result, err := db.Migrate(ctx, migrations)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	if len(result.Applied) != 2 {
		t.Fatalf("Expected 2 applied migrations, got %d", len(result.Applied))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Expected 0 skipped migrations, got %d", len(result.Skipped))
	}
	if result.Applied[0].ID != "001_create_posts" {
		t.Errorf("Expected first migration 001_create_posts, got %s", result.Applied[0].ID)
	}
	if result.Applied[1].ID != "002_add_posts_body" {
		t.Errorf("Expected second migration 002_add_posts_body, got %s", result.Applied[1].ID)
	}
	if len(result.Applied[0].Checksum) != 64 {
		t.Errorf("Expected a sha256 hex checksum, got %q", result.Applied[0].Checksum)
	}
	if result.TotalTime <= 0 {
		t.Error("Expected a positive total time")
	}

	// The migrated schema is usable
	if _, err := db.Exec(ctx, "INSERT INTO posts (title, body) VALUES (?, ?)", Text("hello"), Text("world")); err != nil {
		t.Fatalf("Insert into migrated table failed: %v", err)
	}
}

func TestMigration_SkipAlreadyApplied(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	migrations := []Migration{
		{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"},
		{ID: "002", Description: "second", SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY)"},
	}

	if _, err := db.Migrate(ctx, migrations); err != nil {
		t.Fatalf("First Migrate failed: %v", err)
	}

	result, err := db.Migrate(ctx, migrations)
	if err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	if len(result.Applied) != 0 {
		t.Errorf("Expected 0 applied on re-run, got %d", len(result.Applied))
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("Expected 2 skipped on re-run, got %d", len(result.Skipped))
	}
	if result.Skipped[0] != "001" || result.Skipped[1] != "002" {
		t.Errorf("Expected skip order to follow input order, got %v", result.Skipped)
	}
}

func TestMigration_ChecksumValidation(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.Migrate(ctx, []Migration{
		{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"},
	}); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// The same ID with different SQL must fail the run
	_, err := db.Migrate(ctx, []Migration{
		{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY, extra TEXT)"},
	})
	if err == nil {
		t.Fatal("Expected checksum mismatch error")
	}
	if !errors.Is(err, ErrMigration) {
		t.Errorf("Expected ErrMigration, got %v", err)
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Expected a checksum mismatch message, got %v", err)
	}
}

func TestMigration_MixedApplyAndSkip(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	first := Migration{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"}
	second := Migration{ID: "002", Description: "second", SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY)"}

	if _, err := db.Migrate(ctx, []Migration{first}); err != nil {
		t.Fatalf("First Migrate failed: %v", err)
	}

	// Keep applied_at strictly increasing across runs
	time.Sleep(5 * time.Millisecond)

	result, err := db.Migrate(ctx, []Migration{first, second})
	if err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	if len(result.Skipped) != 1 || result.Skipped[0] != "001" {
		t.Errorf("Expected 001 to be skipped, got %v", result.Skipped)
	}
	if len(result.Applied) != 1 || result.Applied[0].ID != "002" {
		t.Errorf("Expected 002 to be applied, got %v", result.Applied)
	}
}

func TestMigration_ErrorHandling(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	_, err := db.Migrate(ctx, []Migration{
		{ID: "001", Description: "broken", SQL: "CREATE TABLE ("},
	})
	if err == nil {
		t.Fatal("Expected migration failure")
	}
	if !errors.Is(err, ErrMigration) {
		t.Errorf("Expected ErrMigration, got %v", err)
	}

	// A failed migration leaves no trace in the tracking table
	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no applied migrations, got %d", len(applied))
	}
}

func TestMigration_Status(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	first := Migration{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"}
	second := Migration{ID: "002", Description: "second", SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY)"}

	if _, err := db.Migrate(ctx, []Migration{first}); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	status, err := db.MigrationStatus(ctx, []Migration{first, second})
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(status))
	}

	if !status[0].Applied || !status[0].ChecksumMatch {
		t.Errorf("Expected 001 to be applied with matching checksum, got %+v", status[0])
	}
	if status[1].Applied {
		t.Errorf("Expected 002 to be pending, got %+v", status[1])
	}

	// Status reports drift without failing
	drifted := Migration{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY, x TEXT)"}
	status, err = db.MigrationStatus(ctx, []Migration{drifted})
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if !status[0].Applied || status[0].ChecksumMatch {
		t.Errorf("Expected drift to be flagged, got %+v", status[0])
	}
}

func TestMigration_AppliedMigrations(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	ctx := context.Background()
	if _, err := db.Migrate(ctx, []Migration{
		{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"},
	}); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := db.Migrate(ctx, []Migration{
		{ID: "001", Description: "first", SQL: "CREATE TABLE a (id INTEGER PRIMARY KEY)"},
		{ID: "002", Description: "second", SQL: "CREATE TABLE b (id INTEGER PRIMARY KEY)"},
	}); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("Expected 2 applied migrations, got %d", len(applied))
	}

	// Oldest first
	if applied[0].ID != "001" || applied[1].ID != "002" {
		t.Errorf("Expected order [001 002], got [%s %s]", applied[0].ID, applied[1].ID)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("Expected a recorded apply time")
	}
	if applied[0].Description != "first" {
		t.Errorf("Expected description to round-trip, got %q", applied[0].Description)
	}
	if len(applied[0].Checksum) != 64 {
		t.Errorf("Expected a sha256 hex checksum, got %q", applied[0].Checksum)
	}
}

func TestMigration_Empty(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	result, err := db.Migrate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(result.Applied) != 0 || len(result.Skipped) != 0 {
		t.Errorf("Expected an empty result, got %+v", result)
	}
}

func TestChecksumSQL(t *testing.T) {
	sum := checksumSQL("CREATE TABLE a (id INTEGER)")

	if len(sum) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(sum))
	}
	if sum != checksumSQL("CREATE TABLE a (id INTEGER)") {
		t.Error("Expected the checksum to be deterministic")
	}
	if sum == checksumSQL("CREATE TABLE b (id INTEGER)") {
		t.Error("Expected different SQL to produce different checksums")
	}
}

func TestTruncateSQL(t *testing.T) {
	if got := truncateSQL("SELECT 1", 200); got != "SELECT 1" {
		t.Errorf("Expected short SQL to pass through, got %q", got)
	}

	long := strings.Repeat("x", 300)
	got := truncateSQL(long, 50)
	if len(got) != 53 {
		t.Errorf("Expected 53 characters, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected a ... suffix, got %q", got)
	}
}
