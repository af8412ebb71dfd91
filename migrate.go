package sqlkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Migration represents a single migration to execute
type Migration struct {
	ID          string // Unique identifier (e.g., "001", "20240115120000", or any string)
	Description string // Human-readable description
	SQL         string // SQL statements to execute
}

// MigrationResult represents the result of running migrations
type MigrationResult struct {
	Applied   []AppliedMigration
	Skipped   []string // IDs that were already applied
	TotalTime time.Duration
}

// AppliedMigration represents a successfully applied migration
type AppliedMigration struct {
	ID          string
	Description string
	AppliedAt   time.Time
	Duration    time.Duration
	Checksum    string
}

const migrationsTableName = "sqlkit_migrations"

// migrationsTable defines the tracking table through the schema layer so
// it renders on every dialect. applied_at is epoch milliseconds for the
// same reason.
func migrationsTable() *Table {
	t := NewTable(migrationsTableName)
	t.AddColumn(VarcharColumn("id", 255).PrimaryKey())
	t.AddColumn(TextColumn("description").Nullable())
	t.AddColumn(VarcharColumn("checksum", 64))
	t.AddColumn(BigIntColumn("applied_at"))
	t.AddColumn(BigIntColumn("duration_ms"))
	return t
}

func (db *DB) ensureMigrationsTable(ctx context.Context, op string) error {
	if _, err := db.ExecRaw(ctx, migrationsTable().CreateSQL(db.Dialect())); err != nil {
		return &Error{
			Code:    CodeMigration,
			Message: "failed to create migrations table",
			Op:      op,
			Cause:   err,
		}
	}
	return nil
}

// Migrate executes migrations in order, skipping already-applied ones.
// A migration whose SQL changed since it was applied fails the run.
func (db *DB) Migrate(ctx context.Context, migrations []Migration) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{
		Applied: make([]AppliedMigration, 0),
		Skipped: make([]string, 0),
	}

	if err := db.ensureMigrationsTable(ctx, "Migrate"); err != nil {
		return nil, err
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range migrations {
		checksum := checksumSQL(m.SQL)

		if existing, ok := applied[m.ID]; ok {
			if existing != checksum {
				return nil, &Error{
					Code:    CodeMigration,
					Message: fmt.Sprintf("migration %s has changed (checksum mismatch: expected %s, got %s)", m.ID, existing, checksum),
					Op:      "Migrate",
				}
			}
			result.Skipped = append(result.Skipped, m.ID)
			continue
		}

		migrationStart := time.Now()
		if err := db.applyMigration(ctx, m, checksum, migrationStart); err != nil {
			return nil, err
		}
		duration := time.Since(migrationStart)

		result.Applied = append(result.Applied, AppliedMigration{
			ID:          m.ID,
			Description: m.Description,
			AppliedAt:   migrationStart,
			Duration:    duration,
			Checksum:    checksum,
		})
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

// getAppliedMigrations returns a map of migration ID to checksum
func (db *DB) getAppliedMigrations(ctx context.Context) (map[string]string, error) {
	qb := db.QueryBuilder().
		Select("id", "checksum").
		From(migrationsTableName)

	query, err := qb.Build()
	if err != nil {
		return nil, err
	}

	records, err := db.FetchAll(ctx, query)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(records))
	for _, rec := range records {
		id, _ := rec.String("id")
		checksum, _ := rec.String("checksum")
		result[id] = checksum
	}
	return result, nil
}

// applyMigration executes a single migration within a transaction
func (db *DB) applyMigration(ctx context.Context, m Migration, checksum string, startTime time.Time) error {
	return db.Transaction(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return &Error{
				Code:    CodeMigration,
				Message: fmt.Sprintf("migration %s failed: %v", m.ID, err),
				Op:      "Migrate.Apply",
				Query:   truncateSQL(m.SQL, 200),
				Cause:   err,
			}
		}

		durationMs := time.Since(startTime).Milliseconds()

		qb := tx.QueryBuilder().
			InsertInto(migrationsTableName, "id", "description", "checksum", "applied_at", "duration_ms").
			Values(Text(m.ID), Text(m.Description), Text(checksum), Int64(startTime.UnixMilli()), Int64(durationMs))

		query, err := qb.Build()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, query, qb.Params()...); err != nil {
			return err
		}
		return nil
	})
}

// MigrationStatus returns the status of all known migrations
func (db *DB) MigrationStatus(ctx context.Context, migrations []Migration) ([]MigrationStatusEntry, error) {
	if err := db.ensureMigrationsTable(ctx, "MigrationStatus"); err != nil {
		return nil, err
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	var result []MigrationStatusEntry
	for _, m := range migrations {
		checksum := checksumSQL(m.SQL)
		entry := MigrationStatusEntry{
			ID:          m.ID,
			Description: m.Description,
			Checksum:    checksum,
		}

		if appliedChecksum, ok := applied[m.ID]; ok {
			entry.Applied = true
			entry.ChecksumMatch = appliedChecksum == checksum
		}

		result = append(result, entry)
	}

	return result, nil
}

// MigrationStatusEntry represents the status of a single migration
type MigrationStatusEntry struct {
	ID            string
	Description   string
	Checksum      string
	Applied       bool
	ChecksumMatch bool // Only relevant if Applied is true
}

// AppliedMigrations returns all migrations that have been applied, oldest
// first.
func (db *DB) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	if err := db.ensureMigrationsTable(ctx, "AppliedMigrations"); err != nil {
		return nil, err
	}

	qb := db.QueryBuilder().
		Select("id", "description", "checksum", "applied_at", "duration_ms").
		From(migrationsTableName).
		OrderBy("applied_at", Asc)

	query, err := qb.Build()
	if err != nil {
		return nil, err
	}

	records, err := db.FetchAll(ctx, query)
	if err != nil {
		return nil, err
	}

	result := make([]AppliedMigration, len(records))
	for i, rec := range records {
		id, _ := rec.String("id")
		description, _ := rec.String("description")
		checksum, _ := rec.String("checksum")
		appliedAt, _ := rec.Int64("applied_at")
		durationMs, _ := rec.Int64("duration_ms")

		result[i] = AppliedMigration{
			ID:          id,
			Description: description,
			AppliedAt:   time.UnixMilli(appliedAt),
			Duration:    time.Duration(durationMs) * time.Millisecond,
			Checksum:    checksum,
		}
	}

	return result, nil
}

// checksumSQL creates a SHA256 checksum of SQL content
func checksumSQL(sql string) string {
	hash := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(hash[:])
}

// truncateSQL truncates SQL for error messages
func truncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen] + "..."
}
