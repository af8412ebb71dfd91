package sqlkit

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgres(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := OpenDB(Postgres, mockDB, DefaultConfig("postgres://localhost/app"))
	require.NoError(t, err)
	return db, mock
}

func TestPostgres_PlaceholderNumbering(t *testing.T) {
	qb := NewQueryBuilder(Postgres).
		InsertInto("users", "name", "age").
		Values(Text("Ana"), Int64(25)).
		Values(Text("Bo"), Int64(35)).
		Values(Text("Cyn"), Int64(45))

	query, err := qb.Build()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (name, age) VALUES ($1, $2), ($3, $4), ($5, $6)", query)
}

func TestPostgres_UpdateParamOrder(t *testing.T) {
	qb := NewQueryBuilder(Postgres).
		Update("users").
		Set("name", Text("Ana")).
		Set("age", Int64(30)).
		WhereEq("id", Int64(7))

	query, err := qb.Build()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE users SET name = $1, age = $2 WHERE id = $3", query)
	assert.Equal(t, []any{"Ana", int64(30), int64(7)}, qb.Args())
}

func TestPostgres_CreateReturning(t *testing.T) {
	db, mock := newMockPostgres(t)
	defer db.Close()
	ctx := context.Background()

	// RETURNING folds the insert and the read-back into one round trip.
	mock.ExpectQuery(`INSERT INTO test_users \(name, email, age, active\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id, name, email, age, active`).
		WithArgs("Ana", "ana@example.com", int64(25), true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "age", "active"}).
			AddRow(int64(7), "Ana", "ana@example.com", int64(25), true))

	u := &TestUser{Name: "Ana", Email: "ana@example.com", Age: 25, Active: true}
	require.NoError(t, Create(ctx, db, u))

	assert.Equal(t, int64(7), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Find(t *testing.T) {
	db, mock := newMockPostgres(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name, email, age, active FROM test_users WHERE id = \$1 LIMIT 1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "age", "active"}).
			AddRow(int64(7), "Ana", "ana@example.com", int64(25), true))

	u, err := Find[TestUser](ctx, db, Int64(7))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, int64(25), u.Age)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FindMiss(t *testing.T) {
	db, mock := newMockPostgres(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name, email, age, active FROM test_users WHERE id = \$1 LIMIT 1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "age", "active"}))

	u, err := Find[TestUser](ctx, db, Int64(404))
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Upsert(t *testing.T) {
	db, mock := newMockPostgres(t)
	defer db.Close()
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO test_users \(name, email, age, active\) VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \(email\) DO UPDATE SET name = EXCLUDED.name, age = EXCLUDED.age`).
		WithArgs("Ana", "ana@example.com", int64(26), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &TestUser{Name: "Ana", Email: "ana@example.com", Age: 26, Active: true}
	require.NoError(t, Upsert(ctx, db, u, []string{"email"}, []string{"name", "age"}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BatchDeleteChunks(t *testing.T) {
	db, mock := newMockPostgres(t)
	defer db.Close()
	ctx := context.Background()

	// Placeholder numbering restarts per chunk.
	mock.ExpectExec(`DELETE FROM test_users WHERE id IN \(\$1, \$2\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM test_users WHERE id IN \(\$1\)`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := BatchDelete[TestUser](ctx, db, []Value{Int64(1), Int64(2), Int64(3)}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, mock.ExpectationsWereMet())
}
