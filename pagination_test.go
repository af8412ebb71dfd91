package sqlkit

import (
	"context"
	"fmt"
	"testing"
)

func seedManyUsers(ctx context.Context, t *testing.T, db *DB, n int) {
	t.Helper()
	items := make([]TestUser, n)
	for i := range items {
		items[i] = TestUser{
			Name:   fmt.Sprintf("user-%02d", i),
			Email:  fmt.Sprintf("u%02d@example.com", i),
			Age:    int64(20 + i),
			Active: i%2 == 0,
		}
	}
	if _, err := BatchInsert(ctx, db, items, 0); err != nil {
		t.Fatalf("seeding users failed: %v", err)
	}
}

func TestPaginate_MiddlePage(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := createUsersTable(t, db)
	seedManyUsers(ctx, t, db, 25)

	page, err := Paginate(ctx, db, 2, 10, func(q *ModelQuery[TestUser, *TestUser]) *ModelQuery[TestUser, *TestUser] {
		return q.OrderBy("name", Asc)
	})
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}

	if len(page.Items) != 10 {
		t.Errorf("Expected 10 items, got %d", len(page.Items))
	}
	if page.Page != 2 || page.PageSize != 10 {
		t.Errorf("Expected page 2 size 10, got page %d size %d", page.Page, page.PageSize)
	}
	if page.TotalItems != 25 {
		t.Errorf("Expected 25 total items, got %d", page.TotalItems)
	}
	if page.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", page.TotalPages)
	}
	if !page.PageInfo.HasNextPage || !page.PageInfo.HasPreviousPage {
		t.Errorf("Expected both page flags set, got %+v", page.PageInfo)
	}
	if page.PageInfo.TotalCount != 25 {
		t.Errorf("Expected total count 25, got %d", page.PageInfo.TotalCount)
	}
	if page.Items[0].Name != "user-10" {
		t.Errorf("Expected page to start at user-10, got %s", page.Items[0].Name)
	}
}

func TestPaginate_LastPage(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := createUsersTable(t, db)
	seedManyUsers(ctx, t, db, 25)

	page, err := Paginate(ctx, db, 3, 10, func(q *ModelQuery[TestUser, *TestUser]) *ModelQuery[TestUser, *TestUser] {
		return q.OrderBy("name", Asc)
	})
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}

	if len(page.Items) != 5 {
		t.Errorf("Expected 5 items on the last page, got %d", len(page.Items))
	}
	if page.PageInfo.HasNextPage {
		t.Error("Last page should not report a next page")
	}
	if !page.PageInfo.HasPreviousPage {
		t.Error("Last page should report a previous page")
	}
}

func TestPaginate_Clamps(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := createUsersTable(t, db)
	seedManyUsers(ctx, t, db, 25)

	page, err := Paginate[TestUser](ctx, db, 0, 0, nil)
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("Expected page clamped to 1, got %d", page.Page)
	}
	if page.PageSize != DefaultPageSize {
		t.Errorf("Expected page size clamped to %d, got %d", DefaultPageSize, page.PageSize)
	}
	if len(page.Items) != DefaultPageSize {
		t.Errorf("Expected %d items, got %d", DefaultPageSize, len(page.Items))
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 total pages, got %d", page.TotalPages)
	}

	page, err = Paginate[TestUser](ctx, db, 1, 1000, nil)
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}
	if page.PageSize != MaxPageSize {
		t.Errorf("Expected page size clamped to %d, got %d", MaxPageSize, page.PageSize)
	}
	if len(page.Items) != 25 {
		t.Errorf("Expected all 25 items on one page, got %d", len(page.Items))
	}
	if page.TotalPages != 1 {
		t.Errorf("Expected 1 total page, got %d", page.TotalPages)
	}
}

func TestPaginate_Empty(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := createUsersTable(t, db)

	page, err := Paginate[TestUser](ctx, db, 1, 10, nil)
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}

	if len(page.Items) != 0 {
		t.Errorf("Expected no items, got %d", len(page.Items))
	}
	if page.TotalItems != 0 {
		t.Errorf("Expected 0 total items, got %d", page.TotalItems)
	}
	if page.TotalPages != 1 {
		t.Errorf("Expected 1 total page for empty table, got %d", page.TotalPages)
	}
	if page.PageInfo.HasNextPage || page.PageInfo.HasPreviousPage {
		t.Errorf("Expected no page flags set, got %+v", page.PageInfo)
	}
}

func TestPaginate_Filtered(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := createUsersTable(t, db)
	seedManyUsers(ctx, t, db, 25)

	page, err := Paginate(ctx, db, 1, 10, func(q *ModelQuery[TestUser, *TestUser]) *ModelQuery[TestUser, *TestUser] {
		return q.WhereEq("active", Bool(true)).OrderBy("age", Desc)
	})
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}

	// 13 of the 25 seeded users are active.
	if page.TotalItems != 13 {
		t.Errorf("Expected 13 matching items, got %d", page.TotalItems)
	}
	if page.TotalPages != 2 {
		t.Errorf("Expected 2 total pages, got %d", page.TotalPages)
	}
	if len(page.Items) != 10 {
		t.Errorf("Expected 10 items, got %d", len(page.Items))
	}
	for _, u := range page.Items {
		if !u.Active {
			t.Errorf("Expected only active users, got %+v", u)
		}
	}
	if page.Items[0].Age != 44 {
		t.Errorf("Expected oldest active user first, got age %d", page.Items[0].Age)
	}
}

func TestPaginate_BeyondLastPage(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := createUsersTable(t, db)
	seedManyUsers(ctx, t, db, 25)

	page, err := Paginate[TestUser](ctx, db, 99, 10, nil)
	if err != nil {
		t.Fatalf("Paginate failed: %v", err)
	}

	if len(page.Items) != 0 {
		t.Errorf("Expected no items past the last page, got %d", len(page.Items))
	}
	if page.TotalPages != 3 {
		t.Errorf("Expected 3 total pages, got %d", page.TotalPages)
	}
	if page.PageInfo.HasNextPage {
		t.Error("Pages past the end should not report a next page")
	}
	if !page.PageInfo.HasPreviousPage {
		t.Error("Pages past the end should report a previous page")
	}
}
