package sqlkit

import (
	"context"
)

// PageInfo contains pagination metadata.
type PageInfo struct {
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
	TotalCount      int64 `json:"total_count,omitempty"`
}

// Page represents an offset-based paginated result.
type Page[T any] struct {
	Items      []T      `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalItems int64    `json:"total_items"`
	TotalPages int      `json:"total_pages"`
	PageInfo   PageInfo `json:"page_info"`
}

// DefaultPageSize is the default number of items per page.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 100

// Paginate executes an offset-paginated query and returns one page with
// metadata. queryFn narrows and orders both the count and the item query;
// page numbers are 1-indexed and the page size is clamped to MaxPageSize.
//
// Usage:
//
//	page, err := sqlkit.Paginate(ctx, db, 1, 10, func(q *sqlkit.ModelQuery[User, *User]) *sqlkit.ModelQuery[User, *User] {
//	    return q.WhereEq("active", sqlkit.Bool(true)).OrderBy("created_at", sqlkit.Desc)
//	})
func Paginate[T any, PT ModelScanner[T]](ctx context.Context, q Querier, page, pageSize int, queryFn func(*ModelQuery[T, PT]) *ModelQuery[T, PT]) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	offset := (page - 1) * pageSize

	countQuery := Query[T, PT](q)
	if queryFn != nil {
		countQuery = queryFn(countQuery)
	}
	totalCount, err := countQuery.Count(ctx)
	if err != nil {
		return nil, err
	}

	itemsQuery := Query[T, PT](q)
	if queryFn != nil {
		itemsQuery = queryFn(itemsQuery)
	}
	items, err := itemsQuery.Limit(pageSize).Offset(offset).All(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalCount,
		TotalPages: totalPages,
		PageInfo: PageInfo{
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
			TotalCount:      totalCount,
		},
	}, nil
}
