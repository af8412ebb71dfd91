// Package hooks provides observability hooks for sqlkit
package hooks

import (
	"context"
	"time"
)

// QueryEvent describes one statement execution as seen by hooks.
type QueryEvent struct {
	Query     string    // Rendered SQL
	StartTime time.Time // Set just before execution
	Err       error     // Set before AfterQuery, nil on success
}

// QueryHook observes statement execution. BeforeQuery runs just before the
// statement and may derive a new context (for example to carry a span);
// AfterQuery receives the same event with Err populated.
type QueryHook interface {
	BeforeQuery(ctx context.Context, event *QueryEvent) context.Context
	AfterQuery(ctx context.Context, event *QueryEvent)
}
