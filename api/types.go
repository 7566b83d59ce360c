package api

import (
	"context"

	"showcase-web/domain"
)

// TaskService is the to-do list behaviour the handlers depend on.
type TaskService interface {
	List(ctx context.Context, visitorID string, f domain.Filter) ([]domain.Task, domain.TaskCounts, error)
	Add(ctx context.Context, visitorID, text string, priority domain.Priority, assignee string) (domain.Task, error)
	Toggle(ctx context.Context, visitorID string, id int64) (domain.Task, error)
	Remove(ctx context.Context, visitorID string, id int64) error
	ClearCompleted(ctx context.Context, visitorID string) (int, error)
	ClearAll(ctx context.Context, visitorID string) (int, error)
}

// Deduper remembers submission keys so a repeated submit is applied once.
type Deduper interface {
	Add(ctx context.Context, visitorID, key string) (bool, error)
	Remove(ctx context.Context, visitorID, key string) error
}
