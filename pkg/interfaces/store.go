package interfaces

import (
	"context"
	"errors"

	"labswarm/internal/model"
)

// ErrNotFound returned by deletes when the record does not exist
var ErrNotFound = errors.New("record not found")

// WorkerStore worker persistence
type WorkerStore interface {
	CreateWorker(ctx context.Context, worker *model.Worker) (*model.Worker, error)
	GetWorker(ctx context.Context, id int64) (*model.Worker, error)
	GetWorkerByName(ctx context.Context, name string) (*model.Worker, error)
	ListWorkers(ctx context.Context) ([]*model.Worker, error)
	// UpdateWorker returns (nil, nil) for an unknown id
	UpdateWorker(ctx context.Context, id int64, patch model.WorkerPatch) (*model.Worker, error)
	// AdvanceWorkerProgress applies Worker.Advance atomically; (nil, nil) when the guard fails
	AdvanceWorkerProgress(ctx context.Context, id int64, status model.WorkerStatus, delta int) (*model.Worker, error)
	DeleteWorker(ctx context.Context, id int64) error
}

// QueryStore query persistence
type QueryStore interface {
	CreateQuery(ctx context.Context, query *model.Query) (*model.Query, error)
	GetQuery(ctx context.Context, id int64) (*model.Query, error)
	// ListQueries returns queries newest first
	ListQueries(ctx context.Context) ([]*model.Query, error)
	ListActiveQueries(ctx context.Context) ([]*model.Query, error)
	UpdateQuery(ctx context.Context, id int64, patch model.QueryPatch) (*model.Query, error)
	// FinishQuery moves a processing query to a terminal status.
	// Returns (nil, nil) when the query is unknown or already terminal.
	FinishQuery(ctx context.Context, id int64, outcome model.QueryOutcome) (*model.Query, error)
}

// TaskStore task persistence
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	// ListTasksByQuery returns tasks in creation order
	ListTasksByQuery(ctx context.Context, queryID int64) ([]*model.Task, error)
	// TransitionTask applies tr only when the task's current status is one of from.
	// Returns (nil, nil) when the task is unknown or the guard fails.
	TransitionTask(ctx context.Context, id int64, from []model.TaskStatus, tr model.TaskTransition) (*model.Task, error)
}

// ActivityStore append-only activity log
type ActivityStore interface {
	AppendActivity(ctx context.Context, record *model.ActivityRecord) (*model.ActivityRecord, error)
	// ListActivity returns the newest limit records, newest first
	ListActivity(ctx context.Context, limit int) ([]*model.ActivityRecord, error)
}

// ResearchStore research artifact persistence
type ResearchStore interface {
	CreateResearch(ctx context.Context, record *model.ResearchRecord) (*model.ResearchRecord, error)
	// ListResearch returns records newest first
	ListResearch(ctx context.Context) ([]*model.ResearchRecord, error)
}

// MetricsStore system metrics snapshots
type MetricsStore interface {
	RecordMetrics(ctx context.Context, metrics *model.SystemMetrics) (*model.SystemMetrics, error)
	// LatestMetrics returns nil when nothing was recorded yet
	LatestMetrics(ctx context.Context) (*model.SystemMetrics, error)
}

// ChatStore chat messages
type ChatStore interface {
	AppendChatMessage(ctx context.Context, message *model.ChatMessage) (*model.ChatMessage, error)
	// ListChatMessages returns messages oldest first
	ListChatMessages(ctx context.Context) ([]*model.ChatMessage, error)
}

// Store aggregates every collection of the laboratory.
// Ids are assigned by the store and are monotonic per collection.
type Store interface {
	WorkerStore
	QueryStore
	TaskStore
	ActivityStore
	ResearchStore
	MetricsStore
	ChatStore
	Close() error
}
