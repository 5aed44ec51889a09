package interfaces

import (
	"context"
	"fmt"
	"time"
)

// Phase step of the query pipeline
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseProgress Phase = "progress"
	PhaseComplete Phase = "complete"
)

// Phases in firing order
var Phases = []Phase{PhaseStart, PhaseProgress, PhaseComplete}

// PhaseJob a delayed pipeline step for one query
type PhaseJob struct {
	QueryID int64 `json:"queryId"`
	Phase   Phase `json:"phase"`
}

// Key unique identifier of the job
func (j PhaseJob) Key() string {
	return fmt.Sprintf("query-%d-%s", j.QueryID, j.Phase)
}

// PhaseHandler processes a due phase job
type PhaseHandler func(ctx context.Context, job PhaseJob) error

// PhaseQueue delayed delivery of pipeline steps
type PhaseQueue interface {
	// Schedule delivers job to the handler after delay
	Schedule(ctx context.Context, job PhaseJob, delay time.Duration) error

	// CancelQuery drops every pending job of the query
	CancelQuery(ctx context.Context, queryID int64) error

	// Start begins delivering due jobs to handler
	Start(handler PhaseHandler) error

	// Stop stops delivery; pending jobs are dropped for in-memory queues
	Stop()
}
