package model

import (
	"slices"
	"time"

	"labswarm/pkg/classifier"
)

// TaskType kind of work a task represents
type TaskType string

const (
	TaskTypeAnalysis    TaskType = "analysis"
	TaskTypeResearch    TaskType = "research"
	TaskTypeSynthesis   TaskType = "synthesis"
	TaskTypeCalculation TaskType = "calculation"
)

// TaskStatus task status
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether the task can no longer change status
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether next is a forward move from s
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress || next == TaskStatusFailed
	case TaskStatusInProgress:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	}
	return false
}

// TaskMetadata structured payload attached to a task
type TaskMetadata struct {
	QueryAnalysis classifier.Analysis `json:"queryAnalysis"`
	AssignedAt    time.Time           `json:"assignedAt"`
	WorkerName    string              `json:"workerName,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// Task one worker's unit of work within a query
type Task struct {
	ID          int64        `json:"id"`
	QueryID     int64        `json:"queryId"`
	WorkerID    *int64       `json:"workerId"`
	TaskType    TaskType     `json:"taskType"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Result      *string      `json:"result"`
	StartedAt   *time.Time   `json:"startedAt"`
	CompletedAt *time.Time   `json:"completedAt"`
	Metadata    TaskMetadata `json:"metadata"`
}

// Clone returns a deep copy
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.WorkerID = cloneInt64(t.WorkerID)
	c.Result = cloneString(t.Result)
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.Metadata.QueryAnalysis.Domains = slices.Clone(t.Metadata.QueryAnalysis.Domains)
	c.Metadata.QueryAnalysis.RequiredWorkers = slices.Clone(t.Metadata.QueryAnalysis.RequiredWorkers)
	return &c
}

// TaskTransition forward status change of a task.
// Nil fields other than Status are left unchanged.
type TaskTransition struct {
	Status      TaskStatus
	Result      *string
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
}

// Apply applies the transition to t in place.
// It reports false and leaves t untouched when the move is not forward.
func (tr TaskTransition) Apply(t *Task) bool {
	if !t.Status.CanTransitionTo(tr.Status) {
		return false
	}
	t.Status = tr.Status
	if tr.Result != nil {
		t.Result = cloneString(tr.Result)
	}
	if tr.StartedAt != nil {
		t.StartedAt = cloneTime(tr.StartedAt)
	}
	if tr.CompletedAt != nil {
		t.CompletedAt = cloneTime(tr.CompletedAt)
	}
	if tr.Error != "" {
		t.Metadata.Error = tr.Error
	}
	return true
}
