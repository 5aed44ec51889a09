package model

import (
	"slices"
	"time"

	"labswarm/pkg/classifier"
)

// QueryStatus query lifecycle status
type QueryStatus string

const (
	QueryStatusProcessing QueryStatus = "processing"
	QueryStatusCompleted  QueryStatus = "completed"
	QueryStatusFailed     QueryStatus = "failed"
)

// IsTerminal reports whether the query can no longer change status
func (s QueryStatus) IsTerminal() bool {
	return s == QueryStatusCompleted || s == QueryStatusFailed
}

// QueryMetadata structured payload attached to a query
type QueryMetadata struct {
	Analysis  classifier.Analysis `json:"analysis"`
	TaskCount int                 `json:"taskCount"`
	StartTime time.Time           `json:"startTime"`
	Cancelled bool                `json:"cancelled,omitempty"`
}

// Query user submitted research request
type Query struct {
	ID                    int64               `json:"id"`
	UserID                string              `json:"userId"`
	Content               string              `json:"content"`
	Status                QueryStatus         `json:"status"`
	Priority              classifier.Priority `json:"priority"`
	AssignedWorkers       []string            `json:"assignedWorkers"`
	EstimatedCompletionAt *time.Time          `json:"estimatedCompletionAt"`
	FinalResponse         *string             `json:"finalResponse"`
	Metadata              QueryMetadata       `json:"metadata"`
	CreatedAt             time.Time           `json:"createdAt"`
	CompletedAt           *time.Time          `json:"completedAt"`
}

// Clone returns a deep copy
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := *q
	if q.AssignedWorkers != nil {
		c.AssignedWorkers = slices.Clone(q.AssignedWorkers)
	}
	c.EstimatedCompletionAt = cloneTime(q.EstimatedCompletionAt)
	c.FinalResponse = cloneString(q.FinalResponse)
	c.CompletedAt = cloneTime(q.CompletedAt)
	c.Metadata.Analysis.Domains = slices.Clone(q.Metadata.Analysis.Domains)
	c.Metadata.Analysis.RequiredWorkers = slices.Clone(q.Metadata.Analysis.RequiredWorkers)
	return &c
}

// QueryPatch partial query update; nil fields are left unchanged
type QueryPatch struct {
	AssignedWorkers []string
	Metadata        *QueryMetadata
}

// Apply applies the patch to q in place
func (p QueryPatch) Apply(q *Query) {
	if p.AssignedWorkers != nil {
		q.AssignedWorkers = slices.Clone(p.AssignedWorkers)
	}
	if p.Metadata != nil {
		q.Metadata = *p.Metadata
	}
}

// QueryOutcome terminal transition of a query
type QueryOutcome struct {
	Status        QueryStatus
	FinalResponse string
	CompletedAt   time.Time
}

// SubmitQueryRequest submit query request
type SubmitQueryRequest struct {
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

// QueryWithTasks query together with its tasks
type QueryWithTasks struct {
	Query *Query  `json:"query"`
	Tasks []*Task `json:"tasks"`
}
