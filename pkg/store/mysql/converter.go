package mysql

import (
	"encoding/json"
	"fmt"

	"labswarm/internal/model"
	"labswarm/pkg/classifier"
	dbmodel "labswarm/pkg/store/mysql/model"
)

// ToWorkerDomain converts MySQL Worker to domain Worker model
func ToWorkerDomain(w *dbmodel.Worker) *model.Worker {
	if w == nil {
		return nil
	}
	capabilities := []string(w.Capabilities)
	if capabilities == nil {
		capabilities = []string{}
	}
	return &model.Worker{
		ID:               w.ID,
		Name:             w.Name,
		Kind:             model.WorkerKind(w.Kind),
		Specialization:   w.Specialization,
		Status:           model.WorkerStatus(w.Status),
		Load:             w.Load,
		CurrentTaskLabel: w.CurrentTaskLabel,
		Progress:         w.Progress,
		Capabilities:     capabilities,
		CreatedAt:        w.CreatedAt,
	}
}

// FromWorkerDomain converts domain Worker model to MySQL Worker
func FromWorkerDomain(w *model.Worker) *dbmodel.Worker {
	if w == nil {
		return nil
	}
	return &dbmodel.Worker{
		ID:               w.ID,
		Name:             w.Name,
		Kind:             string(w.Kind),
		Specialization:   w.Specialization,
		Status:           string(w.Status),
		Load:             w.Load,
		CurrentTaskLabel: w.CurrentTaskLabel,
		Progress:         w.Progress,
		Capabilities:     dbmodel.JSONStringArray(w.Capabilities),
		CreatedAt:        w.CreatedAt,
	}
}

// ToQueryDomain converts MySQL Query to domain Query model
func ToQueryDomain(q *dbmodel.Query) (*model.Query, error) {
	if q == nil {
		return nil, nil
	}
	var metadata model.QueryMetadata
	if len(q.Metadata) > 0 {
		if err := json.Unmarshal(q.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of query %d: %w", q.ID, err)
		}
	}
	assigned := []string(q.AssignedWorkers)
	if assigned == nil {
		assigned = []string{}
	}
	return &model.Query{
		ID:                    q.ID,
		UserID:                q.UserID,
		Content:               q.Content,
		Status:                model.QueryStatus(q.Status),
		Priority:              classifier.Priority(q.Priority),
		AssignedWorkers:       assigned,
		EstimatedCompletionAt: q.EstimatedCompletionAt,
		FinalResponse:         q.FinalResponse,
		Metadata:              metadata,
		CreatedAt:             q.CreatedAt,
		CompletedAt:           q.CompletedAt,
	}, nil
}

// FromQueryDomain converts domain Query model to MySQL Query
func FromQueryDomain(q *model.Query) (*dbmodel.Query, error) {
	if q == nil {
		return nil, nil
	}
	metadata, err := json.Marshal(q.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query metadata: %w", err)
	}
	return &dbmodel.Query{
		ID:                    q.ID,
		UserID:                q.UserID,
		Content:               q.Content,
		Status:                string(q.Status),
		Priority:              string(q.Priority),
		AssignedWorkers:       dbmodel.JSONStringArray(q.AssignedWorkers),
		EstimatedCompletionAt: q.EstimatedCompletionAt,
		FinalResponse:         q.FinalResponse,
		Metadata:              metadata,
		CreatedAt:             q.CreatedAt,
		CompletedAt:           q.CompletedAt,
	}, nil
}

// ToTaskDomain converts MySQL Task to domain Task model
func ToTaskDomain(t *dbmodel.Task) (*model.Task, error) {
	if t == nil {
		return nil, nil
	}
	var metadata model.TaskMetadata
	if len(t.Metadata) > 0 {
		if err := json.Unmarshal(t.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of task %d: %w", t.ID, err)
		}
	}
	return &model.Task{
		ID:          t.ID,
		QueryID:     t.QueryID,
		WorkerID:    t.WorkerID,
		TaskType:    model.TaskType(t.TaskType),
		Description: t.Description,
		Status:      model.TaskStatus(t.Status),
		Result:      t.Result,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		Metadata:    metadata,
	}, nil
}

// FromTaskDomain converts domain Task model to MySQL Task
func FromTaskDomain(t *model.Task) (*dbmodel.Task, error) {
	if t == nil {
		return nil, nil
	}
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task metadata: %w", err)
	}
	return &dbmodel.Task{
		ID:          t.ID,
		QueryID:     t.QueryID,
		WorkerID:    t.WorkerID,
		TaskType:    string(t.TaskType),
		Description: t.Description,
		Status:      string(t.Status),
		Result:      t.Result,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
		Metadata:    metadata,
	}, nil
}

// ToActivityDomain converts MySQL ActivityLog to domain ActivityRecord
func ToActivityDomain(a *dbmodel.ActivityLog) *model.ActivityRecord {
	if a == nil {
		return nil
	}
	return &model.ActivityRecord{
		ID:          a.ID,
		WorkerID:    a.WorkerID,
		Action:      a.Action,
		Description: a.Description,
		Timestamp:   a.Timestamp,
	}
}

// FromActivityDomain converts domain ActivityRecord to MySQL ActivityLog
func FromActivityDomain(a *model.ActivityRecord) *dbmodel.ActivityLog {
	if a == nil {
		return nil
	}
	return &dbmodel.ActivityLog{
		ID:          a.ID,
		WorkerID:    a.WorkerID,
		Action:      a.Action,
		Description: a.Description,
		Timestamp:   a.Timestamp,
	}
}

// ToResearchDomain converts MySQL ResearchData to domain ResearchRecord
func ToResearchDomain(r *dbmodel.ResearchData) *model.ResearchRecord {
	if r == nil {
		return nil
	}
	return &model.ResearchRecord{
		ID:        r.ID,
		WorkerID:  r.WorkerID,
		Title:     r.Title,
		Content:   r.Content,
		DataType:  r.DataType,
		Metadata:  map[string]interface{}(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
}

// FromResearchDomain converts domain ResearchRecord to MySQL ResearchData
func FromResearchDomain(r *model.ResearchRecord) *dbmodel.ResearchData {
	if r == nil {
		return nil
	}
	return &dbmodel.ResearchData{
		ID:        r.ID,
		WorkerID:  r.WorkerID,
		Title:     r.Title,
		Content:   r.Content,
		DataType:  r.DataType,
		Metadata:  dbmodel.JSONMap(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
}

// ToMetricsDomain converts MySQL SystemMetrics to domain SystemMetrics
func ToMetricsDomain(m *dbmodel.SystemMetrics) *model.SystemMetrics {
	if m == nil {
		return nil
	}
	return &model.SystemMetrics{
		ID:           m.ID,
		CPUUsage:     m.CPUUsage,
		MemoryUsage:  m.MemoryUsage,
		NetworkIO:    m.NetworkIO,
		StorageUsed:  m.StorageUsed,
		StorageTotal: m.StorageTotal,
		Timestamp:    m.Timestamp,
	}
}

// FromMetricsDomain converts domain SystemMetrics to MySQL SystemMetrics
func FromMetricsDomain(m *model.SystemMetrics) *dbmodel.SystemMetrics {
	if m == nil {
		return nil
	}
	return &dbmodel.SystemMetrics{
		ID:           m.ID,
		CPUUsage:     m.CPUUsage,
		MemoryUsage:  m.MemoryUsage,
		NetworkIO:    m.NetworkIO,
		StorageUsed:  m.StorageUsed,
		StorageTotal: m.StorageTotal,
		Timestamp:    m.Timestamp,
	}
}

// ToChatDomain converts MySQL ChatMessage to domain ChatMessage
func ToChatDomain(m *dbmodel.ChatMessage) *model.ChatMessage {
	if m == nil {
		return nil
	}
	return &model.ChatMessage{
		ID:        m.ID,
		Sender:    model.ChatSender(m.Sender),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

// FromChatDomain converts domain ChatMessage to MySQL ChatMessage
func FromChatDomain(m *model.ChatMessage) *dbmodel.ChatMessage {
	if m == nil {
		return nil
	}
	return &dbmodel.ChatMessage{
		ID:        m.ID,
		Sender:    string(m.Sender),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}
