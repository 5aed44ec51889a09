package mysql

import (
	"context"
	"errors"
	"fmt"

	"labswarm/internal/model"
	dbmodel "labswarm/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// RecordRepository handles the append-only collections: activity, research, metrics, chat
type RecordRepository struct {
	ds *Datastore
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(ds *Datastore) *RecordRepository {
	return &RecordRepository{ds: ds}
}

// AppendActivity inserts an activity record
func (r *RecordRepository) AppendActivity(ctx context.Context, record *model.ActivityRecord) (*model.ActivityRecord, error) {
	row := FromActivityDomain(record)
	row.ID = 0
	if row.Timestamp.IsZero() {
		row.Timestamp = r.ds.Now()
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to append activity: %w", err)
	}
	return ToActivityDomain(row), nil
}

// ListActivity returns the newest limit records, newest first; limit <= 0 returns all
func (r *RecordRepository) ListActivity(ctx context.Context, limit int) ([]*model.ActivityRecord, error) {
	db := r.ds.DB(ctx).Order("id DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	var rows []*dbmodel.ActivityLog
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	out := make([]*model.ActivityRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToActivityDomain(row))
	}
	return out, nil
}

// CreateResearch inserts a research record
func (r *RecordRepository) CreateResearch(ctx context.Context, record *model.ResearchRecord) (*model.ResearchRecord, error) {
	row := FromResearchDomain(record)
	row.ID = 0
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.ds.Now()
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create research data: %w", err)
	}
	return ToResearchDomain(row), nil
}

// ListResearch lists research records, newest first
func (r *RecordRepository) ListResearch(ctx context.Context) ([]*model.ResearchRecord, error) {
	var rows []*dbmodel.ResearchData
	if err := r.ds.DB(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list research data: %w", err)
	}
	out := make([]*model.ResearchRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToResearchDomain(row))
	}
	return out, nil
}

// RecordMetrics inserts a metrics snapshot
func (r *RecordRepository) RecordMetrics(ctx context.Context, metrics *model.SystemMetrics) (*model.SystemMetrics, error) {
	row := FromMetricsDomain(metrics)
	row.ID = 0
	if row.Timestamp.IsZero() {
		row.Timestamp = r.ds.Now()
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to record metrics: %w", err)
	}
	return ToMetricsDomain(row), nil
}

// LatestMetrics returns the newest snapshot, nil if none
func (r *RecordRepository) LatestMetrics(ctx context.Context) (*model.SystemMetrics, error) {
	var row dbmodel.SystemMetrics
	err := r.ds.DB(ctx).Order("id DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest metrics: %w", err)
	}
	return ToMetricsDomain(&row), nil
}

// AppendChatMessage inserts a chat message
func (r *RecordRepository) AppendChatMessage(ctx context.Context, message *model.ChatMessage) (*model.ChatMessage, error) {
	row := FromChatDomain(message)
	row.ID = 0
	if row.Timestamp.IsZero() {
		row.Timestamp = r.ds.Now()
	}
	if err := r.ds.DB(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to append chat message: %w", err)
	}
	return ToChatDomain(row), nil
}

// ListChatMessages lists chat messages, oldest first
func (r *RecordRepository) ListChatMessages(ctx context.Context) ([]*model.ChatMessage, error) {
	var rows []*dbmodel.ChatMessage
	if err := r.ds.DB(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	out := make([]*model.ChatMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToChatDomain(row))
	}
	return out, nil
}
