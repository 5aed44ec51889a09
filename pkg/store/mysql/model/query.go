package model

import "time"

// Query MySQL model for queries table
type Query struct {
	ID                    int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                string          `gorm:"column:user_id;type:varchar(255);not null" json:"user_id"`
	Content               string          `gorm:"column:content;type:text;not null" json:"content"`
	Status                string          `gorm:"column:status;type:varchar(32);not null;index:idx_status" json:"status"`
	Priority              string          `gorm:"column:priority;type:varchar(32);not null" json:"priority"`
	AssignedWorkers       JSONStringArray `gorm:"column:assigned_workers;type:json" json:"assigned_workers"`
	EstimatedCompletionAt *time.Time      `gorm:"column:estimated_completion_at;type:datetime(3)" json:"estimated_completion_at"`
	FinalResponse         *string         `gorm:"column:final_response;type:mediumtext" json:"final_response"`
	Metadata              JSONRaw         `gorm:"column:metadata;type:json" json:"metadata"`
	CreatedAt             time.Time       `gorm:"column:created_at;type:datetime(3);not null;index:idx_created_at" json:"created_at"`
	CompletedAt           *time.Time      `gorm:"column:completed_at;type:datetime(3)" json:"completed_at"`
}

// TableName specifies the table name for Query
func (Query) TableName() string {
	return "queries"
}
