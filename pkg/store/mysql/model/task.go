package model

import "time"

// Task MySQL model for tasks table
type Task struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryID     int64      `gorm:"column:query_id;not null;index:idx_query_id" json:"query_id"`
	WorkerID    *int64     `gorm:"column:worker_id;index:idx_worker_id" json:"worker_id"`
	TaskType    string     `gorm:"column:task_type;type:varchar(32);not null" json:"task_type"`
	Description string     `gorm:"column:description;type:text;not null" json:"description"`
	Status      string     `gorm:"column:status;type:varchar(32);not null;index:idx_status" json:"status"`
	Result      *string    `gorm:"column:result;type:text" json:"result"`
	StartedAt   *time.Time `gorm:"column:started_at;type:datetime(3)" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:datetime(3)" json:"completed_at"`
	Metadata    JSONRaw    `gorm:"column:metadata;type:json" json:"metadata"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}
