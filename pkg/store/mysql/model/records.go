package model

import "time"

// ActivityLog MySQL model for activity_logs table
type ActivityLog struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkerID    *int64    `gorm:"column:worker_id;index:idx_worker_id" json:"worker_id"`
	Action      string    `gorm:"column:action;type:varchar(64);not null" json:"action"`
	Description string    `gorm:"column:description;type:text;not null" json:"description"`
	Timestamp   time.Time `gorm:"column:timestamp;type:datetime(3);not null;index:idx_timestamp" json:"timestamp"`
}

// TableName specifies the table name for ActivityLog
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// ResearchData MySQL model for research_data table
type ResearchData struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WorkerID  *int64    `gorm:"column:worker_id" json:"worker_id"`
	Title     string    `gorm:"column:title;type:varchar(512);not null" json:"title"`
	Content   string    `gorm:"column:content;type:mediumtext;not null" json:"content"`
	DataType  string    `gorm:"column:data_type;type:varchar(32);not null" json:"data_type"`
	Metadata  JSONMap   `gorm:"column:metadata;type:json" json:"metadata"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null" json:"created_at"`
}

// TableName specifies the table name for ResearchData
func (ResearchData) TableName() string {
	return "research_data"
}

// SystemMetrics MySQL model for system_metrics table
type SystemMetrics struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CPUUsage     int       `gorm:"column:cpu_usage;not null" json:"cpu_usage"`
	MemoryUsage  int       `gorm:"column:memory_usage;not null" json:"memory_usage"`
	NetworkIO    int       `gorm:"column:network_io;not null" json:"network_io"`
	StorageUsed  int       `gorm:"column:storage_used;not null" json:"storage_used"`
	StorageTotal int       `gorm:"column:storage_total;not null" json:"storage_total"`
	Timestamp    time.Time `gorm:"column:timestamp;type:datetime(3);not null" json:"timestamp"`
}

// TableName specifies the table name for SystemMetrics
func (SystemMetrics) TableName() string {
	return "system_metrics"
}

// ChatMessage MySQL model for chat_messages table
type ChatMessage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Sender    string    `gorm:"column:sender;type:varchar(32);not null" json:"sender"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"column:timestamp;type:datetime(3);not null" json:"timestamp"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// All returns every model for schema migration
func All() []interface{} {
	return []interface{}{
		&Worker{},
		&Query{},
		&Task{},
		&ActivityLog{},
		&ResearchData{},
		&SystemMetrics{},
		&ChatMessage{},
	}
}
