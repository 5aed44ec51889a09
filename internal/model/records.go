package model

import "time"

// ActivityRecord append-only activity log entry
type ActivityRecord struct {
	ID          int64     `json:"id"`
	WorkerID    *int64    `json:"workerId"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ResearchRecord durable artifact filed for a completed query
type ResearchRecord struct {
	ID        int64                  `json:"id"`
	WorkerID  *int64                 `json:"workerId"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	DataType  string                 `json:"dataType"` // hypothesis, analysis, paper, result
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
}

// SystemMetrics simulated laboratory resource usage snapshot
type SystemMetrics struct {
	ID           int64     `json:"id"`
	CPUUsage     int       `json:"cpuUsage"`
	MemoryUsage  int       `json:"memoryUsage"`
	NetworkIO    int       `json:"networkIO"`
	StorageUsed  int       `json:"storageUsed"`
	StorageTotal int       `json:"storageTotal"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChatSender chat message author
type ChatSender string

const (
	ChatSenderUser   ChatSender = "user"
	ChatSenderSystem ChatSender = "system"
)

// ChatMessage laboratory chat message
type ChatMessage struct {
	ID        int64      `json:"id"`
	Sender    ChatSender `json:"sender"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
}

// CreateActivityRequest create activity request
type CreateActivityRequest struct {
	WorkerID    *int64 `json:"workerId"`
	Action      string `json:"action" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CreateChatMessageRequest create chat message request
type CreateChatMessageRequest struct {
	Sender  ChatSender `json:"sender" binding:"required"`
	Content string     `json:"content" binding:"required"`
}

// RecordMetricsRequest record metrics request
type RecordMetricsRequest struct {
	CPUUsage     int `json:"cpuUsage"`
	MemoryUsage  int `json:"memoryUsage"`
	NetworkIO    int `json:"networkIO"`
	StorageUsed  int `json:"storageUsed"`
	StorageTotal int `json:"storageTotal"`
}
