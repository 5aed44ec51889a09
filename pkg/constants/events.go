package constants

// EventType event names published on the event bus
type EventType string

const (
	EventQueryStarted   EventType = "query_started"
	EventQueryCompleted EventType = "query_completed"
	EventQueryFailed    EventType = "query_failed"

	EventTaskStarted    EventType = "task_started"
	EventTaskProgressed EventType = "task_progressed"
	EventTaskCompleted  EventType = "task_completed"
	EventTaskFailed     EventType = "task_failed"

	EventWorkerCreated EventType = "worker_created"
	EventWorkerUpdated EventType = "worker_updated"
	EventWorkerDeleted EventType = "worker_deleted"

	EventMetricsUpdated EventType = "metrics_updated"
	EventActivityLogged EventType = "activity_logged"
	EventChatMessage    EventType = "chat_message"
)

func (e EventType) String() string {
	return string(e)
}
