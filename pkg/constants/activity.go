package constants

// Activity log actions
const (
	ActionQuerySubmitted = "query_submitted"
	ActionQueryCompleted = "query_completed"
	ActionQueryFailed    = "query_failed"
	ActionQueryCancelled = "query_cancelled"

	ActionTaskStarted   = "task_started"
	ActionTaskCompleted = "task_completed"
	ActionTaskFailed    = "task_failed"

	ActionWorkerCreated = "worker_created"
	ActionWorkerUpdated = "worker_updated"
	ActionWorkerDeleted = "worker_deleted"

	ActionWorkCycleCompleted = "work_cycle_completed"
)
