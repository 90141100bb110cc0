// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// Actions recorded on the task activity queue.
const (
	TaskCreated   = "created"
	TaskCompleted = "completed"
	TaskReopened  = "reopened"
	TaskDeleted   = "deleted"
)

// TaskEvent is published whenever a task is created, completed, reopened or
// deleted.  It carries enough for downstream consumers to log, notify or
// feed analytics without querying the primary database.
type TaskEvent struct {
	TaskID     uint64 `json:"task_id"`
	UserID     uint64 `json:"user_id"`
	Action     string `json:"action"`
	Title      string `json:"title"`
	OccurredAt string `json:"occurred_at"`
}
