package eventbus

import "time"

type EventType string

const (
	EventTaskCreated               EventType = "task.created"
	EventTaskStatusChanged         EventType = "task.status_changed"
	EventTaskHandoff               EventType = "task.handoff"
	EventWorkflowCompleted         EventType = "workflow.completed"
	EventWorkflowApprovalRequested EventType = "workflow.approval_requested"
	EventWorkflowApproved          EventType = "workflow.approved"
	EventWorkflowRejected          EventType = "workflow.rejected"
)

type Event struct {
	ID         string
	Type       EventType
	ResourceID string
	Payload    map[string]string
	CreatedAt  time.Time
}
