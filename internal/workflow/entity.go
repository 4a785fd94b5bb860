package workflow

import "time"

type Status string

const (
	StatusDraft           Status = "draft"
	StatusWaitingApproval Status = "waiting_approval"
	StatusActive          Status = "active"
	StatusPaused          Status = "paused"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusRejected        Status = "rejected"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// Workflow is a named collection of tasks with its own approval and
// activation lifecycle. Tasks are owned: deleting a workflow cascades to them.
type Workflow struct {
	ID               string    `yaml:"id" json:"id"`
	Name             string    `yaml:"name" json:"name"`
	Description      string    `yaml:"description" json:"description"`
	CreatorID        string    `yaml:"creator_id" json:"creator_id"`
	Status           Status    `yaml:"status" json:"status"`
	RequiresApproval bool      `yaml:"requires_approval" json:"requires_approval"`
	AdminNotes       string    `yaml:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	CreatedAt        time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt        time.Time `yaml:"updated_at" json:"updated_at"`
}
