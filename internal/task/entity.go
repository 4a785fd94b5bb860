package task

import "time"

type Status string

const (
	StatusPending         Status = "pending"
	StatusAssigned        Status = "assigned"
	StatusInProgress      Status = "in_progress"
	StatusHandoff         Status = "handoff"
	StatusWaitingApproval Status = "waiting_approval"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusHandoff,
		StatusWaitingApproval, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Type classifies the work a task performs. The executor registry dispatches
// on it; new types need no changes in the core.
type Type string

const (
	TypeWebScraping     Type = "web_scraping"
	TypeContentCreation Type = "content_creation"
	TypeImageGeneration Type = "image_generation"
	TypeCodeGeneration  Type = "code_generation"
	TypeDataAnalysis    Type = "data_analysis"
	TypeResearch        Type = "research"
	TypeValidation      Type = "validation"
	TypeDeployment      Type = "deployment"
)

// Task is a unit of work. Input and output payloads are opaque to the core;
// only the executor registered for the task's type interprets them.
type Task struct {
	ID             string         `yaml:"id" json:"id"`
	WorkflowID     string         `yaml:"workflow_id,omitempty" json:"workflow_id,omitempty"`
	Title          string         `yaml:"title" json:"title"`
	Description    string         `yaml:"description" json:"description"`
	Type           Type           `yaml:"type" json:"type"`
	Status         Status         `yaml:"status" json:"status"`
	AssigneeID     string         `yaml:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	CreatorID      string         `yaml:"creator_id" json:"creator_id"`
	Dependencies   []string       `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	InputData      map[string]any `yaml:"input_data,omitempty" json:"input_data,omitempty"`
	OutputData     map[string]any `yaml:"output_data,omitempty" json:"output_data,omitempty"`
	Priority       Priority       `yaml:"priority" json:"priority"`
	DueDate        *time.Time     `yaml:"due_date,omitempty" json:"due_date,omitempty"`
	SkillsRequired []string       `yaml:"skills_required,omitempty" json:"skills_required,omitempty"`
	Tags           []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
	HandoffTo      string         `yaml:"handoff_to,omitempty" json:"handoff_to,omitempty"`
	HandoffReason  string         `yaml:"handoff_reason,omitempty" json:"handoff_reason,omitempty"`
	CreatedAt      time.Time      `yaml:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `yaml:"updated_at" json:"updated_at"`
}
