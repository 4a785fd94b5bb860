package memory

import "time"

// Note is a long-term memory entry attached to an agent.
type Note struct {
	ID        string    `yaml:"id"`
	AgentID   string    `yaml:"agent_id"`
	CreatorID string    `yaml:"creator_id,omitempty"`
	TaskID    string    `yaml:"task_id,omitempty"`
	Category  string    `yaml:"category"`
	Text      string    `yaml:"text"`
	CreatedAt time.Time `yaml:"created_at"`
}
