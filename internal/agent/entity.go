package agent

import "time"

// Agent is a roster entry describing an assignable worker. The roster is
// seeded by setup or admin tooling and is read-only to the orchestration core.
type Agent struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Role        string    `yaml:"role" json:"role"`
	Specialty   string    `yaml:"specialty" json:"specialty"`
	Description string    `yaml:"description" json:"description"`
	Skills      []string  `yaml:"skills" json:"skills"`
	Avatar      string    `yaml:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// HasSkill reports whether the agent lists the given skill.
func (a *Agent) HasSkill(skill string) bool {
	for _, s := range a.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
