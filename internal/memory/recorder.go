package memory

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/crewkit/crewd/internal/task"
)

const categoryTaskCompletion = "task_completion"

// Recorder writes completion notes into an agent's long-term memory.
// It satisfies task.CompletionRecorder.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) RecordTaskCompletion(ctx context.Context, t *task.Task) error {
	if t.AssigneeID == "" {
		return nil
	}
	text := fmt.Sprintf("completed task %q", t.Title)
	if len(t.OutputData) > 0 {
		text = fmt.Sprintf("%s, output: %v", text, t.OutputData)
	}
	n := &Note{
		ID:        ulid.Make().String(),
		AgentID:   t.AssigneeID,
		CreatorID: t.CreatorID,
		TaskID:    t.ID,
		Category:  categoryTaskCompletion,
		Text:      text,
		CreatedAt: t.UpdatedAt,
	}
	return r.repo.Create(ctx, n)
}
