// Package executor carries out tasks by type. A Registry maps task types to
// executors; unregistered types fall through to a configurable fallback, so
// new task types work out of the box with echo semantics.
package executor

import (
	"context"
	"log/slog"

	"github.com/crewkit/crewd/internal/task"
)

// Registry dispatches task execution by task type.
type Registry struct {
	executors map[task.Type]task.Executor
	fallback  task.Executor
}

func NewRegistry(fallback task.Executor) *Registry {
	return &Registry{
		executors: make(map[task.Type]task.Executor),
		fallback:  fallback,
	}
}

func (r *Registry) Register(t task.Type, e task.Executor) {
	r.executors[t] = e
}

func (r *Registry) Execute(ctx context.Context, t *task.Task) (map[string]any, error) {
	e, ok := r.executors[t.Type]
	if !ok {
		slog.DebugContext(ctx, "no executor registered for task type, using fallback",
			"task_id", t.ID, "type", t.Type)
		e = r.fallback
	}
	return e.Execute(ctx, t)
}
