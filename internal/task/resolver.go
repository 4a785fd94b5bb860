package task

import (
	"context"
	"log/slog"
)

// ReadyTasks returns the pending tasks whose dependencies are all completed.
// A failed dependency lookup excludes the task from the ready set
// (fail-closed) and is logged; the call itself only fails when the pending
// list cannot be read at all. Safe to call repeatedly: pure read.
func (s *Service) ReadyTasks(ctx context.Context) ([]*Task, error) {
	pending, err := s.repo.List(ctx, ListFilter{Status: StatusPending})
	if err != nil {
		return nil, err
	}

	ready := make([]*Task, 0, len(pending))
	for _, t := range pending {
		ok, err := s.dependenciesCompleted(ctx, t)
		if err != nil {
			slog.WarnContext(ctx, "excluding task from ready set, dependency lookup failed",
				"task_id", t.ID, "error", err)
			continue
		}
		if ok {
			ready = append(ready, t)
		}
	}
	return ready, nil
}

func (s *Service) dependenciesCompleted(ctx context.Context, t *Task) (bool, error) {
	for _, dep := range t.Dependencies {
		d, err := s.repo.Get(ctx, dep)
		if err != nil {
			return false, err
		}
		if d.Status != StatusCompleted {
			return false, nil
		}
	}
	return true, nil
}
