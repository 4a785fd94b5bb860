package executor

import (
	"context"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/crewkit/crewd/internal/task"
)

// EchoExecutor is the default fallback: it succeeds immediately and reports
// what was executed. Useful for dry runs and for task types that only exist
// to gate workflow progress.
type EchoExecutor struct{}

func NewEchoExecutor() *EchoExecutor {
	return &EchoExecutor{}
}

func (e *EchoExecutor) Execute(_ context.Context, t *task.Task) (map[string]any, error) {
	return map[string]any{
		"result": fmt.Sprintf("task %q executed by %s", t.Title, t.AssigneeID),
	}, nil
}

// ValidationExecutor compares the "expected" and "actual" strings in the
// task input. A mismatch is a business failure: the task fails and the
// unified diff is the result.
type ValidationExecutor struct{}

func NewValidationExecutor() *ValidationExecutor {
	return &ValidationExecutor{}
}

func (e *ValidationExecutor) Execute(_ context.Context, t *task.Task) (map[string]any, error) {
	expected, _ := t.InputData["expected"].(string)
	actual, _ := t.InputData["actual"].(string)

	if expected == actual {
		return map[string]any{
			"result": "validation passed",
			"match":  true,
		}, nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	return nil, fmt.Errorf("validation failed:\n%s", diff)
}
