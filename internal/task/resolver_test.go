package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewd/internal/task"
	"github.com/crewkit/crewd/internal/workflow"
)

func readyIDs(t *testing.T, f *fixture) []string {
	t.Helper()
	ready, err := f.tasks.ReadyTasks(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(ready))
	for _, r := range ready {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestReadyTasks_DependencyGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "a"})
	require.NoError(t, err)
	b, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "b", Dependencies: []string{a.ID}})
	require.NoError(t, err)

	// Only the dependency-free task is ready.
	assert.Equal(t, []string{a.ID}, readyIDs(t, f))

	_, err = f.tasks.UpdateTaskStatus(ctx, a.ID, task.StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, readyIDs(t, f))
}

func TestReadyTasks_ExcludesNonPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assigned, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "assigned", AssigneeID: "agent-1"})
	require.NoError(t, err)
	pending, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "pending"})
	require.NoError(t, err)

	ids := readyIDs(t, f)
	assert.Contains(t, ids, pending.ID)
	assert.NotContains(t, ids, assigned.ID)

	// A failed dependency keeps the dependent out of the ready set.
	blocked, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "blocked", Dependencies: []string{pending.ID}})
	require.NoError(t, err)
	_, err = f.tasks.UpdateTaskStatus(ctx, pending.ID, task.StatusFailed, nil)
	require.NoError(t, err)
	assert.NotContains(t, readyIDs(t, f), blocked.ID)
}

func TestEndToEnd_TwoTaskWorkflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	w, err := f.workflows.Create(ctx, &workflow.CreateWorkflowRequest{Name: "pipeline"})
	require.NoError(t, err)
	t1, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "fetch", WorkflowID: w.ID})
	require.NoError(t, err)
	t2, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{
		Title:        "summarize",
		WorkflowID:   w.ID,
		Dependencies: []string{t1.ID},
	})
	require.NoError(t, err)

	require.Equal(t, []string{t1.ID}, readyIDs(t, f))

	res, err := f.tasks.Execute(ctx, t1.ID, "agent-1")
	require.NoError(t, err)
	require.True(t, res.Success)

	require.Equal(t, []string{t2.ID}, readyIDs(t, f))

	res, err = f.tasks.Execute(ctx, t2.ID, "agent-2")
	require.NoError(t, err)
	require.True(t, res.Success)

	got, err := f.workflows.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, got.Status)
}
