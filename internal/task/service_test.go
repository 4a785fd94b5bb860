package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/task"
	taskrepo "github.com/crewkit/crewd/internal/task/repositoryimpl"
	"github.com/crewkit/crewd/internal/workflow"
	workflowrepo "github.com/crewkit/crewd/internal/workflow/repositoryimpl"
	"github.com/crewkit/crewd/pkg/cerr"
	"github.com/crewkit/crewd/pkg/storage"
)

type stubExecutor struct {
	output map[string]any
	err    error
}

func (s *stubExecutor) Execute(_ context.Context, _ *task.Task) (map[string]any, error) {
	return s.output, s.err
}

type stubRecorder struct {
	calls int
	err   error
}

func (s *stubRecorder) RecordTaskCompletion(_ context.Context, _ *task.Task) error {
	s.calls++
	return s.err
}

type fixture struct {
	tasks     *task.Service
	workflows *workflow.Service
	bus       *eventbus.Bus
	executor  *stubExecutor
	recorder  *stubRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Provision(context.Background()))

	bus := eventbus.New()
	repo := taskrepo.NewYAMLRepository(store)
	workflows := workflow.NewService(workflowrepo.NewYAMLRepository(store), repo, bus)
	exec := &stubExecutor{output: map[string]any{"result": "done"}}
	rec := &stubRecorder{}
	return &fixture{
		tasks:     task.NewService(repo, workflows, bus, exec, rec),
		workflows: workflows,
		bus:       bus,
		executor:  exec,
		recorder:  rec,
	}
}

func collectEvents(ch <-chan *eventbus.Event, eventType eventbus.EventType, wait time.Duration) []*eventbus.Event {
	deadline := time.After(wait)
	var got []*eventbus.Event
	for {
		select {
		case e := <-ch:
			if e.Type == eventType {
				got = append(got, e)
			}
		case <-deadline:
			return got
		}
	}
}

func TestCreateTask_Defaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "plain"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, task.PriorityMedium, created.Priority)

	assigned, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "owned", AssigneeID: "agent-1"})
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, assigned.Status)
}

func TestCreateTask_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "  "})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "orphan", WorkflowID: "missing"})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	_, err = f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "broken", Dependencies: []string{"no-such"}})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestUpdateAndDelete_NotFoundContracts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	title := "x"
	updated, err := f.tasks.UpdateTask(ctx, "missing", &task.TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Nil(t, updated)

	deleted, err := f.tasks.DeleteTask(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestHandoff_PreservesIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	w, err := f.workflows.Create(ctx, &workflow.CreateWorkflowRequest{Name: "wf"})
	require.NoError(t, err)
	dep, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "dep"})
	require.NoError(t, err)
	created, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{
		Title:        "work",
		WorkflowID:   w.ID,
		AssigneeID:   "agent-x",
		Dependencies: []string{dep.ID},
		InputData:    map[string]any{"url": "https://example.com"},
	})
	require.NoError(t, err)

	got, err := f.tasks.Handoff(ctx, created.ID, "agent-x", "agent-y", "overloaded")
	require.NoError(t, err)

	assert.Equal(t, "agent-y", got.AssigneeID)
	assert.Equal(t, task.StatusHandoff, got.Status)
	assert.Equal(t, "agent-y", got.HandoffTo)
	assert.Equal(t, "overloaded", got.HandoffReason)
	// Identity fields stay untouched.
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.WorkflowID, got.WorkflowID)
	assert.Equal(t, created.Dependencies, got.Dependencies)
	assert.Equal(t, created.InputData, got.InputData)
}

func TestHandoff_TerminalTaskRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "done"})
	require.NoError(t, err)
	_, err = f.tasks.UpdateTaskStatus(ctx, created.ID, task.StatusCompleted, nil)
	require.NoError(t, err)

	_, err = f.tasks.Handoff(ctx, created.ID, "a", "b", "")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestUpdateTaskStatus_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "flaky"})
	require.NoError(t, err)
	_, err = f.tasks.UpdateTaskStatus(ctx, created.ID, task.StatusFailed, nil)
	require.NoError(t, err)

	// No way back out of a terminal state.
	for _, next := range []task.Status{task.StatusPending, task.StatusInProgress, task.StatusCompleted} {
		_, err = f.tasks.UpdateTaskStatus(ctx, created.ID, next, nil)
		require.Error(t, err)
		assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
	}

	// Re-touching the same terminal status stays legal.
	got, err := f.tasks.UpdateTaskStatus(ctx, created.ID, task.StatusFailed, nil)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)

	got, err = f.tasks.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)
}

func TestUpdateTaskStatus_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "typo"})
	require.NoError(t, err)

	_, err = f.tasks.UpdateTaskStatus(ctx, created.ID, task.Status("banana"), nil)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	got, err := f.tasks.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, got.Status)
}

func TestExecute_SuccessAndBusinessFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ok, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "good"})
	require.NoError(t, err)
	res, err := f.tasks.Execute(ctx, ok.ID, "agent-1")
	require.NoError(t, err)
	assert.True(t, res.Success)

	got, err := f.tasks.GetTask(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, "agent-1", got.AssigneeID)
	assert.Equal(t, map[string]any{"result": "done"}, got.OutputData)

	// Executor failure is a business result, not a transport error.
	f.executor.err = errors.New("boom")
	bad, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "bad"})
	require.NoError(t, err)
	res, err = f.tasks.Execute(ctx, bad.ID, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Result, "boom")

	got, err = f.tasks.GetTask(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)
}

func TestWorkflowCompletion_SingleEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, ch := f.bus.Subscribe(64)

	w, err := f.workflows.Create(ctx, &workflow.CreateWorkflowRequest{Name: "pair"})
	require.NoError(t, err)
	t1, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "t1", WorkflowID: w.ID})
	require.NoError(t, err)
	t2, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "t2", WorkflowID: w.ID})
	require.NoError(t, err)

	_, err = f.tasks.UpdateTaskStatus(ctx, t1.ID, task.StatusCompleted, nil)
	require.NoError(t, err)
	_, err = f.tasks.UpdateTaskStatus(ctx, t2.ID, task.StatusCompleted, nil)
	require.NoError(t, err)

	// Touching an already-completed task must not fire a second event.
	_, err = f.tasks.UpdateTaskStatus(ctx, t1.ID, task.StatusCompleted, nil)
	require.NoError(t, err)

	events := collectEvents(ch, eventbus.EventWorkflowCompleted, 200*time.Millisecond)
	require.Len(t, events, 1)
	assert.Equal(t, w.ID, events[0].ResourceID)
}

func TestCompletionRecorder_BestEffort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.recorder.err = errors.New("memory store down")

	created, err := f.tasks.CreateTask(ctx, &task.CreateTaskRequest{Title: "recorded", AssigneeID: "agent-1"})
	require.NoError(t, err)

	got, err := f.tasks.UpdateTaskStatus(ctx, created.ID, task.StatusCompleted, map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.Equal(t, 1, f.recorder.calls)
}
