package provider

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewd/internal/agent"
	agentrepo "github.com/crewkit/crewd/internal/agent/repositoryimpl"
	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/task"
	taskrepo "github.com/crewkit/crewd/internal/task/repositoryimpl"
	"github.com/crewkit/crewd/internal/workflow"
	workflowrepo "github.com/crewkit/crewd/internal/workflow/repositoryimpl"
	"github.com/crewkit/crewd/pkg/storage"
)

// flakyStorage wraps a real store and fails every call with err when set.
type flakyStorage struct {
	storage.Storage
	err error
}

func (f *flakyStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Storage.Read(ctx, path)
}

func (f *flakyStorage) Write(ctx context.Context, path string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	return f.Storage.Write(ctx, path, data)
}

func (f *flakyStorage) List(ctx context.Context, prefix string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.Storage.List(ctx, prefix)
}

type noopExecutor struct{}

func (noopExecutor) Execute(_ context.Context, t *task.Task) (map[string]any, error) {
	return map[string]any{"result": "ok"}, nil
}

func newTestProvider(t *testing.T, provision bool) (*Provider, *flakyStorage) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	if provision {
		require.NoError(t, local.Provision(context.Background()))
	}
	store := &flakyStorage{Storage: local}

	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(store)
	workflows := workflow.NewService(workflowrepo.NewYAMLRepository(store), taskRepo, bus)
	tasks := task.NewService(taskRepo, workflows, bus, noopExecutor{}, nil)
	agents := agent.NewService(agentrepo.NewYAMLRepository(store))

	return New(agents, tasks, store), store
}

func TestProvider_SchemaGateBlocksWrites(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, false)

	created := p.CreateNewTask(ctx, &task.CreateTaskRequest{Title: "blocked"})
	require.Nil(t, created)

	st := p.State()
	assert.False(t, st.TablesExist)
	assert.False(t, st.NetworkError)
	assert.Contains(t, st.Err, "setup")
}

func TestProvider_ErrorClassification(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t, true)

	// Transport failure raises the network flag.
	store.err = &url.Error{Op: "Get", URL: "http://records", Err: context.DeadlineExceeded}
	p.FetchTasks(ctx)
	st := p.State()
	assert.True(t, st.NetworkError)
	assert.True(t, st.TablesExist)
	assert.NotEmpty(t, st.Err)

	// A provisioning failure flips tablesExist, not networkError.
	store.err = storage.ErrNotProvisioned
	p.FetchTasks(ctx)
	st = p.State()
	assert.False(t, st.TablesExist)
	assert.False(t, st.NetworkError)

	// Recovery clears both flags.
	store.err = nil
	p.RetryFetch(ctx)
	st = p.State()
	assert.False(t, st.NetworkError)
	assert.Empty(t, st.Err)
}

func TestProvider_PatchOnSuccess(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, true)

	created := p.CreateNewTask(ctx, &task.CreateTaskRequest{Title: "first"})
	require.NotNil(t, created)
	require.Len(t, p.State().Tasks, 1)

	title := "renamed"
	updated := p.UpdateExistingTask(ctx, created.ID, &task.TaskUpdate{Title: &title})
	require.NotNil(t, updated)
	assert.Equal(t, "renamed", p.State().Tasks[0].Title)

	p.SelectTask(created.ID)
	require.True(t, p.RemoveTask(ctx, created.ID))
	st := p.State()
	assert.Empty(t, st.Tasks)
	assert.Nil(t, st.SelectedTask)
}

func TestProvider_AutoRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p, _ := newTestProvider(t, true)

	signal := make(chan struct{}, 1)
	refreshed := make(chan State, 4)
	go p.AutoRefresh(ctx, signal, func(st State) { refreshed <- st })

	created := p.CreateNewTask(ctx, &task.CreateTaskRequest{Title: "fresh"})
	require.NotNil(t, created)

	signal <- struct{}{}
	select {
	case st := <-refreshed:
		require.Len(t, st.Tasks, 1)
		assert.Equal(t, created.ID, st.Tasks[0].ID)
		assert.False(t, st.NetworkError)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after change signal")
	}

	// A closed signal channel ends the loop instead of spinning.
	close(signal)
	select {
	case <-refreshed:
		t.Fatal("refresh after signal channel closed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProvider_FindBestAgentUsesCachedRoster(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, true)

	agents := p.agents
	_, err := agents.Create(ctx, &agent.CreateAgentRequest{Name: "a", Skills: []string{"a", "b"}})
	require.NoError(t, err)
	specialist, err := agents.Create(ctx, &agent.CreateAgentRequest{Name: "b", Skills: []string{"a", "c", "d"}})
	require.NoError(t, err)

	require.Nil(t, p.FindBestAgent([]string{"a", "c"})) // roster not fetched yet
	p.FetchAgents(ctx)

	best := p.FindBestAgent([]string{"a", "c"})
	require.NotNil(t, best)
	assert.Equal(t, specialist.ID, best.ID)
	assert.Nil(t, p.FindBestAgent(nil))
}
