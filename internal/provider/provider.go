// Package provider is the stateful façade consumed by UI-facing surfaces.
// It holds the last-fetched agent and task collections plus the selection
// and failure flags, and classifies every failure into one of three buckets:
// network (retryable), storage not provisioned (setup required), or generic.
// A Provider is an explicit state container: construct as many independent
// instances as there are sessions.
package provider

import (
	"context"
	"errors"
	"net"
	"net/url"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/crewkit/crewd/internal/agent"
	"github.com/crewkit/crewd/internal/task"
	"github.com/crewkit/crewd/pkg/storage"
)

const setupRequiredMsg = "storage is not provisioned, run setup to continue"

// State is a point-in-time snapshot of the provider. Slices are shared with
// the provider's cache and must be treated as read-only.
type State struct {
	Agents        []*agent.Agent
	Tasks         []*task.Task
	SelectedAgent *agent.Agent
	SelectedTask  *task.Task
	Loading       bool
	Err           string
	NetworkError  bool
	TablesExist   bool
}

type Provider struct {
	mu    sync.Mutex
	state State

	agents *agent.Service
	tasks  *task.Service
	store  storage.Storage
}

func New(agents *agent.Service, tasks *task.Service, store storage.Storage) *Provider {
	return &Provider{
		state:  State{TablesExist: true},
		agents: agents,
		tasks:  tasks,
		store:  store,
	}
}

// State returns the current snapshot.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CheckTablesExist probes the storage provisioning marker and records the
// answer. The probe itself failing counts as not provisioned.
func (p *Provider) CheckTablesExist(ctx context.Context) bool {
	ok, err := p.store.Provisioned(ctx)
	exists := err == nil && ok

	p.mu.Lock()
	p.state.TablesExist = exists
	p.mu.Unlock()
	return exists
}

func (p *Provider) FetchAgents(ctx context.Context) []*agent.Agent {
	p.begin()
	agents, err := p.agents.List(ctx)
	if err != nil {
		p.fail(err)
		return nil
	}
	p.mu.Lock()
	p.state.Agents = agents
	p.mu.Unlock()
	p.finish()
	return agents
}

// SelectAgent sets the selection from the cached roster. Unknown ids clear
// the selection.
func (p *Provider) SelectAgent(id string) *agent.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SelectedAgent = nil
	for _, a := range p.state.Agents {
		if a.ID == id {
			p.state.SelectedAgent = a
			break
		}
	}
	return p.state.SelectedAgent
}

// SelectTask sets the selection from the cached task list. Unknown ids clear
// the selection.
func (p *Provider) SelectTask(id string) *task.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.SelectedTask = nil
	for _, t := range p.state.Tasks {
		if t.ID == id {
			p.state.SelectedTask = t
			break
		}
	}
	return p.state.SelectedTask
}

func (p *Provider) FetchTasks(ctx context.Context) []*task.Task {
	p.begin()
	tasks, err := p.tasks.ListTasks(ctx, task.ListFilter{})
	if err != nil {
		p.fail(err)
		return nil
	}
	p.mu.Lock()
	p.state.Tasks = tasks
	p.mu.Unlock()
	p.finish()
	return tasks
}

// FetchTasksByAgent reads through to storage without replacing the cached
// task list, so a per-agent view does not clobber the global one.
func (p *Provider) FetchTasksByAgent(ctx context.Context, agentID string) []*task.Task {
	p.begin()
	tasks, err := p.tasks.GetTasksByAgent(ctx, agentID)
	if err != nil {
		p.fail(err)
		return nil
	}
	p.finish()
	return tasks
}

// CreateNewTask creates a task after the provisioning gate. On success the
// new task is prepended to the cached list so the cache stays consistent
// without a refetch.
func (p *Provider) CreateNewTask(ctx context.Context, req *task.CreateTaskRequest) *task.Task {
	if !p.gate(ctx) {
		return nil
	}
	p.begin()
	t, err := p.tasks.CreateTask(ctx, req)
	if err != nil {
		p.fail(err)
		return nil
	}
	p.mu.Lock()
	p.state.Tasks = append([]*task.Task{t}, p.state.Tasks...)
	p.mu.Unlock()
	p.finish()
	return t
}

func (p *Provider) UpdateExistingTask(ctx context.Context, id string, upd *task.TaskUpdate) *task.Task {
	if !p.gate(ctx) {
		return nil
	}
	p.begin()
	t, err := p.tasks.UpdateTask(ctx, id, upd)
	if err != nil {
		p.fail(err)
		return nil
	}
	if t != nil {
		p.patch(t)
	}
	p.finish()
	return t
}

func (p *Provider) RemoveTask(ctx context.Context, id string) bool {
	if !p.gate(ctx) {
		return false
	}
	p.begin()
	deleted, err := p.tasks.DeleteTask(ctx, id)
	if err != nil {
		p.fail(err)
		return false
	}
	if deleted {
		p.mu.Lock()
		kept := p.state.Tasks[:0:0]
		for _, t := range p.state.Tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		p.state.Tasks = kept
		if p.state.SelectedTask != nil && p.state.SelectedTask.ID == id {
			p.state.SelectedTask = nil
		}
		p.mu.Unlock()
	}
	p.finish()
	return deleted
}

// FindBestAgent matches the required skills against the cached roster.
func (p *Provider) FindBestAgent(required []string) *agent.Agent {
	p.mu.Lock()
	roster := p.state.Agents
	p.mu.Unlock()
	return agent.FindBestAgent(roster, required)
}

func (p *Provider) HandoffTaskToAgent(ctx context.Context, taskID, fromAgentID, toAgentID, reason string) *task.Task {
	if !p.gate(ctx) {
		return nil
	}
	p.begin()
	t, err := p.tasks.Handoff(ctx, taskID, fromAgentID, toAgentID, reason)
	if err != nil {
		p.fail(err)
		return nil
	}
	p.patch(t)
	p.finish()
	return t
}

func (p *Provider) ExecuteTaskWithAgent(ctx context.Context, taskID, agentID string) *task.ExecutionResult {
	if !p.gate(ctx) {
		return nil
	}
	p.begin()
	res, err := p.tasks.Execute(ctx, taskID, agentID)
	if err != nil {
		p.fail(err)
		return nil
	}
	if t, err := p.tasks.GetTask(ctx, taskID); err == nil {
		p.patch(t)
	}
	p.finish()
	return res
}

// RetryFetch clears the failure flags and refreshes agents and tasks in
// parallel. Either refresh failing re-raises the classified flags.
func (p *Provider) RetryFetch(ctx context.Context) {
	p.mu.Lock()
	p.state.NetworkError = false
	p.state.Err = ""
	p.mu.Unlock()

	var wg conc.WaitGroup
	wg.Go(func() { p.FetchAgents(ctx) })
	wg.Go(func() { p.FetchTasks(ctx) })
	wg.Wait()
}

// AutoRefresh re-fetches on every storage change signal until ctx is done.
// Pair with a storage.Watcher over a local store. onRefresh, when non-nil,
// receives the state snapshot after each refresh.
func (p *Provider) AutoRefresh(ctx context.Context, signal <-chan struct{}, onRefresh func(State)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signal:
			if !ok {
				return
			}
			p.RetryFetch(ctx)
			if onRefresh != nil {
				onRefresh(p.State())
			}
		}
	}
}

// gate short-circuits mutating calls while storage is not provisioned,
// surfacing a setup call to action instead of an opaque write failure.
func (p *Provider) gate(ctx context.Context) bool {
	if p.CheckTablesExist(ctx) {
		return true
	}
	p.mu.Lock()
	p.state.Err = setupRequiredMsg
	p.mu.Unlock()
	return false
}

func (p *Provider) begin() {
	p.mu.Lock()
	p.state.Loading = true
	p.mu.Unlock()
}

func (p *Provider) finish() {
	p.mu.Lock()
	p.state.Loading = false
	p.state.Err = ""
	p.state.NetworkError = false
	p.mu.Unlock()
}

// fail classifies err and raises the matching flag. Classification is
// structural: sentinel and interface matches, never message text.
func (p *Provider) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Loading = false
	p.state.Err = err.Error()

	if errors.Is(err, storage.ErrNotProvisioned) {
		p.state.TablesExist = false
		p.state.Err = setupRequiredMsg
		return
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		p.state.NetworkError = true
		return
	}
}

// patch replaces the cached copy of t, keeping the selection in sync.
func (p *Provider) patch(t *task.Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, cached := range p.state.Tasks {
		if cached.ID == t.ID {
			p.state.Tasks[i] = t
			break
		}
	}
	if p.state.SelectedTask != nil && p.state.SelectedTask.ID == t.ID {
		p.state.SelectedTask = t
	}
}
