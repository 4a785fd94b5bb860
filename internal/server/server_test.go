package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewd/internal/agent"
	agentrepo "github.com/crewkit/crewd/internal/agent/repositoryimpl"
	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/task"
	taskrepo "github.com/crewkit/crewd/internal/task/repositoryimpl"
	"github.com/crewkit/crewd/internal/workflow"
	workflowrepo "github.com/crewkit/crewd/internal/workflow/repositoryimpl"
	"github.com/crewkit/crewd/pkg/cerr"
	"github.com/crewkit/crewd/pkg/storage"
)

type okExecutor struct{}

func (okExecutor) Execute(_ context.Context, _ *task.Task) (map[string]any, error) {
	return map[string]any{"result": "ok"}, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Provision(context.Background()))

	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(store)
	workflows := workflow.NewService(workflowrepo.NewYAMLRepository(store), taskRepo, bus)
	tasks := task.NewService(taskRepo, workflows, bus, okExecutor{}, nil)
	agents := agent.NewService(agentrepo.NewYAMLRepository(store))

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	NewTaskHandler(tasks).Routes(r)
	NewWorkflowHandler(workflows, tasks).Routes(r)
	NewAgentHandler(agents).Routes(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	} else {
		buf.WriteString("{}")
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestTaskRoutes_CreateGetDelete(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/tasks", map[string]any{"title": "scrape docs"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "scrape docs", created.Title)
	assert.Equal(t, task.StatusPending, created.Status)

	rec = doJSON(t, r, http.MethodGet, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskRoutes_ValidationError(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/tasks", map[string]any{"title": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid_argument", body.Code)
}

func TestWorkflowRoutes_BatchCreateWithDependencies(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/workflows", map[string]any{
		"name": "pipeline",
		"tasks": []map[string]any{
			{"title": "fetch"},
			{"title": "summarize", "depends_on": []int{0}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		workflow.Workflow
		Tasks []*task.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created.Tasks, 2)
	assert.Equal(t, []string{created.Tasks[0].ID}, created.Tasks[1].Dependencies)

	// Ready listing honors the dependency chain.
	rec = doJSON(t, r, http.MethodGet, "/tasks/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ready struct {
		Tasks []*task.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	require.Len(t, ready.Tasks, 1)
	assert.Equal(t, "fetch", ready.Tasks[0].Title)

	// Forward references in the batch are rejected.
	rec = doJSON(t, r, http.MethodPost, "/workflows", map[string]any{
		"name": "bad",
		"tasks": []map[string]any{
			{"title": "first", "depends_on": []int{1}},
			{"title": "second"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentRoutes_Match(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/agents", map[string]any{
		"name": "Forge", "skills": []string{"code_generation", "deployment"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/agents/match", map[string]any{
		"skills_required": []string{"deployment"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var match struct {
		Agent *agent.Agent `json:"agent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &match))
	require.NotNil(t, match.Agent)
	assert.Equal(t, "Forge", match.Agent.Name)

	rec = doJSON(t, r, http.MethodPost, "/agents/match", map[string]any{"skills_required": []string{}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &match))
	assert.Nil(t, match.Agent)
}
