package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewkit/crewd/internal/task"
	"github.com/crewkit/crewd/internal/workflow"
	"github.com/crewkit/crewd/pkg/cerr"
)

type WorkflowHandler struct {
	workflows *workflow.Service
	tasks     *task.Service
}

func NewWorkflowHandler(workflows *workflow.Service, tasks *task.Service) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, tasks: tasks}
}

func (h *WorkflowHandler) Routes(r chi.Router) {
	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/submit", h.submit)
		r.Post("/{id}/review", h.review)
		r.Post("/{id}/start", h.start)
		r.Post("/{id}/pause", h.pause)
		r.Post("/{id}/resume", h.resume)
	})
}

type createWorkflowRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	CreatorID        string `json:"creator_id"`
	RequiresApproval bool   `json:"requires_approval"`
	// Tasks are created together with the workflow, in order, so
	// dependency chains inside the batch can reference earlier indices.
	Tasks []createWorkflowTask `json:"tasks"`
}

type createWorkflowTask struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Type           task.Type      `json:"type"`
	AssigneeID     string         `json:"assignee_id"`
	DependsOn      []int          `json:"depends_on"`
	InputData      map[string]any `json:"input_data"`
	Priority       task.Priority  `json:"priority"`
	SkillsRequired []string       `json:"skills_required"`
}

type workflowResponse struct {
	*workflow.Workflow
	Progress int          `json:"progress"`
	Tasks    []*task.Task `json:"tasks,omitempty"`
}

func (h *WorkflowHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createWorkflowRequest
	if !decodeJSON(r, &req) {
		return
	}

	wf, err := h.workflows.Create(ctx, &workflow.CreateWorkflowRequest{
		Name:             req.Name,
		Description:      req.Description,
		CreatorID:        req.CreatorID,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	created := make([]*task.Task, 0, len(req.Tasks))
	for i, tr := range req.Tasks {
		deps := make([]string, 0, len(tr.DependsOn))
		for _, idx := range tr.DependsOn {
			if idx < 0 || idx >= i {
				cerr.SetNewJSONError(ctx, cerr.InvalidArgument,
					"depends_on may only reference earlier tasks in the batch", nil)
				return
			}
			deps = append(deps, created[idx].ID)
		}
		t, err := h.tasks.CreateTask(ctx, &task.CreateTaskRequest{
			Title:          tr.Title,
			Description:    tr.Description,
			Type:           tr.Type,
			WorkflowID:     wf.ID,
			AssigneeID:     tr.AssigneeID,
			CreatorID:      req.CreatorID,
			Dependencies:   deps,
			InputData:      tr.InputData,
			Priority:       tr.Priority,
			SkillsRequired: tr.SkillsRequired,
		})
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		created = append(created, t)
	}

	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, &workflowResponse{
		Workflow: wf,
		Tasks:    created,
	})
}

func (h *WorkflowHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	wfs, err := h.workflows.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"workflows": wfs})
}

func (h *WorkflowHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	wf, err := h.workflows.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	progress, err := h.workflows.Progress(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	tasks, err := h.tasks.ListTasks(ctx, task.ListFilter{WorkflowID: id})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, &workflowResponse{
		Workflow: wf,
		Progress: progress,
		Tasks:    tasks,
	})
}

func (h *WorkflowHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.workflows.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}

type submitRequest struct {
	AdminNotes string `json:"admin_notes"`
}

func (h *WorkflowHandler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitRequest
	if !decodeJSON(r, &req) {
		return
	}
	wf, err := h.workflows.SubmitForApproval(ctx, chi.URLParam(r, "id"), req.AdminNotes)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, wf)
}

type reviewRequest struct {
	Approved   bool   `json:"approved"`
	AdminNotes string `json:"admin_notes"`
}

func (h *WorkflowHandler) review(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req reviewRequest
	if !decodeJSON(r, &req) {
		return
	}
	wf, err := h.workflows.Review(ctx, chi.URLParam(r, "id"), req.Approved, req.AdminNotes)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, wf)
}

func (h *WorkflowHandler) start(w http.ResponseWriter, r *http.Request) {
	h.shift(w, r, h.workflows.Start)
}

func (h *WorkflowHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.shift(w, r, h.workflows.Pause)
}

func (h *WorkflowHandler) resume(w http.ResponseWriter, r *http.Request) {
	h.shift(w, r, h.workflows.Resume)
}

func (h *WorkflowHandler) shift(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*workflow.Workflow, error)) {
	ctx := r.Context()
	wf, err := op(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, wf)
}
