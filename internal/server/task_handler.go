package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewkit/crewd/internal/task"
	"github.com/crewkit/crewd/pkg/cerr"
)

type TaskHandler struct {
	tasks *task.Service
}

func NewTaskHandler(tasks *task.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) Routes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/ready", h.ready)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Post("/{id}/status", h.updateStatus)
		r.Post("/{id}/handoff", h.handoff)
		r.Post("/{id}/execute", h.execute)
	})
}

type createTaskRequest struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Type           task.Type      `json:"type"`
	WorkflowID     string         `json:"workflow_id"`
	AssigneeID     string         `json:"assignee_id"`
	CreatorID      string         `json:"creator_id"`
	Dependencies   []string       `json:"dependencies"`
	InputData      map[string]any `json:"input_data"`
	Priority       task.Priority  `json:"priority"`
	DueDate        *time.Time     `json:"due_date"`
	SkillsRequired []string       `json:"skills_required"`
	Tags           []string       `json:"tags"`
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTaskRequest
	if !decodeJSON(r, &req) {
		return
	}
	t, err := h.tasks.CreateTask(ctx, &task.CreateTaskRequest{
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		WorkflowID:     req.WorkflowID,
		AssigneeID:     req.AssigneeID,
		CreatorID:      req.CreatorID,
		Dependencies:   req.Dependencies,
		InputData:      req.InputData,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		SkillsRequired: req.SkillsRequired,
		Tags:           req.Tags,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	filter := task.ListFilter{
		WorkflowID: q.Get("workflow_id"),
		AssigneeID: q.Get("assignee_id"),
		Status:     task.Status(q.Get("status")),
	}
	tasks, err := h.tasks.ListTasks(ctx, filter)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (h *TaskHandler) ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tasks, err := h.tasks.ReadyTasks(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"tasks": tasks})
}

func (h *TaskHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	t, err := h.tasks.GetTask(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type updateTaskRequest struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	Priority       *task.Priority `json:"priority"`
	DueDate        *time.Time     `json:"due_date"`
	SkillsRequired []string       `json:"skills_required"`
	Tags           []string       `json:"tags"`
	InputData      map[string]any `json:"input_data"`
}

func (h *TaskHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateTaskRequest
	if !decodeJSON(r, &req) {
		return
	}
	t, err := h.tasks.UpdateTask(ctx, chi.URLParam(r, "id"), &task.TaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		DueDate:        req.DueDate,
		SkillsRequired: req.SkillsRequired,
		Tags:           req.Tags,
		InputData:      req.InputData,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if t == nil {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (h *TaskHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deleted, err := h.tasks.DeleteTask(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !deleted {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}

type updateStatusRequest struct {
	Status     task.Status    `json:"status"`
	OutputData map[string]any `json:"output_data"`
}

func (h *TaskHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateStatusRequest
	if !decodeJSON(r, &req) {
		return
	}
	t, err := h.tasks.UpdateTaskStatus(ctx, chi.URLParam(r, "id"), req.Status, req.OutputData)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type handoffRequest struct {
	FromAgentID string `json:"from_agent_id"`
	ToAgentID   string `json:"to_agent_id"`
	Reason      string `json:"reason"`
}

func (h *TaskHandler) handoff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req handoffRequest
	if !decodeJSON(r, &req) {
		return
	}
	t, err := h.tasks.Handoff(ctx, chi.URLParam(r, "id"), req.FromAgentID, req.ToAgentID, req.Reason)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type executeRequest struct {
	AgentID string `json:"agent_id"`
}

func (h *TaskHandler) execute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req executeRequest
	if !decodeJSON(r, &req) {
		return
	}
	res, err := h.tasks.Execute(ctx, chi.URLParam(r, "id"), req.AgentID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}
