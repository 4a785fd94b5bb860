package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewkit/crewd/internal/agent"
	"github.com/crewkit/crewd/pkg/cerr"
)

type AgentHandler struct {
	agents *agent.Service
}

func NewAgentHandler(agents *agent.Service) *AgentHandler {
	return &AgentHandler{agents: agents}
}

func (h *AgentHandler) Routes(r chi.Router) {
	r.Route("/agents", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/match", h.match)
		r.Get("/{id}", h.get)
	})
}

type createAgentRequest struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Specialty   string   `json:"specialty"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	Avatar      string   `json:"avatar"`
}

func (h *AgentHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createAgentRequest
	if !decodeJSON(r, &req) {
		return
	}
	a, err := h.agents.Create(ctx, &agent.CreateAgentRequest{
		Name:        req.Name,
		Role:        req.Role,
		Specialty:   req.Specialty,
		Description: req.Description,
		Skills:      req.Skills,
		Avatar:      req.Avatar,
	})
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, a)
}

func (h *AgentHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agents, err := h.agents.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"agents": agents})
}

func (h *AgentHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := h.agents.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, a)
}

type matchRequest struct {
	SkillsRequired []string `json:"skills_required"`
}

func (h *AgentHandler) match(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req matchRequest
	if !decodeJSON(r, &req) {
		return
	}
	best, err := h.agents.Match(ctx, req.SkillsRequired)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	// A nil match is a valid answer, not an error.
	cerr.SetJSONResponse(ctx, map[string]any{"agent": best})
}
