package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/crewkit/crewd/internal/subscription"
	"github.com/crewkit/crewd/pkg/cerr"
)

type SubscriptionHandler struct {
	repo subscription.Repository
}

func NewSubscriptionHandler(repo subscription.Repository) *SubscriptionHandler {
	return &SubscriptionHandler{repo: repo}
}

func (h *SubscriptionHandler) Routes(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", h.create)
		r.Delete("/{id}", h.delete)
	})
}

type createSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *SubscriptionHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createSubscriptionRequest
	if !decodeJSON(r, &req) {
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "subscription endpoint cannot be empty", nil)
		return
	}
	sub := &subscription.Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		CreatedAt: time.Now(),
	}
	if err := h.repo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]any{"deleted": true})
}
