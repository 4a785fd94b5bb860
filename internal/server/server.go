// Package server exposes the orchestration core as a JSON API over chi.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/crewkit/crewd/internal/agent"
	"github.com/crewkit/crewd/internal/config"
	"github.com/crewkit/crewd/internal/subscription"
	"github.com/crewkit/crewd/internal/task"
	"github.com/crewkit/crewd/internal/workflow"
	"github.com/crewkit/crewd/pkg/cerr"
	"github.com/crewkit/crewd/pkg/clog"
)

type Server struct {
	server              *http.Server
	env                 *config.Env
	taskHandler         *TaskHandler
	workflowHandler     *WorkflowHandler
	agentHandler        *AgentHandler
	subscriptionHandler *SubscriptionHandler
}

func NewServer(
	env *config.Env,
	tasks *task.Service,
	workflows *workflow.Service,
	agents *agent.Service,
	subscriptions subscription.Repository,
) *Server {
	return &Server{
		env:                 env,
		taskHandler:         NewTaskHandler(tasks),
		workflowHandler:     NewWorkflowHandler(workflows, tasks),
		agentHandler:        NewAgentHandler(agents),
		subscriptionHandler: NewSubscriptionHandler(subscriptions),
	}
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it on a shutdown signal
// also cancels in-flight handlers.
func (s *Server) ListenAndServe(ctx context.Context) error {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})

		s.taskHandler.Routes(r)
		s.workflowHandler.Routes(r)
		s.agentHandler.Routes(r)
		s.subscriptionHandler.Routes(r)
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker()))

	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip API key check for health endpoints.
		if r.URL.Path == "/health" || r.URL.Path == "/grpc.health.v1.Health/Check" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
