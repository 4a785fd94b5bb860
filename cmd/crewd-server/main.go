package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewkit/crewd/internal/agent"
	agentrepo "github.com/crewkit/crewd/internal/agent/repositoryimpl"
	"github.com/crewkit/crewd/internal/config"
	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/executor"
	"github.com/crewkit/crewd/internal/memory"
	memoryrepo "github.com/crewkit/crewd/internal/memory/repositoryimpl"
	"github.com/crewkit/crewd/internal/notification"
	"github.com/crewkit/crewd/internal/server"
	subscriptionrepo "github.com/crewkit/crewd/internal/subscription/repositoryimpl"
	"github.com/crewkit/crewd/internal/task"
	taskrepo "github.com/crewkit/crewd/internal/task/repositoryimpl"
	"github.com/crewkit/crewd/internal/workflow"
	workflowrepo "github.com/crewkit/crewd/internal/workflow/repositoryimpl"
	"github.com/crewkit/crewd/pkg/clog"
	"github.com/crewkit/crewd/pkg/panicerr"
	"github.com/crewkit/crewd/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus
	bus := eventbus.New()

	// Setup repositories
	workflowRepo := workflowrepo.NewYAMLRepository(store)
	taskRepo := taskrepo.NewYAMLRepository(store)
	agentRepo := agentrepo.NewYAMLRepository(store)
	memoryRepo := memoryrepo.NewYAMLRepository(store)
	subscriptionRepo := subscriptionrepo.NewYAMLRepository(store)

	// Setup executors
	registry := executor.NewRegistry(executor.NewEchoExecutor())
	registry.Register(task.TypeValidation, executor.NewValidationExecutor())
	scripts := executor.NewScriptExecutor(config.ExecutorEnvFromEnv(env))
	for _, t := range []task.Type{
		task.TypeWebScraping,
		task.TypeContentCreation,
		task.TypeImageGeneration,
		task.TypeCodeGeneration,
		task.TypeDataAnalysis,
		task.TypeResearch,
		task.TypeDeployment,
	} {
		if scripts.HasScript(t) {
			registry.Register(t, scripts)
		}
	}

	// Setup services
	workflowService := workflow.NewService(workflowRepo, taskRepo, bus)
	recorder := memory.NewRecorder(memoryRepo)
	taskService := task.NewService(taskRepo, workflowService, bus, registry, recorder)
	agentService := agent.NewService(agentRepo)

	// Setup notification fan-out
	webhookSender := notification.NewWebhookSender(config.WebhookEnvFromEnv(env))
	pushSender := notification.NewPushSender(config.VAPIDEnvFromEnv(env), subscriptionRepo)
	dispatcher := notification.NewDispatcher(bus, workflowRepo, webhookSender, pushSender)

	srv := server.NewServer(env, taskService, workflowService, agentService, subscriptionRepo)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		run := panicerr.SafeContext(func(ctx context.Context) error {
			dispatcher.Start(ctx)
			return nil
		})
		if err := run(ctx); err != nil {
			slog.Error("notification dispatcher crashed", "error", err)
		}
	}()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
