package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewkit/crewd/internal/config"
	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/workflow"
	"github.com/crewkit/crewd/internal/workflow/repositoryimpl"
	"github.com/crewkit/crewd/pkg/storage"
)

func TestDispatcher_ForwardsWorkflowEventsToWebhook(t *testing.T) {
	ctx := context.Background()

	received := make(chan webhookBody, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body webhookBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Provision(ctx))
	repo := repositoryimpl.NewYAMLRepository(store)
	require.NoError(t, repo.Create(ctx, &workflow.Workflow{
		ID:     "wf-1",
		Name:   "release",
		Status: workflow.StatusCompleted,
	}))

	bus := eventbus.New()
	webhook := NewWebhookSender(&config.WebhookEnv{URLs: srv.URL, Timeout: 5 * time.Second})
	d := NewDispatcher(bus, repo, webhook, nil)

	dispatchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.Start(dispatchCtx)
	time.Sleep(50 * time.Millisecond)

	bus.PublishNew(eventbus.EventWorkflowCompleted, "wf-1", map[string]string{"workflow_id": "wf-1"})

	select {
	case body := <-received:
		require.Equal(t, string(eventbus.EventWorkflowCompleted), body.Event)
		require.Equal(t, "wf-1", body.Payload["workflow_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}

	// Non-workflow events must not reach the webhook.
	bus.PublishNew(eventbus.EventTaskCreated, "task-1", nil)
	select {
	case body := <-received:
		t.Fatalf("unexpected webhook for event %s", body.Event)
	case <-time.After(200 * time.Millisecond):
	}
}
