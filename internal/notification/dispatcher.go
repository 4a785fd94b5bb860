package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/workflow"
)

// Dispatcher bridges the event bus to the outbound notification channels.
// Workflow lifecycle events fan out to webhooks and web push; everything
// else on the bus is ignored here.
type Dispatcher struct {
	eventBus     *eventbus.Bus
	workflowRepo workflow.Repository
	webhook      *WebhookSender
	push         *PushSender
}

func NewDispatcher(eventBus *eventbus.Bus, workflowRepo workflow.Repository, webhook *WebhookSender, push *PushSender) *Dispatcher {
	return &Dispatcher{
		eventBus:     eventBus,
		workflowRepo: workflowRepo,
		webhook:      webhook,
		push:         push,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.handle(ctx, event)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event *eventbus.Event) {
	switch event.Type {
	case eventbus.EventWorkflowCompleted,
		eventbus.EventWorkflowApprovalRequested,
		eventbus.EventWorkflowApproved,
		eventbus.EventWorkflowRejected:
	default:
		return
	}

	d.webhook.TriggerWebhook(ctx, event.Type, event.Payload)

	if d.push == nil {
		return
	}

	wf, err := d.workflowRepo.Get(ctx, event.ResourceID)
	if err != nil {
		slog.Error("notification dispatcher: failed to get workflow", "id", event.ResourceID, "error", err)
		return
	}

	var title, body string
	switch event.Type {
	case eventbus.EventWorkflowCompleted:
		title = "Workflow Completed"
		body = fmt.Sprintf("All tasks in %q are done", wf.Name)
	case eventbus.EventWorkflowApprovalRequested:
		title = "Approval Requested"
		body = fmt.Sprintf("Workflow %q is waiting for review", wf.Name)
	case eventbus.EventWorkflowApproved:
		title = "Workflow Approved"
		body = fmt.Sprintf("Workflow %q was approved", wf.Name)
	case eventbus.EventWorkflowRejected:
		title = "Workflow Rejected"
		body = fmt.Sprintf("Workflow %q was rejected", wf.Name)
	}

	d.push.SendToAll(ctx, &PushPayload{
		Title: title,
		Body:  body,
		URL:   "/workflows/" + wf.ID,
		Tag:   event.ID,
	})
}
