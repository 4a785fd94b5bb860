package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/internal/workflow"
	"github.com/crewkit/crewd/pkg/cerr"
)

// Executor performs the actual work of a task, dispatched by task type.
// A nil output with a non-nil error is a business failure, not a transport
// one: the task transitions to failed and the error message becomes the
// execution result.
type Executor interface {
	Execute(ctx context.Context, t *Task) (map[string]any, error)
}

// CompletionRecorder appends a completion note to the assignee's long-term
// memory. Calls are best-effort: failures never roll back a status change.
type CompletionRecorder interface {
	RecordTaskCompletion(ctx context.Context, t *Task) error
}

type Service struct {
	repo      Repository
	workflows *workflow.Service
	bus       *eventbus.Bus
	executor  Executor
	recorder  CompletionRecorder
}

func NewService(repo Repository, workflows *workflow.Service, bus *eventbus.Bus, executor Executor, recorder CompletionRecorder) *Service {
	return &Service{
		repo:      repo,
		workflows: workflows,
		bus:       bus,
		executor:  executor,
		recorder:  recorder,
	}
}

type CreateTaskRequest struct {
	Title          string
	Description    string
	Type           Type
	WorkflowID     string
	AssigneeID     string
	CreatorID      string
	Dependencies   []string
	InputData      map[string]any
	Priority       Priority
	DueDate        *time.Time
	SkillsRequired []string
	Tags           []string
}

func (s *Service) CreateTask(ctx context.Context, req *CreateTaskRequest) (*Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task title cannot be empty", nil)
	}
	if req.WorkflowID != "" {
		if _, err := s.workflows.Get(ctx, req.WorkflowID); err != nil {
			return nil, err
		}
	}
	for _, dep := range req.Dependencies {
		if _, err := s.repo.Get(ctx, dep); err != nil {
			if cerr.IsCode(err, cerr.NotFound) {
				return nil, cerr.NewError(cerr.InvalidArgument,
					fmt.Sprintf("dependency %s does not exist", dep), nil)
			}
			return nil, err
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	status := StatusPending
	if req.AssigneeID != "" {
		status = StatusAssigned
	}

	now := time.Now()
	t := &Task{
		ID:             ulid.Make().String(),
		WorkflowID:     req.WorkflowID,
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		Status:         status,
		AssigneeID:     req.AssigneeID,
		CreatorID:      req.CreatorID,
		Dependencies:   req.Dependencies,
		InputData:      req.InputData,
		Priority:       priority,
		DueDate:        req.DueDate,
		SkillsRequired: req.SkillsRequired,
		Tags:           req.Tags,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.publish(eventbus.EventTaskCreated, t, nil)
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, filter ListFilter) ([]*Task, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) GetTasksByAgent(ctx context.Context, agentID string) ([]*Task, error) {
	return s.repo.List(ctx, ListFilter{AssigneeID: agentID})
}

// TaskUpdate carries the non-status fields an explicit update call may set.
// Status changes go through UpdateTaskStatus, Handoff or Execute only.
type TaskUpdate struct {
	Title          *string
	Description    *string
	Priority       *Priority
	DueDate        *time.Time
	SkillsRequired []string
	Tags           []string
	InputData      map[string]any
}

// UpdateTask applies a partial update. A missing task yields (nil, nil), not
// an error, so callers can distinguish not-found from transport failure.
func (s *Service) UpdateTask(ctx context.Context, id string, upd *TaskUpdate) (*Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return nil, nil
		}
		return nil, err
	}

	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		t.DueDate = upd.DueDate
	}
	if upd.SkillsRequired != nil {
		t.SkillsRequired = upd.SkillsRequired
	}
	if upd.Tags != nil {
		t.Tags = upd.Tags
	}
	if upd.InputData != nil {
		t.InputData = upd.InputData
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask removes a task. Returns false without error when the id does
// not resolve.
func (s *Service) DeleteTask(ctx context.Context, id string) (bool, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Handoff reassigns a task to another agent mid-lifecycle. Identity fields
// (id, dependencies, input data, workflow) stay untouched.
func (s *Service) Handoff(ctx context.Context, taskID, fromAgentID, toAgentID, reason string) (*Task, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("cannot hand off a %s task", t.Status), nil)
	}

	t.AssigneeID = toAgentID
	t.Status = StatusHandoff
	t.HandoffTo = toAgentID
	t.HandoffReason = reason
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.publish(eventbus.EventTaskHandoff, t, map[string]string{
		"from_agent_id": fromAgentID,
		"to_agent_id":   toAgentID,
		"reason":        reason,
	})
	return t, nil
}

// ExecutionResult is what Execute hands back to the caller. Business
// failures land here with Success=false; only transport and storage
// problems surface as errors.
type ExecutionResult struct {
	Success bool `json:"success"`
	Result  any  `json:"result"`
}

// Execute runs the task through the executor registered for its type. The
// task moves to in_progress for the duration, then to completed with the
// executor's output or to failed with the error message.
func (s *Service) Execute(ctx context.Context, taskID, agentID string) (*ExecutionResult, error) {
	t, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status.Terminal() {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("cannot execute a %s task", t.Status), nil)
	}
	if s.executor == nil {
		return nil, cerr.NewError(cerr.FailedPrecondition, "no executor configured", nil)
	}

	if agentID != "" {
		t.AssigneeID = agentID
	}
	t.Status = StatusInProgress
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publish(eventbus.EventTaskStatusChanged, t, nil)

	output, execErr := s.executor.Execute(ctx, t)
	if execErr != nil {
		if _, err := s.UpdateTaskStatus(ctx, taskID, StatusFailed, nil); err != nil {
			return nil, err
		}
		return &ExecutionResult{Success: false, Result: execErr.Error()}, nil
	}

	if _, err := s.UpdateTaskStatus(ctx, taskID, StatusCompleted, output); err != nil {
		return nil, err
	}
	return &ExecutionResult{Success: true, Result: output}, nil
}

// UpdateTaskStatus transitions a task and runs the completion side effects:
// the owning workflow is re-checked for auto-completion and a memory note is
// recorded for the assignee. Side-effect failures are logged, never
// propagated: the status change has already committed.
func (s *Service) UpdateTaskStatus(ctx context.Context, id string, status Status, outputData map[string]any) (*Task, error) {
	if !status.Valid() {
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("unknown task status %q", status), nil)
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Terminal states only permit an idempotent re-touch of the same status.
	if t.Status.Terminal() && status != t.Status {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("cannot move a %s task to %s", t.Status, status), nil)
	}

	t.Status = status
	if outputData != nil {
		t.OutputData = outputData
	}
	t.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.publish(eventbus.EventTaskStatusChanged, t, nil)

	if status == StatusCompleted {
		if s.recorder != nil {
			if err := s.recorder.RecordTaskCompletion(ctx, t); err != nil {
				slog.WarnContext(ctx, "failed to record completion note", "task_id", t.ID, "error", err)
			}
		}
		if t.WorkflowID != "" && s.workflows != nil {
			if _, err := s.workflows.CompleteIfFinished(ctx, t.WorkflowID); err != nil {
				slog.ErrorContext(ctx, "failed to check workflow completion", "workflow_id", t.WorkflowID, "error", err)
			}
		}
	}
	return t, nil
}

func (s *Service) publish(eventType eventbus.EventType, t *Task, extra map[string]string) {
	if s.bus == nil {
		return
	}
	payload := map[string]string{
		"task_id":     t.ID,
		"workflow_id": t.WorkflowID,
		"status":      string(t.Status),
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.bus.PublishNew(eventType, t.ID, payload)
}
