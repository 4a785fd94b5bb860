package workflow

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/crewkit/crewd/internal/eventbus"
	"github.com/crewkit/crewd/pkg/cerr"
)

// TaskStore is the slice of the task repository the lifecycle engine needs:
// completion counting for progress/auto-completion, and cascade deletion.
type TaskStore interface {
	CountByWorkflow(ctx context.Context, workflowID string) (total, completed int, err error)
	DeleteByWorkflow(ctx context.Context, workflowID string) error
}

type Service struct {
	repo  Repository
	tasks TaskStore
	bus   *eventbus.Bus
}

func NewService(repo Repository, tasks TaskStore, bus *eventbus.Bus) *Service {
	return &Service{
		repo:  repo,
		tasks: tasks,
		bus:   bus,
	}
}

type CreateWorkflowRequest struct {
	Name             string
	Description      string
	CreatorID        string
	RequiresApproval bool
}

func (s *Service) Create(ctx context.Context, req *CreateWorkflowRequest) (*Workflow, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "workflow name cannot be empty", nil)
	}

	now := time.Now()
	w := &Workflow{
		ID:               ulid.Make().String(),
		Name:             req.Name,
		Description:      req.Description,
		CreatorID:        req.CreatorID,
		Status:           StatusDraft,
		RequiresApproval: req.RequiresApproval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Workflow, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Workflow, error) {
	return s.repo.List(ctx)
}

// Delete removes the workflow and cascades to its owned tasks.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.tasks.DeleteByWorkflow(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SubmitForApproval moves a draft workflow into the approval queue.
func (s *Service) SubmitForApproval(ctx context.Context, id, adminNotes string) (*Workflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusDraft {
		return nil, transitionError(w.Status, StatusWaitingApproval)
	}
	w.Status = StatusWaitingApproval
	if adminNotes != "" {
		w.AdminNotes = adminNotes
	}
	w.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	s.publish(eventbus.EventWorkflowApprovalRequested, w)
	return w, nil
}

// Review resolves a pending approval: approved workflows become active,
// rejected ones reach the terminal rejected state. Admin notes are stored
// either way.
func (s *Service) Review(ctx context.Context, id string, approved bool, adminNotes string) (*Workflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != StatusWaitingApproval {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("workflow is %s, not waiting for approval", w.Status), nil)
	}
	if approved {
		w.Status = StatusActive
	} else {
		w.Status = StatusRejected
	}
	w.AdminNotes = adminNotes
	w.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	if approved {
		s.publish(eventbus.EventWorkflowApproved, w)
	} else {
		s.publish(eventbus.EventWorkflowRejected, w)
	}
	return w, nil
}

// Start activates a workflow without review. Only workflows that do not
// require approval can be started directly.
func (s *Service) Start(ctx context.Context, id string) (*Workflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.RequiresApproval {
		return nil, cerr.NewError(cerr.FailedPrecondition, "workflow requires approval before starting", nil)
	}
	if w.Status != StatusDraft && w.Status != StatusWaitingApproval {
		return nil, transitionError(w.Status, StatusActive)
	}
	w.Status = StatusActive
	w.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Pause suspends an active workflow. No webhook fires: pausing is an
// operator action, not an approval decision.
func (s *Service) Pause(ctx context.Context, id string) (*Workflow, error) {
	return s.shift(ctx, id, StatusActive, StatusPaused)
}

// Resume reactivates a paused workflow.
func (s *Service) Resume(ctx context.Context, id string) (*Workflow, error) {
	return s.shift(ctx, id, StatusPaused, StatusActive)
}

// MarkFailed moves an active workflow to the terminal failed state.
func (s *Service) MarkFailed(ctx context.Context, id, adminNotes string) (*Workflow, error) {
	w, err := s.shift(ctx, id, StatusActive, StatusFailed)
	if err != nil {
		return nil, err
	}
	if adminNotes != "" {
		w.AdminNotes = adminNotes
		w.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func (s *Service) shift(ctx context.Context, id string, from, to Status) (*Workflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != from {
		return nil, transitionError(w.Status, to)
	}
	w.Status = to
	w.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// CompleteIfFinished transitions the workflow to completed when every owned
// task is completed. It is idempotent: a workflow that is already completed
// is left untouched and no second event fires. Returns whether the
// transition happened on this call.
func (s *Service) CompleteIfFinished(ctx context.Context, id string) (bool, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if w.Status == StatusCompleted {
		return false, nil
	}
	total, completed, err := s.tasks.CountByWorkflow(ctx, id)
	if err != nil {
		return false, err
	}
	if total == 0 || completed < total {
		return false, nil
	}
	w.Status = StatusCompleted
	w.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, w); err != nil {
		return false, err
	}
	s.publish(eventbus.EventWorkflowCompleted, w)
	return true, nil
}

// Progress returns the workflow's completion percentage, 0 for a workflow
// without tasks.
func (s *Service) Progress(ctx context.Context, id string) (int, error) {
	total, completed, err := s.tasks.CountByWorkflow(ctx, id)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return int(math.Round(100 * float64(completed) / float64(total))), nil
}

func (s *Service) publish(eventType eventbus.EventType, w *Workflow) {
	if s.bus == nil {
		return
	}
	s.bus.PublishNew(eventType, w.ID, map[string]string{
		"workflow_id": w.ID,
		"name":        w.Name,
		"status":      string(w.Status),
		"creator_id":  w.CreatorID,
	})
}

func transitionError(from, to Status) error {
	return cerr.NewError(cerr.FailedPrecondition,
		fmt.Sprintf("cannot transition workflow from %s to %s", from, to), nil)
}
