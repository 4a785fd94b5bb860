package agent

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/crewkit/crewd/pkg/cerr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateAgentRequest struct {
	Name        string
	Role        string
	Specialty   string
	Description string
	Skills      []string
	Avatar      string
}

func (s *Service) Create(ctx context.Context, req *CreateAgentRequest) (*Agent, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "agent name cannot be empty", nil)
	}
	now := time.Now()
	a := &Agent{
		ID:          ulid.Make().String(),
		Name:        req.Name,
		Role:        req.Role,
		Specialty:   req.Specialty,
		Description: req.Description,
		Skills:      req.Skills,
		Avatar:      req.Avatar,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Agent, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Agent, error) {
	return s.repo.List(ctx)
}

// Match returns the best-fit roster entry for the required skills, or nil.
func (s *Service) Match(ctx context.Context, required []string) (*Agent, error) {
	roster, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return FindBestAgent(roster, required), nil
}

// SeedRoster creates the default roster if the repository is empty. Returns
// the number of agents created.
func (s *Service) SeedRoster(ctx context.Context) (int, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for _, req := range defaultRoster {
		if _, err := s.Create(ctx, req); err != nil {
			return 0, err
		}
	}
	return len(defaultRoster), nil
}

var defaultRoster = []*CreateAgentRequest{
	{
		Name:      "Scout",
		Role:      "researcher",
		Specialty: "web research",
		Skills:    []string{"research", "web_scraping", "data_analysis"},
	},
	{
		Name:      "Scribe",
		Role:      "writer",
		Specialty: "long-form content",
		Skills:    []string{"content_creation", "research"},
	},
	{
		Name:      "Forge",
		Role:      "engineer",
		Specialty: "code generation and deployment",
		Skills:    []string{"code_generation", "deployment", "validation"},
	},
	{
		Name:      "Muse",
		Role:      "designer",
		Specialty: "visual assets",
		Skills:    []string{"image_generation", "content_creation"},
	},
}
