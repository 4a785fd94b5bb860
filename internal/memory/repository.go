package memory

import "context"

type Repository interface {
	Create(ctx context.Context, n *Note) error
	ListByAgent(ctx context.Context, agentID string) ([]*Note, error)
}
