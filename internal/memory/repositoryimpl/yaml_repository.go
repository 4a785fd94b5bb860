package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/crewkit/crewd/internal/memory"
	"github.com/crewkit/crewd/pkg/cerr"
	"github.com/crewkit/crewd/pkg/storage"
)

const notesPrefix = "notes"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", notesPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, n *memory.Note) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal note: %w", err))
	}
	if err := r.storage.Write(ctx, path(n.ID), data); err != nil {
		return cerr.WrapStorageWriteError("note", err)
	}
	return nil
}

func (r *YAMLRepository) ListByAgent(ctx context.Context, agentID string) ([]*memory.Note, error) {
	paths, err := r.storage.List(ctx, notesPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("notes", err)
	}

	sort.Strings(paths)

	var all []*memory.Note
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var n memory.Note
		if err := yaml.Unmarshal(data, &n); err != nil {
			continue
		}
		if agentID != "" && n.AgentID != agentID {
			continue
		}
		all = append(all, &n)
	}
	return all, nil
}
