package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_ProvisionGate(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ok, err := store.Provisioned(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.Write(ctx, "tasks/T1.yaml", []byte("id: T1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotProvisioned))

	_, err = store.List(ctx, "tasks")
	assert.True(t, errors.Is(err, ErrNotProvisioned))

	_, err = store.Exists(ctx, "tasks/T1.yaml")
	assert.True(t, errors.Is(err, ErrNotProvisioned))

	require.NoError(t, store.Provision(ctx))
	ok, err = store.Provisioned(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, store.Write(ctx, "tasks/T1.yaml", []byte("id: T1")))
}

func TestLocalStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Provision(ctx))

	require.NoError(t, store.Write(ctx, "tasks/T1.yaml", []byte("id: T1")))
	require.NoError(t, store.Write(ctx, "tasks/T2.yaml", []byte("id: T2")))

	data, err := store.Read(ctx, "tasks/T1.yaml")
	require.NoError(t, err)
	assert.Equal(t, "id: T1", string(data))

	exists, err := store.Exists(ctx, "tasks/T2.yaml")
	require.NoError(t, err)
	assert.True(t, exists)

	paths, err := store.List(ctx, "tasks")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tasks/T1.yaml", "tasks/T2.yaml"}, paths)

	require.NoError(t, store.Delete(ctx, "tasks/T1.yaml"))
	_, err = store.Read(ctx, "tasks/T1.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.Delete(ctx, "tasks/T1.yaml")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLocalStorage_ListMissingPrefix(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Provision(ctx))

	paths, err := store.List(ctx, "workflows")
	require.NoError(t, err)
	assert.Empty(t, paths)
}
