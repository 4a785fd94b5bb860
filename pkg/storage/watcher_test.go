package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_SignalsOnWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Provision(ctx))

	w, err := NewWatcher(store)
	require.NoError(t, err)
	go w.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, store.Write(ctx, "tasks/one.yaml", []byte("id: one\n")))

	select {
	case <-w.C:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after write")
	}

	// A burst of writes collapses into a bounded number of signals.
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Write(ctx, "tasks/one.yaml", []byte("id: one\nrev: 2\n")))
	}
	select {
	case <-w.C:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after burst")
	}
}
