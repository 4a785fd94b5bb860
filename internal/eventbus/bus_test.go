package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(8)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTaskCreated, "T1", map[string]string{"workflow_id": "W1"})

	select {
	case ev := <-ch:
		assert.Equal(t, EventTaskCreated, ev.Type)
		assert.Equal(t, "T1", ev.ResourceID)
		assert.Equal(t, "W1", ev.Payload["workflow_id"])
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.CreatedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestBus_DropsWhenBufferFull(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	bus.PublishNew(EventTaskCreated, "T1", nil)
	bus.PublishNew(EventTaskCreated, "T2", nil)

	ev := <-ch
	require.Equal(t, "T1", ev.ResourceID)
	select {
	case ev := <-ch:
		t.Fatalf("expected second event to be dropped, got %s", ev.ResourceID)
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after unsubscribe must not panic.
	bus.PublishNew(EventTaskCreated, "T1", nil)
}
