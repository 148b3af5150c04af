package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := New()
	id1, ch1 := b.Subscribe(4)
	_, ch2 := b.Subscribe(4)
	defer b.Unsubscribe(id1)

	b.PublishNew(EventTypeTaskCreated, "01HTASK")

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTypeTaskCreated, ev.Type)
			assert.Equal(t, "01HTASK", ev.ResourceID)
			assert.NotEmpty(t, ev.ID)
			assert.WithinDuration(t, time.Now(), ev.CreatedAt, time.Second)
		case <-time.After(time.Second):
			t.Fatal("event was not delivered")
		}
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(1)

	b.PublishNew(EventTypeTaskCreated, "a")
	b.PublishNew(EventTypeTaskDeleted, "b")

	ev := <-ch
	assert.Equal(t, "a", ev.ResourceID)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New()
	id, ch := b.Subscribe(1)
	b.Unsubscribe(id)
	b.Unsubscribe(id)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
	assert.NotPanics(t, func() { b.PublishNew(EventTypeThemeChanged, "dark") })
}

func TestBus_NilPublish(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.PublishNew(EventTypeTaskCreated, "x") })
}
