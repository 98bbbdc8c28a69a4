package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishDeliversJSON(t *testing.T) {
	h := NewHub(nil)
	c := &Client{ID: "c1", UserID: "u1", Events: make(chan Event, 1)}
	h.Register(c)
	require.Equal(t, 1, h.ClientCount())

	h.Publish(EventStageFinished, map[string]string{"stage_id": "s1"})

	ev := <-c.Events
	assert.Equal(t, EventStageFinished, ev.EventType)
	assert.JSONEq(t, `{"stage_id":"s1"}`, ev.Data)
}

func TestHubBroadcastSkipsFullClient(t *testing.T) {
	h := NewHub(nil)
	c := &Client{ID: "c1", Events: make(chan Event, 1)}
	h.Register(c)

	h.Broadcast(Event{EventType: "a"})
	h.Broadcast(Event{EventType: "b"})

	ev := <-c.Events
	assert.Equal(t, "a", ev.EventType)
	assert.Len(t, c.Events, 0)
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	h := NewHub(nil)
	c := &Client{ID: "c1", Events: make(chan Event, 1)}
	h.Register(c)
	h.Unregister("c1")

	_, ok := <-c.Events
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.Publish(EventPlanningCompleted, nil) })
}

func TestHubTopicFilter(t *testing.T) {
	h := NewHub(nil)
	all := &Client{ID: "all", Events: make(chan Event, 4)}
	done := &Client{ID: "done", Events: make(chan Event, 4), Topics: map[string]bool{EventWorkOrderCompleted: true}}
	h.Register(all)
	h.Register(done)

	h.Publish(EventStageFinished, map[string]string{"stage_id": "s1"})
	h.Publish(EventWorkOrderCompleted, map[string]string{"work_order_id": "wo1"})

	assert.Len(t, all.Events, 2)
	require.Len(t, done.Events, 1)
	assert.Equal(t, EventWorkOrderCompleted, (<-done.Events).EventType)
}
