package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHub(t *testing.T) (*Hub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewHub(rdb, zap.NewNop()), mr
}

func TestHubPublishSubscribe(t *testing.T) {
	hub, _ := newHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, hub.Publish(ctx, Event{Type: EventTicketStatus, TicketID: id, Status: "resolved"}))

	select {
	case ev := <-events:
		assert.Equal(t, EventTicketStatus, ev.Type)
		assert.Equal(t, id, ev.TicketID)
		assert.Equal(t, "resolved", ev.Status)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubDropsBadPayload(t *testing.T) {
	hub, mr := newHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(Channel, "not json")
	id := uuid.New()
	require.NoError(t, hub.Publish(ctx, Event{Type: EventTicketCreated, TicketID: id}))

	select {
	case ev := <-events:
		assert.Equal(t, id, ev.TicketID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNopPublish(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
