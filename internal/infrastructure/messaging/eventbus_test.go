package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-hub/lingua-school-backend/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		AsyncMode:     false,
		EnableMetrics: true,
	})
}

func TestInMemoryEventBus_PublishToSubscriber(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventLessonCompleted, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, shared.EventLessonCompleted, received[0].EventType())

	// A subscriber for another event type stays untouched.
	require.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("cert-1", "stud-1", "course-1", "LS-2026-A1B2C3D4")))
	assert.Len(t, received, 1)
}

func TestInMemoryEventBus_SubscribeAll(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)))
	require.NoError(t, bus.Publish(shared.NewCertificateIssuedEvent("cert-1", "stud-1", "course-1", "LS-2026-A1B2C3D4")))

	assert.Equal(t, 2, count)
}

func TestInMemoryEventBus_NilHandlerRejected(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventLessonCompleted, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestInMemoryEventBus_ClosedBus(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventLessonCompleted, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Closing twice is harmless.
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_Metrics(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventLessonCompleted, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Publish(shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)))

	snapshot := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalPublished)
	assert.Equal(t, int64(1), snapshot.TotalHandlerExecs)
	assert.Equal(t, 1.0, snapshot.HandlerSuccessRate)
}

// ─── redis bus ───────────────────────────────────────────────────────────────

// fakeRedisClient records published messages and lets the test inject
// incoming pub/sub messages.
type fakeRedisClient struct {
	published []string
	incoming  chan RedisMessage
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{incoming: make(chan RedisMessage, 8)}
}

func (c *fakeRedisClient) Publish(_ context.Context, _ string, message interface{}) error {
	c.published = append(c.published, message.(string))
	return nil
}

func (c *fakeRedisClient) Subscribe(_ context.Context, _ ...string) (<-chan RedisMessage, error) {
	return c.incoming, nil
}

func (c *fakeRedisClient) Close() error { return nil }

func TestRedisEventBus_PublishWritesEnvelope(t *testing.T) {
	client := newFakeRedisClient()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     client,
		InstanceID: "node-a",
	})
	require.NoError(t, err)
	defer bus.Close()

	event := shared.NewLessonCompletedEvent("stud-1", "course-1", "l1", 1, 3)
	require.NoError(t, bus.Publish(event))

	require.Len(t, client.published, 1)

	var envelope eventEnvelope
	require.NoError(t, json.Unmarshal([]byte(client.published[0]), &envelope))
	assert.Equal(t, "node-a", envelope.InstanceID)
	assert.Equal(t, shared.EventLessonCompleted, envelope.EventType)
	assert.Equal(t, event.AggregateID(), envelope.AggregateID)
}

func TestRedisEventBus_RemoteEventReachesLocalHandlers(t *testing.T) {
	client := newFakeRedisClient()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     client,
		InstanceID: "node-a",
	})
	require.NoError(t, err)
	defer bus.Close()

	received := make(chan shared.Event, 1)
	require.NoError(t, bus.Subscribe(shared.EventLessonCompleted, func(e shared.Event) error {
		received <- e
		return nil
	}))

	remote, err := json.Marshal(eventEnvelope{
		InstanceID:  "node-b",
		EventType:   shared.EventLessonCompleted,
		AggregateID: "stud-1",
		OccurredAt:  time.Now().UTC(),
		Payload:     map[string]interface{}{"lesson_id": "l1"},
	})
	require.NoError(t, err)
	client.incoming <- RedisMessage{Channel: "lingua-school:events", Payload: string(remote)}

	select {
	case e := <-received:
		assert.Equal(t, shared.EventLessonCompleted, e.EventType())
		assert.Equal(t, "stud-1", e.AggregateID())
	case <-time.After(2 * time.Second):
		t.Fatal("remote event never reached the local handler")
	}
}

func TestRedisEventBus_SkipsOwnMessages(t *testing.T) {
	client := newFakeRedisClient()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     client,
		InstanceID: "node-a",
	})
	require.NoError(t, err)
	defer bus.Close()

	received := make(chan shared.Event, 1)
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		received <- e
		return nil
	}))

	own, err := json.Marshal(eventEnvelope{
		InstanceID: "node-a",
		EventType:  shared.EventLessonCompleted,
	})
	require.NoError(t, err)
	client.incoming <- RedisMessage{Payload: string(own)}

	select {
	case <-received:
		t.Fatal("an event published by this instance must not be re-dispatched")
	case <-time.After(100 * time.Millisecond):
	}
}
