package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shorturl-service/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func accept(_ context.Context, _ *testEvent) error { return nil }

// startConsumer starts a consumer on a fresh mock subscriber and stops it when the test ends.
func startConsumer(
	t *testing.T, handler messaging.Handler[testEvent], opts ...messaging.ConsumerOption,
) *mockSubscriber {
	t.Helper()

	sub := newMockSubscriber()
	consumer := messaging.NewConsumer(sub, "test.topic", handler, zap.NewNop(), opts...)

	require.NoError(t, consumer.Start(context.Background()))
	t.Cleanup(func() { _ = consumer.Shutdown() })

	return sub
}

func newEventMessage(t *testing.T, id string, event *testEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(id, payload)
}

// outcome waits for msg to be acked or nacked.
func outcome(t *testing.T, msg *message.Message) string {
	t.Helper()

	select {
	case <-msg.Acked():
		return "ack"
	case <-msg.Nacked():
		return "nack"
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")

		return ""
	}
}

func TestConsumer_Start(t *testing.T) {
	t.Run("reports its topic", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", accept, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, "test.topic", consumer.Topic())
		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("subscribe failure leaves the consumer stopped", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(sub, "test.topic", accept, zap.NewNop())

		require.Error(t, consumer.Start(context.Background()))
		assert.NoError(t, consumer.Shutdown())
	})
}

func TestConsumer_Handle(t *testing.T) {
	t.Run("decodes and acks", func(t *testing.T) {
		received := make(chan testEvent, 1)
		sub := startConsumer(t, func(_ context.Context, event *testEvent) error {
			received <- *event

			return nil
		})

		msg := newEventMessage(t, uuid.NewString(), &testEvent{ID: "123", Name: "test"})
		sub.msgChan <- msg

		assert.Equal(t, "ack", outcome(t, msg))
		assert.Equal(t, testEvent{ID: "123", Name: "test"}, <-received)
	})

	t.Run("acks an undecodable payload without calling the handler", func(t *testing.T) {
		called := false
		sub := startConsumer(t, func(context.Context, *testEvent) error {
			called = true

			return nil
		})

		msg := message.NewMessage(uuid.NewString(), []byte("invalid json"))
		sub.msgChan <- msg

		assert.Equal(t, "ack", outcome(t, msg))
		assert.False(t, called)
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub := startConsumer(t, func(context.Context, *testEvent) error {
			return errors.New("handler error")
		})

		msg := newEventMessage(t, uuid.NewString(), &testEvent{ID: "123"})
		sub.msgChan <- msg

		assert.Equal(t, "nack", outcome(t, msg))
	})
}

func TestConsumer_MaxAttempts(t *testing.T) {
	t.Run("drops a message after the configured failures", func(t *testing.T) {
		sub := startConsumer(t, func(context.Context, *testEvent) error {
			return errors.New("collector down")
		}, messaging.WithMaxAttempts(3))

		id := uuid.NewString()

		// Redeliveries carry the same UUID.
		got := make([]string, 0, 3)
		for range 3 {
			msg := newEventMessage(t, id, &testEvent{ID: "1"})
			sub.msgChan <- msg
			got = append(got, outcome(t, msg))
		}

		assert.Equal(t, []string{"nack", "nack", "ack"}, got)
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		fail := true
		sub := startConsumer(t, func(context.Context, *testEvent) error {
			if fail {
				return errors.New("flaky")
			}

			return nil
		}, messaging.WithMaxAttempts(2))

		id := uuid.NewString()

		first := newEventMessage(t, id, &testEvent{ID: "1"})
		sub.msgChan <- first
		require.Equal(t, "nack", outcome(t, first))

		fail = false

		second := newEventMessage(t, id, &testEvent{ID: "1"})
		sub.msgChan <- second
		require.Equal(t, "ack", outcome(t, second))

		fail = true

		third := newEventMessage(t, id, &testEvent{ID: "1"})
		sub.msgChan <- third
		assert.Equal(t, "nack", outcome(t, third))
	})
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("stops a running consumer", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", accept, zap.NewNop())
		require.NoError(t, consumer.Start(context.Background()))

		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("is a no-op when never started", func(t *testing.T) {
		consumer := messaging.NewConsumer(newMockSubscriber(), "test.topic", accept, zap.NewNop())

		assert.NoError(t, consumer.Shutdown())
	})
}
