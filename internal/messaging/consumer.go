package messaging

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes a single decoded event. A returned error asks for redelivery.
type Handler[T any] func(ctx context.Context, event *T) error

type consumerConfig struct {
	maxAttempts int
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerConfig)

// WithMaxAttempts drops a message once its handler has failed n times.
// Zero, the default, redelivers forever.
func WithMaxAttempts(n int) ConsumerOption {
	return func(c *consumerConfig) {
		c.maxAttempts = n
	}
}

// Consumer decodes JSON messages of one topic into T and hands them to a Handler.
// Messages are handled one at a time in delivery order.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger
	config     consumerConfig

	// failures counts handler errors per message UUID; only the consume loop touches it.
	failures map[string]int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates a consumer of topic.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	c := &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
		failures:   make(map[string]int),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(&c.config)
	}

	return c
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and consumes in the background until ctx ends or Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		c.cancel()
		c.cancel = nil

		return err
	}

	go c.consumeLoop(ctx, msgs)

	return nil
}

func (c *Consumer[T]) consumeLoop(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer[T]) handle(ctx context.Context, msg *message.Message) {
	logger := c.logger.With(zap.String("message_id", msg.UUID))

	event, err := decode[T](msg)
	if err != nil {
		// Redelivering a payload that does not decode can never succeed.
		logger.Error("dropping undecodable event", zap.Error(err))
		msg.Ack()

		return
	}

	if err := c.handler(ctx, event); err != nil {
		c.failed(logger, msg, err)

		return
	}

	delete(c.failures, msg.UUID)
	msg.Ack()

	logger.Debug("processed event")
}

func (c *Consumer[T]) failed(logger *zap.Logger, msg *message.Message, err error) {
	c.failures[msg.UUID]++
	attempts := c.failures[msg.UUID]

	if c.config.maxAttempts > 0 && attempts >= c.config.maxAttempts {
		logger.Error("dropping event after repeated failures",
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		delete(c.failures, msg.UUID)
		msg.Ack()

		return
	}

	logger.Warn("failed to handle event, requesting redelivery",
		zap.Int("attempts", attempts),
		zap.Error(err),
	)
	msg.Nack()
}

func decode[T any](msg *message.Message) (*T, error) {
	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

// Shutdown stops the consumer and waits for the message in flight.
// It is a no-op for a consumer that was never started.
func (c *Consumer[T]) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	c.cancel()
	<-c.done

	return nil
}
