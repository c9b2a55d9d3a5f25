package logship

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/serroba/shorturl-service/internal/messaging"
	"go.uber.org/zap"
)

// TopicLogEntries is the stream topic shipped entries travel on.
const TopicLogEntries = "logs.entries"

var ErrCollectorRejected = errors.New("log collector rejected entry")

// Sink delivers a single entry.
type Sink interface {
	Send(ctx context.Context, entry Entry) error
}

// CollectorSink posts entries to the remote log collector.
type CollectorSink struct {
	url    string
	token  string
	client *http.Client
}

// NewCollectorSink creates a sink posting to url with a bearer token.
func NewCollectorSink(url, token string, client *http.Client) *CollectorSink {
	return &CollectorSink{
		url:    url,
		token:  token,
		client: client,
	}
}

func (c *CollectorSink) Send(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post log entry: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", ErrCollectorRejected, resp.StatusCode)
	}

	return nil
}

// StreamSink publishes entries to TopicLogEntries; the consumer process forwards them to the collector.
type StreamSink struct {
	publish messaging.Publish[Entry]
}

// NewStreamSink creates a sink backed by a typed publish function.
func NewStreamSink(publish messaging.Publish[Entry]) *StreamSink {
	return &StreamSink{publish: publish}
}

func (s *StreamSink) Send(ctx context.Context, entry Entry) error {
	return s.publish(ctx, &entry)
}

// Forward returns a messaging handler that delivers streamed entries to sink.
// Invalid entries are dropped instead of being redelivered.
func Forward(sink Sink, logger *zap.Logger) messaging.Handler[Entry] {
	return func(ctx context.Context, entry *Entry) error {
		if err := entry.Validate(); err != nil {
			logger.Warn("dropping invalid streamed log entry", zap.Error(err))

			return nil
		}

		return sink.Send(ctx, *entry)
	}
}
