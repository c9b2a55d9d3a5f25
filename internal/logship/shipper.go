package logship

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Logger ships structured entries to the remote collector.
// Log is fire-and-forget: it never blocks and never reports failure to the caller.
type Logger interface {
	Log(stack Stack, level Level, pkg Package, message string)
}

// NopLogger discards every entry.
type NopLogger struct{}

func (NopLogger) Log(Stack, Level, Package, string) {}

const (
	DefaultBuffer      = 1024
	defaultSendTimeout = 5 * time.Second
)

// Shipper is an asynchronous Logger. Entries are mirrored to the local zap
// logger, queued, and sent to the sink by a single background worker.
// A full queue drops the entry. A nil sink only mirrors.
type Shipper struct {
	sink    Sink
	entries chan Entry
	local   *zap.Logger
	timeout time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewShipper creates a shipper with a queue of buffer entries.
func NewShipper(sink Sink, buffer int, local *zap.Logger) *Shipper {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Shipper{
		sink:    sink,
		entries: make(chan Entry, buffer),
		local:   local,
		timeout: defaultSendTimeout,
		done:    make(chan struct{}),
	}
}

func (s *Shipper) Log(stack Stack, level Level, pkg Package, message string) {
	entry, err := NewEntry(stack, level, pkg, message)
	if err != nil {
		s.local.Warn("dropping invalid log entry", zap.String("message", message), zap.Error(err))

		return
	}

	s.mirror(entry)

	if s.sink == nil {
		return
	}

	select {
	case s.entries <- entry:
	default:
		s.local.Warn("log queue full, dropping entry", zap.String("message", message))
	}
}

// Start runs the background worker until ctx is cancelled or Shutdown is called.
func (s *Shipper) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.run(ctx)

	return nil
}

// Shutdown stops the worker after it has sent the entries still queued.
func (s *Shipper) Shutdown() error {
	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done

	return nil
}

func (s *Shipper) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.drain()

			return
		case entry := <-s.entries:
			s.send(entry)
		}
	}
}

func (s *Shipper) drain() {
	for {
		select {
		case entry := <-s.entries:
			s.send(entry)
		default:
			return
		}
	}
}

func (s *Shipper) send(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.sink.Send(ctx, entry); err != nil {
		s.local.Warn("failed to ship log entry",
			zap.String("level", string(entry.Level)),
			zap.String("package", string(entry.Package)),
			zap.Error(err),
		)
	}
}

func (s *Shipper) mirror(entry Entry) {
	fields := []zap.Field{
		zap.String("stack", string(entry.Stack)),
		zap.String("package", string(entry.Package)),
	}

	switch entry.Level {
	case LevelDebug:
		s.local.Debug(entry.Message, fields...)
	case LevelWarn:
		s.local.Warn(entry.Message, fields...)
	case LevelError, LevelFatal:
		s.local.Error(entry.Message, append(fields, zap.String("level", string(entry.Level)))...)
	default:
		s.local.Info(entry.Message, fields...)
	}
}
