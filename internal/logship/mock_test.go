package logship_test

import (
	"context"
	"sync"

	"github.com/serroba/shorturl-service/internal/logship"
)

// recordingLogger captures entries passed to Log.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logship.Entry
}

func (r *recordingLogger) Log(stack logship.Stack, level logship.Level, pkg logship.Package, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, logship.Entry{Stack: stack, Level: level, Package: pkg, Message: message})
}

func (r *recordingLogger) last() logship.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.entries[len(r.entries)-1]
}

// mockSink records delivered entries and optionally fails.
type mockSink struct {
	mu      sync.Mutex
	entries []logship.Entry
	err     error
}

func (m *mockSink) Send(_ context.Context, entry logship.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.entries = append(m.entries, entry)

	return nil
}

func (m *mockSink) sent() []logship.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]logship.Entry(nil), m.entries...)
}
