package store

import (
	"context"
	"sync"

	"github.com/serroba/shorturl-service/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
// All operations run under one lock, so Insert and AppendClick are atomic.
type MemoryStore struct {
	mu   sync.RWMutex
	urls map[shortener.Code]*shortener.ShortURL
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		urls: make(map[shortener.Code]*shortener.ShortURL),
	}
}

func (m *MemoryStore) Insert(_ context.Context, shortURL *shortener.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.urls[shortURL.Code]; ok {
		return shortener.ErrCodeExists
	}

	m.urls[shortURL.Code] = shortURL.Clone()

	return nil
}

func (m *MemoryStore) FindByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, ok := m.urls[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return url.Clone(), nil
}

func (m *MemoryStore) AppendClick(_ context.Context, code shortener.Code, event shortener.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, ok := m.urls[code]
	if !ok {
		return shortener.ErrNotFound
	}

	m.urls[code] = url.WithClick(event)

	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
