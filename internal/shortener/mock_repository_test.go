package shortener_test

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/shorturl-service/internal/shortener"
)

var errStore = errors.New("store unavailable")

// fakeRepository records inserts and can be told which codes are taken or which calls fail.
type fakeRepository struct {
	mu        sync.Mutex
	records   map[shortener.Code]*shortener.ShortURL
	inserts   []shortener.Code
	insertErr error
	findErr   error
	appendErr error
}

func newFakeRepository(taken ...shortener.Code) *fakeRepository {
	repo := &fakeRepository{records: make(map[shortener.Code]*shortener.ShortURL)}
	for _, code := range taken {
		repo.records[code] = &shortener.ShortURL{Code: code}
	}

	return repo
}

func (f *fakeRepository) Insert(_ context.Context, shortURL *shortener.ShortURL) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inserts = append(f.inserts, shortURL.Code)

	if f.insertErr != nil {
		return f.insertErr
	}

	if _, ok := f.records[shortURL.Code]; ok {
		return shortener.ErrCodeExists
	}

	f.records[shortURL.Code] = shortURL.Clone()

	return nil
}

func (f *fakeRepository) FindByCode(_ context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}

	record, ok := f.records[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return record.Clone(), nil
}

func (f *fakeRepository) AppendClick(_ context.Context, code shortener.Code, event shortener.ClickEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendErr != nil {
		return f.appendErr
	}

	record, ok := f.records[code]
	if !ok {
		return shortener.ErrNotFound
	}

	f.records[code] = record.WithClick(event)

	return nil
}

// sequence returns a generator yielding codes in order, repeating the last one.
func sequence(codes ...string) shortener.CodeGenerator {
	var (
		mu sync.Mutex
		i  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		code := codes[min(i, len(codes)-1)]
		i++

		return code
	}
}
