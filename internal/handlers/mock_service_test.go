package handlers_test

import (
	"context"
	"errors"

	"github.com/serroba/shorturl-service/internal/messaging"
	"github.com/serroba/shorturl-service/internal/shortener"
)

var errMock = errors.New("mock error")

const testURL = "https://example.com/very/long/path"

// mockService is a test double for handlers.Shortener that returns fixed results.
type mockService struct {
	createErr   error
	statErr     error
	redirectErr error
	result      *shortener.ShortURL
	lastCreate  shortener.CreateRequest
	lastSource  string
}

func (m *mockService) Create(_ context.Context, req shortener.CreateRequest) (*shortener.ShortURL, error) {
	m.lastCreate = req

	if m.createErr != nil {
		return nil, m.createErr
	}

	return m.result, nil
}

func (m *mockService) Stat(_ context.Context, _ shortener.Code) (*shortener.ShortURL, error) {
	if m.statErr != nil {
		return nil, m.statErr
	}

	return m.result, nil
}

func (m *mockService) Redirect(_ context.Context, _ shortener.Code, source string) (*shortener.ShortURL, error) {
	m.lastSource = source

	if m.redirectErr != nil {
		return nil, m.redirectErr
	}

	return m.result, nil
}

// capturePublish records every published event.
func capturePublish[T any](events *[]*T) messaging.Publish[T] {
	return func(_ context.Context, event *T) error {
		*events = append(*events, event)

		return nil
	}
}

// errorPublish returns a publish function that always fails.
func errorPublish[T any](err error) messaging.Publish[T] {
	return func(_ context.Context, _ *T) error { return err }
}
