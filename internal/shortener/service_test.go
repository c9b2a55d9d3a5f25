package shortener_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shorturl-service/internal/shortener"
	"github.com/serroba/shorturl-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleURL = "https://example.com/some/long/path"

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = now
}

type observed struct {
	kind string
	op   shortener.Operation
	err  error
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observed
}

func (r *recordingObserver) add(kind string, op shortener.Operation, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, observed{kind: kind, op: op, err: err})
}

func (r *recordingObserver) Started(op shortener.Operation)             { r.add("started", op, nil) }
func (r *recordingObserver) Rejected(op shortener.Operation, err error) { r.add("rejected", op, err) }
func (r *recordingObserver) Succeeded(op shortener.Operation)           { r.add("succeeded", op, nil) }
func (r *recordingObserver) Failed(op shortener.Operation, err error)   { r.add("failed", op, err) }

func (r *recordingObserver) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]string, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.kind)
	}

	return kinds
}

func newService(t *testing.T, repo shortener.Repository, c *clock, opts ...shortener.Option) *shortener.Service {
	t.Helper()

	gen, err := shortener.NewCodeGenerator(shortener.DefaultCodeLength)
	require.NoError(t, err)

	return shortener.NewService(repo, shortener.NewResolver(repo, gen, 0),
		append([]shortener.Option{shortener.WithClock(c.Now)}, opts...)...)
}

func TestService_Create(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c)

		shortURL, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL})

		require.NoError(t, err)
		assert.Len(t, string(shortURL.Code), shortener.DefaultCodeLength)
		assert.Equal(t, exampleURL, shortURL.OriginalURL)
		assert.Equal(t, shortener.DefaultValidityMinutes, shortURL.ValidityMinutes)
		assert.Equal(t, t0, shortURL.CreatedAt)
		assert.Equal(t, t0.Add(30*time.Minute), shortURL.ExpiresAt())
		assert.Zero(t, shortURL.ClickCount)
		assert.Empty(t, shortURL.Clicks)
	})

	t.Run("honours requested code and validity", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c)

		shortURL, err := svc.Create(context.Background(), shortener.CreateRequest{
			OriginalURL:     exampleURL,
			ValidityMinutes: 5,
			Code:            "abc123",
		})

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("abc123"), shortURL.Code)
		assert.Equal(t, t0.Add(5*time.Minute), shortURL.ExpiresAt())
	})

	t.Run("maximum validity stays active after create", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c)

		shortURL, err := svc.Create(context.Background(), shortener.CreateRequest{
			OriginalURL:     exampleURL,
			ValidityMinutes: int(shortener.MaxValidityMinutes),
		})
		require.NoError(t, err)

		assert.True(t, shortURL.ExpiresAt().After(t0))
		assert.Equal(t, t0.Add(time.Duration(shortener.MaxValidityMinutes)*time.Minute), shortURL.ExpiresAt())

		_, err = svc.Stat(context.Background(), shortURL.Code)
		assert.NoError(t, err)
	})

	t.Run("out of range default validity is ignored", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c,
			shortener.WithDefaultValidity(int(shortener.MaxValidityMinutes)+1))

		shortURL, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL})

		require.NoError(t, err)
		assert.Equal(t, shortener.DefaultValidityMinutes, shortURL.ValidityMinutes)
	})

	t.Run("configured default validity", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c, shortener.WithDefaultValidity(60))

		shortURL, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL})

		require.NoError(t, err)
		assert.Equal(t, 60, shortURL.ValidityMinutes)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name string
			req  shortener.CreateRequest
			want error
		}{
			{name: "missing url", req: shortener.CreateRequest{}, want: shortener.ErrMissingURL},
			{name: "no scheme", req: shortener.CreateRequest{OriginalURL: "example.com/path"}, want: shortener.ErrInvalidURL},
			{name: "no host", req: shortener.CreateRequest{OriginalURL: "https://"}, want: shortener.ErrInvalidURL},
			{name: "garbage", req: shortener.CreateRequest{OriginalURL: "::not a url"}, want: shortener.ErrInvalidURL},
			{
				name: "negative validity",
				req:  shortener.CreateRequest{OriginalURL: exampleURL, ValidityMinutes: -1},
				want: shortener.ErrInvalidValidity,
			},
			{
				name: "validity beyond the duration range",
				req:  shortener.CreateRequest{OriginalURL: exampleURL, ValidityMinutes: 200_000_000},
				want: shortener.ErrInvalidValidity,
			},
			{
				name: "validity one past the maximum",
				req: shortener.CreateRequest{
					OriginalURL:     exampleURL,
					ValidityMinutes: int(shortener.MaxValidityMinutes) + 1,
				},
				want: shortener.ErrInvalidValidity,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := newFakeRepository()
				svc := newService(t, repo, &clock{now: t0})

				shortURL, err := svc.Create(context.Background(), tt.req)

				assert.Nil(t, shortURL)
				require.ErrorIs(t, err, tt.want)
				assert.False(t, shortener.IsInternal(err))
				assert.Empty(t, repo.inserts, "invalid input never reaches the store")
			})
		}
	})

	t.Run("rejects a duplicate requested code and keeps the original", func(t *testing.T) {
		repo := store.NewMemoryStore()
		svc := newService(t, repo, &clock{now: t0})

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "abc123"})
		require.NoError(t, err)

		_, err = svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: "https://other.example", Code: "abc123"})
		require.ErrorIs(t, err, shortener.ErrDuplicateCode)

		stored, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, exampleURL, stored.OriginalURL)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		repo := newFakeRepository()
		repo.insertErr = errStore
		svc := newService(t, repo, &clock{now: t0})

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL})

		require.ErrorIs(t, err, errStore)
		assert.True(t, shortener.IsInternal(err))
	})

	t.Run("exhausted code space is internal", func(t *testing.T) {
		repo := newFakeRepository("aaaaaa")
		svc := shortener.NewService(repo, shortener.NewResolver(repo, sequence("aaaaaa"), 2),
			shortener.WithClock((&clock{now: t0}).Now))

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL})

		require.ErrorIs(t, err, shortener.ErrCodeSpaceExhausted)
		assert.True(t, shortener.IsInternal(err))
	})
}

func TestService_Stat(t *testing.T) {
	t.Run("returns the record without mutating it", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c)

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "abc123"})
		require.NoError(t, err)

		for range 3 {
			shortURL, err := svc.Stat(context.Background(), "abc123")
			require.NoError(t, err)
			assert.Zero(t, shortURL.ClickCount)
			assert.Empty(t, shortURL.Clicks)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := newService(t, store.NewMemoryStore(), &clock{now: t0})

		_, err := svc.Stat(context.Background(), "nope")

		require.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("valid at the expiry instant, expired just after", func(t *testing.T) {
		c := &clock{now: t0}
		svc := newService(t, store.NewMemoryStore(), c)

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, ValidityMinutes: 1, Code: "abc123"})
		require.NoError(t, err)

		c.Set(t0.Add(time.Minute))
		_, err = svc.Stat(context.Background(), "abc123")
		require.NoError(t, err)

		c.Set(t0.Add(time.Minute + time.Millisecond))
		_, err = svc.Stat(context.Background(), "abc123")
		require.ErrorIs(t, err, shortener.ErrExpired)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		repo := newFakeRepository()
		repo.findErr = errStore
		svc := newService(t, repo, &clock{now: t0})

		_, err := svc.Stat(context.Background(), "abc123")

		require.ErrorIs(t, err, errStore)
		assert.True(t, shortener.IsInternal(err))
	})
}

func TestService_Redirect(t *testing.T) {
	t.Run("records clicks in order before returning", func(t *testing.T) {
		c := &clock{now: t0}
		repo := store.NewMemoryStore()
		svc := newService(t, repo, c)

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "abc123"})
		require.NoError(t, err)

		c.Set(t0.Add(time.Minute))
		first, err := svc.Redirect(context.Background(), "abc123", "Mozilla/5.0")
		require.NoError(t, err)
		assert.Equal(t, exampleURL, first.OriginalURL)
		assert.Equal(t, int64(1), first.ClickCount)

		c.Set(t0.Add(2 * time.Minute))
		second, err := svc.Redirect(context.Background(), "abc123", "")
		require.NoError(t, err)
		assert.Equal(t, int64(2), second.ClickCount)

		stored, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.ClickCount)
		assert.Equal(t, []shortener.ClickEvent{
			{Timestamp: t0.Add(time.Minute), Source: "Mozilla/5.0"},
			{Timestamp: t0.Add(2 * time.Minute), Source: shortener.UnknownSource},
		}, stored.Clicks)
	})

	t.Run("expired record records no click", func(t *testing.T) {
		c := &clock{now: t0}
		repo := store.NewMemoryStore()
		svc := newService(t, repo, c)

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, ValidityMinutes: 1, Code: "abc123"})
		require.NoError(t, err)

		c.Set(t0.Add(2 * time.Minute))
		_, err = svc.Redirect(context.Background(), "abc123", "agent")
		require.ErrorIs(t, err, shortener.ErrExpired)

		stored, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Zero(t, stored.ClickCount)
	})

	t.Run("unknown code", func(t *testing.T) {
		svc := newService(t, store.NewMemoryStore(), &clock{now: t0})

		_, err := svc.Redirect(context.Background(), "nope", "agent")

		require.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("append failure is internal", func(t *testing.T) {
		repo := newFakeRepository()
		svc := newService(t, repo, &clock{now: t0})

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "abc123"})
		require.NoError(t, err)

		repo.appendErr = errStore

		_, err = svc.Redirect(context.Background(), "abc123", "agent")

		require.ErrorIs(t, err, errStore)
		assert.True(t, shortener.IsInternal(err))
	})
}

func TestService_Observer(t *testing.T) {
	obs := &recordingObserver{}
	repo := newFakeRepository()
	svc := newService(t, repo, &clock{now: t0}, shortener.WithObserver(obs))

	_, _ = svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "abc123"})
	_, _ = svc.Create(context.Background(), shortener.CreateRequest{})
	_, _ = svc.Stat(context.Background(), "nope")

	repo.appendErr = errStore
	_, _ = svc.Redirect(context.Background(), "abc123", "agent")

	assert.Equal(t, []string{
		"started", "succeeded",
		"started", "rejected",
		"started", "rejected",
		"started", "failed",
	}, obs.kinds())
	assert.Equal(t, shortener.OpRedirect, obs.events[7].op)
	require.ErrorIs(t, obs.events[3].err, shortener.ErrMissingURL)
}

func TestService_Concurrency(t *testing.T) {
	t.Run("concurrent creates never share a code", func(t *testing.T) {
		svc := newService(t, store.NewMemoryStore(), &clock{now: t0})

		const n = 200

		codes := make([]shortener.Code, n)

		var wg sync.WaitGroup

		for i := range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				shortURL, err := svc.Create(context.Background(), shortener.CreateRequest{
					OriginalURL: fmt.Sprintf("https://example.com/%d", i),
				})
				if assert.NoError(t, err) {
					codes[i] = shortURL.Code
				}
			}()
		}

		wg.Wait()

		seen := make(map[shortener.Code]struct{}, n)
		for _, code := range codes {
			seen[code] = struct{}{}
		}

		assert.Len(t, seen, n)
	})

	t.Run("concurrent requests for one code yield exactly one winner", func(t *testing.T) {
		svc := newService(t, store.NewMemoryStore(), &clock{now: t0})

		const n = 50

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)

		for range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "hot"})
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()

					return
				}

				assert.ErrorIs(t, err, shortener.ErrDuplicateCode)
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, successes)
	})

	t.Run("concurrent redirects lose no clicks", func(t *testing.T) {
		repo := store.NewMemoryStore()
		svc := newService(t, repo, &clock{now: t0})

		_, err := svc.Create(context.Background(), shortener.CreateRequest{OriginalURL: exampleURL, Code: "abc123"})
		require.NoError(t, err)

		const n = 100

		var wg sync.WaitGroup

		for range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := svc.Redirect(context.Background(), "abc123", "agent")
				assert.NoError(t, err)
			}()
		}

		wg.Wait()

		stored, err := repo.FindByCode(context.Background(), "abc123")
		require.NoError(t, err)
		assert.Equal(t, int64(n), stored.ClickCount)
		assert.Len(t, stored.Clicks, n)
	})
}
