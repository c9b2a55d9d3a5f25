package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/shorturl-service/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniqueCode avoids clashes with records left behind by earlier runs against a shared backend.
func uniqueCode(prefix string) shortener.Code {
	return shortener.Code(prefix + "-" + uuid.NewString()[:8])
}

func newRecord(code shortener.Code) *shortener.ShortURL {
	return &shortener.ShortURL{
		Code:            code,
		OriginalURL:     "https://example.com/" + string(code),
		ValidityMinutes: 30,
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
		Clicks:          []shortener.ClickEvent{},
	}
}

// testRepository runs the behaviour every shortener.Repository must share.
func testRepository(t *testing.T, repo shortener.Repository) {
	t.Helper()

	ctx := context.Background()

	t.Run("insert then find", func(t *testing.T) {
		want := newRecord(uniqueCode("find"))

		require.NoError(t, repo.Insert(ctx, want))

		got, err := repo.FindByCode(ctx, want.Code)
		require.NoError(t, err)
		assert.Equal(t, want.Code, got.Code)
		assert.Equal(t, want.OriginalURL, got.OriginalURL)
		assert.Equal(t, want.ValidityMinutes, got.ValidityMinutes)
		assert.WithinDuration(t, want.CreatedAt, got.CreatedAt, 0)
		assert.Zero(t, got.ClickCount)
		assert.Empty(t, got.Clicks)
	})

	t.Run("insert of a taken code fails and keeps the first record", func(t *testing.T) {
		first := newRecord(uniqueCode("dup"))
		require.NoError(t, repo.Insert(ctx, first))

		second := newRecord(first.Code)
		second.OriginalURL = "https://other.example"

		err := repo.Insert(ctx, second)
		require.ErrorIs(t, err, shortener.ErrCodeExists)

		got, err := repo.FindByCode(ctx, first.Code)
		require.NoError(t, err)
		assert.Equal(t, first.OriginalURL, got.OriginalURL)
	})

	t.Run("find unknown code", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, uniqueCode("missing"))

		require.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("append click keeps count and events in step", func(t *testing.T) {
		record := newRecord(uniqueCode("click"))
		require.NoError(t, repo.Insert(ctx, record))

		clicks := []shortener.ClickEvent{
			{Timestamp: record.CreatedAt.Add(time.Second), Source: "Mozilla/5.0"},
			{Timestamp: record.CreatedAt.Add(2 * time.Second), Source: shortener.UnknownSource},
		}

		for _, click := range clicks {
			require.NoError(t, repo.AppendClick(ctx, record.Code, click))
		}

		got, err := repo.FindByCode(ctx, record.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.ClickCount)
		require.Len(t, got.Clicks, 2)

		for i, click := range clicks {
			assert.WithinDuration(t, click.Timestamp, got.Clicks[i].Timestamp, 0)
			assert.Equal(t, click.Source, got.Clicks[i].Source)
		}
	})

	t.Run("append click to unknown code", func(t *testing.T) {
		err := repo.AppendClick(ctx, uniqueCode("missing"), shortener.ClickEvent{
			Timestamp: time.Now(),
			Source:    "agent",
		})

		require.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("concurrent inserts of one code admit exactly one", func(t *testing.T) {
		code := uniqueCode("race")

		const n = 20

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)

		for range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if err := repo.Insert(ctx, newRecord(code)); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, shortener.ErrCodeExists)
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, wins)
	})

	t.Run("concurrent clicks are all counted", func(t *testing.T) {
		record := newRecord(uniqueCode("clicks"))
		require.NoError(t, repo.Insert(ctx, record))

		const n = 50

		var wg sync.WaitGroup

		for range n {
			wg.Add(1)

			go func() {
				defer wg.Done()

				assert.NoError(t, repo.AppendClick(ctx, record.Code, shortener.ClickEvent{
					Timestamp: time.Now().UTC().Truncate(time.Millisecond),
					Source:    "agent",
				}))
			}()
		}

		wg.Wait()

		got, err := repo.FindByCode(ctx, record.Code)
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.ClickCount)
		assert.Len(t, got.Clicks, n)
	})
}
