package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shorturl-service/internal/shortener"
)

// insertScript writes the record hash only if the key does not exist yet.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'code', ARGV[1],
	'original_url', ARGV[2],
	'validity_minutes', ARGV[3],
	'created_at', ARGV[4],
	'click_count', 0)
return 1
`)

// appendClickScript pushes the click and bumps the counter in one step.
var appendClickScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('HINCRBY', KEYS[1], 'click_count', 1)
return 1
`)

type clickRecord struct {
	Timestamp int64  `json:"ts"`
	Source    string `json:"source"`
}

// RedisStore is a Redis implementation of shortener.Repository.
// Each record is a hash at "url:<code>" with its clicks in the list "url:<code>:clicks".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed URL store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "url:",
	}
}

func (r *RedisStore) Insert(ctx context.Context, shortURL *shortener.ShortURL) error {
	inserted, err := insertScript.Run(ctx, r.client,
		[]string{r.recordKey(shortURL.Code)},
		string(shortURL.Code),
		shortURL.OriginalURL,
		shortURL.ValidityMinutes,
		shortURL.CreatedAt.UnixNano(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis insert: %w", err)
	}

	if inserted == 0 {
		return shortener.ErrCodeExists
	}

	return nil
}

func (r *RedisStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	var (
		fields *redis.MapStringStringCmd
		clicks *redis.StringSliceCmd
	)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, r.recordKey(code))
		clicks = pipe.LRange(ctx, r.clicksKey(code), 0, -1)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis find: %w", err)
	}

	if len(fields.Val()) == 0 {
		return nil, shortener.ErrNotFound
	}

	return decodeRecord(code, fields.Val(), clicks.Val())
}

func (r *RedisStore) AppendClick(ctx context.Context, code shortener.Code, event shortener.ClickEvent) error {
	payload, err := json.Marshal(clickRecord{
		Timestamp: event.Timestamp.UnixNano(),
		Source:    event.Source,
	})
	if err != nil {
		return err
	}

	appended, err := appendClickScript.Run(ctx, r.client,
		[]string{r.recordKey(code), r.clicksKey(code)},
		string(payload),
	).Int()
	if err != nil {
		return fmt.Errorf("redis append click: %w", err)
	}

	if appended == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

// Ping checks Redis connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) recordKey(code shortener.Code) string {
	return r.prefix + string(code)
}

func (r *RedisStore) clicksKey(code shortener.Code) string {
	return r.prefix + string(code) + ":clicks"
}

func decodeRecord(code shortener.Code, fields map[string]string, rawClicks []string) (*shortener.ShortURL, error) {
	validity, err := strconv.Atoi(fields["validity_minutes"])
	if err != nil {
		return nil, fmt.Errorf("decode validity of %s: %w", code, err)
	}

	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode created_at of %s: %w", code, err)
	}

	clickCount, err := strconv.ParseInt(fields["click_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode click_count of %s: %w", code, err)
	}

	clicks := make([]shortener.ClickEvent, 0, len(rawClicks))

	for _, raw := range rawClicks {
		var rec clickRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode click of %s: %w", code, err)
		}

		clicks = append(clicks, shortener.ClickEvent{
			Timestamp: time.Unix(0, rec.Timestamp).UTC(),
			Source:    rec.Source,
		})
	}

	return &shortener.ShortURL{
		Code:            code,
		OriginalURL:     fields["original_url"],
		ValidityMinutes: validity,
		CreatedAt:       time.Unix(0, createdAt).UTC(),
		ClickCount:      clickCount,
		Clicks:          clicks,
	}, nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisStore)(nil)
