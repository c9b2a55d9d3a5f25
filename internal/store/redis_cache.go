package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shorturl-service/internal/shortener"
	"go.uber.org/zap"
)

type cachedClick struct {
	Timestamp time.Time `json:"ts"`
	Source    string    `json:"source"`
}

type cachedURL struct {
	OriginalURL     string        `json:"originalUrl"`
	ValidityMinutes int           `json:"validityMinutes"`
	CreatedAt       time.Time     `json:"createdAt"`
	ClickCount      int64         `json:"clickCount"`
	Clicks          []cachedClick `json:"clicks"`
}

// RedisCacheRepository wraps a Repository with Redis caching for reads.
// A click drops the cached snapshot; a reader racing with a click may
// repopulate a stale snapshot that lives at most ttl.
type RedisCacheRepository struct {
	store  shortener.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		prefix: "cache:url:",
		ttl:    ttl,
		logger: logger,
	}
}

// Insert stores a short URL in the underlying store and updates the cache.
func (r *RedisCacheRepository) Insert(ctx context.Context, shortURL *shortener.ShortURL) error {
	if err := r.store.Insert(ctx, shortURL); err != nil {
		return err
	}

	r.cacheURL(ctx, shortURL)

	return nil
}

// FindByCode retrieves a short URL by its code, checking cache first.
func (r *RedisCacheRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if url, err := r.getFromCache(ctx, code); err == nil {
		return url, nil
	}

	url, err := r.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, url)

	return url, nil
}

// AppendClick records the click in the underlying store and invalidates the cache.
func (r *RedisCacheRepository) AppendClick(ctx context.Context, code shortener.Code, event shortener.ClickEvent) error {
	if err := r.store.AppendClick(ctx, code, event); err != nil {
		return err
	}

	if err := r.client.Del(ctx, r.prefix+string(code)).Err(); err != nil {
		r.logger.Warn("failed to invalidate cached url",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}

	return nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	payload, err := r.client.Get(ctx, r.prefix+string(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	var cached cachedURL
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, err
	}

	clicks := make([]shortener.ClickEvent, 0, len(cached.Clicks))
	for _, c := range cached.Clicks {
		clicks = append(clicks, shortener.ClickEvent{Timestamp: c.Timestamp, Source: c.Source})
	}

	return &shortener.ShortURL{
		Code:            code,
		OriginalURL:     cached.OriginalURL,
		ValidityMinutes: cached.ValidityMinutes,
		CreatedAt:       cached.CreatedAt,
		ClickCount:      cached.ClickCount,
		Clicks:          clicks,
	}, nil
}

func (r *RedisCacheRepository) cacheURL(ctx context.Context, url *shortener.ShortURL) {
	cached := cachedURL{
		OriginalURL:     url.OriginalURL,
		ValidityMinutes: url.ValidityMinutes,
		CreatedAt:       url.CreatedAt,
		ClickCount:      url.ClickCount,
		Clicks:          make([]cachedClick, 0, len(url.Clicks)),
	}

	for _, c := range url.Clicks {
		cached.Clicks = append(cached.Clicks, cachedClick{Timestamp: c.Timestamp, Source: c.Source})
	}

	payload, err := json.Marshal(cached)
	if err != nil {
		return
	}

	if err := r.client.Set(ctx, r.prefix+string(url.Code), payload, r.ttl).Err(); err != nil {
		r.logger.Debug("failed to cache url",
			zap.String("code", string(url.Code)),
			zap.Error(err),
		)
	}
}

// Ping checks Redis and, when it supports pinging, the underlying store.
func (r *RedisCacheRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return err
	}

	if pinger, ok := r.store.(interface{ Ping(ctx context.Context) error }); ok {
		return pinger.Ping(ctx)
	}

	return nil
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
