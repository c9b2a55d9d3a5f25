package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shorturl-service/internal/shortener"
)

const schema = `
CREATE TABLE IF NOT EXISTS short_urls (
	code             TEXT PRIMARY KEY,
	original_url     TEXT        NOT NULL,
	validity_minutes INTEGER     NOT NULL CHECK (validity_minutes > 0),
	created_at       TIMESTAMPTZ NOT NULL,
	click_count      BIGINT      NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS click_events (
	id         BIGSERIAL PRIMARY KEY,
	code       TEXT        NOT NULL REFERENCES short_urls (code),
	clicked_at TIMESTAMPTZ NOT NULL,
	source     TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_click_events_code ON click_events (code, id);
`

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed URL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

func (p *PostgresStore) Insert(ctx context.Context, shortURL *shortener.ShortURL) error {
	query := `
		INSERT INTO short_urls (code, original_url, validity_minutes, created_at, click_count)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (code) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		string(shortURL.Code),
		shortURL.OriginalURL,
		shortURL.ValidityMinutes,
		shortURL.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert short url: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrCodeExists
	}

	return nil
}

// FindByCode reads the record and its clicks from one snapshot so the
// counter always matches the event list.
func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin read: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	url := shortener.ShortURL{Code: code}

	err = tx.QueryRow(ctx, `
		SELECT original_url, validity_minutes, created_at, click_count
		FROM short_urls
		WHERE code = $1
	`, string(code)).Scan(
		&url.OriginalURL,
		&url.ValidityMinutes,
		&url.CreatedAt,
		&url.ClickCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, fmt.Errorf("select short url: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT clicked_at, source
		FROM click_events
		WHERE code = $1
		ORDER BY id
	`, string(code))
	if err != nil {
		return nil, fmt.Errorf("select clicks: %w", err)
	}

	url.Clicks, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (shortener.ClickEvent, error) {
		var (
			event     shortener.ClickEvent
			clickedAt time.Time
		)

		err := row.Scan(&clickedAt, &event.Source)
		event.Timestamp = clickedAt.UTC()

		return event, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan clicks: %w", err)
	}

	url.CreatedAt = url.CreatedAt.UTC()

	return &url, nil
}

// AppendClick increments the counter and inserts the event in one transaction.
// The UPDATE row lock serializes concurrent clicks on the same code.
func (p *PostgresStore) AppendClick(ctx context.Context, code shortener.Code, event shortener.ClickEvent) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE short_urls SET click_count = click_count + 1 WHERE code = $1`,
			string(code),
		)
		if err != nil {
			return fmt.Errorf("increment clicks: %w", err)
		}

		if tag.RowsAffected() == 0 {
			return shortener.ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO click_events (code, clicked_at, source) VALUES ($1, $2, $3)`,
			string(code), event.Timestamp, event.Source,
		)
		if err != nil {
			return fmt.Errorf("insert click: %w", err)
		}

		return nil
	})
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
