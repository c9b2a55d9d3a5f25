package shortener

import "context"

// Repository defines the persistence contract for short URLs.
type Repository interface {
	// FindByCode returns the record for code, expired ones included.
	// Returns ErrNotFound if no record holds the code.
	FindByCode(ctx context.Context, code Code) (*ShortURL, error)

	// Insert stores the record only if its code is free, atomically.
	// Returns ErrCodeExists if another record already holds the code.
	Insert(ctx context.Context, shortURL *ShortURL) error

	// AppendClick atomically appends event and increments the click counter.
	// Returns ErrNotFound if no record holds the code.
	AppendClick(ctx context.Context, code Code, event ClickEvent) error
}
