package shortener

import (
	"context"
	"errors"
)

// DefaultMaxGenerateAttempts bounds the generated-code retry loop.
const DefaultMaxGenerateAttempts = 16

// Resolver claims a unique code for a new record.
//
// Uniqueness relies on Repository.Insert being an atomic insert-if-absent;
// a conflicting insert either rejects a requested code or triggers regeneration.
type Resolver struct {
	store        Repository
	generateCode CodeGenerator
	maxAttempts  int
}

// NewResolver creates a resolver. maxAttempts <= 0 means DefaultMaxGenerateAttempts.
func NewResolver(store Repository, generator CodeGenerator, maxAttempts int) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxGenerateAttempts
	}

	return &Resolver{
		store:        store,
		generateCode: generator,
		maxAttempts:  maxAttempts,
	}
}

// Claim persists shortURL under requested, or under a generated code when requested is empty.
// On success shortURL.Code holds the claimed code.
func (r *Resolver) Claim(ctx context.Context, shortURL *ShortURL, requested Code) error {
	if requested != "" {
		return r.claimRequested(ctx, shortURL, requested)
	}

	return r.claimGenerated(ctx, shortURL)
}

func (r *Resolver) claimRequested(ctx context.Context, shortURL *ShortURL, requested Code) error {
	shortURL.Code = requested

	err := r.store.Insert(ctx, shortURL)
	if errors.Is(err, ErrCodeExists) {
		return ErrDuplicateCode
	}

	return err
}

func (r *Resolver) claimGenerated(ctx context.Context, shortURL *ShortURL) error {
	for range r.maxAttempts {
		shortURL.Code = Code(r.generateCode())

		err := r.store.Insert(ctx, shortURL)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrCodeExists) {
			return err
		}
	}

	shortURL.Code = ""

	return ErrCodeSpaceExhausted
}
