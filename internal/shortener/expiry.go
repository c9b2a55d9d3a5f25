package shortener

import (
	"math"
	"time"
)

const (
	// DefaultValidityMinutes is the validity window applied when a request does not set one.
	DefaultValidityMinutes = 30

	// MaxValidityMinutes is the longest window whose duration still fits in a time.Duration.
	MaxValidityMinutes = math.MaxInt64 / int64(time.Minute)
)

// ExpiryInstant returns createdAt shifted by the validity window.
func ExpiryInstant(createdAt time.Time, validityMinutes int) time.Time {
	return createdAt.Add(time.Duration(validityMinutes) * time.Minute)
}

// IsExpired reports whether now is strictly after the expiry instant.
// A record is still valid at the exact expiry instant.
func IsExpired(createdAt time.Time, validityMinutes int, now time.Time) bool {
	return now.After(ExpiryInstant(createdAt, validityMinutes))
}
