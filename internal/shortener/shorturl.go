package shortener

import (
	"slices"
	"time"
)

// Code represents a short URL code.
type Code string

// UnknownSource labels clicks whose caller did not identify itself.
const UnknownSource = "unknown"

// ClickEvent is a single recorded access to a short URL.
type ClickEvent struct {
	Timestamp time.Time
	Source    string
}

// ShortURL represents a shortened URL entity.
//
// A record is immutable after creation except for click growth, and
// ClickCount always equals len(Clicks).
type ShortURL struct {
	Code            Code
	OriginalURL     string
	ValidityMinutes int
	CreatedAt       time.Time
	ClickCount      int64
	Clicks          []ClickEvent
}

// ExpiresAt returns the fixed instant after which the record stops resolving.
func (u *ShortURL) ExpiresAt() time.Time {
	return ExpiryInstant(u.CreatedAt, u.ValidityMinutes)
}

// IsExpired reports whether the record is expired at now.
func (u *ShortURL) IsExpired(now time.Time) bool {
	return IsExpired(u.CreatedAt, u.ValidityMinutes, now)
}

// WithClick returns a copy of the record with event appended and the counter incremented.
func (u *ShortURL) WithClick(event ClickEvent) *ShortURL {
	clicked := u.Clone()
	clicked.Clicks = append(clicked.Clicks, event)
	clicked.ClickCount++

	return clicked
}

// Clone returns a deep copy of the record.
func (u *ShortURL) Clone() *ShortURL {
	clone := *u

	clone.Clicks = slices.Clone(u.Clicks)
	if clone.Clicks == nil {
		clone.Clicks = []ClickEvent{}
	}

	return &clone
}
