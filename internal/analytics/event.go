package analytics

import "time"

const (
	TopicURLCreated  = "url.created"
	TopicURLAccessed = "url.accessed"
)

// URLCreatedEvent represents an event emitted when a URL is shortened.
type URLCreatedEvent struct {
	Code            string    `json:"code"`
	OriginalURL     string    `json:"originalUrl"`
	ValidityMinutes int       `json:"validityMinutes"`
	CustomCode      bool      `json:"customCode"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	ClientIP        string    `json:"clientIp"`
	UserAgent       string    `json:"userAgent"`
}

// URLAccessedEvent represents an event emitted when a short URL redirects.
type URLAccessedEvent struct {
	Code        string    `json:"code"`
	AccessedAt  time.Time `json:"accessedAt"`
	// TotalClicks is the count read before this click plus one. Concurrent
	// redirects on the same code can report the same value; use the stats
	// endpoint for the authoritative count.
	TotalClicks int64     `json:"totalClicks"`
	ClientIP    string    `json:"clientIp"`
	UserAgent   string    `json:"userAgent"`
	Referrer    string    `json:"referrer"`
}
