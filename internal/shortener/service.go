package shortener

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// CreateRequest is the input of Service.Create.
type CreateRequest struct {
	OriginalURL string
	// ValidityMinutes of zero means the service default.
	ValidityMinutes int
	// Code is the requested shortcode; empty means generate one.
	// Requested codes are accepted as arbitrary non-empty strings.
	Code Code
}

// Service implements the short URL lifecycle: Create, Stat and Redirect.
type Service struct {
	store           Repository
	resolver        *Resolver
	observer        Observer
	defaultValidity int
	now             func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithObserver sets the observer notified at operation extension points.
func WithObserver(observer Observer) Option {
	return func(s *Service) {
		s.observer = observer
	}
}

// WithDefaultValidity sets the validity applied when a request leaves it unset.
// Values outside 1..MaxValidityMinutes are ignored.
func WithDefaultValidity(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 && int64(minutes) <= MaxValidityMinutes {
			s.defaultValidity = minutes
		}
	}
}

// NewService creates a lifecycle service.
func NewService(store Repository, resolver *Resolver, opts ...Option) *Service {
	s := &Service{
		store:           store,
		resolver:        resolver,
		observer:        NopObserver{},
		defaultValidity: DefaultValidityMinutes,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create validates the request, claims a code and persists a new record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*ShortURL, error) {
	s.observer.Started(OpCreate)

	shortURL, err := s.create(ctx, req)
	s.finish(OpCreate, err)

	return shortURL, err
}

// Stat returns the record for code without mutating it.
func (s *Service) Stat(ctx context.Context, code Code) (*ShortURL, error) {
	s.observer.Started(OpStat)

	shortURL, err := s.findActive(ctx, code, s.now())
	s.finish(OpStat, err)

	return shortURL, err
}

// Redirect records a click from source and returns the updated record.
func (s *Service) Redirect(ctx context.Context, code Code, source string) (*ShortURL, error) {
	s.observer.Started(OpRedirect)

	shortURL, err := s.redirect(ctx, code, source)
	s.finish(OpRedirect, err)

	return shortURL, err
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*ShortURL, error) {
	if req.OriginalURL == "" {
		return nil, ErrMissingURL
	}

	if !isAbsoluteURL(req.OriginalURL) {
		return nil, ErrInvalidURL
	}

	validity := req.ValidityMinutes
	if validity < 0 || int64(validity) > MaxValidityMinutes {
		return nil, ErrInvalidValidity
	}

	if validity == 0 {
		validity = s.defaultValidity
	}

	shortURL := &ShortURL{
		OriginalURL:     req.OriginalURL,
		ValidityMinutes: validity,
		CreatedAt:       s.now(),
		ClickCount:      0,
		Clicks:          []ClickEvent{},
	}

	if err := s.resolver.Claim(ctx, shortURL, req.Code); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, err
		}

		return nil, internal("claim code", err)
	}

	return shortURL, nil
}

func (s *Service) redirect(ctx context.Context, code Code, source string) (*ShortURL, error) {
	now := s.now()

	shortURL, err := s.findActive(ctx, code, now)
	if err != nil {
		return nil, err
	}

	return s.recordClick(ctx, shortURL, source, now)
}

// findActive loads the record and evaluates expiry from its stored creation time.
func (s *Service) findActive(ctx context.Context, code Code, now time.Time) (*ShortURL, error) {
	shortURL, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, internal("find by code", err)
	}

	if shortURL.IsExpired(now) {
		return nil, ErrExpired
	}

	return shortURL, nil
}

// recordClick persists the click before returning the updated record.
// Callers must only pass non-expired records.
func (s *Service) recordClick(ctx context.Context, shortURL *ShortURL, source string, now time.Time) (*ShortURL, error) {
	if source == "" {
		source = UnknownSource
	}

	event := ClickEvent{Timestamp: now, Source: source}

	if err := s.store.AppendClick(ctx, shortURL.Code, event); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, internal("append click", err)
	}

	return shortURL.WithClick(event), nil
}

func (s *Service) finish(op Operation, err error) {
	switch {
	case err == nil:
		s.observer.Succeeded(op)
	case IsInternal(err):
		s.observer.Failed(op, err)
	default:
		s.observer.Rejected(op, err)
	}
}

// isAbsoluteURL reports whether raw parses with both a scheme and a host.
func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}
