package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/serroba/shorturl-service/internal/analytics"
	"github.com/serroba/shorturl-service/internal/messaging"
	"github.com/serroba/shorturl-service/internal/shortener"
	"go.uber.org/zap"
)

// Shortener is the lifecycle the URL handler exposes over HTTP.
type Shortener interface {
	Create(ctx context.Context, req shortener.CreateRequest) (*shortener.ShortURL, error)
	Stat(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error)
	Redirect(ctx context.Context, code shortener.Code, source string) (*shortener.ShortURL, error)
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service            Shortener
	baseURL            string
	publishURLCreated  messaging.Publish[analytics.URLCreatedEvent]
	publishURLAccessed messaging.Publish[analytics.URLAccessedEvent]
	logger             *zap.Logger
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service Shortener,
	baseURL string,
	publishURLCreated messaging.Publish[analytics.URLCreatedEvent],
	publishURLAccessed messaging.Publish[analytics.URLAccessedEvent],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:            service,
		baseURL:            baseURL,
		publishURLCreated:  publishURLCreated,
		publishURLAccessed: publishURLAccessed,
		logger:             logger,
	}
}

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for click sources and analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	shortURL, err := h.service.Create(ctx, shortener.CreateRequest{
		OriginalURL:     req.Body.URL,
		ValidityMinutes: req.Body.Validity,
		Code:            shortener.Code(req.Body.Shortcode),
	})
	if err != nil {
		return nil, toHTTPError(err)
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.URLCreatedEvent{
		Code:            string(shortURL.Code),
		OriginalURL:     shortURL.OriginalURL,
		ValidityMinutes: shortURL.ValidityMinutes,
		CustomCode:      req.Body.Shortcode != "",
		CreatedAt:       shortURL.CreatedAt,
		ExpiresAt:       shortURL.ExpiresAt(),
		ClientIP:        meta.ClientIP,
		UserAgent:       meta.UserAgent,
	}

	if err := h.publishURLCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish analytics event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	shortLink := fmt.Sprintf("%s/%s", h.baseURL, shortURL.Code)

	resp := &CreateShortURLResponse{}
	resp.Location = shortLink
	resp.Body.ShortLink = shortLink
	resp.Body.Expiry = formatTime(shortURL.ExpiresAt())

	return resp, nil
}

func (h *URLHandler) GetStats(ctx context.Context, req *StatRequest) (*StatResponse, error) {
	shortURL, err := h.service.Stat(ctx, shortener.Code(req.Code))
	if err != nil {
		return nil, toHTTPError(err)
	}

	resp := &StatResponse{}
	resp.Body.TotalClicks = shortURL.ClickCount
	resp.Body.OriginalURL = shortURL.OriginalURL
	resp.Body.CreatedAt = formatTime(shortURL.CreatedAt)
	resp.Body.ExpiryDate = formatTime(shortURL.ExpiresAt())
	resp.Body.ClickDetails = make([]ClickDetail, 0, len(shortURL.Clicks))

	for _, click := range shortURL.Clicks {
		resp.Body.ClickDetails = append(resp.Body.ClickDetails, ClickDetail{
			Timestamp: formatTime(click.Timestamp),
			Source:    click.Source,
		})
	}

	return resp, nil
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := RequestMetaFromContext(ctx)

	shortURL, err := h.service.Redirect(ctx, shortener.Code(req.Code), meta.UserAgent)
	if err != nil {
		return nil, toHTTPError(err)
	}

	event := &analytics.URLAccessedEvent{
		Code:        req.Code,
		AccessedAt:  time.Now().UTC(),
		TotalClicks: shortURL.ClickCount,
		ClientIP:    meta.ClientIP,
		UserAgent:   meta.UserAgent,
		Referrer:    meta.Referrer,
	}

	if len(shortURL.Clicks) > 0 {
		event.AccessedAt = shortURL.Clicks[len(shortURL.Clicks)-1].Timestamp
	}

	if err = h.publishURLAccessed(ctx, event); err != nil {
		h.logger.Error("failed to publish access event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	return &RedirectResponse{
		Status:   http.StatusFound,
		Location: shortURL.OriginalURL,
	}, nil
}

func (h *URLHandler) Banner(_ context.Context, _ *struct{}) (*BannerResponse, error) {
	resp := &BannerResponse{}
	resp.Body.Message = "URL shortener service is running"

	return resp, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(ISOTimeFormat)
}
