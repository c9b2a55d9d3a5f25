package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shorturl-service/internal/shortener"
)

// toHTTPError maps lifecycle errors to status errors. Internal failures
// never expose their cause to the client.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, shortener.ErrMissingURL):
		return huma.Error400BadRequest("url is required")
	case errors.Is(err, shortener.ErrInvalidURL):
		return huma.Error400BadRequest("invalid url format")
	case errors.Is(err, shortener.ErrInvalidValidity):
		return huma.Error400BadRequest(fmt.Sprintf("validity must be between 0 and %d minutes", shortener.MaxValidityMinutes))
	case errors.Is(err, shortener.ErrDuplicateCode):
		return huma.Error400BadRequest("shortcode already exists")
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("shortcode not found")
	case errors.Is(err, shortener.ErrExpired):
		return huma.NewError(http.StatusGone, "short url has expired")
	default:
		return huma.Error500InternalServerError("internal server error")
	}
}
