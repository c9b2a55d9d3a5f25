package shortener

import "errors"

var (
	ErrNotFound        = errors.New("short url not found")
	ErrExpired         = errors.New("short url has expired")
	ErrMissingURL      = errors.New("url is required")
	ErrInvalidURL      = errors.New("invalid url format")
	ErrInvalidValidity = errors.New("validity out of range")
	ErrDuplicateCode   = errors.New("shortcode already exists")

	// ErrCodeExists is returned by a Repository when an insert hits a taken code.
	ErrCodeExists = errors.New("code already exists")

	// ErrCodeSpaceExhausted is returned when no free generated code was found
	// within the configured number of attempts.
	ErrCodeSpaceExhausted = errors.New("no free code found")
)

// InternalError wraps store or unexpected failures. Its detail is meant for logs only.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsInternal reports whether err is an InternalError.
func IsInternal(err error) bool {
	var internalErr *InternalError

	return errors.As(err, &internalErr)
}

func internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}
