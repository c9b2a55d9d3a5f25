package logship

import (
	"errors"

	"github.com/serroba/shorturl-service/internal/shortener"
)

var startedMessages = map[shortener.Operation]string{
	shortener.OpCreate:   "Create short URL request received",
	shortener.OpStat:     "Get URL statistics request",
	shortener.OpRedirect: "Redirect request received",
}

var succeededMessages = map[shortener.Operation]string{
	shortener.OpCreate:   "Short URL created successfully",
	shortener.OpStat:     "URL statistics retrieved successfully",
	shortener.OpRedirect: "Successful redirect to original URL",
}

var failedMessages = map[shortener.Operation]string{
	shortener.OpCreate:   "Error creating short URL",
	shortener.OpStat:     "Error retrieving URL statistics",
	shortener.OpRedirect: "Error during redirect",
}

// ServiceObserver reports shortener lifecycle events to a remote Logger
// under the controller package.
type ServiceObserver struct {
	logger Logger
}

// NewServiceObserver creates an observer logging through logger.
func NewServiceObserver(logger Logger) *ServiceObserver {
	return &ServiceObserver{logger: logger}
}

func (o *ServiceObserver) Started(op shortener.Operation) {
	o.logger.Log(StackBackend, LevelInfo, PackageController, startedMessages[op])
}

func (o *ServiceObserver) Rejected(op shortener.Operation, err error) {
	o.logger.Log(StackBackend, LevelWarn, PackageController, rejectedMessage(op, err))
}

func (o *ServiceObserver) Succeeded(op shortener.Operation) {
	o.logger.Log(StackBackend, LevelInfo, PackageController, succeededMessages[op])
}

func (o *ServiceObserver) Failed(op shortener.Operation, _ error) {
	o.logger.Log(StackBackend, LevelError, PackageController, failedMessages[op])
}

func rejectedMessage(op shortener.Operation, err error) string {
	switch {
	case errors.Is(err, shortener.ErrMissingURL):
		return "URL field missing in request"
	case errors.Is(err, shortener.ErrInvalidURL):
		return "Invalid URL format provided"
	case errors.Is(err, shortener.ErrInvalidValidity):
		return "Invalid validity provided"
	case errors.Is(err, shortener.ErrDuplicateCode):
		return "Shortcode already exists"
	case errors.Is(err, shortener.ErrNotFound) && op == shortener.OpRedirect:
		return "Shortcode not found for redirect"
	case errors.Is(err, shortener.ErrNotFound):
		return "Shortcode not found"
	case errors.Is(err, shortener.ErrExpired) && op == shortener.OpRedirect:
		return "Expired short URL access attempt"
	case errors.Is(err, shortener.ErrExpired):
		return "Short URL has expired"
	default:
		return "Request rejected: " + err.Error()
	}
}

// Compile-time check.
var _ shortener.Observer = (*ServiceObserver)(nil)
