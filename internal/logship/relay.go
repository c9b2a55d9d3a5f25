package logship

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

// RelayHandler accepts log entries over HTTP and forwards them through a Logger.
type RelayHandler struct {
	logger Logger
	token  string
}

// NewRelayHandler creates a relay handler. token is the bearer token expected by Status.
func NewRelayHandler(logger Logger, token string) *RelayHandler {
	return &RelayHandler{
		logger: logger,
		token:  token,
	}
}

// StatusRequest carries the bearer token being checked.
type StatusRequest struct {
	Authorization string `doc:"Bearer token" header:"Authorization"`
}

// StatusResponse confirms the relay is reachable and the token is valid.
type StatusResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

// RelayLogRequest is a log entry submitted to the relay.
type RelayLogRequest struct {
	Body struct {
		Stack   string `doc:"Emitting stack"       example:"backend"                json:"stack,omitempty"`
		Level   string `doc:"Severity"             example:"error"                  json:"level,omitempty"`
		Package string `doc:"Emitting package"     example:"handler"                json:"package,omitempty"`
		Message string `doc:"Free-form log message" example:"received string, expected bool" json:"message,omitempty"`
	}
}

// RelayLogResponse acknowledges an accepted entry.
type RelayLogResponse struct {
	Body struct {
		Message string `json:"message"`
		LogID   string `json:"logID"`
	}
}

// Status checks the bearer token.
func (h *RelayHandler) Status(_ context.Context, req *StatusRequest) (*StatusResponse, error) {
	if h.token == "" || req.Authorization != "Bearer "+h.token {
		return nil, huma.Error401Unauthorized("bearer not correct")
	}

	resp := &StatusResponse{}
	resp.Body.Message = "log relay working fine"

	return resp, nil
}

// Log validates the entry and hands it to the logger.
func (h *RelayHandler) Log(_ context.Context, req *RelayLogRequest) (*RelayLogResponse, error) {
	entry, err := NewEntry(Stack(req.Body.Stack), Level(req.Body.Level), Package(req.Body.Package), req.Body.Message)
	if err != nil {
		if errors.Is(err, ErrMissingField) {
			return nil, huma.Error400BadRequest(ErrMissingField.Error())
		}

		return nil, huma.Error400BadRequest(err.Error())
	}

	h.logger.Log(entry.Stack, entry.Level, entry.Package, entry.Message)

	resp := &RelayLogResponse{}
	resp.Body.Message = "log received and forwarded"
	resp.Body.LogID = uuid.NewString()

	return resp, nil
}

// RegisterRelayRoutes registers the relay routes.
func RegisterRelayRoutes(api huma.API, h *RelayHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "relay-status",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Check relay token",
		Tags:        []string{"Logs"},
	}, h.Status)

	huma.Register(api, huma.Operation{
		OperationID: "relay-log",
		Method:      http.MethodPost,
		Path:        "/log",
		Summary:     "Submit log entry",
		Description: "Validates a log entry and forwards it to the remote collector.",
		Tags:        []string{"Logs"},
	}, h.Log)
}
