package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/interview-coach/internal/feedback"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/sessions"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Fields  []string
	Message string
}

func (e *ErrValidation) Error() string {
	if len(e.Fields) == 0 {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", strings.Join(e.Fields, ", "), e.Message)
}

// ErrForbidden indicates the caller asked for another user's data
type ErrForbidden struct {
	CallerID    string
	RequestedID string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("user %q may not access sessions of %q", e.CallerID, e.RequestedID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var forbiddenErr *ErrForbidden
	var maxBytesErr *http.MaxBytesError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrMissingToken), errors.Is(err, middleware.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.As(err, &forbiddenErr):
		return http.StatusForbidden
	case errors.Is(err, feedback.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, feedback.ErrUpstreamUnavailable), errors.Is(err, sessions.ErrStoreUnavailable):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

const redactedMessage = "Internal server error"

// errorDetail returns the cause of err for development builds and a fixed
// message otherwise.
func (s *Server) errorDetail(err error) string {
	if !s.cfg.IsDevelopment() {
		return redactedMessage
	}
	var unparseable *feedback.UnparseableResponseError
	if errors.As(err, &unparseable) {
		return unparseable.Detail()
	}
	return err.Error()
}
